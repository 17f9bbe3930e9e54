package main

import (
	"fmt"
	"strconv"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
)

// splitParams interprets participant=value pairs for the given method:
// decimal amounts for exact, percentages for percentage and integer
// weights for shares. Equal splits take no values.
func splitParams(method models.SplitMethod, values map[string]string) (models.SplitParams, error) {
	var params models.SplitParams
	if len(values) == 0 {
		return params, nil
	}

	switch method {
	case models.SplitExact:
		params.Exact = make(map[string]money.Money, len(values))
		for p, v := range values {
			amount, err := money.Parse(v)
			if err != nil {
				return params, fmt.Errorf("amount for %s: %w", p, err)
			}
			params.Exact[p] = amount
		}
	case models.SplitPercentage:
		params.BasisPoints = make(map[string]int64, len(values))
		for p, v := range values {
			bps, err := calculator.PercentToBasisPoints(v)
			if err != nil {
				return params, fmt.Errorf("percentage for %s: %w", p, err)
			}
			params.BasisPoints[p] = bps
		}
	case models.SplitShares:
		params.Weights = make(map[string]int64, len(values))
		for p, v := range values {
			w, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return params, fmt.Errorf("weight for %s: %w", p, err)
			}
			params.Weights[p] = w
		}
	default:
		return params, fmt.Errorf("split method %q takes no --param values", method)
	}
	return params, nil
}
