package calculator

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
)

// FullBasisPoints is 100% expressed in hundredths of a percent.
const FullBasisPoints = 10000

// Share represents the calculated portion for one participant.
type Share struct {
	Participant string
	Amount      money.Money
}

// Split is a computed division in participant input order.
type Split []Share

// Map returns the split keyed by participant.
func (s Split) Map() map[string]money.Money {
	m := make(map[string]money.Money, len(s))
	for _, sh := range s {
		m[sh.Participant] = sh.Amount
	}
	return m
}

// Total returns the sum of all shares.
func (s Split) Total() money.Money {
	var t money.Money
	for _, sh := range s {
		t += sh.Amount
	}
	return t
}

// Compute divides amount among participants according to method.
//
// Participants must be non-empty and duplicate free, amount must be positive.
// Remainder cents are distributed deterministically:
//   - equal: one extra cent to each of the first (amount mod N) participants
//     in input order, so callers control who absorbs rounding by ordering;
//   - percentage and shares: largest remainder first, ties in input order.
//
// The returned shares always sum to amount. Invalid input yields a
// *models.ValidationError or, for exact splits that do not add up, a
// *models.AmountMismatchError; no partial result is returned.
func Compute(amount money.Money, method models.SplitMethod, participants []string, params models.SplitParams) (Split, error) {
	if amount <= 0 {
		return nil, models.Invalid("amount", "must be positive, got %d", amount)
	}
	if err := validateParticipants(participants); err != nil {
		return nil, err
	}
	if !method.Valid() {
		return nil, models.Invalid("method", "unknown split method %q", method)
	}
	if err := rejectForeignParams(method, params); err != nil {
		return nil, err
	}

	var (
		parts []money.Money
		err   error
	)
	switch method {
	case models.SplitEqual:
		parts, err = money.SplitEven(amount, len(participants))
	case models.SplitExact:
		parts, err = exactParts(amount, participants, params.Exact)
	case models.SplitPercentage:
		parts, err = percentageParts(amount, participants, params.BasisPoints)
	case models.SplitShares:
		parts, err = weightedParts(amount, participants, params.Weights)
	}
	if err != nil {
		return nil, err
	}

	split := make(Split, len(participants))
	var sum money.Money
	for i, p := range participants {
		split[i] = Share{Participant: p, Amount: parts[i]}
		sum += parts[i]
	}
	if sum != amount {
		return nil, fmt.Errorf("split of %s by %s sums to %s", amount, method, sum)
	}
	return split, nil
}

func validateParticipants(participants []string) error {
	if len(participants) == 0 {
		return models.Invalid("participants", "must not be empty")
	}
	seen := make(map[string]struct{}, len(participants))
	for i, p := range participants {
		if p == "" {
			return models.Invalid("participants", "entry %d is empty", i)
		}
		if _, dup := seen[p]; dup {
			return models.Invalid("participants", "duplicate participant %q", p)
		}
		seen[p] = struct{}{}
	}
	return nil
}

func rejectForeignParams(method models.SplitMethod, params models.SplitParams) error {
	if method != models.SplitExact && len(params.Exact) > 0 {
		return models.Invalid("params.exact", "not used by %s split", method)
	}
	if method != models.SplitPercentage && len(params.BasisPoints) > 0 {
		return models.Invalid("params.basis_points", "not used by %s split", method)
	}
	if method != models.SplitShares && len(params.Weights) > 0 {
		return models.Invalid("params.weights", "not used by %s split", method)
	}
	return nil
}

// ordered reads values for participants in order and checks the key set
// matches the participant set exactly.
func ordered[V any](field string, participants []string, values map[string]V) ([]V, error) {
	out := make([]V, len(participants))
	for i, p := range participants {
		v, ok := values[p]
		if !ok {
			return nil, models.Invalid(field, "missing value for participant %q", p)
		}
		out[i] = v
	}
	if len(values) != len(participants) {
		in := make(map[string]struct{}, len(participants))
		for _, p := range participants {
			in[p] = struct{}{}
		}
		var extra []string
		for k := range values {
			if _, ok := in[k]; !ok {
				extra = append(extra, k)
			}
		}
		sort.Strings(extra)
		return nil, models.Invalid(field, "%q is not a participant", extra[0])
	}
	return out, nil
}

func exactParts(amount money.Money, participants []string, exact map[string]money.Money) ([]money.Money, error) {
	parts, err := ordered("params.exact", participants, exact)
	if err != nil {
		return nil, err
	}
	for i, p := range parts {
		if p < 0 {
			return nil, models.Invalid("params.exact", "amount for %q is negative", participants[i])
		}
	}
	sum, err := money.Sum(parts...)
	if err != nil {
		return nil, models.Invalid("params.exact", "amounts overflow")
	}
	if sum != amount {
		return nil, &models.AmountMismatchError{Total: amount, Sum: sum}
	}
	return parts, nil
}

func percentageParts(amount money.Money, participants []string, bps map[string]int64) ([]money.Money, error) {
	weights, err := ordered("params.basis_points", participants, bps)
	if err != nil {
		return nil, err
	}
	var total int64
	for i, w := range weights {
		if w < 0 || w > FullBasisPoints {
			return nil, models.Invalid("params.basis_points", "value for %q must be within 0..%d, got %d",
				participants[i], FullBasisPoints, w)
		}
		total += w
	}
	if total != FullBasisPoints {
		return nil, models.Invalid("params.basis_points", "must total %d, got %d", FullBasisPoints, total)
	}
	return money.Allocate(amount, weights)
}

func weightedParts(amount money.Money, participants []string, ws map[string]int64) ([]money.Money, error) {
	weights, err := ordered("params.weights", participants, ws)
	if err != nil {
		return nil, err
	}
	for i, w := range weights {
		if w <= 0 {
			return nil, models.Invalid("params.weights", "weight for %q must be positive, got %d", participants[i], w)
		}
	}
	parts, err := money.Allocate(amount, weights)
	if err != nil {
		return nil, models.Invalid("params.weights", "%v", err)
	}
	return parts, nil
}

// PercentToBasisPoints converts a percentage string such as "33.33" into
// basis points. More than two decimals is an error, not a rounding.
func PercentToBasisPoints(percent string) (int64, error) {
	d, err := decimal.NewFromString(percent)
	if err != nil {
		return 0, models.Invalid("percentage", "%q is not a number", percent)
	}
	bp := d.Shift(2)
	if !bp.IsInteger() {
		return 0, models.Invalid("percentage", "%q has more than two decimal places", percent)
	}
	if bp.Sign() < 0 || bp.GreaterThan(decimal.NewFromInt(FullBasisPoints)) {
		return 0, models.Invalid("percentage", "%q must be between 0 and 100", percent)
	}
	return bp.IntPart(), nil
}
