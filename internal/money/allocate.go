package money

import (
	"fmt"
	"math"
	"math/bits"
	"sort"
)

// SplitEven divides total into n parts that differ by at most one unit.
// The first total mod n parts receive the extra unit, so the order of the
// caller's list decides who absorbs the remainder.
func SplitEven(total Money, n int) ([]Money, error) {
	if n <= 0 {
		return nil, fmt.Errorf("split into %d parts", n)
	}
	if total < 0 {
		return nil, fmt.Errorf("split negative amount %d", total)
	}
	base := total / Money(n)
	rem := int(total % Money(n))
	parts := make([]Money, n)
	for i := range parts {
		parts[i] = base
		if i < rem {
			parts[i]++
		}
	}
	return parts, nil
}

// Allocate distributes total proportionally to weights using the
// largest-remainder method.
//
// Each part starts at floor(total*w/W). The leftover units go one at a time to
// the parts with the largest (total*w mod W), ties broken by position. The
// returned parts always sum to total.
func Allocate(total Money, weights []int64) ([]Money, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("allocate across zero weights")
	}
	if total < 0 {
		return nil, fmt.Errorf("allocate negative amount %d", total)
	}

	var sum uint64
	for i, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("negative weight %d at position %d", w, i)
		}
		var carry uint64
		sum, carry = bits.Add64(sum, uint64(w), 0)
		if carry != 0 || sum > math.MaxInt64 {
			return nil, fmt.Errorf("%w: weight sum", ErrOverflow)
		}
	}
	if sum == 0 {
		return nil, fmt.Errorf("weights sum to zero")
	}

	// total*w = (q*W + r)*w, so floor(total*w/W) = q*w + floor(r*w/W) and the
	// remainder key is (r*w) mod W. r < W keeps r*w inside 128 bits.
	q := uint64(total) / sum
	r := uint64(total) % sum

	parts := make([]Money, len(weights))
	keys := make([]uint64, len(weights))
	var allocated Money
	for i, w := range weights {
		hi, lo := bits.Mul64(r, uint64(w))
		if hi >= sum {
			return nil, fmt.Errorf("%w: weight %d", ErrOverflow, w)
		}
		quo, rem := bits.Div64(hi, lo, sum)
		parts[i] = Money(q*uint64(w) + quo)
		keys[i] = rem
		allocated += parts[i]
	}

	left := int(total - allocated)
	if left < 0 || left >= len(weights) {
		return nil, fmt.Errorf("allocation remainder %d out of range", left)
	}

	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return keys[order[a]] > keys[order[b]]
	})
	for _, idx := range order[:left] {
		parts[idx]++
	}
	return parts, nil
}
