package ledger

import (
	"fmt"
	"sort"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

// pair is an unordered pair of members keyed with lo < hi.
type pair struct {
	lo, hi string
}

// edge orients net as a debtor to creditor edge. A zero net yields a zero
// edge from lo to hi.
func (p pair) edge(groupID string, net money.Money) models.Edge {
	if net.Sign() < 0 {
		return models.Edge{GroupID: groupID, Debtor: p.hi, Creditor: p.lo, Amount: net.Abs()}
	}
	return models.Edge{GroupID: groupID, Debtor: p.lo, Creditor: p.hi, Amount: net}
}

func pairOf(a, b string) (pair, bool) {
	if a < b {
		return pair{lo: a, hi: b}, false
	}
	return pair{lo: b, hi: a}, true
}

// Matrix is a sparse signed balance matrix for one group. For every
// unordered pair it stores a single net: positive means lo owes hi. Zero
// nets are never retained, so the edge view is canonical by construction.
type Matrix struct {
	nets    map[pair]money.Money
	touched map[pair]struct{}
}

// NewMatrix returns an empty matrix.
func NewMatrix() *Matrix {
	return &Matrix{
		nets:    make(map[pair]money.Money),
		touched: make(map[pair]struct{}),
	}
}

// matrixFrom loads stored pair balances.
func matrixFrom(rows []storage.PairBalance) (*Matrix, error) {
	m := NewMatrix()
	for _, r := range rows {
		if r.Lo >= r.Hi {
			return nil, fmt.Errorf("stored pair %s/%s is not normalized", r.Lo, r.Hi)
		}
		if r.Net == 0 {
			return nil, fmt.Errorf("stored pair %s/%s has a zero balance", r.Lo, r.Hi)
		}
		m.nets[pair{lo: r.Lo, hi: r.Hi}] = r.Net
	}
	return m, nil
}

// Add records that debtor owes creditor amount more than before, netting it
// against whatever the pair already holds. Self obligations and zero amounts
// are ignored.
func (m *Matrix) Add(debtor, creditor string, amount money.Money) error {
	if debtor == creditor || amount == 0 {
		return nil
	}
	p, flipped := pairOf(debtor, creditor)
	delta := amount
	if flipped {
		delta = amount.Neg()
	}

	net, err := m.nets[p].CheckedAdd(delta)
	if err != nil {
		return fmt.Errorf("balance %s/%s: %w", p.lo, p.hi, err)
	}
	m.touched[p] = struct{}{}
	if net == 0 {
		delete(m.nets, p)
		return nil
	}
	m.nets[p] = net
	return nil
}

// Apply folds a list of entries into the matrix.
func (m *Matrix) Apply(entries []models.Entry) error {
	for _, e := range entries {
		if err := m.Add(e.Debtor, e.Creditor, e.Amount); err != nil {
			return err
		}
	}
	return nil
}

// Balance returns what a owes b: positive when a owes b, negative when b
// owes a.
func (m *Matrix) Balance(a, b string) money.Money {
	if a == b {
		return 0
	}
	p, flipped := pairOf(a, b)
	if flipped {
		return m.nets[p].Neg()
	}
	return m.nets[p]
}

// Edges returns the canonical edge set sorted by debtor, then creditor.
func (m *Matrix) Edges(groupID string) []models.Edge {
	edges := make([]models.Edge, 0, len(m.nets))
	for p, net := range m.nets {
		edges = append(edges, p.edge(groupID, net))
	}
	sortEdges(edges)
	return edges
}

// Changes returns the new value of every pair touched since the matrix was
// loaded, including pairs that dropped to zero.
func (m *Matrix) Changes() []storage.PairBalance {
	out := make([]storage.PairBalance, 0, len(m.touched))
	for p := range m.touched {
		out = append(out, storage.PairBalance{Lo: p.lo, Hi: p.hi, Net: m.nets[p]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Lo != out[j].Lo {
			return out[i].Lo < out[j].Lo
		}
		return out[i].Hi < out[j].Hi
	})
	return out
}

func sortEdges(edges []models.Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Debtor != edges[j].Debtor {
			return edges[i].Debtor < edges[j].Debtor
		}
		return edges[i].Creditor < edges[j].Creditor
	})
}
