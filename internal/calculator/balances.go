package calculator

import (
	"sort"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
)

// MemberBalance represents the balance information for one group member.
type MemberBalance struct {
	MemberID  string
	Net       money.Money // Positive = owed money, negative = owes money
	Owed      money.Money // Total others owe this member
	Owing     money.Money // Total this member owes others
	EdgeCount int
}

// MemberBalances folds canonical edges into per-member totals, sorted by
// member id. The nets always sum to zero.
func MemberBalances(edges []models.Edge) []MemberBalance {
	balances := make(map[string]*MemberBalance)
	get := func(id string) *MemberBalance {
		b, ok := balances[id]
		if !ok {
			b = &MemberBalance{MemberID: id}
			balances[id] = b
		}
		return b
	}

	for _, e := range edges {
		debtor := get(e.Debtor)
		debtor.Owing += e.Amount
		debtor.EdgeCount++

		creditor := get(e.Creditor)
		creditor.Owed += e.Amount
		creditor.EdgeCount++
	}

	out := make([]MemberBalance, 0, len(balances))
	for _, b := range balances {
		b.Net = b.Owed - b.Owing
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberID < out[j].MemberID })
	return out
}

// Simplify proposes a smaller set of transfers that settles the same net
// positions as edges. It is a read-only view: the ledger keeps its pairwise
// edges and never stores the simplified graph.
//
// Algorithm: compute each member's net, then greedily match the largest
// debtor with the largest creditor for min(debt, credit) until both sides
// are exhausted. Ties are ordered by member id so output is deterministic.
func Simplify(groupID string, edges []models.Edge) []models.Edge {
	type position struct {
		id     string
		amount money.Money
	}

	var creditors, debtors []position
	for _, b := range MemberBalances(edges) {
		switch {
		case b.Net > 0:
			creditors = append(creditors, position{b.MemberID, b.Net})
		case b.Net < 0:
			debtors = append(debtors, position{b.MemberID, -b.Net})
		}
	}
	byAmount := func(ps []position) func(i, j int) bool {
		return func(i, j int) bool {
			if ps[i].amount != ps[j].amount {
				return ps[i].amount > ps[j].amount
			}
			return ps[i].id < ps[j].id
		}
	}
	sort.Slice(creditors, byAmount(creditors))
	sort.Slice(debtors, byAmount(debtors))

	var transfers []models.Edge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := debtors[i].amount
		if creditors[j].amount < amount {
			amount = creditors[j].amount
		}

		transfers = append(transfers, models.Edge{
			GroupID:  groupID,
			Debtor:   debtors[i].id,
			Creditor: creditors[j].id,
			Amount:   amount,
		})

		debtors[i].amount -= amount
		creditors[j].amount -= amount
		if debtors[i].amount == 0 {
			i++
		}
		if creditors[j].amount == 0 {
			j++
		}
	}
	return transfers
}
