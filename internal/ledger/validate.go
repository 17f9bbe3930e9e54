package ledger

import (
	"fmt"
	"sort"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
)

// Replay rebuilds a balance matrix from scratch by folding events in
// (AppliedAt, Seq) order. The input slice is not modified.
func Replay(events []models.LedgerEvent) (*Matrix, error) {
	ordered := make([]models.LedgerEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].AppliedAt != ordered[j].AppliedAt {
			return ordered[i].AppliedAt < ordered[j].AppliedAt
		}
		return ordered[i].Seq < ordered[j].Seq
	})

	m := NewMatrix()
	seen := make(map[string]struct{}, len(ordered))
	for _, ev := range ordered {
		if _, dup := seen[ev.ID]; dup {
			return nil, fmt.Errorf("event %s appears twice in history", ev.ID)
		}
		seen[ev.ID] = struct{}{}
		if err := m.Apply(ev.Entries); err != nil {
			return nil, fmt.Errorf("replay event %s: %w", ev.ID, err)
		}
	}
	return m, nil
}

// Validate checks a group's stored edge set against its full event history.
// It returns nil when the stored edges are canonical, net to zero and equal
// the replayed edges, and an *models.InconsistencyError otherwise.
func Validate(groupID string, events []models.LedgerEvent, stored []models.Edge) error {
	var problems []string

	seen := make(map[pair]models.Edge, len(stored))
	nets := make(map[string]money.Money)
	var total money.Money
	for _, e := range stored {
		switch {
		case e.Debtor == e.Creditor:
			problems = append(problems, fmt.Sprintf("self edge on %s", e.Debtor))
			continue
		case e.Amount <= 0:
			problems = append(problems, fmt.Sprintf("non-positive edge %s->%s: %s", e.Debtor, e.Creditor, e.Amount))
			continue
		}
		p, _ := pairOf(e.Debtor, e.Creditor)
		if prev, dup := seen[p]; dup {
			problems = append(problems, fmt.Sprintf("pair %s/%s has two edges (%s->%s and %s->%s)",
				p.lo, p.hi, prev.Debtor, prev.Creditor, e.Debtor, e.Creditor))
			continue
		}
		seen[p] = e
		nets[e.Debtor] -= e.Amount
		nets[e.Creditor] += e.Amount
	}
	for _, n := range nets {
		total += n
	}
	if total != 0 {
		problems = append(problems, fmt.Sprintf("member nets sum to %s", total))
	}

	replayed, err := Replay(events)
	if err != nil {
		problems = append(problems, err.Error())
	} else {
		problems = append(problems, diffEdges(replayed.Edges(groupID), seen)...)
	}

	if len(problems) > 0 {
		return &models.InconsistencyError{GroupID: groupID, Problems: problems}
	}
	return nil
}

func diffEdges(want []models.Edge, got map[pair]models.Edge) []string {
	var problems []string
	expected := make(map[pair]struct{}, len(want))
	for _, w := range want {
		p, _ := pairOf(w.Debtor, w.Creditor)
		expected[p] = struct{}{}
		g, ok := got[p]
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("missing edge %s->%s: %s", w.Debtor, w.Creditor, w.Amount))
		case g.Debtor != w.Debtor || g.Amount != w.Amount:
			problems = append(problems, fmt.Sprintf("edge %s->%s: stored %s, replayed %s->%s %s",
				g.Debtor, g.Creditor, g.Amount, w.Debtor, w.Creditor, w.Amount))
		}
	}

	var extra []models.Edge
	for p, g := range got {
		if _, ok := expected[p]; !ok {
			extra = append(extra, g)
		}
	}
	sortEdges(extra)
	for _, g := range extra {
		problems = append(problems, fmt.Sprintf("unexpected edge %s->%s: %s", g.Debtor, g.Creditor, g.Amount))
	}
	return problems
}
