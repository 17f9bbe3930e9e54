// Package settlement records payments between group members against the
// ledger.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

// OverpaymentPolicy decides what happens when a settlement exceeds what the
// payer owes the payee.
type OverpaymentPolicy string

const (
	// RejectOverpayment fails such settlements with *models.OverpaymentError.
	RejectOverpayment OverpaymentPolicy = "reject"
	// AllowOverpayment applies them; the edge flips towards the payer.
	AllowOverpayment OverpaymentPolicy = "allow"
)

// ParsePolicy parses a policy name. The empty string selects RejectOverpayment.
func ParsePolicy(s string) (OverpaymentPolicy, error) {
	switch OverpaymentPolicy(s) {
	case "", RejectOverpayment:
		return RejectOverpayment, nil
	case AllowOverpayment:
		return AllowOverpayment, nil
	}
	return "", fmt.Errorf("unknown overpayment policy %q", s)
}

// Request is a settlement as submitted by a client. ID is optional; callers
// that retry must supply one to get idempotent replays.
type Request struct {
	ID        string
	GroupID   string
	PayerID   string
	PayeeID   string
	Amount    money.Money
	Method    string
	Reference string
	Note      string
	CreatedBy string
}

// Result is the recorded settlement.
type Result struct {
	Settlement *models.Settlement
	// Duplicate is set when the settlement id had been recorded before; the
	// returned settlement is the original one.
	Duplicate bool
}

// Processor validates settlements and applies them to the ledger.
type Processor struct {
	ledger  *ledger.Ledger
	store   storage.LedgerStore
	members storage.Membership
	policy  OverpaymentPolicy
	now     func() time.Time
}

// NewProcessor creates a Processor.
func NewProcessor(l *ledger.Ledger, store storage.LedgerStore, members storage.Membership, policy OverpaymentPolicy) *Processor {
	return &Processor{
		ledger:  l,
		store:   store,
		members: members,
		policy:  policy,
		now:     time.Now,
	}
}

// Policy returns the configured overpayment policy.
func (p *Processor) Policy() OverpaymentPolicy {
	return p.policy
}

// Record validates req and applies it. Replays of a known settlement id
// return the original settlement without re-validating against the current
// ledger state. Reusing an id for a different settlement is rejected.
func (p *Processor) Record(ctx context.Context, req Request) (*Result, error) {
	if req.ID != "" {
		if prev, err := p.store.GetSettlement(ctx, req.ID); err == nil {
			return replay(ctx, req, prev)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up settlement: %w", err)
		}
	}

	if err := p.validate(ctx, req); err != nil {
		slog.WarnContext(ctx, "Settlement rejected", "group_id", req.GroupID, "error", err)
		return nil, err
	}

	s := &models.Settlement{
		ID:        req.ID,
		GroupID:   req.GroupID,
		PayerID:   req.PayerID,
		PayeeID:   req.PayeeID,
		Amount:    req.Amount,
		Method:    req.Method,
		Reference: req.Reference,
		Note:      req.Note,
		CreatedBy: req.CreatedBy,
		CreatedAt: p.now().Unix(),
	}
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Method == "" {
		s.Method = models.DefaultSettlementMethod
	}

	out, err := p.ledger.ApplySettlement(ctx, s, p.guard(s))
	if err != nil {
		var over *models.OverpaymentError
		if errors.As(err, &over) {
			slog.WarnContext(ctx, "Settlement exceeds outstanding debt",
				"group_id", s.GroupID, "payer", s.PayerID, "payee", s.PayeeID,
				"amount", s.Amount, "outstanding", over.Outstanding)
		}
		return nil, err
	}
	if out.Duplicate {
		// Lost a race with a concurrent delivery of the same id.
		prev, err := p.store.GetSettlement(ctx, s.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load recorded settlement: %w", err)
		}
		return replay(ctx, req, prev)
	}

	slog.InfoContext(ctx, "Settlement recorded",
		"settlement_id", s.ID, "group_id", s.GroupID, "amount", s.Amount)
	return &Result{Settlement: s}, nil
}

func replay(ctx context.Context, req Request, prev *models.Settlement) (*Result, error) {
	if prev.GroupID != req.GroupID || prev.PayerID != req.PayerID ||
		prev.PayeeID != req.PayeeID || prev.Amount != req.Amount {
		return nil, models.Invalid("settlement_id", "%s was already used for a different settlement", req.ID)
	}
	slog.DebugContext(ctx, "Settlement replay absorbed", "settlement_id", req.ID)
	return &Result{Settlement: prev, Duplicate: true}, nil
}

func (p *Processor) validate(ctx context.Context, req Request) error {
	switch {
	case req.GroupID == "":
		return models.Invalid("group_id", "must not be empty")
	case req.PayerID == "":
		return models.Invalid("payer_id", "must not be empty")
	case req.PayeeID == "":
		return models.Invalid("payee_id", "must not be empty")
	case req.Amount <= 0:
		return models.Invalid("amount", "must be positive, got %s", req.Amount)
	case req.PayerID == req.PayeeID:
		return models.Invalid("payee_id", "payer and payee must differ")
	}

	for _, party := range []struct{ field, id string }{
		{"payer_id", req.PayerID},
		{"payee_id", req.PayeeID},
	} {
		ok, err := p.members.IsActiveMember(ctx, req.GroupID, party.id)
		if err != nil {
			return fmt.Errorf("failed to check membership: %w", err)
		}
		if !ok {
			return models.Invalid(party.field, "%s is not an active member of group %s", party.id, req.GroupID)
		}
	}
	return nil
}

func (p *Processor) guard(s *models.Settlement) ledger.SettlementGuard {
	if p.policy == AllowOverpayment {
		return nil
	}
	return func(outstanding money.Money) error {
		if s.Amount > outstanding {
			return &models.OverpaymentError{
				PayerID:     s.PayerID,
				PayeeID:     s.PayeeID,
				Outstanding: max(outstanding, 0),
				Amount:      s.Amount,
			}
		}
		return nil
	}
}
