package stratagem

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rialto/internal/config"
	"rialto/internal/ledger"
	"rialto/internal/model"
	"rialto/internal/notify"
	"rialto/internal/relations"
	"rialto/internal/store"
)

// Processor ticks active stratagems. At most one unit of work happens per
// scheduling period; the last-executed marker on the record makes repeat
// invocations within a period no-ops.
type Processor struct {
	Citizens   store.CitizenRepo
	Stratagems store.StratagemRepo
	Ledger     *ledger.Ledger
	Notifier   *notify.Notifier
	Relations  *relations.Book
	Policy     config.Policy
	Now        func() time.Time
}

func (p *Processor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Tick runs one scheduling tick against a stratagem and returns the updated
// record. Non-active stratagems are untouched: suspension is never undone
// here, and terminal statuses stay terminal.
func (p *Processor) Tick(s *model.Stratagem, now time.Time) (*model.Stratagem, error) {
	if s.Status != model.StratagemActive {
		return s, nil
	}

	switch s.Type {
	case model.StratagemPatronage:
		return p.tickPatronage(s, now)
	case model.StratagemTradeCommission:
		return p.tickCommission(s, now)
	default:
		s.Status = model.StratagemFailed
		if err := p.Stratagems.UpdateStratagem(s); err != nil {
			return s, fmt.Errorf("%w: update stratagem %s: %v", model.ErrExternalUnavailable, s.ID, err)
		}
		return s, fmt.Errorf("%w: unknown stratagem type %q", model.ErrInvalidParameters, s.Type)
	}
}

// tickPatronage pays one period's patronage, suspends on insufficient funds,
// and completes on expiry or once the lifetime obligation is met.
func (p *Processor) tickPatronage(s *model.Stratagem, now time.Time) (*model.Stratagem, error) {
	if !now.Before(s.ExpiresAt) || s.State.AmountPaid >= s.TotalOwed() {
		return p.complete(s, now)
	}

	// Idempotent per period: a second invocation inside the same period
	// does nothing.
	if s.State.LastExecuted != nil && now.Sub(*s.State.LastExecuted) < p.Policy.PatronagePeriod() {
		return s, nil
	}

	// Never pay past the stated terms.
	due := s.Params.Amount
	if remaining := s.TotalOwed() - s.State.AmountPaid; due > remaining {
		due = remaining
	}

	executor, err := p.Citizens.GetCitizen(s.Executor)
	if err != nil {
		return s, fmt.Errorf("%w: read executor %s: %v", model.ErrExternalUnavailable, s.Executor, err)
	}
	if executor.Ducats < due {
		return p.suspend(s, now, due)
	}

	tx, err := p.Ledger.Transfer(s.Executor, s.Target, due, "patronage", s.ID)
	if err != nil {
		if errors.Is(err, model.ErrStaleStateConflict) {
			// Funds moved between our read and the ledger's.
			return p.suspend(s, now, due)
		}
		if errors.Is(err, model.ErrPartialChainFailure) {
			s.Status = model.StratagemFailed
			if uerr := p.Stratagems.UpdateStratagem(s); uerr != nil {
				slog.Error("stratagem failure not persisted", "stratagem", s.ID, "error", uerr)
			}
			p.Notifier.ActionFailed(s.Executor, "patronage payment", err, s.ID)
			return s, err
		}
		// Transient store trouble; leave the record alone and retry on a
		// later tick.
		return s, err
	}

	executed := now
	s.State.AmountPaid += due
	s.State.TicksExecuted++
	s.State.LastExecuted = &executed
	if err := p.Stratagems.UpdateStratagem(s); err != nil {
		slog.Error("patronage paid but bookkeeping not persisted",
			"stratagem", s.ID, "tx", tx.ID, "error", err)
		return s, fmt.Errorf("%w: update stratagem %s: %v", model.ErrExternalUnavailable, s.ID, err)
	}

	p.Notifier.PaymentReceived(s.Target, s.Executor, due, "patronage", s.ID)
	p.Relations.Strengthen(s.Executor, s.Target,
		p.Policy.PatronageTrustPerTick, p.Policy.PatronageTrustPerTick)

	if s.State.AmountPaid >= s.TotalOwed() {
		return p.complete(s, now)
	}
	return s, nil
}

// tickCommission delivers a one-shot commissioned voyage once its jittered
// delivery time arrives.
func (p *Processor) tickCommission(s *model.Stratagem, now time.Time) (*model.Stratagem, error) {
	if now.Before(s.ExpiresAt) {
		return s, nil // Not due yet.
	}

	executor, err := p.Citizens.GetCitizen(s.Executor)
	if err != nil {
		return s, fmt.Errorf("%w: read executor %s: %v", model.ErrExternalUnavailable, s.Executor, err)
	}
	if executor.Ducats < s.Params.Amount {
		return p.suspend(s, now, s.Params.Amount)
	}

	if _, err := p.Ledger.Transfer(s.Executor, s.Target, s.Params.Amount, "commission_payment", s.ID); err != nil {
		if errors.Is(err, model.ErrStaleStateConflict) {
			return p.suspend(s, now, s.Params.Amount)
		}
		return s, err
	}

	executed := now
	s.State.AmountPaid += s.Params.Amount
	s.State.TicksExecuted++
	s.State.LastExecuted = &executed
	s.Status = model.StratagemCompleted
	// Persist before notifying so a failed write cannot lead to a double
	// payment on the next tick.
	if err := p.Stratagems.UpdateStratagem(s); err != nil {
		slog.Error("commission paid but completion not persisted", "stratagem", s.ID, "error", err)
		return s, fmt.Errorf("%w: update stratagem %s: %v", model.ErrExternalUnavailable, s.ID, err)
	}

	p.Notifier.PaymentReceived(s.Target, s.Executor, s.Params.Amount,
		fmt.Sprintf("delivering %d %s", s.Params.Quantity, s.Params.ResourceType), s.ID)
	p.Notifier.Send(s.Executor, "commission_delivered",
		fmt.Sprintf("Your commissioned delivery of %d %s has arrived.",
			s.Params.Quantity, s.Params.ResourceType), s.ID)
	p.Relations.Strengthen(s.Executor, s.Target,
		p.Policy.TradeTrustIncrement, p.Policy.TradeTrustIncrement)
	return s, nil
}

// suspend halts an underfunded stratagem. It stays suspended until someone
// explicitly reactivates it; later ticks will not retry on their own.
func (p *Processor) suspend(s *model.Stratagem, now time.Time, due int64) (*model.Stratagem, error) {
	s.Status = model.StratagemSuspended
	if err := p.Stratagems.UpdateStratagem(s); err != nil {
		return s, fmt.Errorf("%w: suspend stratagem %s: %v", model.ErrExternalUnavailable, s.ID, err)
	}
	p.Notifier.Send(s.Executor, "stratagem_suspended",
		fmt.Sprintf("Your %s was suspended: %s could not cover %s.",
			s.Type, s.Executor, notify.Ducats(due)), s.ID)
	slog.Info("stratagem suspended", "stratagem", s.ID, "executor", s.Executor, "due", due)
	return s, nil
}

// complete finishes a stratagem, with the one-time relationship bonus for
// affinity-building types.
func (p *Processor) complete(s *model.Stratagem, now time.Time) (*model.Stratagem, error) {
	s.Status = model.StratagemCompleted
	if err := p.Stratagems.UpdateStratagem(s); err != nil {
		return s, fmt.Errorf("%w: complete stratagem %s: %v", model.ErrExternalUnavailable, s.ID, err)
	}

	p.Notifier.Send(s.Executor, "stratagem_completed",
		fmt.Sprintf("Your %s toward %s has run its course; %s paid in total.",
			s.Type, s.Target, notify.Ducats(s.State.AmountPaid)), s.ID)
	p.Notifier.Send(s.Target, "stratagem_completed",
		fmt.Sprintf("The %s from %s has concluded.", s.Type, s.Executor), s.ID)

	if s.Type == model.StratagemPatronage {
		p.Relations.Strengthen(s.Executor, s.Target,
			p.Policy.PatronageFinalBonus, p.Policy.PatronageFinalBonus)
	}
	slog.Info("stratagem completed", "stratagem", s.ID, "type", s.Type,
		"paid", s.State.AmountPaid, "ticks", s.State.TicksExecuted)
	return s, nil
}

// Reactivate flips a suspended stratagem back to active. This is the only
// road out of suspension.
func (p *Processor) Reactivate(id string) (*model.Stratagem, error) {
	s, err := p.Stratagems.GetStratagem(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: stratagem %s not found", model.ErrPreconditionUnmet, id)
		}
		return nil, fmt.Errorf("%w: read stratagem: %v", model.ErrExternalUnavailable, err)
	}
	if s.Status != model.StratagemSuspended {
		return nil, fmt.Errorf("%w: stratagem %s is %s, only suspended stratagems reactivate",
			model.ErrInvalidParameters, id, s.Status)
	}
	s.Status = model.StratagemActive
	if err := p.Stratagems.UpdateStratagem(s); err != nil {
		return nil, fmt.Errorf("%w: update stratagem %s: %v", model.ErrExternalUnavailable, id, err)
	}
	slog.Info("stratagem reactivated", "stratagem", id)
	return s, nil
}
