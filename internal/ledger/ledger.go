// Package ledger moves ducats between citizens under the conservation
// invariant. The two balances live in independently-updated records with no
// native transaction across them, so every movement goes through an outbox:
// a pending Transaction is written first, then the debit, then the credit,
// then the commit mark. Anything left pending is the reconciler's problem.
package ledger

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rialto/internal/model"
	"rialto/internal/store"
)

// Ledger performs conservation-safe fund movements.
type Ledger struct {
	Citizens     store.CitizenRepo
	Transactions store.TransactionRepo
	Now          func() time.Time
}

// New creates a ledger over the given repositories.
func New(citizens store.CitizenRepo, transactions store.TransactionRepo) *Ledger {
	return &Ledger{
		Citizens:     citizens,
		Transactions: transactions,
		Now:          time.Now,
	}
}

func (l *Ledger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Transfer moves amount from payer to payee and records the movement.
// The payer's balance is re-read here, never trusted from plan time; an
// insufficient balance is a stale-state conflict, not a precondition failure.
func (l *Ledger) Transfer(payer, payee string, amount int64, txType, asset string) (*model.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: transfer amount must be positive, got %d", model.ErrInvalidParameters, amount)
	}
	if payer == payee {
		return nil, fmt.Errorf("%w: payer and payee are the same (%s)", model.ErrInvalidParameters, payer)
	}

	payerRec, err := l.Citizens.GetCitizen(payer)
	if err != nil {
		return nil, fmt.Errorf("%w: read payer %s: %v", model.ErrExternalUnavailable, payer, err)
	}
	if payerRec.Ducats < amount {
		return nil, fmt.Errorf("%w: %s has %d ducats, needs %d", model.ErrStaleStateConflict, payer, payerRec.Ducats, amount)
	}

	// Verify the payee exists before any balance moves.
	payeeRec, err := l.Citizens.GetCitizen(payee)
	if err != nil {
		return nil, fmt.Errorf("%w: read payee %s: %v", model.ErrExternalUnavailable, payee, err)
	}

	tx := &model.Transaction{
		ID:        uuid.NewString(),
		Type:      txType,
		Payer:     payer,
		Payee:     payee,
		Amount:    amount,
		Asset:     asset,
		Status:    model.TxPending,
		Phase:     model.PhaseCreated,
		CreatedAt: l.now(),
	}
	if err := l.Transactions.CreateTransaction(tx); err != nil {
		return nil, fmt.Errorf("%w: write pending transaction: %v", model.ErrExternalUnavailable, err)
	}

	// Debit, bracketed by phase markers so a crash leaves a record the
	// reconciler can classify.
	if err := l.Transactions.SetTransactionPhase(tx.ID, model.PhaseDebiting); err != nil {
		l.void(tx.ID)
		return nil, fmt.Errorf("%w: mark debit start: %v", model.ErrExternalUnavailable, err)
	}
	if err := l.Citizens.SetDucats(payer, payerRec.Ducats-amount); err != nil {
		// Nothing moved; void the outbox entry.
		l.void(tx.ID)
		return nil, fmt.Errorf("%w: debit %s: %v", model.ErrExternalUnavailable, payer, err)
	}
	if err := l.Transactions.SetTransactionPhase(tx.ID, model.PhaseDebited); err != nil {
		// The debit landed but its marker did not. Undo the debit rather
		// than hand the reconciler a record it cannot classify.
		return nil, l.undoDebit(tx, payerRec.Ducats, fmt.Errorf("mark debit applied: %v", err))
	}

	// Credit, same bracketing.
	if err := l.Transactions.SetTransactionPhase(tx.ID, model.PhaseCrediting); err != nil {
		return nil, l.undoDebit(tx, payerRec.Ducats, fmt.Errorf("mark credit start: %v", err))
	}
	if err := l.Citizens.SetDucats(payee, payeeRec.Ducats+amount); err != nil {
		return nil, l.undoDebit(tx, payerRec.Ducats, fmt.Errorf("credit %s: %v", payee, err))
	}

	executed := l.now()
	if err := l.Transactions.MarkCommitted(tx.ID, executed); err != nil {
		// One retry, then unwind: a pending record must never outlive
		// balances it already moved, or the reconciler would move them again.
		if rerr := l.Transactions.MarkCommitted(tx.ID, executed); rerr != nil {
			if cerr := l.Citizens.SetDucats(payee, payeeRec.Ducats); cerr != nil {
				slog.Error("LEDGER CONSERVATION AT RISK: balances moved, commit mark and credit unwind both failed",
					"tx", tx.ID, "payer", payer, "payee", payee, "amount", amount,
					"commit_error", rerr, "unwind_error", cerr)
				return nil, fmt.Errorf("%w: transaction %s stuck after credit", model.ErrPartialChainFailure, tx.ID)
			}
			return nil, l.undoDebit(tx, payerRec.Ducats, fmt.Errorf("mark committed: %v", rerr))
		}
	}

	tx.Status = model.TxCommitted
	tx.Phase = model.PhaseCrediting
	tx.ExecutedAt = executed

	slog.Debug("ledger transfer",
		"tx", tx.ID, "type", txType, "payer", payer, "payee", payee, "amount", amount)
	return tx, nil
}

// void marks a transaction void, logging rather than failing when the write
// does not stick. A record left behind surfaces in the next reconcile pass.
func (l *Ledger) void(id string) {
	if err := l.Transactions.MarkVoid(id); err != nil {
		slog.Error("ledger: failed to void transaction", "tx", id, "error", err)
	}
}

// undoDebit restores the payer's balance after a failure past the debit and
// voids the record. If the restore itself fails the ducats are genuinely
// missing, which is a partial-chain failure for the operator.
func (l *Ledger) undoDebit(tx *model.Transaction, payerBalance int64, cause error) error {
	if cerr := l.Citizens.SetDucats(tx.Payer, payerBalance); cerr != nil {
		slog.Error("LEDGER CONSERVATION AT RISK: debit applied and cannot be restored",
			"tx", tx.ID, "payer", tx.Payer, "payee", tx.Payee, "amount", tx.Amount,
			"cause", cause, "restore_error", cerr)
		return fmt.Errorf("%w: transaction %s stuck after debit", model.ErrPartialChainFailure, tx.ID)
	}
	l.void(tx.ID)
	return fmt.Errorf("%w: %v", model.ErrExternalUnavailable, cause)
}

// Reverse applies the compensating movement for a committed transfer. Used
// by the saga logic when a later mutation in the same step fails.
func (l *Ledger) Reverse(tx *model.Transaction) (*model.Transaction, error) {
	return l.Transfer(tx.Payee, tx.Payer, tx.Amount, tx.Type+"_reversal", tx.Asset)
}
