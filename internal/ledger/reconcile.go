package ledger

import (
	"fmt"
	"log/slog"
	"time"

	"rialto/internal/model"
)

// ReconcileReport summarizes one reconciliation pass.
type ReconcileReport struct {
	Scanned   int
	Completed int
	Voided    int
	Stuck     int
}

// Reconcile scans transactions left pending longer than the grace period and
// resolves each by its phase marker: one that never touched a balance is
// voided; one whose debit landed and whose credit was never attempted gets
// the credit applied and is committed; one that died mid-write is counted
// stuck for the operator, because no balance read can tell whether the write
// landed. Run at startup and on demand.
func (l *Ledger) Reconcile(olderThan time.Duration) (*ReconcileReport, error) {
	cutoff := l.now().Add(-olderThan)
	pending, err := l.Transactions.PendingTransactions(cutoff)
	if err != nil {
		return nil, fmt.Errorf("%w: list pending transactions: %v", model.ErrExternalUnavailable, err)
	}

	report := &ReconcileReport{Scanned: len(pending)}
	for _, tx := range pending {
		switch tx.Phase {
		case model.PhaseCreated:
			// No balance ever moved; the entry is dead weight.
			if err := l.Transactions.MarkVoid(tx.ID); err != nil {
				slog.Error("reconcile: void failed", "tx", tx.ID, "error", err)
				report.Stuck++
				continue
			}
			report.Voided++
			slog.Info("reconcile: voided never-debited transaction", "tx", tx.ID)

		case model.PhaseDebited:
			// Debit landed, credit verifiably never attempted; finishing
			// the transfer is the only conserving move.
			if l.completeCredit(tx) {
				report.Completed++
			} else {
				report.Stuck++
			}

		default:
			// PhaseDebiting or PhaseCrediting: a balance write was in
			// flight when the process died. Whether it landed cannot be
			// determined from here, so crediting or voiding could each
			// mint or destroy ducats. Operator's call.
			report.Stuck++
			slog.Error("reconcile: transaction died mid-write, manual resolution required",
				"tx", tx.ID, "phase", tx.Phase,
				"payer", tx.Payer, "payee", tx.Payee, "amount", tx.Amount)
		}
	}

	if report.Stuck > 0 {
		slog.Error("reconcile: transactions require operator attention", "count", report.Stuck)
	}
	return report, nil
}

// completeCredit applies the missing credit of a debited transfer, following
// the same phase bracketing as Transfer so an interrupted reconcile pass is
// itself reconcilable. Reports whether the transfer was committed.
func (l *Ledger) completeCredit(tx *model.Transaction) bool {
	payee, err := l.Citizens.GetCitizen(tx.Payee)
	if err != nil {
		slog.Error("reconcile: payee unreadable", "tx", tx.ID, "payee", tx.Payee, "error", err)
		return false
	}
	if err := l.Transactions.SetTransactionPhase(tx.ID, model.PhaseCrediting); err != nil {
		slog.Error("reconcile: mark credit start failed", "tx", tx.ID, "error", err)
		return false
	}
	if err := l.Citizens.SetDucats(tx.Payee, payee.Ducats+tx.Amount); err != nil {
		slog.Error("reconcile: credit failed", "tx", tx.ID, "error", err)
		return false
	}
	if err := l.Transactions.MarkCommitted(tx.ID, l.now()); err != nil {
		slog.Error("reconcile: commit mark failed after credit", "tx", tx.ID, "error", err)
		return false
	}
	slog.Warn("reconcile: completed interrupted transfer",
		"tx", tx.ID, "payer", tx.Payer, "payee", tx.Payee, "amount", tx.Amount)
	return true
}
