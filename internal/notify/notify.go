// Package notify writes notification records for citizens affected by
// engine actions. Delivery is someone else's job; from here it is
// fire-and-forget, and failures only make noise in the logs.
package notify

import (
	"fmt"
	"log/slog"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"rialto/internal/model"
	"rialto/internal/store"
)

// Notifier writes notification records.
type Notifier struct {
	Store store.NotificationRepo
	Now   func() time.Time
}

// New creates a notifier over the given repository.
func New(repo store.NotificationRepo) *Notifier {
	return &Notifier{Store: repo, Now: time.Now}
}

func (n *Notifier) now() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return time.Now()
}

// Send records a notification. Errors are logged, never propagated.
func (n *Notifier) Send(recipient, ntype, content, asset string) {
	if n == nil || n.Store == nil || recipient == "" {
		return
	}
	rec := &model.Notification{
		ID:        uuid.NewString(),
		Citizen:   recipient,
		Type:      ntype,
		Content:   content,
		Asset:     asset,
		CreatedAt: n.now(),
	}
	if err := n.Store.CreateNotification(rec); err != nil {
		slog.Error("notification write failed",
			"recipient", recipient, "type", ntype, "error", err)
	}
}

// Ducats formats an amount for notification text.
func Ducats(amount int64) string {
	return humanize.Comma(amount) + " ducats"
}

// PaymentReceived notifies a payee about an incoming transfer.
func (n *Notifier) PaymentReceived(payee, payer string, amount int64, what, asset string) {
	n.Send(payee, "payment_received",
		fmt.Sprintf("%s paid you %s for %s.", payer, Ducats(amount), what), asset)
}

// ActionFailed notifies the initiating citizen that a workflow step failed,
// using taxonomy wording rather than the technical cause.
func (n *Notifier) ActionFailed(citizen, action string, err error, asset string) {
	n.Send(citizen, "action_failed",
		fmt.Sprintf("Your %s could not be completed: %s.", action, model.Reason(err)), asset)
}
