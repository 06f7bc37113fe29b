package stratagem

import (
	"errors"
	"testing"
	"time"

	"rialto/internal/config"
	"rialto/internal/ledger"
	"rialto/internal/model"
	"rialto/internal/notify"
	"rialto/internal/relations"
	"rialto/internal/store"
)

func testNow() time.Time {
	return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
}

func seededStore() *store.Memory {
	mem := store.NewMemory()
	mem.PutCitizen(&model.Citizen{Username: "doge", Ducats: 1000})
	mem.PutCitizen(&model.Citizen{Username: "artist", Ducats: 50})
	return mem
}

func newTestCreator(mem *store.Memory) *Creator {
	return &Creator{
		Citizens:   mem,
		Stratagems: mem,
		Policy:     config.Default().Policy,
		Now:        testNow,
		Jitter:     func() time.Duration { return 0 },
	}
}

func newTestProcessor(mem *store.Memory) *Processor {
	led := ledger.New(mem, mem)
	led.Now = testNow
	notifier := notify.New(mem)
	notifier.Now = testNow
	book := relations.New(mem)
	book.Now = testNow
	return &Processor{
		Citizens:   mem,
		Stratagems: mem,
		Ledger:     led,
		Notifier:   notifier,
		Relations:  book,
		Policy:     config.Default().Policy,
		Now:        testNow,
	}
}

func TestCommitPatronage(t *testing.T) {
	mem := seededStore()
	c := newTestCreator(mem)

	s, err := c.Commit(model.StratagemPatronage, "doge",
		model.StratagemParams{Amount: 10, DurationDays: 7}, "artist")
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if s.Status != model.StratagemActive {
		t.Errorf("status = %s", s.Status)
	}
	if want := testNow().Add(7 * 24 * time.Hour); !s.ExpiresAt.Equal(want) {
		t.Errorf("expires = %v, want %v", s.ExpiresAt, want)
	}
	if s.TotalOwed() != 70 {
		t.Errorf("total owed = %d, want 70", s.TotalOwed())
	}
	if _, err := mem.GetStratagem(s.ID); err != nil {
		t.Errorf("stratagem not persisted: %v", err)
	}
}

func TestCommitValidation(t *testing.T) {
	mem := seededStore()
	c := newTestCreator(mem)

	cases := []struct {
		name     string
		sType    model.StratagemType
		executor string
		target   string
		params   model.StratagemParams
		want     error
	}{
		{"unknown executor", model.StratagemPatronage, "ghost", "artist",
			model.StratagemParams{Amount: 10, DurationDays: 7}, model.ErrPreconditionUnmet},
		{"unknown target", model.StratagemPatronage, "doge", "ghost",
			model.StratagemParams{Amount: 10, DurationDays: 7}, model.ErrPreconditionUnmet},
		{"self target", model.StratagemPatronage, "doge", "doge",
			model.StratagemParams{Amount: 10, DurationDays: 7}, model.ErrInvalidParameters},
		{"zero amount", model.StratagemPatronage, "doge", "artist",
			model.StratagemParams{Amount: 0, DurationDays: 7}, model.ErrInvalidParameters},
		{"no duration", model.StratagemPatronage, "doge", "artist",
			model.StratagemParams{Amount: 10}, model.ErrInvalidParameters},
		{"cannot cover first payment", model.StratagemPatronage, "artist", "doge",
			model.StratagemParams{Amount: 100, DurationDays: 3}, model.ErrPreconditionUnmet},
		{"commission without cargo", model.StratagemTradeCommission, "doge", "artist",
			model.StratagemParams{Amount: 10}, model.ErrInvalidParameters},
		{"unknown type", model.StratagemType("bribery"), "doge", "artist",
			model.StratagemParams{Amount: 10}, model.ErrInvalidParameters},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Commit(tc.sType, tc.executor, tc.params, tc.target)
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCommitCommissionDelay(t *testing.T) {
	mem := seededStore()
	c := newTestCreator(mem)
	c.Jitter = func() time.Duration { return 3 * time.Hour }

	s, err := c.Commit(model.StratagemTradeCommission, "doge",
		model.StratagemParams{Amount: 200, ResourceType: "silk", Quantity: 4}, "artist")
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if want := testNow().Add(27 * time.Hour); !s.ExpiresAt.Equal(want) {
		t.Errorf("delivery due %v, want base delay plus jitter %v", s.ExpiresAt, want)
	}
}

func TestPatronagePaysOnePeriod(t *testing.T) {
	mem := seededStore()
	c := newTestCreator(mem)
	p := newTestProcessor(mem)

	s, err := c.Commit(model.StratagemPatronage, "doge",
		model.StratagemParams{Amount: 10, DurationDays: 7}, "artist")
	if err != nil {
		t.Fatal(err)
	}

	s, err = p.Tick(s, testNow())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if s.State.AmountPaid != 10 || s.State.TicksExecuted != 1 {
		t.Errorf("state = %+v", s.State)
	}
	patron, _ := mem.GetCitizen("doge")
	if patron.Ducats != 990 {
		t.Errorf("patron balance = %d, want 990", patron.Ducats)
	}
	target, _ := mem.GetCitizen("artist")
	if target.Ducats != 60 {
		t.Errorf("target balance = %d, want 60", target.Ducats)
	}

	// A second tick inside the same period pays nothing.
	s, err = p.Tick(s, testNow().Add(time.Hour))
	if err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if s.State.AmountPaid != 10 {
		t.Errorf("same-period retick paid again: %d", s.State.AmountPaid)
	}

	// The next period pays once more.
	s, err = p.Tick(s, testNow().Add(25*time.Hour))
	if err != nil {
		t.Fatalf("next period tick: %v", err)
	}
	if s.State.AmountPaid != 20 || s.State.TicksExecuted != 2 {
		t.Errorf("state after second period = %+v", s.State)
	}
}

func TestPatronageSuspendsOnInsufficientFunds(t *testing.T) {
	mem := seededStore()
	c := newTestCreator(mem)
	p := newTestProcessor(mem)

	s, err := c.Commit(model.StratagemPatronage, "doge",
		model.StratagemParams{Amount: 10, DurationDays: 7}, "artist")
	if err != nil {
		t.Fatal(err)
	}
	if err := mem.SetDucats("doge", 5); err != nil {
		t.Fatal(err)
	}

	s, err = p.Tick(s, testNow())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if s.Status != model.StratagemSuspended {
		t.Fatalf("status = %s, want suspended", s.Status)
	}
	if s.State.AmountPaid != 0 {
		t.Errorf("cumulative paid = %d, want unchanged 0", s.State.AmountPaid)
	}
	patron, _ := mem.GetCitizen("doge")
	if patron.Ducats != 5 {
		t.Errorf("patron balance = %d, want untouched 5", patron.Ducats)
	}

	notes := mem.NotificationsFor("doge")
	if len(notes) != 1 || notes[0].Type != "stratagem_suspended" {
		t.Errorf("notifications = %+v", notes)
	}
}

func TestSuspendedStratagemNeverAutoResumes(t *testing.T) {
	mem := seededStore()
	c := newTestCreator(mem)
	p := newTestProcessor(mem)

	s, err := c.Commit(model.StratagemPatronage, "doge",
		model.StratagemParams{Amount: 10, DurationDays: 7}, "artist")
	if err != nil {
		t.Fatal(err)
	}
	if err := mem.SetDucats("doge", 5); err != nil {
		t.Fatal(err)
	}
	if s, err = p.Tick(s, testNow()); err != nil {
		t.Fatal(err)
	}

	// Funds return, but ticks do not resurrect a suspended stratagem.
	if err := mem.SetDucats("doge", 1000); err != nil {
		t.Fatal(err)
	}
	s, err = p.Tick(s, testNow().Add(48*time.Hour))
	if err != nil {
		t.Fatalf("tick on suspended: %v", err)
	}
	if s.Status != model.StratagemSuspended {
		t.Errorf("status = %s, suspension must persist", s.Status)
	}
	if s.State.AmountPaid != 0 {
		t.Errorf("suspended stratagem paid %d", s.State.AmountPaid)
	}

	// Explicit reactivation is the only road back.
	s, err = p.Reactivate(s.ID)
	if err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if s.Status != model.StratagemActive {
		t.Fatalf("status after reactivate = %s", s.Status)
	}
	s, err = p.Tick(s, testNow().Add(49*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if s.State.AmountPaid != 10 {
		t.Errorf("reactivated stratagem paid %d, want 10", s.State.AmountPaid)
	}
}

func TestReactivateRequiresSuspended(t *testing.T) {
	mem := seededStore()
	c := newTestCreator(mem)
	p := newTestProcessor(mem)

	s, err := c.Commit(model.StratagemPatronage, "doge",
		model.StratagemParams{Amount: 10, DurationDays: 7}, "artist")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Reactivate(s.ID); !errors.Is(err, model.ErrInvalidParameters) {
		t.Errorf("reactivating active stratagem: err = %v, want ErrInvalidParameters", err)
	}
	if _, err := p.Reactivate("nope"); !errors.Is(err, model.ErrPreconditionUnmet) {
		t.Errorf("reactivating unknown id: err = %v, want ErrPreconditionUnmet", err)
	}
}

func TestPatronageCompletesAtLifetimeObligation(t *testing.T) {
	mem := seededStore()
	c := newTestCreator(mem)
	p := newTestProcessor(mem)

	s, err := c.Commit(model.StratagemPatronage, "doge",
		model.StratagemParams{Amount: 30, DurationDays: 2}, "artist")
	if err != nil {
		t.Fatal(err)
	}

	if s, err = p.Tick(s, testNow()); err != nil {
		t.Fatal(err)
	}
	if s, err = p.Tick(s, testNow().Add(25*time.Hour)); err != nil {
		t.Fatal(err)
	}
	if s.Status != model.StratagemCompleted {
		t.Fatalf("status = %s, want completed after lifetime paid", s.Status)
	}
	if s.State.AmountPaid != 60 {
		t.Errorf("paid = %d, want full 60", s.State.AmountPaid)
	}

	// Completion carries the one-time relationship bonus on top of the
	// per-tick increments.
	rel, err := mem.GetRelationship("doge", "artist")
	if err != nil {
		t.Fatalf("relationship: %v", err)
	}
	if rel.Trust != 7 {
		t.Errorf("trust = %v, want 2 ticks + final bonus = 7", rel.Trust)
	}

	// Terminal stratagems are never re-ticked.
	paid := s.State.AmountPaid
	if s, err = p.Tick(s, testNow().Add(50*time.Hour)); err != nil {
		t.Fatal(err)
	}
	if s.State.AmountPaid != paid {
		t.Errorf("completed stratagem paid again")
	}
}

func TestPatronageCompletesOnExpiry(t *testing.T) {
	mem := seededStore()
	c := newTestCreator(mem)
	p := newTestProcessor(mem)

	s, err := c.Commit(model.StratagemPatronage, "doge",
		model.StratagemParams{Amount: 10, DurationDays: 2}, "artist")
	if err != nil {
		t.Fatal(err)
	}

	s, err = p.Tick(s, testNow().Add(3*24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if s.Status != model.StratagemCompleted {
		t.Errorf("status past expiry = %s, want completed", s.Status)
	}
	notes := mem.NotificationsFor("artist")
	if len(notes) != 1 || notes[0].Type != "stratagem_completed" {
		t.Errorf("target notifications = %+v", notes)
	}
}

func TestCommissionDeliversAfterDelay(t *testing.T) {
	mem := seededStore()
	c := newTestCreator(mem)
	p := newTestProcessor(mem)

	s, err := c.Commit(model.StratagemTradeCommission, "doge",
		model.StratagemParams{Amount: 200, ResourceType: "silk", Quantity: 4}, "artist")
	if err != nil {
		t.Fatal(err)
	}

	// Before the delivery time nothing happens.
	s, err = p.Tick(s, testNow().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if s.Status != model.StratagemActive || s.State.AmountPaid != 0 {
		t.Fatalf("early tick mutated: %+v", s)
	}

	s, err = p.Tick(s, s.ExpiresAt)
	if err != nil {
		t.Fatalf("delivery tick: %v", err)
	}
	if s.Status != model.StratagemCompleted {
		t.Fatalf("status = %s, want completed", s.Status)
	}
	merchant, _ := mem.GetCitizen("doge")
	if merchant.Ducats != 800 {
		t.Errorf("merchant balance = %d, want 800", merchant.Ducats)
	}
	courier, _ := mem.GetCitizen("artist")
	if courier.Ducats != 250 {
		t.Errorf("courier balance = %d, want 250", courier.Ducats)
	}

	notes := mem.NotificationsFor("doge")
	if len(notes) != 1 || notes[0].Type != "commission_delivered" {
		t.Errorf("executor notifications = %+v", notes)
	}
}

func TestCommissionSuspendsWhenUnderfundedAtDelivery(t *testing.T) {
	mem := seededStore()
	c := newTestCreator(mem)
	p := newTestProcessor(mem)

	s, err := c.Commit(model.StratagemTradeCommission, "doge",
		model.StratagemParams{Amount: 200, ResourceType: "silk", Quantity: 4}, "artist")
	if err != nil {
		t.Fatal(err)
	}
	if err := mem.SetDucats("doge", 100); err != nil {
		t.Fatal(err)
	}

	s, err = p.Tick(s, s.ExpiresAt)
	if err != nil {
		t.Fatal(err)
	}
	if s.Status != model.StratagemSuspended {
		t.Errorf("status = %s, want suspended", s.Status)
	}
	courier, _ := mem.GetCitizen("artist")
	if courier.Ducats != 50 {
		t.Errorf("courier balance = %d, want untouched 50", courier.Ducats)
	}
}
