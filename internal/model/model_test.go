package model

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestRelationshipPair(t *testing.T) {
	a, b := RelationshipPair("zeno", "anna")
	if a != "anna" || b != "zeno" {
		t.Errorf("pair = %s, %s", a, b)
	}
	a, b = RelationshipPair("anna", "zeno")
	if a != "anna" || b != "zeno" {
		t.Errorf("pair = %s, %s", a, b)
	}
}

func TestContractExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := &Contract{EndAt: now.Add(-time.Minute)}
	if !c.Expired(now) {
		t.Error("past EndAt not expired")
	}
	c = &Contract{EndAt: now.Add(time.Minute)}
	if c.Expired(now) {
		t.Error("future EndAt expired")
	}
	c = &Contract{} // Zero EndAt means no expiry.
	if c.Expired(now) {
		t.Error("zero EndAt expired")
	}
}

func TestActivityStatusTerminal(t *testing.T) {
	terminal := []ActivityStatus{ActivityConcluded, ActivityFailed, ActivityCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s not terminal", s)
		}
	}
	for _, s := range []ActivityStatus{ActivityCreated, ActivityInProgress} {
		if s.Terminal() {
			t.Errorf("%s terminal", s)
		}
	}
}

func TestStratagemTotalOwed(t *testing.T) {
	pat := &Stratagem{Type: StratagemPatronage, Params: StratagemParams{Amount: 10, DurationDays: 7}}
	if pat.TotalOwed() != 70 {
		t.Errorf("patronage owed = %d, want 70", pat.TotalOwed())
	}
	com := &Stratagem{Type: StratagemTradeCommission, Params: StratagemParams{Amount: 200, DurationDays: 3}}
	if com.TotalOwed() != 200 {
		t.Errorf("commission owed = %d, want flat 200", com.TotalOwed())
	}
}

func TestReasonMatchesWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("%w: marco has 900 ducats", ErrStaleStateConflict)
	if got := Reason(wrapped); got != "circumstances changed before the action could complete" {
		t.Errorf("reason = %q", got)
	}
	if got := Reason(errors.New("disk on fire")); got != "an unexpected problem occurred" {
		t.Errorf("unknown reason = %q", got)
	}
}
