package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"rialto/internal/model"
)

// seeder is the slice of both implementations used to preload records.
type seeder interface {
	Store
	PutCitizenRecord(c *model.Citizen) error
}

type memorySeeder struct{ *Memory }

func (m memorySeeder) PutCitizenRecord(c *model.Citizen) error {
	m.PutCitizen(c)
	return nil
}

type sqliteSeeder struct{ *SQLite }

func (s sqliteSeeder) PutCitizenRecord(c *model.Citizen) error {
	return s.PutCitizen(c)
}

// eachStore runs a subtest against the in-memory store and the SQLite store,
// so both stay behaviorally interchangeable.
func eachStore(t *testing.T, fn func(t *testing.T, s seeder)) {
	t.Helper()
	t.Run("memory", func(t *testing.T) {
		fn(t, memorySeeder{NewMemory()})
	})
	t.Run("sqlite", func(t *testing.T) {
		db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		fn(t, sqliteSeeder{db})
	})
}

func storeNow() time.Time {
	return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
}

func TestCitizenRoundtrip(t *testing.T) {
	eachStore(t, func(t *testing.T, s seeder) {
		in := &model.Citizen{
			Username: "marco", Name: "Marco Bellini", Ducats: 1234,
			Position:     &model.Position{X: 12.5, Y: 34.25},
			HomeBuilding: "casa_m", CreatedAt: storeNow(),
		}
		if err := s.PutCitizenRecord(in); err != nil {
			t.Fatal(err)
		}

		out, err := s.GetCitizen("marco")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if out.Ducats != 1234 || out.HomeBuilding != "casa_m" {
			t.Errorf("roundtrip = %+v", out)
		}
		if out.Position == nil || out.Position.X != 12.5 {
			t.Errorf("position = %+v", out.Position)
		}

		if err := s.SetDucats("marco", 999); err != nil {
			t.Fatal(err)
		}
		if err := s.SetPosition("marco", model.Position{X: 1, Y: 2}); err != nil {
			t.Fatal(err)
		}
		out, _ = s.GetCitizen("marco")
		if out.Ducats != 999 || out.Position.X != 1 {
			t.Errorf("after updates = %+v", out)
		}

		if _, err := s.GetCitizen("ghost"); !errors.Is(err, ErrNotFound) {
			t.Errorf("missing citizen err = %v, want ErrNotFound", err)
		}
		if err := s.SetDucats("ghost", 1); !errors.Is(err, ErrNotFound) {
			t.Errorf("update of missing citizen err = %v, want ErrNotFound", err)
		}
	})
}

func TestActivityDetailRoundtrip(t *testing.T) {
	eachStore(t, func(t *testing.T, s seeder) {
		in := &model.Activity{
			ID: "act-1", Type: model.ActivityFinalizeLand, Citizen: "marco",
			ToBuilding: "parcel_7",
			FromPos:    &model.Position{X: 1, Y: 2},
			ToPos:      &model.Position{X: 3, Y: 4},
			Path:       []model.Position{{X: 2, Y: 3}, {X: 3, Y: 4}},
			Status:     model.ActivityCreated,
			StartTime:  storeNow(), EndTime: storeNow().Add(5 * time.Minute),
			Priority: 10, DependsOn: "act-0",
			Detail: &model.StepDetail{
				Kind:         model.StepLandPurchase,
				LandPurchase: &model.LandPurchaseParams{ContractID: "sale_7", ParcelID: "parcel_7"},
			},
			CreatedAt: storeNow(),
		}
		if err := s.CreateActivity(in); err != nil {
			t.Fatal(err)
		}

		out, err := s.GetActivity("act-1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if out.DependsOn != "act-0" || out.Priority != 10 {
			t.Errorf("roundtrip = %+v", out)
		}
		if len(out.Path) != 2 || out.Path[1].Y != 4 {
			t.Errorf("path = %+v", out.Path)
		}
		if out.Detail == nil || out.Detail.Kind != model.StepLandPurchase ||
			out.Detail.LandPurchase.ContractID != "sale_7" {
			t.Errorf("detail = %+v", out.Detail)
		}
		if out.Next != nil {
			t.Errorf("next = %+v, want nil", out.Next)
		}

		if err := s.SetActivityStatus("act-1", model.ActivityConcluded); err != nil {
			t.Fatal(err)
		}
		out, _ = s.GetActivity("act-1")
		if out.Status != model.ActivityConcluded {
			t.Errorf("status = %s", out.Status)
		}
	})
}

func TestDueActivitiesOrdering(t *testing.T) {
	eachStore(t, func(t *testing.T, s seeder) {
		now := storeNow()
		mk := func(id string, prio int, end time.Time, status model.ActivityStatus) {
			t.Helper()
			if err := s.CreateActivity(&model.Activity{
				ID: id, Type: model.ActivityGoto, Citizen: "marco",
				Status: status, StartTime: end.Add(-time.Minute), EndTime: end,
				Priority: prio, CreatedAt: now,
			}); err != nil {
				t.Fatal(err)
			}
		}
		mk("low-early", 5, now.Add(-30*time.Minute), model.ActivityCreated)
		mk("high-late", 10, now.Add(-10*time.Minute), model.ActivityCreated)
		mk("high-early", 10, now.Add(-20*time.Minute), model.ActivityCreated)
		mk("future", 10, now.Add(time.Hour), model.ActivityCreated)
		mk("done", 10, now.Add(-40*time.Minute), model.ActivityConcluded)

		due, err := s.DueActivities(now)
		if err != nil {
			t.Fatal(err)
		}
		var ids []string
		for _, a := range due {
			ids = append(ids, a.ID)
		}
		want := []string{"high-early", "high-late", "low-early"}
		if len(ids) != len(want) {
			t.Fatalf("due = %v, want %v", ids, want)
		}
		for i := range want {
			if ids[i] != want[i] {
				t.Fatalf("due = %v, want %v", ids, want)
			}
		}
	})
}

func TestPendingByCitizenOrdering(t *testing.T) {
	eachStore(t, func(t *testing.T, s seeder) {
		now := storeNow()
		for _, a := range []*model.Activity{
			{ID: "b", Citizen: "marco", Type: model.ActivityGoto,
				Status: model.ActivityCreated, EndTime: now.Add(2 * time.Hour), CreatedAt: now},
			{ID: "a", Citizen: "marco", Type: model.ActivityGoto,
				Status: model.ActivityCreated, EndTime: now.Add(time.Hour), CreatedAt: now},
			{ID: "other", Citizen: "lucia", Type: model.ActivityGoto,
				Status: model.ActivityCreated, EndTime: now.Add(time.Hour), CreatedAt: now},
			{ID: "done", Citizen: "marco", Type: model.ActivityGoto,
				Status: model.ActivityConcluded, EndTime: now, CreatedAt: now},
		} {
			if err := s.CreateActivity(a); err != nil {
				t.Fatal(err)
			}
		}

		pending, err := s.PendingByCitizen("marco")
		if err != nil {
			t.Fatal(err)
		}
		if len(pending) != 2 || pending[0].ID != "a" || pending[1].ID != "b" {
			t.Errorf("pending = %+v", pending)
		}
	})
}

func TestTransactionLifecycle(t *testing.T) {
	eachStore(t, func(t *testing.T, s seeder) {
		now := storeNow()
		tx := &model.Transaction{
			ID: "tx-1", Type: "land_purchase", Payer: "marco", Payee: "lucia",
			Amount: 500, Asset: "parcel_7", Status: model.TxPending,
			Phase: model.PhaseCreated, CreatedAt: now.Add(-time.Hour),
		}
		if err := s.CreateTransaction(tx); err != nil {
			t.Fatal(err)
		}

		pending, err := s.PendingTransactions(now)
		if err != nil {
			t.Fatal(err)
		}
		if len(pending) != 1 || pending[0].ID != "tx-1" {
			t.Fatalf("pending = %+v", pending)
		}
		if pending[0].Phase != model.PhaseCreated {
			t.Errorf("phase = %s, want created", pending[0].Phase)
		}

		if err := s.SetTransactionPhase("tx-1", model.PhaseDebited); err != nil {
			t.Fatal(err)
		}
		if err := s.MarkCommitted("tx-1", now); err != nil {
			t.Fatal(err)
		}
		out, err := s.GetTransaction("tx-1")
		if err != nil {
			t.Fatal(err)
		}
		if out.Status != model.TxCommitted || out.Phase != model.PhaseDebited {
			t.Errorf("committed tx = %+v", out)
		}

		pending, _ = s.PendingTransactions(now)
		if len(pending) != 0 {
			t.Errorf("committed tx still pending")
		}

		recent, err := s.RecentTransactions(10)
		if err != nil {
			t.Fatal(err)
		}
		if len(recent) != 1 {
			t.Errorf("recent = %+v", recent)
		}
	})
}

func TestStratagemRoundtrip(t *testing.T) {
	eachStore(t, func(t *testing.T, s seeder) {
		now := storeNow()
		last := now.Add(-time.Hour)
		in := &model.Stratagem{
			ID: "st-1", Type: model.StratagemPatronage,
			Executor: "doge", Target: "artist", Status: model.StratagemActive,
			Params: model.StratagemParams{Amount: 10, DurationDays: 7},
			State:  model.StratagemState{AmountPaid: 30, TicksExecuted: 3, LastExecuted: &last},
			CreatedAt: now, ExpiresAt: now.Add(7 * 24 * time.Hour),
		}
		if err := s.CreateStratagem(in); err != nil {
			t.Fatal(err)
		}

		out, err := s.GetStratagem("st-1")
		if err != nil {
			t.Fatal(err)
		}
		if out.Params.DurationDays != 7 || out.State.AmountPaid != 30 {
			t.Errorf("roundtrip = %+v", out)
		}
		if out.State.LastExecuted == nil || !out.State.LastExecuted.Equal(last) {
			t.Errorf("last executed = %v", out.State.LastExecuted)
		}

		out.Status = model.StratagemSuspended
		if err := s.UpdateStratagem(out); err != nil {
			t.Fatal(err)
		}
		active, err := s.ActiveStratagems()
		if err != nil {
			t.Fatal(err)
		}
		if len(active) != 0 {
			t.Errorf("suspended stratagem still listed active")
		}
	})
}

func TestRelationshipUpsert(t *testing.T) {
	eachStore(t, func(t *testing.T, s seeder) {
		r := &model.Relationship{
			CitizenA: "zeno", CitizenB: "anna",
			Strength: 1, Trust: 0.5, UpdatedAt: storeNow(),
		}
		if err := s.UpsertRelationship(r); err != nil {
			t.Fatal(err)
		}

		// Lookup works in either order and reads the normalized record.
		out, err := s.GetRelationship("anna", "zeno")
		if err != nil {
			t.Fatal(err)
		}
		if out.CitizenA != "anna" || out.CitizenB != "zeno" {
			t.Errorf("stored pair = %s, %s", out.CitizenA, out.CitizenB)
		}

		out.Trust = 2
		if err := s.UpsertRelationship(out); err != nil {
			t.Fatal(err)
		}
		out, _ = s.GetRelationship("zeno", "anna")
		if out.Trust != 2 {
			t.Errorf("trust after upsert = %v", out.Trust)
		}
	})
}
