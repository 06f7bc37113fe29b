package activity

import (
	"errors"
	"testing"
	"time"

	"rialto/internal/config"
	"rialto/internal/model"
	"rialto/internal/store"
	"rialto/internal/travel"
)

func testNow() time.Time {
	return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
}

// district seeds a small scene: marco with 10000 ducats at home, lucia
// selling parcel_7 for 1000.
func district(t *testing.T) *store.Memory {
	t.Helper()
	mem := store.NewMemory()
	mem.PutCitizen(&model.Citizen{
		Username: "marco", Ducats: 10000,
		Position: &model.Position{X: 100, Y: 100},
	})
	mem.PutCitizen(&model.Citizen{Username: "lucia", Ducats: 2000})
	mem.PutBuilding(&model.Building{
		ID: "parcel_7", Category: model.CategoryLand, Owner: "lucia",
		Position: model.Position{X: 400, Y: 100},
	})
	if err := mem.CreateContract(&model.Contract{
		ID: "sale_7", Type: model.ContractLandSale, Seller: "lucia",
		Asset: "parcel_7", PricePerUnit: 1000, Status: model.ContractActive,
		CreatedAt: testNow(), EndAt: testNow().Add(72 * time.Hour),
	}); err != nil {
		t.Fatal(err)
	}
	return mem
}

func newCreator(mem *store.Memory, planner travel.Planner) *Creator {
	return &Creator{
		Citizens:   mem,
		Buildings:  mem,
		Contracts:  mem,
		Activities: mem,
		Planner:    planner,
		Policy:     config.Default().Policy,
		Now:        testNow,
	}
}

func buyLandIntent() Intent {
	return Intent{
		Type:    IntentBuyLand,
		Citizen: "marco",
		Params:  Params{ContractID: "sale_7"},
	}
}

func TestPlanBuyLandChain(t *testing.T) {
	mem := district(t)
	planner := &travel.Static{
		Points: []model.Position{{X: 250, Y: 100}, {X: 400, Y: 100}},
		Dur:    10 * time.Minute,
	}
	c := newCreator(mem, planner)

	plan, err := c.Plan(buyLandIntent())
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(plan) != 2 {
		t.Fatalf("plan has %d steps, want 2", len(plan))
	}

	leg, terminal := plan[0], plan[1]
	if leg.Type != model.ActivityGoto {
		t.Errorf("first step type = %s, want goto", leg.Type)
	}
	if terminal.Type != model.ActivityFinalizeLand {
		t.Errorf("second step type = %s, want finalize land", terminal.Type)
	}
	if terminal.DependsOn != leg.ID {
		t.Errorf("terminal depends on %q, want %q", terminal.DependsOn, leg.ID)
	}
	if !terminal.StartTime.Equal(leg.EndTime) {
		t.Errorf("terminal starts %v, leg ends %v; chain must be contiguous",
			terminal.StartTime, leg.EndTime)
	}
	if !leg.EndTime.Equal(leg.StartTime.Add(10 * time.Minute)) {
		t.Errorf("leg window = %v to %v, want 10 minutes", leg.StartTime, leg.EndTime)
	}
	if terminal.Detail == nil || terminal.Detail.Kind != model.StepLandPurchase {
		t.Errorf("terminal detail = %+v", terminal.Detail)
	}
	if terminal.Detail.LandPurchase.ParcelID != "parcel_7" {
		t.Errorf("parcel = %s", terminal.Detail.LandPurchase.ParcelID)
	}

	// Plan has no side effects.
	if n := len(mem.AllActivities()); n != 0 {
		t.Errorf("plan persisted %d activities", n)
	}
}

func TestPlanRejectsInsufficientFunds(t *testing.T) {
	mem := district(t)
	if err := mem.SetDucats("marco", 1000); err != nil {
		t.Fatal(err)
	}
	c := newCreator(mem, &travel.Static{Dur: time.Minute})

	// Price 1000 plus the 50 ducat registration fee exceeds the balance.
	_, err := c.Plan(buyLandIntent())
	if !errors.Is(err, model.ErrPreconditionUnmet) {
		t.Fatalf("err = %v, want ErrPreconditionUnmet", err)
	}
	if n := len(mem.AllActivities()); n != 0 {
		t.Errorf("rejected plan persisted %d activities", n)
	}
}

func TestPlanRejectsOwnListing(t *testing.T) {
	mem := district(t)
	c := newCreator(mem, &travel.Static{Dur: time.Minute})

	intent := buyLandIntent()
	intent.Citizen = "lucia"
	if _, err := c.Plan(intent); !errors.Is(err, model.ErrPreconditionUnmet) {
		t.Errorf("buying own parcel: err = %v, want ErrPreconditionUnmet", err)
	}
}

func TestPlanRejectsClosedContract(t *testing.T) {
	mem := district(t)
	if err := mem.SetContractStatus("sale_7", model.ContractCancelled); err != nil {
		t.Fatal(err)
	}
	c := newCreator(mem, &travel.Static{Dur: time.Minute})

	if _, err := c.Plan(buyLandIntent()); !errors.Is(err, model.ErrPreconditionUnmet) {
		t.Errorf("closed contract: err = %v, want ErrPreconditionUnmet", err)
	}
}

func TestPlanNoRouteAbortsWholeChain(t *testing.T) {
	mem := district(t)
	c := newCreator(mem, &travel.Static{Err: travel.ErrNoRoute})

	_, err := c.Plan(buyLandIntent())
	if !errors.Is(err, model.ErrNoPathFound) {
		t.Fatalf("err = %v, want ErrNoPathFound", err)
	}
	if n := len(mem.AllActivities()); n != 0 {
		t.Errorf("aborted plan persisted %d activities", n)
	}
}

func TestPlanSubstitutesDefaultLegDuration(t *testing.T) {
	mem := district(t)
	// Planner resolves a path but reports no duration.
	c := newCreator(mem, &travel.Static{Points: []model.Position{{X: 400, Y: 100}}})

	plan, err := c.Plan(buyLandIntent())
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	leg := plan[0]
	want := c.Policy.DefaultLegDuration()
	if got := leg.EndTime.Sub(leg.StartTime); got != want {
		t.Errorf("leg duration = %v, want policy default %v", got, want)
	}
}

func TestPlanQueuesBehindPendingActivities(t *testing.T) {
	mem := district(t)
	busyUntil := testNow().Add(2 * time.Hour)
	if err := mem.CreateActivity(&model.Activity{
		ID: "busy", Type: model.ActivityGoto, Citizen: "marco",
		Status: model.ActivityCreated, StartTime: testNow(), EndTime: busyUntil,
	}); err != nil {
		t.Fatal(err)
	}
	c := newCreator(mem, &travel.Static{Dur: 10 * time.Minute})

	plan, err := c.Plan(buyLandIntent())
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if !plan[0].StartTime.Equal(busyUntil) {
		t.Errorf("new chain starts %v, want queued behind pending end %v",
			plan[0].StartTime, busyUntil)
	}
}

func TestPlanOriginFallsBackToHome(t *testing.T) {
	mem := district(t)
	mem.PutCitizen(&model.Citizen{Username: "marco", Ducats: 10000, HomeBuilding: "casa_m"})
	mem.PutBuilding(&model.Building{
		ID: "casa_m", Category: model.CategoryHome, Owner: "marco",
		Position: model.Position{X: 50, Y: 60},
	})
	c := newCreator(mem, &travel.Static{Dur: time.Minute})

	plan, err := c.Plan(buyLandIntent())
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan[0].FromBuilding != "casa_m" {
		t.Errorf("origin building = %q, want casa_m", plan[0].FromBuilding)
	}
	if plan[0].FromPos == nil || plan[0].FromPos.X != 50 {
		t.Errorf("origin position = %+v", plan[0].FromPos)
	}
}

func TestPlanNoResolvableOrigin(t *testing.T) {
	mem := district(t)
	mem.PutCitizen(&model.Citizen{Username: "marco", Ducats: 10000})
	c := newCreator(mem, &travel.Static{Dur: time.Minute})

	if _, err := c.Plan(buyLandIntent()); !errors.Is(err, model.ErrPreconditionUnmet) {
		t.Errorf("no origin: err = %v, want ErrPreconditionUnmet", err)
	}
}

func TestPlanUnknownCitizen(t *testing.T) {
	mem := district(t)
	c := newCreator(mem, &travel.Static{Dur: time.Minute})

	intent := buyLandIntent()
	intent.Citizen = "ghost"
	if _, err := c.Plan(intent); !errors.Is(err, model.ErrPreconditionUnmet) {
		t.Errorf("unknown citizen: err = %v, want ErrPreconditionUnmet", err)
	}
}

func TestPlanAdjustRentRequiresOwnership(t *testing.T) {
	mem := district(t)
	c := newCreator(mem, &travel.Static{Dur: time.Minute})

	intent := Intent{
		Type:    IntentAdjustRent,
		Citizen: "marco",
		Params:  Params{BuildingID: "parcel_7", NewRentPrice: 75},
	}
	if _, err := c.Plan(intent); !errors.Is(err, model.ErrPreconditionUnmet) {
		t.Errorf("non-owner rent change: err = %v, want ErrPreconditionUnmet", err)
	}
}

func TestPlanBuyResourceValidation(t *testing.T) {
	mem := district(t)
	if err := mem.CreateContract(&model.Contract{
		ID: "listing_1", Type: model.ContractPublicSell, Seller: "lucia",
		ResourceType: "fish", Asset: "parcel_7", PricePerUnit: 10, TargetAmount: 5,
		Status: model.ContractActive, CreatedAt: testNow(), EndAt: testNow().Add(time.Hour),
	}); err != nil {
		t.Fatal(err)
	}
	c := newCreator(mem, &travel.Static{Dur: time.Minute})

	intent := Intent{
		Type:    IntentBuyResource,
		Citizen: "marco",
		Params:  Params{ContractID: "listing_1", Quantity: 0},
	}
	if _, err := c.Plan(intent); !errors.Is(err, model.ErrInvalidParameters) {
		t.Errorf("zero quantity: err = %v, want ErrInvalidParameters", err)
	}

	intent.Params.Quantity = 6
	if _, err := c.Plan(intent); !errors.Is(err, model.ErrPreconditionUnmet) {
		t.Errorf("over-asking quantity: err = %v, want ErrPreconditionUnmet", err)
	}

	intent.Params.Quantity = 3
	plan, err := c.Plan(intent)
	if err != nil {
		t.Fatalf("valid purchase: %v", err)
	}
	if plan[1].Detail.ContractPurchase.Quantity != 3 {
		t.Errorf("step quantity = %d", plan[1].Detail.ContractPurchase.Quantity)
	}
}
