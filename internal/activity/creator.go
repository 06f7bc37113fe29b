// Package activity turns citizen intents into chained, time-boxed activity
// records and executes each when its window is due. The creator plans; the
// processor mutates. Nothing here holds state between invocations.
package activity

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rialto/internal/config"
	"rialto/internal/model"
	"rialto/internal/store"
	"rialto/internal/travel"
)

// IntentType names the high-level actions citizens can pursue.
type IntentType string

const (
	IntentBuyLand      IntentType = "buy_land"
	IntentBuyResource  IntentType = "buy_resource"
	IntentListResource IntentType = "list_resource"
	IntentAdjustRent   IntentType = "adjust_rent"
	IntentBidBuilding  IntentType = "bid_building"
)

// Params carries intent parameters. Which fields matter depends on the
// intent type; Plan validates the relevant ones.
type Params struct {
	ContractID   string          `json:"contract_id,omitempty"`
	BuildingID   string          `json:"building_id,omitempty"`
	ResourceType string          `json:"resource_type,omitempty"`
	Quantity     int64           `json:"quantity,omitempty"`
	PricePerUnit int64           `json:"price_per_unit,omitempty"`
	TargetAmount int64           `json:"target_amount,omitempty"`
	NewRentPrice int64           `json:"new_rent_price,omitempty"`
	BidAmount    int64           `json:"bid_amount,omitempty"`
	FromPos      *model.Position `json:"from_pos,omitempty"` // Explicit origin override
}

// Intent is one citizen request, as delivered by the decision oracle or the
// trigger API.
type Intent struct {
	Type    IntentType `json:"type"`
	Citizen string     `json:"citizen"`
	Params  Params     `json:"params"`
}

// Creator plans activity chains. Plan has no side effects: it reads current
// state, validates, and returns records for the caller to persist in order,
// so a failed persistence leaves nothing behind.
type Creator struct {
	Citizens   store.CitizenRepo
	Buildings  store.BuildingRepo
	Contracts  store.ContractRepo
	Activities store.ActivityRepo
	Planner    travel.Planner
	Policy     config.Policy
	Now        func() time.Time
}

func (c *Creator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// stepPriority orders steps within a tick; purchases outrank bookkeeping.
func stepPriority(kind model.StepKind) int {
	switch kind {
	case model.StepLandPurchase, model.StepContractPurchase:
		return 10
	case model.StepBuildingBid:
		return 7
	default:
		return 5
	}
}

// Plan validates an intent and returns its activity chain: a movement leg
// followed by a terminal step depending on it. Times are absolute and
// chained; step k+1 starts exactly when step k ends.
func (c *Creator) Plan(intent Intent) ([]*model.Activity, error) {
	citizen, err := c.Citizens.GetCitizen(intent.Citizen)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: citizen %s not found", model.ErrPreconditionUnmet, intent.Citizen)
		}
		return nil, fmt.Errorf("%w: read citizen: %v", model.ErrExternalUnavailable, err)
	}

	step, target, err := c.validate(citizen, intent)
	if err != nil {
		return nil, err
	}

	origin, originBuilding, err := c.resolveOrigin(citizen, intent.Params.FromPos)
	if err != nil {
		return nil, err
	}

	route, err := c.Planner.Route(origin, target.Position)
	if err != nil {
		if errors.Is(err, travel.ErrNoRoute) {
			return nil, fmt.Errorf("%w: %s to %s", model.ErrNoPathFound, intent.Citizen, target.ID)
		}
		return nil, fmt.Errorf("%w: travel planner: %v", model.ErrExternalUnavailable, err)
	}

	legDuration := route.Duration
	if legDuration <= 0 && len(route.Waypoints) > 0 {
		// Planner resolved a path but no duration; keep the chain
		// well-formed with the policy default.
		legDuration = c.Policy.DefaultLegDuration()
	}

	// New chains queue behind the citizen's latest pending activity so
	// well-behaved plans never overlap.
	base := c.now()
	if pending, err := c.Activities.PendingByCitizen(intent.Citizen); err == nil && len(pending) > 0 {
		last := pending[len(pending)-1].EndTime
		if last.After(base) {
			base = last
		}
	}

	priority := stepPriority(step.Kind)
	origCopy := origin

	leg := &model.Activity{
		ID:           uuid.NewString(),
		Type:         model.ActivityGoto,
		Citizen:      intent.Citizen,
		FromBuilding: originBuilding,
		ToBuilding:   target.ID,
		FromPos:      &origCopy,
		ToPos:        &target.Position,
		Path:         route.Waypoints,
		Status:       model.ActivityCreated,
		StartTime:    base,
		EndTime:      base.Add(legDuration),
		Priority:     priority,
		CreatedAt:    c.now(),
	}

	terminal := &model.Activity{
		ID:         uuid.NewString(),
		Type:       activityTypeFor(step.Kind),
		Citizen:    intent.Citizen,
		ToBuilding: target.ID,
		ToPos:      &target.Position,
		Status:     model.ActivityCreated,
		StartTime:  leg.EndTime,
		EndTime:    leg.EndTime.Add(c.Policy.TerminalStepDuration()),
		Priority:   priority,
		DependsOn:  leg.ID,
		Detail:     step,
		CreatedAt:  c.now(),
	}

	return []*model.Activity{leg, terminal}, nil
}

// activityTypeFor maps a step kind to the activity type executing it.
func activityTypeFor(kind model.StepKind) model.ActivityType {
	switch kind {
	case model.StepLandPurchase:
		return model.ActivityFinalizeLand
	case model.StepContractPurchase:
		return model.ActivityFinalizePurchase
	case model.StepSellListing:
		return model.ActivityRegisterSell
	case model.StepRentAdjustment:
		return model.ActivityAdjustRent
	case model.StepBuildingBid:
		return model.ActivitySubmitBid
	}
	return model.ActivityGoto
}

// resolveOrigin finds the actor's current location: explicit coordinates,
// then the citizen's recorded position, then their home building.
func (c *Creator) resolveOrigin(citizen *model.Citizen, explicit *model.Position) (model.Position, string, error) {
	if explicit != nil {
		return *explicit, "", nil
	}
	if citizen.Position != nil {
		return *citizen.Position, "", nil
	}
	if citizen.HomeBuilding != "" {
		home, err := c.Buildings.GetBuilding(citizen.HomeBuilding)
		if err == nil {
			return home.Position, home.ID, nil
		}
	}
	return model.Position{}, "", fmt.Errorf("%w: no resolvable location for %s", model.ErrPreconditionUnmet, citizen.Username)
}

// validate checks an intent's static preconditions and returns the terminal
// step plus its destination building. Nothing is written here.
func (c *Creator) validate(citizen *model.Citizen, intent Intent) (*model.StepDetail, *model.Building, error) {
	switch intent.Type {
	case IntentBuyLand:
		return c.validateBuyLand(citizen, intent.Params)
	case IntentBuyResource:
		return c.validateBuyResource(citizen, intent.Params)
	case IntentListResource:
		return c.validateListResource(citizen, intent.Params)
	case IntentAdjustRent:
		return c.validateAdjustRent(citizen, intent.Params)
	case IntentBidBuilding:
		return c.validateBidBuilding(citizen, intent.Params)
	default:
		return nil, nil, fmt.Errorf("%w: unknown intent type %q", model.ErrInvalidParameters, intent.Type)
	}
}

// getContract reads a contract and maps store errors into the taxonomy.
func (c *Creator) getContract(id string) (*model.Contract, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: contract_id is required", model.ErrInvalidParameters)
	}
	contract, err := c.Contracts.GetContract(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: contract %s not found", model.ErrPreconditionUnmet, id)
		}
		return nil, fmt.Errorf("%w: read contract: %v", model.ErrExternalUnavailable, err)
	}
	return contract, nil
}

func (c *Creator) getBuilding(id string) (*model.Building, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: building_id is required", model.ErrInvalidParameters)
	}
	b, err := c.Buildings.GetBuilding(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: building %s not found", model.ErrPreconditionUnmet, id)
		}
		return nil, fmt.Errorf("%w: read building: %v", model.ErrExternalUnavailable, err)
	}
	return b, nil
}

func (c *Creator) validateBuyLand(citizen *model.Citizen, p Params) (*model.StepDetail, *model.Building, error) {
	contract, err := c.getContract(p.ContractID)
	if err != nil {
		return nil, nil, err
	}
	if contract.Type != model.ContractLandSale {
		return nil, nil, fmt.Errorf("%w: contract %s is not a land sale", model.ErrInvalidParameters, contract.ID)
	}
	if contract.Status != model.ContractActive || contract.Expired(c.now()) {
		return nil, nil, fmt.Errorf("%w: land sale %s is no longer open", model.ErrPreconditionUnmet, contract.ID)
	}
	if contract.Seller == citizen.Username {
		return nil, nil, fmt.Errorf("%w: cannot buy your own parcel", model.ErrPreconditionUnmet)
	}

	parcel, err := c.getBuilding(contract.Asset)
	if err != nil {
		return nil, nil, err
	}
	if parcel.Owner != contract.Seller {
		return nil, nil, fmt.Errorf("%w: parcel %s no longer owned by seller %s",
			model.ErrPreconditionUnmet, parcel.ID, contract.Seller)
	}

	price := contract.PricePerUnit
	anticipated := price + c.Policy.RegistrationFee(price)
	if citizen.Ducats < anticipated {
		return nil, nil, fmt.Errorf("%w: %s has %d ducats, purchase needs %d including fee",
			model.ErrPreconditionUnmet, citizen.Username, citizen.Ducats, anticipated)
	}

	return &model.StepDetail{
		Kind:         model.StepLandPurchase,
		LandPurchase: &model.LandPurchaseParams{ContractID: contract.ID, ParcelID: parcel.ID},
	}, parcel, nil
}

func (c *Creator) validateBuyResource(citizen *model.Citizen, p Params) (*model.StepDetail, *model.Building, error) {
	if p.Quantity <= 0 {
		return nil, nil, fmt.Errorf("%w: quantity must be positive", model.ErrInvalidParameters)
	}
	contract, err := c.getContract(p.ContractID)
	if err != nil {
		return nil, nil, err
	}
	if contract.Type != model.ContractPublicSell {
		return nil, nil, fmt.Errorf("%w: contract %s is not a public sell listing", model.ErrInvalidParameters, contract.ID)
	}
	if contract.Status != model.ContractActive || contract.Expired(c.now()) {
		return nil, nil, fmt.Errorf("%w: listing %s is no longer open", model.ErrPreconditionUnmet, contract.ID)
	}
	if contract.Seller == citizen.Username {
		return nil, nil, fmt.Errorf("%w: cannot buy from your own listing", model.ErrPreconditionUnmet)
	}
	if contract.TargetAmount < p.Quantity {
		return nil, nil, fmt.Errorf("%w: listing %s has %d units left, wanted %d",
			model.ErrPreconditionUnmet, contract.ID, contract.TargetAmount, p.Quantity)
	}

	seller, err := c.getBuilding(contract.Asset)
	if err != nil {
		return nil, nil, err
	}

	total := contract.PricePerUnit * p.Quantity
	if citizen.Ducats < total {
		return nil, nil, fmt.Errorf("%w: %s has %d ducats, purchase needs %d",
			model.ErrPreconditionUnmet, citizen.Username, citizen.Ducats, total)
	}

	return &model.StepDetail{
		Kind:             model.StepContractPurchase,
		ContractPurchase: &model.ContractPurchaseParams{ContractID: contract.ID, Quantity: p.Quantity},
	}, seller, nil
}

func (c *Creator) validateListResource(citizen *model.Citizen, p Params) (*model.StepDetail, *model.Building, error) {
	if p.ResourceType == "" || p.PricePerUnit <= 0 || p.TargetAmount <= 0 {
		return nil, nil, fmt.Errorf("%w: listing needs resource_type, price_per_unit and target_amount", model.ErrInvalidParameters)
	}
	building, err := c.getBuilding(p.BuildingID)
	if err != nil {
		return nil, nil, err
	}
	if building.RunBy != citizen.Username && building.Owner != citizen.Username {
		return nil, nil, fmt.Errorf("%w: %s neither owns nor runs %s",
			model.ErrPreconditionUnmet, citizen.Username, building.ID)
	}

	return &model.StepDetail{
		Kind: model.StepSellListing,
		SellListing: &model.SellListingParams{
			BuildingID:   building.ID,
			ResourceType: p.ResourceType,
			PricePerUnit: p.PricePerUnit,
			TargetAmount: p.TargetAmount,
		},
	}, building, nil
}

func (c *Creator) validateAdjustRent(citizen *model.Citizen, p Params) (*model.StepDetail, *model.Building, error) {
	if p.NewRentPrice < 0 {
		return nil, nil, fmt.Errorf("%w: rent cannot be negative", model.ErrInvalidParameters)
	}
	building, err := c.getBuilding(p.BuildingID)
	if err != nil {
		return nil, nil, err
	}
	if building.Owner != citizen.Username {
		return nil, nil, fmt.Errorf("%w: %s does not own %s",
			model.ErrPreconditionUnmet, citizen.Username, building.ID)
	}

	return &model.StepDetail{
		Kind:           model.StepRentAdjustment,
		RentAdjustment: &model.RentAdjustmentParams{BuildingID: building.ID, NewPrice: p.NewRentPrice},
	}, building, nil
}

func (c *Creator) validateBidBuilding(citizen *model.Citizen, p Params) (*model.StepDetail, *model.Building, error) {
	if p.BidAmount <= 0 {
		return nil, nil, fmt.Errorf("%w: bid amount must be positive", model.ErrInvalidParameters)
	}
	building, err := c.getBuilding(p.BuildingID)
	if err != nil {
		return nil, nil, err
	}
	if building.Owner == citizen.Username {
		return nil, nil, fmt.Errorf("%w: cannot bid on your own building", model.ErrPreconditionUnmet)
	}
	if citizen.Ducats < p.BidAmount {
		return nil, nil, fmt.Errorf("%w: %s has %d ducats, bid is %d",
			model.ErrPreconditionUnmet, citizen.Username, citizen.Ducats, p.BidAmount)
	}

	return &model.StepDetail{
		Kind:        model.StepBuildingBid,
		BuildingBid: &model.BuildingBidParams{BuildingID: building.ID, BidAmount: p.BidAmount},
	}, building, nil
}
