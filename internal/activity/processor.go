package activity

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rialto/internal/config"
	"rialto/internal/ledger"
	"rialto/internal/model"
	"rialto/internal/notify"
	"rialto/internal/relations"
	"rialto/internal/store"
)

// Outcome classifies one Execute call.
type Outcome string

const (
	OutcomeConcluded Outcome = "concluded"
	OutcomeFailed    Outcome = "failed"
	OutcomeDeferred  Outcome = "deferred" // Dependency not concluded yet; re-queue
	OutcomeNoop      Outcome = "noop"     // Already terminal; nothing done
)

// Result reports what Execute did with an activity.
type Result struct {
	Outcome Outcome
}

// Processor executes due activities. It holds no state across invocations
// and is safe to invoke concurrently for different activity IDs.
type Processor struct {
	Citizens   store.CitizenRepo
	Buildings  store.BuildingRepo
	Contracts  store.ContractRepo
	Activities store.ActivityRepo
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

// Execute runs one due activity. Terminal statuses are no-ops, so replaying
// an already-concluded record mutates nothing. A step whose dependency has
// not concluded defers; one whose dependency failed fails with it.
func (p *Processor) Execute(a *model.Activity) (Result, error) {
	// Re-read: the record may have been cancelled since it was selected.
	fresh, err := p.Activities.GetActivity(a.ID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: read activity %s: %v", model.ErrExternalUnavailable, a.ID, err)
	}
	if fresh.Status.Terminal() {
		return Result{Outcome: OutcomeNoop}, nil
	}
	if fresh.Status == model.ActivityInProgress {
		// Another invocation is mid-flight; leave it alone.
		return Result{Outcome: OutcomeNoop}, nil
	}

	if fresh.DependsOn != "" {
		dep, err := p.Activities.GetActivity(fresh.DependsOn)
		switch {
		case errors.Is(err, store.ErrNotFound):
			// Dependency record lost; nothing to wait for.
		case err != nil:
			return Result{}, fmt.Errorf("%w: read dependency %s: %v", model.ErrExternalUnavailable, fresh.DependsOn, err)
		case dep.Status == model.ActivityFailed || dep.Status == model.ActivityCancelled:
			return p.fail(fresh, fmt.Errorf("%w: earlier step %s did not complete", model.ErrStaleStateConflict, dep.ID))
		case dep.Status != model.ActivityConcluded:
			// The driver processed us out of temporal order. Defer, never
			// fail permanently.
			return Result{Outcome: OutcomeDeferred}, nil
		}
	}

	if fresh.Type == model.ActivityGoto {
		return p.executeGoto(fresh)
	}

	if fresh.Detail == nil {
		return p.fail(fresh, fmt.Errorf("%w: activity %s has no step detail", model.ErrInvalidParameters, fresh.ID))
	}
	if err := p.runStep(fresh.Citizen, fresh.Detail); err != nil {
		return p.fail(fresh, err)
	}
	return p.conclude(fresh)
}

// executeGoto moves the citizen to the path's final waypoint and, if the
// activity carries a hand-off payload, runs the terminal step immediately
// with the current time as base.
func (p *Processor) executeGoto(a *model.Activity) (Result, error) {
	dest := a.ToPos
	if len(a.Path) > 0 {
		dest = &a.Path[len(a.Path)-1]
	}
	if dest != nil {
		if err := p.Citizens.SetPosition(a.Citizen, *dest); err != nil {
			return Result{}, fmt.Errorf("%w: move %s: %v", model.ErrExternalUnavailable, a.Citizen, err)
		}
	}

	if a.Next != nil {
		if err := p.runStep(a.Citizen, a.Next); err != nil {
			return p.fail(a, err)
		}
	}
	return p.conclude(a)
}

func (p *Processor) conclude(a *model.Activity) (Result, error) {
	if err := p.Activities.SetActivityStatus(a.ID, model.ActivityConcluded); err != nil {
		return Result{}, fmt.Errorf("%w: conclude activity %s: %v", model.ErrExternalUnavailable, a.ID, err)
	}
	slog.Info("activity concluded", "activity", a.ID, "type", a.Type, "citizen", a.Citizen)
	return Result{Outcome: OutcomeConcluded}, nil
}

// fail marks the activity failed and notifies the citizen with taxonomy
// wording. The chain halts here: dependents of this step fail on their turn.
func (p *Processor) fail(a *model.Activity, cause error) (Result, error) {
	if err := p.Activities.SetActivityStatus(a.ID, model.ActivityFailed); err != nil {
		slog.Error("failed to mark activity failed", "activity", a.ID, "error", err)
	}
	p.Notifier.ActionFailed(a.Citizen, string(a.Type), cause, a.ToBuilding)
	slog.Warn("activity failed",
		"activity", a.ID, "type", a.Type, "citizen", a.Citizen, "cause", cause)
	return Result{Outcome: OutcomeFailed}, cause
}

// runStep dispatches a terminal step. The union is closed; every kind is
// handled here.
func (p *Processor) runStep(citizen string, step *model.StepDetail) error {
	switch step.Kind {
	case model.StepLandPurchase:
		if step.LandPurchase == nil {
			return fmt.Errorf("%w: land purchase step without params", model.ErrInvalidParameters)
		}
		return p.finalizeLandPurchase(citizen, step.LandPurchase)
	case model.StepContractPurchase:
		if step.ContractPurchase == nil {
			return fmt.Errorf("%w: contract purchase step without params", model.ErrInvalidParameters)
		}
		return p.finalizeContractPurchase(citizen, step.ContractPurchase)
	case model.StepSellListing:
		if step.SellListing == nil {
			return fmt.Errorf("%w: sell listing step without params", model.ErrInvalidParameters)
		}
		return p.registerSellContract(citizen, step.SellListing)
	case model.StepRentAdjustment:
		if step.RentAdjustment == nil {
			return fmt.Errorf("%w: rent adjustment step without params", model.ErrInvalidParameters)
		}
		return p.adjustRent(citizen, step.RentAdjustment)
	case model.StepBuildingBid:
		if step.BuildingBid == nil {
			return fmt.Errorf("%w: building bid step without params", model.ErrInvalidParameters)
		}
		return p.submitBid(citizen, step.BuildingBid)
	default:
		return fmt.Errorf("%w: unknown step kind %q", model.ErrInvalidParameters, step.Kind)
	}
}

// freshContract re-reads a contract for execution-time validation.
func (p *Processor) freshContract(id string, wantType model.ContractType) (*model.Contract, error) {
	contract, err := p.Contracts.GetContract(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: contract %s vanished since planning", model.ErrStaleStateConflict, id)
		}
		return nil, fmt.Errorf("%w: read contract: %v", model.ErrExternalUnavailable, err)
	}
	if contract.Type != wantType {
		return nil, fmt.Errorf("%w: contract %s is %s, expected %s",
			model.ErrStaleStateConflict, id, contract.Type, wantType)
	}
	if contract.Status != model.ContractActive || contract.Expired(p.now()) {
		return nil, fmt.Errorf("%w: contract %s closed since planning", model.ErrStaleStateConflict, id)
	}
	return contract, nil
}

// finalizeLandPurchase settles a land sale: price to the seller, the
// registration fee to the treasury, ownership to the buyer. The fee and the
// ownership write each compensate the transfers already applied if they
// fail, so the step unwinds instead of stranding funds.
func (p *Processor) finalizeLandPurchase(buyer string, params *model.LandPurchaseParams) error {
	contract, err := p.freshContract(params.ContractID, model.ContractLandSale)
	if err != nil {
		return err
	}
	parcel, err := p.Buildings.GetBuilding(params.ParcelID)
	if err != nil {
		return fmt.Errorf("%w: read parcel %s: %v", model.ErrExternalUnavailable, params.ParcelID, err)
	}
	if parcel.Owner != contract.Seller {
		return fmt.Errorf("%w: parcel %s changed hands since planning", model.ErrStaleStateConflict, parcel.ID)
	}

	// Price and fee from current data, never from plan time.
	price := contract.PricePerUnit
	fee := p.Policy.RegistrationFee(price)

	buyerRec, err := p.Citizens.GetCitizen(buyer)
	if err != nil {
		return fmt.Errorf("%w: read buyer: %v", model.ErrExternalUnavailable, err)
	}
	if buyerRec.Ducats < price+fee {
		return fmt.Errorf("%w: %s has %d ducats, needs %d", model.ErrStaleStateConflict, buyer, buyerRec.Ducats, price+fee)
	}

	priceTx, err := p.Ledger.Transfer(buyer, contract.Seller, price, "land_purchase", parcel.ID)
	if err != nil {
		return err
	}
	if _, err := p.Ledger.Transfer(buyer, p.Policy.TreasuryAccount, fee, "registration_fee", parcel.ID); err != nil {
		p.compensate(priceTx)
		return err
	}

	if err := p.Buildings.SetOwner(parcel.ID, buyer); err != nil {
		// Both transfers landed but the deed did not.
		return fmt.Errorf("%w: transfers applied but deed for %s not updated", model.ErrPartialChainFailure, parcel.ID)
	}
	if err := p.Contracts.SetContractStatus(contract.ID, model.ContractFulfilled); err != nil {
		slog.Error("land sale fulfilled but contract status not updated", "contract", contract.ID, "error", err)
	}

	p.Notifier.PaymentReceived(contract.Seller, buyer, price, fmt.Sprintf("the parcel %s", parcel.ID), parcel.ID)
	if parcel.Occupant != "" && parcel.Occupant != buyer {
		p.Notifier.Send(parcel.Occupant, "ownership_change",
			fmt.Sprintf("%s is the new owner of %s.", buyer, parcel.ID), parcel.ID)
	}
	if parcel.RunBy != "" && parcel.RunBy != buyer && parcel.RunBy != parcel.Occupant {
		p.Notifier.Send(parcel.RunBy, "ownership_change",
			fmt.Sprintf("%s is the new owner of %s.", buyer, parcel.ID), parcel.ID)
	}
	p.Relations.Strengthen(buyer, contract.Seller, p.Policy.TradeTrustIncrement, p.Policy.TradeTrustIncrement)
	return nil
}

// finalizeContractPurchase buys units against a public sell listing.
func (p *Processor) finalizeContractPurchase(buyer string, params *model.ContractPurchaseParams) error {
	contract, err := p.freshContract(params.ContractID, model.ContractPublicSell)
	if err != nil {
		return err
	}
	if contract.TargetAmount < params.Quantity {
		return fmt.Errorf("%w: listing %s has %d units left, wanted %d",
			model.ErrStaleStateConflict, contract.ID, contract.TargetAmount, params.Quantity)
	}

	total := contract.PricePerUnit * params.Quantity
	tx, err := p.Ledger.Transfer(buyer, contract.Seller, total, "resource_purchase", contract.ID)
	if err != nil {
		return err
	}

	remaining := contract.TargetAmount - params.Quantity
	if err := p.Contracts.SetTargetAmount(contract.ID, remaining); err != nil {
		p.compensate(tx)
		return fmt.Errorf("%w: update listing %s: %v", model.ErrExternalUnavailable, contract.ID, err)
	}
	if remaining == 0 {
		if err := p.Contracts.SetContractStatus(contract.ID, model.ContractFulfilled); err != nil {
			slog.Error("listing sold out but status not updated", "contract", contract.ID, "error", err)
		}
	}

	p.Notifier.PaymentReceived(contract.Seller, buyer, total,
		fmt.Sprintf("%d %s", params.Quantity, contract.ResourceType), contract.ID)
	p.Relations.Strengthen(buyer, contract.Seller, p.Policy.TradeTrustIncrement, p.Policy.TradeTrustIncrement)
	return nil
}

// registerSellContract creates a public sell listing at the actor's shop.
func (p *Processor) registerSellContract(actor string, params *model.SellListingParams) error {
	building, err := p.Buildings.GetBuilding(params.BuildingID)
	if err != nil {
		return fmt.Errorf("%w: read building %s: %v", model.ErrExternalUnavailable, params.BuildingID, err)
	}
	if building.RunBy != actor && building.Owner != actor {
		return fmt.Errorf("%w: %s no longer runs %s", model.ErrStaleStateConflict, actor, building.ID)
	}

	now := p.now()
	contract := &model.Contract{
		ID:           uuid.NewString(),
		Type:         model.ContractPublicSell,
		Seller:       actor,
		ResourceType: params.ResourceType,
		Asset:        building.ID,
		PricePerUnit: params.PricePerUnit,
		TargetAmount: params.TargetAmount,
		Status:       model.ContractActive,
		CreatedAt:    now,
		EndAt:        now.Add(time.Duration(p.Policy.ListingDurationHours) * time.Hour),
	}
	if err := p.Contracts.CreateContract(contract); err != nil {
		return fmt.Errorf("%w: create listing: %v", model.ErrExternalUnavailable, err)
	}

	if building.Owner != "" && building.Owner != actor {
		p.Notifier.Send(building.Owner, "listing_registered",
			fmt.Sprintf("%s listed %d %s for sale at %s.",
				actor, params.TargetAmount, params.ResourceType, building.ID), contract.ID)
	}
	return nil
}

// adjustRent changes the rent on an owned building.
func (p *Processor) adjustRent(actor string, params *model.RentAdjustmentParams) error {
	building, err := p.Buildings.GetBuilding(params.BuildingID)
	if err != nil {
		return fmt.Errorf("%w: read building %s: %v", model.ErrExternalUnavailable, params.BuildingID, err)
	}
	if building.Owner != actor {
		return fmt.Errorf("%w: %s no longer owns %s", model.ErrStaleStateConflict, actor, building.ID)
	}

	if err := p.Buildings.SetRentPrice(building.ID, params.NewPrice); err != nil {
		return fmt.Errorf("%w: set rent on %s: %v", model.ErrExternalUnavailable, building.ID, err)
	}

	if building.Occupant != "" && building.Occupant != actor {
		p.Notifier.Send(building.Occupant, "rent_adjusted",
			fmt.Sprintf("The rent at %s is now %s per day.", building.ID, notify.Ducats(params.NewPrice)),
			building.ID)
	}
	return nil
}

// submitBid records a standing bid on another citizen's building. No funds
// move until the owner accepts; the bid is only re-checked for coverage.
func (p *Processor) submitBid(actor string, params *model.BuildingBidParams) error {
	building, err := p.Buildings.GetBuilding(params.BuildingID)
	if err != nil {
		return fmt.Errorf("%w: read building %s: %v", model.ErrExternalUnavailable, params.BuildingID, err)
	}
	if building.Owner == actor {
		return fmt.Errorf("%w: %s now owns %s, bid is moot", model.ErrStaleStateConflict, actor, building.ID)
	}
	actorRec, err := p.Citizens.GetCitizen(actor)
	if err != nil {
		return fmt.Errorf("%w: read bidder: %v", model.ErrExternalUnavailable, err)
	}
	if actorRec.Ducats < params.BidAmount {
		return fmt.Errorf("%w: %s can no longer cover the %d ducat bid", model.ErrStaleStateConflict, actor, params.BidAmount)
	}

	now := p.now()
	contract := &model.Contract{
		ID:           uuid.NewString(),
		Type:         model.ContractBuildingBid,
		Buyer:        actor,
		Seller:       building.Owner,
		Asset:        building.ID,
		PricePerUnit: params.BidAmount,
		Status:       model.ContractActive,
		CreatedAt:    now,
		EndAt:        now.Add(time.Duration(p.Policy.BidDurationHours) * time.Hour),
	}
	if err := p.Contracts.CreateContract(contract); err != nil {
		return fmt.Errorf("%w: create bid: %v", model.ErrExternalUnavailable, err)
	}

	p.Notifier.Send(building.Owner, "bid_received",
		fmt.Sprintf("%s offers %s for %s.", actor, notify.Ducats(params.BidAmount), building.ID),
		contract.ID)
	return nil
}

// compensate reverses an already-applied transfer after a later mutation in
// the same step failed. If even the reversal fails the ducats are findable
// through the ledger, but it takes an operator.
func (p *Processor) compensate(tx *model.Transaction) {
	if _, err := p.Ledger.Reverse(tx); err != nil {
		slog.Error("COMPENSATION FAILED: transfer not reversed",
			"tx", tx.ID, "payer", tx.Payer, "payee", tx.Payee, "amount", tx.Amount, "error", err)
	}
}
