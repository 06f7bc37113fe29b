package model

import "time"

// ActivityType tags which processor logic applies to an activity.
type ActivityType string

const (
	ActivityGoto             ActivityType = "goto_location"
	ActivityFinalizeLand     ActivityType = "finalize_land_purchase"
	ActivityFinalizePurchase ActivityType = "finalize_contract_purchase"
	ActivityRegisterSell     ActivityType = "register_sell_contract"
	ActivityAdjustRent       ActivityType = "adjust_rent_price"
	ActivitySubmitBid        ActivityType = "submit_building_bid"
)

// ActivityStatus is the lifecycle state of an activity.
// Concluded, failed and cancelled are terminal; records are never deleted.
type ActivityStatus string

const (
	ActivityCreated    ActivityStatus = "created"
	ActivityInProgress ActivityStatus = "in_progress"
	ActivityConcluded  ActivityStatus = "concluded"
	ActivityFailed     ActivityStatus = "failed"
	ActivityCancelled  ActivityStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s ActivityStatus) Terminal() bool {
	return s == ActivityConcluded || s == ActivityFailed || s == ActivityCancelled
}

// StepKind identifies a terminal (economically meaningful) step.
// The set is closed: the processor's dispatch switches over it exhaustively.
type StepKind string

const (
	StepLandPurchase     StepKind = "land_purchase"
	StepContractPurchase StepKind = "contract_purchase"
	StepSellListing      StepKind = "sell_listing"
	StepRentAdjustment   StepKind = "rent_adjustment"
	StepBuildingBid      StepKind = "building_bid"
)

// LandPurchaseParams finalizes a land sale contract.
type LandPurchaseParams struct {
	ContractID string `json:"contract_id"`
	ParcelID   string `json:"parcel_id"`
}

// ContractPurchaseParams buys units against a public sell contract.
type ContractPurchaseParams struct {
	ContractID string `json:"contract_id"`
	Quantity   int64  `json:"quantity"`
}

// SellListingParams registers a new public sell contract.
type SellListingParams struct {
	BuildingID   string `json:"building_id"`
	ResourceType string `json:"resource_type"`
	PricePerUnit int64  `json:"price_per_unit"`
	TargetAmount int64  `json:"target_amount"`
}

// RentAdjustmentParams changes the rent on an owned building.
type RentAdjustmentParams struct {
	BuildingID string `json:"building_id"`
	NewPrice   int64  `json:"new_price"`
}

// BuildingBidParams places a bid on another citizen's building.
type BuildingBidParams struct {
	BuildingID string `json:"building_id"`
	BidAmount  int64  `json:"bid_amount"`
}

// StepDetail is the chain payload: a closed tagged union naming one terminal
// step and carrying its parameters. Exactly the variant matching Kind is set.
type StepDetail struct {
	Kind             StepKind                `json:"kind"`
	LandPurchase     *LandPurchaseParams     `json:"land_purchase,omitempty"`
	ContractPurchase *ContractPurchaseParams `json:"contract_purchase,omitempty"`
	SellListing      *SellListingParams      `json:"sell_listing,omitempty"`
	RentAdjustment   *RentAdjustmentParams   `json:"rent_adjustment,omitempty"`
	BuildingBid      *BuildingBidParams      `json:"building_bid,omitempty"`
}

// Activity is one atomic, time-boxed step of a workflow. Created by the
// planner, mutated only by the processor once its window is due, terminal
// forever after. Never deleted; the table is the audit trail.
type Activity struct {
	ID           string         `json:"id"`
	Type         ActivityType   `json:"type"`
	Citizen      string         `json:"citizen"`
	FromBuilding string         `json:"from_building,omitempty"`
	ToBuilding   string         `json:"to_building,omitempty"`
	FromPos      *Position      `json:"from_pos,omitempty"`
	ToPos        *Position      `json:"to_pos,omitempty"`
	Path         []Position     `json:"path,omitempty"` // Waypoints, movement types only
	Status       ActivityStatus `json:"status"`
	StartTime    time.Time      `json:"start_time"`
	EndTime      time.Time      `json:"end_time"`
	Priority     int            `json:"priority"`
	DependsOn    string         `json:"depends_on,omitempty"` // Prior activity that must conclude first
	Detail       *StepDetail    `json:"detail,omitempty"`     // Parameters for this step (terminal types)
	Next         *StepDetail    `json:"next,omitempty"`       // Hand-off to run on arrival (movement types)
	CreatedAt    time.Time      `json:"created_at"`
}

// StratagemType enumerates long-horizon commitment kinds.
type StratagemType string

const (
	StratagemPatronage       StratagemType = "patronage"
	StratagemTradeCommission StratagemType = "trade_commission"
)

// StratagemStatus is the stratagem state machine. Suspended never transitions
// back to active on its own; reactivation is an explicit operation.
type StratagemStatus string

const (
	StratagemActive    StratagemStatus = "active"
	StratagemSuspended StratagemStatus = "suspended"
	StratagemCompleted StratagemStatus = "completed"
	StratagemFailed    StratagemStatus = "failed"
)

// StratagemParams are the fixed terms set at commit time.
type StratagemParams struct {
	Amount       int64  `json:"amount"`                  // Ducats per period (patronage) or total (commission)
	DurationDays int    `json:"duration_days,omitempty"` // Patronage lifetime
	ResourceType string `json:"resource_type,omitempty"` // Commission cargo
	Quantity     int64  `json:"quantity,omitempty"`
}

// StratagemState is the cumulative bookkeeping updated on each tick.
type StratagemState struct {
	AmountPaid    int64      `json:"amount_paid"`
	TicksExecuted int        `json:"ticks_executed"`
	LastExecuted  *time.Time `json:"last_executed,omitempty"`
}

// Stratagem is a long-lived commitment ticked once per scheduling period.
type Stratagem struct {
	ID        string          `json:"id"`
	Type      StratagemType   `json:"type"`
	Executor  string          `json:"executor"`
	Target    string          `json:"target,omitempty"`
	Status    StratagemStatus `json:"status"`
	Params    StratagemParams `json:"params"`
	State     StratagemState  `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// TotalOwed returns the lifetime obligation under the stated terms.
func (s *Stratagem) TotalOwed() int64 {
	if s.Type == StratagemPatronage {
		return s.Params.Amount * int64(s.Params.DurationDays)
	}
	return s.Params.Amount
}
