// Package model defines the record kinds the execution engine reads and writes:
// citizens, buildings, contracts, activities, stratagems, transactions,
// notifications, and relationships.
package model

import "time"

// Position is a point in the city, in meters from the city origin.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Citizen is an economic actor. The engine owns only the fields it mutates
// under workflow execution: ducats and position.
type Citizen struct {
	Username     string    `json:"username"`
	Name         string    `json:"name,omitempty"`
	Ducats       int64     `json:"ducats"`
	Position     *Position `json:"position,omitempty"`
	HomeBuilding string    `json:"home_building,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// BuildingCategory distinguishes land parcels from constructed buildings.
type BuildingCategory string

const (
	CategoryLand     BuildingCategory = "land"
	CategoryHome     BuildingCategory = "home"
	CategoryBusiness BuildingCategory = "business"
)

// Building is a land parcel or constructed building. Owner, occupant and
// operator may be three different citizens.
type Building struct {
	ID        string           `json:"id"`
	Name      string           `json:"name,omitempty"`
	Category  BuildingCategory `json:"category"`
	Owner     string           `json:"owner,omitempty"`
	Occupant  string           `json:"occupant,omitempty"`
	RunBy     string           `json:"run_by,omitempty"`
	Position  Position         `json:"position"`
	RentPrice int64            `json:"rent_price"`
}

// ContractType enumerates standing offer kinds.
type ContractType string

const (
	ContractLandSale    ContractType = "land_sale"
	ContractPublicSell  ContractType = "public_sell"
	ContractBuildingBid ContractType = "building_bid"
)

// ContractStatus is the lifecycle state of a contract.
type ContractStatus string

const (
	ContractActive    ContractStatus = "active"
	ContractExpired   ContractStatus = "expired"
	ContractFulfilled ContractStatus = "fulfilled"
	ContractCancelled ContractStatus = "cancelled"
)

// Contract is a standing offer or agreement: a land sale, a public sell
// listing, or a bid on a building. Expiry is enforced by whoever reads the
// record checking EndAt, not by a background sweep.
type Contract struct {
	ID           string         `json:"id"`
	Type         ContractType   `json:"type"`
	Buyer        string         `json:"buyer,omitempty"`
	Seller       string         `json:"seller,omitempty"`
	ResourceType string         `json:"resource_type,omitempty"`
	Asset        string         `json:"asset,omitempty"` // Building/parcel ID the contract concerns
	PricePerUnit int64          `json:"price_per_unit"`
	TargetAmount int64          `json:"target_amount"` // Units remaining for sale (public_sell)
	Status       ContractStatus `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	EndAt        time.Time      `json:"end_at"`
}

// Expired reports whether the contract's window has passed at the given time.
func (c *Contract) Expired(now time.Time) bool {
	return !c.EndAt.IsZero() && now.After(c.EndAt)
}

// TransactionStatus tracks the outbox state of a funds movement.
// A transaction is written pending before the debit, and committed only after
// both balances have been updated; anything left pending is reconciler work.
type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCommitted TransactionStatus = "committed"
	TxVoid      TransactionStatus = "void"
)

// TransactionPhase records how far the outbox protocol advanced. The phase
// is bumped before and after each balance write: an "-ing" phase means the
// write was issued but its fate is unknown, so a crash there leaves a record
// the reconciler must hand to an operator rather than guess about.
type TransactionPhase string

const (
	// PhaseCreated: pending record written, no balance touched yet.
	PhaseCreated TransactionPhase = "created"
	// PhaseDebiting: the debit write was issued.
	PhaseDebiting TransactionPhase = "debiting"
	// PhaseDebited: the debit landed; the credit was not yet attempted.
	PhaseDebited TransactionPhase = "debited"
	// PhaseCrediting: the credit write was issued.
	PhaseCrediting TransactionPhase = "crediting"
)

// Transaction is an immutable ledger entry recording one funds movement.
type Transaction struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Payer      string            `json:"payer"`
	Payee      string            `json:"payee"`
	Amount     int64             `json:"amount"`
	Asset      string            `json:"asset,omitempty"`
	Status     TransactionStatus `json:"status"`
	Phase      TransactionPhase  `json:"phase"`
	CreatedAt  time.Time         `json:"created_at"`
	ExecutedAt time.Time         `json:"executed_at,omitempty"`
}

// Notification is a message for a citizen about something the engine did.
type Notification struct {
	ID        string    `json:"id"`
	Citizen   string    `json:"citizen"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	Asset     string    `json:"asset,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Relationship is the social bond between two citizens. The pair is stored
// with CitizenA < CitizenB so each pair has exactly one record.
type Relationship struct {
	CitizenA  string    `json:"citizen_a"`
	CitizenB  string    `json:"citizen_b"`
	Strength  float64   `json:"strength"` // 0–100
	Trust     float64   `json:"trust"`    // 0–100
	UpdatedAt time.Time `json:"updated_at"`
}

// RelationshipPair normalizes two usernames into storage order.
func RelationshipPair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}
