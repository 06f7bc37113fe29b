// Package store defines the repository interfaces the engine depends on and
// provides SQLite-backed and in-memory implementations. No repository offers
// multi-record atomicity; the ledger's outbox protocol compensates for that.
package store

import (
	"errors"
	"time"

	"rialto/internal/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// CitizenRepo reads and mutates citizen records. Only the fields the engine
// owns are writable.
type CitizenRepo interface {
	GetCitizen(username string) (*model.Citizen, error)
	ListCitizens() ([]*model.Citizen, error)
	SetDucats(username string, ducats int64) error
	SetPosition(username string, pos model.Position) error
}

// BuildingRepo reads and mutates building/parcel records.
type BuildingRepo interface {
	GetBuilding(id string) (*model.Building, error)
	SetOwner(id, owner string) error
	SetRentPrice(id string, price int64) error
}

// ContractRepo manages standing offers.
type ContractRepo interface {
	GetContract(id string) (*model.Contract, error)
	CreateContract(c *model.Contract) error
	SetContractStatus(id string, status model.ContractStatus) error
	SetTargetAmount(id string, remaining int64) error
}

// ActivityRepo manages the activity audit log. Records are never deleted.
type ActivityRepo interface {
	CreateActivity(a *model.Activity) error
	GetActivity(id string) (*model.Activity, error)
	SetActivityStatus(id string, status model.ActivityStatus) error
	// DueActivities returns created activities whose end time has passed,
	// ordered by priority (highest first) then start time.
	DueActivities(now time.Time) ([]*model.Activity, error)
	// PendingByCitizen returns non-terminal activities for a citizen,
	// ordered by end time.
	PendingByCitizen(username string) ([]*model.Activity, error)
}

// StratagemRepo manages long-horizon commitments.
type StratagemRepo interface {
	CreateStratagem(s *model.Stratagem) error
	GetStratagem(id string) (*model.Stratagem, error)
	UpdateStratagem(s *model.Stratagem) error
	ActiveStratagems() ([]*model.Stratagem, error)
}

// TransactionRepo is the append-only ledger plus the outbox progress markers.
type TransactionRepo interface {
	CreateTransaction(t *model.Transaction) error
	GetTransaction(id string) (*model.Transaction, error)
	SetTransactionPhase(id string, phase model.TransactionPhase) error
	MarkCommitted(id string, executedAt time.Time) error
	MarkVoid(id string) error
	PendingTransactions(olderThan time.Time) ([]*model.Transaction, error)
	RecentTransactions(limit int) ([]*model.Transaction, error)
}

// NotificationRepo records messages for citizens.
type NotificationRepo interface {
	CreateNotification(n *model.Notification) error
}

// RelationshipRepo manages pairwise social bonds.
type RelationshipRepo interface {
	GetRelationship(a, b string) (*model.Relationship, error)
	UpsertRelationship(r *model.Relationship) error
}

// Store bundles every repository. Both implementations satisfy it.
type Store interface {
	CitizenRepo
	BuildingRepo
	ContractRepo
	ActivityRepo
	StratagemRepo
	TransactionRepo
	NotificationRepo
	RelationshipRepo
}
