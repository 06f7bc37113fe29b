// Package relations maintains the pairwise trust/strength scores that
// economic interactions feed. Scores live in 0–100.
package relations

import (
	"errors"
	"log/slog"
	"time"

	"rialto/internal/model"
	"rialto/internal/store"
)

// Book applies relationship updates. Failures are logged and swallowed;
// a missed trust bump never aborts a workflow step.
type Book struct {
	Repo store.RelationshipRepo
	Now  func() time.Time
}

// New creates a relationship book over the given repository.
func New(repo store.RelationshipRepo) *Book {
	return &Book{Repo: repo, Now: time.Now}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Strengthen adds to the bond between two citizens, creating the record on
// first contact.
func (b *Book) Strengthen(first, second string, strength, trust float64) {
	if b == nil || b.Repo == nil || first == "" || second == "" || first == second {
		return
	}
	now := time.Now()
	if b.Now != nil {
		now = b.Now()
	}

	rel, err := b.Repo.GetRelationship(first, second)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Error("relationship read failed", "a", first, "b", second, "error", err)
			return
		}
		a, c := model.RelationshipPair(first, second)
		rel = &model.Relationship{CitizenA: a, CitizenB: c}
	}

	rel.Strength = clamp(rel.Strength + strength)
	rel.Trust = clamp(rel.Trust + trust)
	rel.UpdatedAt = now

	if err := b.Repo.UpsertRelationship(rel); err != nil {
		slog.Error("relationship write failed", "a", first, "b", second, "error", err)
	}
}
