// Package travel resolves routes and durations between positions in the
// city. The engine consumes the Planner interface; the default planner
// models foot-and-gondola travel over the canal grid.
package travel

import (
	"errors"
	"math"
	"time"

	"rialto/internal/model"
)

// ErrNoRoute is returned when no route exists between two positions.
var ErrNoRoute = errors.New("no route between positions")

// Route is the result of a planning call. An empty waypoint list means the
// origin and destination coincide ("already there").
type Route struct {
	Waypoints []model.Position
	Duration  time.Duration
}

// Planner resolves a route between two positions.
type Planner interface {
	Route(from, to model.Position) (*Route, error)
}

// Distance returns the straight-line distance in meters.
func Distance(a, b model.Position) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Static is a fixed-answer planner for tests and degraded operation.
// Err takes precedence; otherwise every call returns Points and Dur.
type Static struct {
	Points []model.Position
	Dur    time.Duration
	Err    error
}

func (s *Static) Route(from, to model.Position) (*Route, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return &Route{Waypoints: s.Points, Duration: s.Dur}, nil
}
