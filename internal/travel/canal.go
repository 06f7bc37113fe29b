package travel

import (
	"time"

	opensimplex "github.com/ojrac/opensimplex-go"

	"rialto/internal/model"
)

// CanalPlanner estimates travel over the city's canal network. Routes are
// straight-line with waypoints dropped at a fixed spacing; traversal speed
// varies smoothly across the city using simplex noise as a stand-in for
// canal currents and crowding. Deterministic for a given seed.
type CanalPlanner struct {
	noise         opensimplex.Noise
	baseSpeed     float64 // meters per second
	waypointEvery float64 // meters between waypoints
	maxRange      float64 // meters; beyond this there is no route
}

// NewCanalPlanner creates a planner with the given seed and base walking
// speed in m/s. A zero or negative speed falls back to 1.4 m/s.
func NewCanalPlanner(seed int64, baseSpeed, waypointEvery float64) *CanalPlanner {
	if baseSpeed <= 0 {
		baseSpeed = 1.4
	}
	if waypointEvery <= 0 {
		waypointEvery = 50
	}
	return &CanalPlanner{
		noise:         opensimplex.New(seed),
		baseSpeed:     baseSpeed,
		waypointEvery: waypointEvery,
		maxRange:      20000, // The city is not that big.
	}
}

// Route implements Planner.
func (p *CanalPlanner) Route(from, to model.Position) (*Route, error) {
	dist := Distance(from, to)
	if dist > p.maxRange {
		return nil, ErrNoRoute
	}
	if dist < 1 {
		// Already there; zero waypoints, zero duration.
		return &Route{}, nil
	}

	steps := int(dist / p.waypointEvery)
	waypoints := make([]model.Position, 0, steps+1)
	var total time.Duration

	prev := from
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps+1)
		wp := model.Position{
			X: from.X + (to.X-from.X)*t,
			Y: from.Y + (to.Y-from.Y)*t,
		}
		waypoints = append(waypoints, wp)
		total += p.legDuration(prev, wp)
		prev = wp
	}
	waypoints = append(waypoints, to)
	total += p.legDuration(prev, to)

	return &Route{Waypoints: waypoints, Duration: total}, nil
}

// legDuration computes the time for one segment, modulated by current noise
// in [-1, 1] scaled to ±20% of base speed.
func (p *CanalPlanner) legDuration(a, b model.Position) time.Duration {
	mid := model.Position{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
	current := p.noise.Eval2(mid.X/500, mid.Y/500)
	speed := p.baseSpeed * (1 + 0.2*current)
	seconds := Distance(a, b) / speed
	return time.Duration(seconds * float64(time.Second))
}
