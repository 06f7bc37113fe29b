// Package stratagem manages long-horizon commitments: records created once
// and ticked by the driver until they terminate. Recurrence is re-invocation,
// not record chaining.
package stratagem

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"rialto/internal/config"
	"rialto/internal/model"
	"rialto/internal/store"
)

// Creator validates and emits stratagem records. Affordability is checked
// against the first obligation only; every later tick re-validates itself.
type Creator struct {
	Citizens   store.CitizenRepo
	Stratagems store.StratagemRepo
	Policy     config.Policy
	Now        func() time.Time
	// Jitter returns the random extra delay for commissioned deliveries.
	// Nil uses a uniform draw up to the policy maximum.
	Jitter func() time.Duration
}

func (c *Creator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Creator) jitter() time.Duration {
	if c.Jitter != nil {
		return c.Jitter()
	}
	max := time.Duration(c.Policy.CommissionJitterHours) * time.Hour
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}

// Commit validates the terms and persists exactly one stratagem record.
func (c *Creator) Commit(sType model.StratagemType, executor string, params model.StratagemParams, target string) (*model.Stratagem, error) {
	executorRec, err := c.Citizens.GetCitizen(executor)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: executor %s not found", model.ErrPreconditionUnmet, executor)
		}
		return nil, fmt.Errorf("%w: read executor: %v", model.ErrExternalUnavailable, err)
	}

	if target == "" {
		return nil, fmt.Errorf("%w: target is required", model.ErrInvalidParameters)
	}
	if target == executor {
		return nil, fmt.Errorf("%w: executor and target are the same", model.ErrInvalidParameters)
	}
	if _, err := c.Citizens.GetCitizen(target); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: target %s not found", model.ErrPreconditionUnmet, target)
		}
		return nil, fmt.Errorf("%w: read target: %v", model.ErrExternalUnavailable, err)
	}
	if params.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", model.ErrInvalidParameters)
	}

	now := c.now()
	s := &model.Stratagem{
		ID:        uuid.NewString(),
		Type:      sType,
		Executor:  executor,
		Target:    target,
		Status:    model.StratagemActive,
		Params:    params,
		CreatedAt: now,
	}

	switch sType {
	case model.StratagemPatronage:
		if params.DurationDays <= 0 {
			return nil, fmt.Errorf("%w: patronage needs a positive duration", model.ErrInvalidParameters)
		}
		// First obligation is one period's payment, not the lifetime cost.
		if executorRec.Ducats < params.Amount {
			return nil, fmt.Errorf("%w: %s has %d ducats, first payment is %d",
				model.ErrPreconditionUnmet, executor, executorRec.Ducats, params.Amount)
		}
		s.ExpiresAt = now.Add(time.Duration(params.DurationDays) * 24 * time.Hour)

	case model.StratagemTradeCommission:
		if params.ResourceType == "" || params.Quantity <= 0 {
			return nil, fmt.Errorf("%w: commission needs resource_type and quantity", model.ErrInvalidParameters)
		}
		if executorRec.Ducats < params.Amount {
			return nil, fmt.Errorf("%w: %s has %d ducats, commission pays %d",
				model.ErrPreconditionUnmet, executor, executorRec.Ducats, params.Amount)
		}
		// Delivery lands after the base delay plus scheduling jitter.
		delay := time.Duration(c.Policy.CommissionDelayHours) * time.Hour
		s.ExpiresAt = now.Add(delay + c.jitter())

	default:
		return nil, fmt.Errorf("%w: unknown stratagem type %q", model.ErrInvalidParameters, sType)
	}

	if err := c.Stratagems.CreateStratagem(s); err != nil {
		return nil, fmt.Errorf("%w: create stratagem: %v", model.ErrExternalUnavailable, err)
	}
	return s, nil
}
