// Package health tracks per-tool call outcomes and gates callers away from
// tools that keep failing. A tool that accumulates enough recent failures
// enters a cooldown with a capped exponential backoff; the first call after
// the cooldown expires is probationary and decides whether the tool
// recovers or cools down again.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"toolman/pkg/logging"
)

const subsystem = "Health"

// Policy holds the thresholds that drive the state machine.
type Policy struct {
	// FailureThreshold is the consecutive-failure count that triggers a
	// cooldown.
	FailureThreshold int
	// FailureWindow bounds how recent failures must be to count toward
	// the threshold.
	FailureWindow time.Duration
	// CooldownBase is the first cooldown duration; it doubles per
	// consecutive trip up to CooldownCap.
	CooldownBase time.Duration
	// CooldownCap bounds the backoff growth.
	CooldownCap time.Duration
}

// State is a tool's position in the health state machine.
type State string

const (
	StateHealthy      State = "healthy"
	StateCooldown     State = "cooldown"
	StateProbationary State = "probationary"
)

type toolHealth struct {
	state         State
	failureStreak int
	lastFailure   time.Time
	cooldownUntil time.Time
	trips         int
}

// Controller applies the failure policy over all tools. Outcome recording
// and availability checks are safe to call concurrently.
type Controller struct {
	mu     sync.Mutex
	policy Policy
	tools  map[string]*toolHealth

	// now is replaceable for tests.
	now func() time.Time
}

// NewController creates a Controller with the given policy.
func NewController(policy Policy) *Controller {
	return &Controller{
		policy: policy,
		tools:  make(map[string]*toolHealth),
		now:    time.Now,
	}
}

func (c *Controller) get(toolID string) *toolHealth {
	th, ok := c.tools[toolID]
	if !ok {
		th = &toolHealth{state: StateHealthy}
		c.tools[toolID] = th
	}
	return th
}

// RecordOutcome feeds one call result into the state machine.
func (c *Controller) RecordOutcome(toolID string, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	th := c.get(toolID)
	now := c.now()

	if success {
		if th.state != StateHealthy {
			logging.Info(subsystem, "Tool %s recovered", toolID)
		}
		th.state = StateHealthy
		th.failureStreak = 0
		th.trips = 0
		th.cooldownUntil = time.Time{}
		return
	}

	// Failures outside the window do not accumulate; restart the streak.
	if th.failureStreak > 0 && now.Sub(th.lastFailure) > c.policy.FailureWindow {
		th.failureStreak = 0
	}
	th.failureStreak++
	th.lastFailure = now

	if th.state == StateProbationary {
		// A failed probe re-trips immediately regardless of streak.
		c.trip(toolID, th, now)
		return
	}

	if th.failureStreak >= c.policy.FailureThreshold {
		c.trip(toolID, th, now)
	}
}

// trip moves the tool into cooldown with the next backoff step. The
// cooldown deadline never moves backward.
func (c *Controller) trip(toolID string, th *toolHealth, now time.Time) {
	th.trips++
	backoff := c.policy.CooldownBase << (th.trips - 1)
	if backoff > c.policy.CooldownCap || backoff <= 0 {
		backoff = c.policy.CooldownCap
	}

	until := now.Add(backoff)
	if until.After(th.cooldownUntil) {
		th.cooldownUntil = until
	}
	th.state = StateCooldown
	logging.Warn(subsystem, "Tool %s entered cooldown for %s (trip %d)", toolID, backoff, th.trips)
}

// IsAvailable reports whether calls may be routed to the tool right now.
// An expired cooldown flips the tool to probationary as a side effect.
func (c *Controller) IsAvailable(toolID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	th := c.get(toolID)
	if th.state != StateCooldown {
		return true
	}
	if c.now().Before(th.cooldownUntil) {
		return false
	}
	th.state = StateProbationary
	return true
}

// StateOf returns the tool's current state without side effects.
func (c *Controller) StateOf(toolID string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.get(toolID).state
}

// CooldownRemaining returns how long the tool remains gated, or zero.
func (c *Controller) CooldownRemaining(toolID string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	th := c.get(toolID)
	if th.state != StateCooldown {
		return 0
	}
	remaining := th.cooldownUntil.Sub(c.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Probe checks one tool's liveness; implemented by the call layer.
type Probe func(ctx context.Context, toolID string) error

// Reset clears a tool's cooldown and failure history.
func (c *Controller) Reset(toolID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	th := c.get(toolID)
	th.state = StateHealthy
	th.failureStreak = 0
	th.trips = 0
	th.cooldownUntil = time.Time{}
}

// RefreshToolHealth discards every tool's accumulated cooldown state and
// re-probes each one, recomputing its state from the fresh outcome. This
// is the operator's escape hatch: a tool that recovered mid-cooldown
// becomes available immediately instead of waiting out its window.
func (c *Controller) RefreshToolHealth(ctx context.Context, toolIDs []string, probe Probe) map[string]State {
	states := make(map[string]State, len(toolIDs))
	for _, id := range toolIDs {
		c.Reset(id)
		err := probe(ctx, id)
		c.RecordOutcome(id, err == nil)
		states[id] = c.StateOf(id)
	}
	return states
}

// RetrySummary describes which tools are gated and for how long. The
// zero-affected case reads as "all tools healthy".
func (c *Controller) RetrySummary(toolIDs []string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	affected := 0
	summary := ""
	for _, id := range toolIDs {
		th, ok := c.tools[id]
		if !ok || th.state == StateHealthy {
			continue
		}
		affected++
		switch th.state {
		case StateCooldown:
			remaining := th.cooldownUntil.Sub(now)
			if remaining < 0 {
				remaining = 0
			}
			summary += fmt.Sprintf("  %s: cooling down, retry in %s\n", id, remaining.Round(time.Second))
		case StateProbationary:
			summary += fmt.Sprintf("  %s: probationary, next call decides\n", id)
		}
	}

	if affected == 0 {
		return "all tools healthy"
	}
	return fmt.Sprintf("%d tool(s) degraded:\n%s", affected, summary)
}
