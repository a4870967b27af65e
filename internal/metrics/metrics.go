// Package metrics accumulates per-tool call counters and latency. The
// collector is a passive sink: it never influences routing or health.
package metrics

import (
	"sync"
	"time"
)

// ToolMetrics is the per-tool counter set. SuccessfulCalls and FailedCalls
// always sum to TotalCalls.
type ToolMetrics struct {
	TotalCalls      int64         `json:"total_calls"`
	SuccessfulCalls int64         `json:"successful_calls"`
	FailedCalls     int64         `json:"failed_calls"`
	TotalDuration   time.Duration `json:"-"`
	AverageDuration time.Duration `json:"average_duration"`
	LastCall        time.Time     `json:"last_call"`
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	TotalCalls      int64                  `json:"total_calls"`
	SuccessfulCalls int64                  `json:"successful_calls"`
	FailedCalls     int64                  `json:"failed_calls"`
	AverageDuration time.Duration          `json:"average_duration"`
	PerTool         map[string]ToolMetrics `json:"per_tool"`
}

// Collector records call outcomes keyed by tool id.
type Collector struct {
	mu      sync.Mutex
	perTool map[string]*ToolMetrics
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{perTool: make(map[string]*ToolMetrics)}
}

// RecordCall adds one call outcome. Every terminal outcome counts exactly
// once: successes as successful, everything else as failed.
func (c *Collector) RecordCall(toolID string, duration time.Duration, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.perTool[toolID]
	if !ok {
		m = &ToolMetrics{}
		c.perTool[toolID] = m
	}

	m.TotalCalls++
	if success {
		m.SuccessfulCalls++
	} else {
		m.FailedCalls++
	}
	m.TotalDuration += duration
	m.AverageDuration = m.TotalDuration / time.Duration(m.TotalCalls)
	m.LastCall = time.Now()
}

// Snapshot returns a consistent copy of every counter plus global totals.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{PerTool: make(map[string]ToolMetrics, len(c.perTool))}
	var totalDuration time.Duration
	for id, m := range c.perTool {
		snap.PerTool[id] = *m
		snap.TotalCalls += m.TotalCalls
		snap.SuccessfulCalls += m.SuccessfulCalls
		snap.FailedCalls += m.FailedCalls
		totalDuration += m.TotalDuration
	}
	if snap.TotalCalls > 0 {
		snap.AverageDuration = totalDuration / time.Duration(snap.TotalCalls)
	}
	return snap
}

// ToolSnapshot returns one tool's counters; ok is false if the tool has
// never been called.
func (c *Collector) ToolSnapshot(toolID string) (ToolMetrics, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.perTool[toolID]
	if !ok {
		return ToolMetrics{}, false
	}
	return *m, true
}
