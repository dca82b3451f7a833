package orchestrator

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/standardbeagle/codeintel/internal/config"
	"github.com/standardbeagle/codeintel/internal/ierrors"
	"github.com/standardbeagle/codeintel/internal/telemetry"
	"github.com/standardbeagle/codeintel/internal/types"
)

// Status is an ExecutionRecord's terminal or in-flight state (§3).
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusOK        Status = "ok"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusTimedOut  Status = "timed_out"
)

// PlanStatus is the plan-wide verdict derived from every step's
// ExecutionRecord once a plan finishes running (§7 "Plan status").
type PlanStatus string

const (
	PlanStatusOK      PlanStatus = "ok"
	PlanStatusPartial PlanStatus = "partial"
	PlanStatusFailed  PlanStatus = "failed"
)

// aggregatePlanStatus combines every step's terminal Status into one
// plan-wide verdict: ok iff every step succeeded, failed iff every step
// failed, partial otherwise (§8 "Parallel plan with one failing and one
// succeeding step: plan status partial"). A plan with no recorded steps is
// reported as failed rather than vacuously ok.
func aggregatePlanStatus(records []ExecutionRecord) PlanStatus {
	if len(records) == 0 {
		return PlanStatusFailed
	}
	var okCount, failCount int
	for _, r := range records {
		if r.Status == StatusOK {
			okCount++
		} else {
			failCount++
		}
	}
	switch {
	case failCount == 0:
		return PlanStatusOK
	case okCount == 0:
		return PlanStatusFailed
	default:
		return PlanStatusPartial
	}
}

// ExecutionRecord is one step's outcome (§3), appended to the plan's
// running log as steps complete.
type ExecutionRecord struct {
	AgentName string
	Start     time.Time
	End       time.Time
	Status    Status
	Retries   int
	Output    string
	Error     error
}

// AgentRunner executes one agent's turn. checkTool gates a tool invocation
// against the agent's allowlist/denylist and the current OperatingMode
// (§4.9) — callers must invoke it before running any tool the agent
// requests, since the capability gate is enforced by the caller of the
// runner, not by the orchestrator peeking inside the agent's tool calls.
type AgentRunner func(ctx context.Context, desc *AgentDescriptor, shared *SharedContext, step Step, checkTool func(toolName string) error) (string, error)

type circuitState struct {
	consecutiveFailures int
	openUntil           time.Time
}

// Orchestrator executes Plans against a Registry of AgentDescriptors under
// a ToolRegistry's capability gate (§4.9). Grounded on cagent's team/agent
// split (a named registry the plan dispatches Single steps against) with
// retry/circuit-breaker/concurrency resource controls layered on top using
// golang.org/x/sync, already present in this module's indirect dependency
// graph.
type Orchestrator struct {
	registry *Registry
	tools    *ToolRegistry
	run      AgentRunner
	cfg      config.Orchestrator

	sem *semaphore.Weighted

	mu       sync.Mutex
	circuits map[string]*circuitState
}

func New(registry *Registry, tools *ToolRegistry, runner AgentRunner, cfg config.Orchestrator) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		tools:    tools,
		run:      runner,
		cfg:      cfg,
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrency)),
		circuits: make(map[string]*circuitState),
	}
}

// Execute runs plan under mode, returning the final SharedContext, the
// ordered ExecutionRecords for every step that ran (§3 "ExecutionRecord:
// ... Append-only per plan"), and the plan-wide PlanStatus aggregated from
// those records.
func (o *Orchestrator) Execute(ctx context.Context, plan Plan, mode types.OperatingMode) (*SharedContext, []ExecutionRecord, PlanStatus, error) {
	shared := NewSharedContext()
	var records []ExecutionRecord
	var recMu sync.Mutex
	appendRecord := func(r ExecutionRecord) {
		recMu.Lock()
		defer recMu.Unlock()
		records = append(records, r)
	}

	switch plan.Kind {
	case PlanSingle:
		if plan.Single == nil {
			return shared, records, PlanStatusFailed, fmt.Errorf("single plan has no step")
		}
		r := o.runStep(ctx, shared, *plan.Single, mode)
		appendRecord(r)
		return shared, records, aggregatePlanStatus(records), firstError(r)

	case PlanSequential:
		for _, step := range plan.Sequential {
			r := o.runStep(ctx, shared, step, mode)
			appendRecord(r)
			if plan.PassOutput {
				shared.Set("last_output", r.Output)
			}
			if r.Error != nil {
				return shared, records, aggregatePlanStatus(records), r.Error
			}
		}
		return shared, records, aggregatePlanStatus(records), nil

	case PlanParallel:
		recs, err := o.runBatch(ctx, shared, plan.Parallel, mode)
		for _, r := range recs {
			appendRecord(r)
		}
		return shared, records, aggregatePlanStatus(records), err

	case PlanMixed:
		for _, segment := range plan.Mixed {
			if segment.IsBarrier {
				// A barrier is a no-op synchronization point: runBatch
				// already waits for every step in the prior segment before
				// returning, so happens-before is established by sequencing
				// segments one after another.
				continue
			}
			recs, err := o.runBatch(ctx, shared, segment.Steps, mode)
			for _, r := range recs {
				appendRecord(r)
			}
			if err != nil {
				return shared, records, aggregatePlanStatus(records), err
			}
		}
		return shared, records, aggregatePlanStatus(records), nil

	default:
		return shared, records, PlanStatusFailed, fmt.Errorf("unknown plan kind %q", plan.Kind)
	}
}

// runBatch runs steps concurrently, each against its own scratch
// SharedContext, then merges every scratch context back into shared with
// last-writer-wins semantics (§4.9 "Parallel"). A per-batch semaphore slot
// is acquired per step via o.sem, bounding total in-flight agents across
// the whole orchestrator to cfg.MaxConcurrency.
func (o *Orchestrator) runBatch(ctx context.Context, shared *SharedContext, steps []Step, mode types.OperatingMode) ([]ExecutionRecord, error) {
	records := make([]ExecutionRecord, len(steps))
	g, gctx := errgroup.WithContext(ctx)

	for i, step := range steps {
		i, step := i, step
		g.Go(func() error {
			scratch := NewSharedContext()
			scratch.merge(shared) // steps see a snapshot of shared state as it stood at batch start
			inherited := len(scratch.errors)
			r := o.runStep(gctx, scratch, step, mode)
			records[i] = r
			scratch.mu.Lock()
			scratch.errors = scratch.errors[inherited:] // fold back only this step's own errors
			scratch.mu.Unlock()
			shared.merge(scratch)
			return nil // step failures are recorded, not propagated as fatal batch errors
		})
	}
	_ = g.Wait()

	for _, r := range records {
		if r.Error != nil {
			return records, r.Error
		}
	}
	return records, nil
}

// runStep executes one Step with retry/backoff and circuit-breaker
// protection (§4.9 "Retries and circuit breaker").
func (o *Orchestrator) runStep(ctx context.Context, shared *SharedContext, step Step, mode types.OperatingMode) ExecutionRecord {
	rec := ExecutionRecord{AgentName: step.AgentName, Start: time.Now(), Status: StatusRunning}

	desc, ok := o.registry.Get(step.AgentName)
	if !ok {
		rec.End = time.Now()
		rec.Status = StatusFailed
		rec.Error = ierrors.NotFound("orchestrator.runStep(" + step.AgentName + ")")
		return rec
	}

	effectiveMode := mode
	if desc.ModeOverride != "" {
		effectiveMode = desc.ModeOverride
	}

	if open, retryAfter := o.circuitOpen(step.AgentName); open {
		rec.End = time.Now()
		rec.Status = StatusFailed
		rec.Error = fmt.Errorf("circuit breaker open for agent %q, resets at %s", step.AgentName, retryAfter.Format(time.RFC3339))
		return rec
	}

	if err := o.waitForMemoryHeadroom(ctx, desc.ResourceMaxMemoryMB); err != nil {
		rec.End = time.Now()
		rec.Status = StatusCancelled
		rec.Error = err
		return rec
	}

	if err := o.sem.Acquire(ctx, 1); err != nil {
		rec.End = time.Now()
		rec.Status = StatusCancelled
		rec.Error = err
		return rec
	}
	defer o.sem.Release(1)

	timeout := time.Duration(o.cfg.AgentTimeoutSec) * time.Second
	if desc.ResourceTimeoutSec > 0 {
		timeout = time.Duration(desc.ResourceTimeoutSec) * time.Second
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	checkTool := func(toolName string) error {
		return Gate(o.tools, desc, effectiveMode, toolName)
	}

	var lastErr error
	var timedOut bool
	maxAttempts := o.cfg.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * 100 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				rec.End = time.Now()
				rec.Status = StatusCancelled
				rec.Error = ctx.Err()
				rec.Retries = attempt
				return rec
			}
		}

		stepCtx, cancel := context.WithTimeout(ctx, timeout)
		output, err := o.run(stepCtx, desc, shared, step, checkTool)
		timedOut = stepCtx.Err() == context.DeadlineExceeded
		cancel()

		if err == nil {
			o.recordSuccess(step.AgentName)
			rec.End = time.Now()
			rec.Status = StatusOK
			rec.Retries = attempt
			rec.Output = output
			return rec
		}

		lastErr = err
		if timedOut {
			lastErr = fmt.Errorf("agent %q timed out after %s: %w", step.AgentName, timeout, err)
		}
		if !isRecoverable(err) {
			break
		}
	}

	o.recordFailure(step.AgentName)
	telemetry.L().Warn("agent step failed", "agent", step.AgentName, "error", lastErr)

	rec.End = time.Now()
	rec.Retries = maxAttempts - 1
	rec.Error = lastErr
	if timedOut {
		rec.Status = StatusTimedOut
	} else {
		rec.Status = StatusFailed
	}
	return rec
}

// waitForMemoryHeadroom pauses spawning a new agent while the process's
// heap sits above cfg.MemoryPressureMB (§4.9 "pause spawning new agents
// under memory pressure"), polling until headroom frees up or ctx ends.
// agentMaxMemoryMB, when positive, overrides cfg.MemoryPressureMB for this
// one step (§6 "resources.max_memory"). A zero/negative effective limit
// disables the check.
func (o *Orchestrator) waitForMemoryHeadroom(ctx context.Context, agentMaxMemoryMB int) error {
	limitMB := o.cfg.MemoryPressureMB
	if agentMaxMemoryMB > 0 {
		limitMB = agentMaxMemoryMB
	}
	if limitMB <= 0 {
		return nil
	}
	limit := uint64(limitMB) * 1024 * 1024
	for {
		var stats runtime.MemStats
		runtime.ReadMemStats(&stats)
		if stats.HeapAlloc < limit {
			return nil
		}
		telemetry.L().Warn("pausing agent spawn under memory pressure", "heap_bytes", stats.HeapAlloc, "limit_bytes", limit)
		select {
		case <-time.After(200 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func isRecoverable(err error) bool {
	if ie, ok := err.(*ierrors.Error); ok {
		return ie.IsRecoverable()
	}
	return true // an error not wearing the engine's own taxonomy is assumed transient
}

// circuitOpen reports whether step.AgentName's circuit breaker is
// currently open (§4.9: "opens after circuit_breaker_threshold consecutive
// failures and auto-resets after circuit_breaker_reset").
func (o *Orchestrator) circuitOpen(agentName string) (bool, time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	cs, ok := o.circuits[agentName]
	if !ok {
		return false, time.Time{}
	}
	if cs.consecutiveFailures < o.cfg.CircuitBreakerThreshold {
		return false, time.Time{}
	}
	if time.Now().After(cs.openUntil) {
		cs.consecutiveFailures = 0
		return false, time.Time{}
	}
	return true, cs.openUntil
}

func (o *Orchestrator) recordFailure(agentName string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	cs, ok := o.circuits[agentName]
	if !ok {
		cs = &circuitState{}
		o.circuits[agentName] = cs
	}
	cs.consecutiveFailures++
	if cs.consecutiveFailures >= o.cfg.CircuitBreakerThreshold {
		resetAfter := time.Duration(o.cfg.CircuitBreakerResetSec) * time.Second
		if resetAfter <= 0 {
			resetAfter = 30 * time.Second
		}
		cs.openUntil = time.Now().Add(resetAfter)
	}
}

func (o *Orchestrator) recordSuccess(agentName string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if cs, ok := o.circuits[agentName]; ok {
		cs.consecutiveFailures = 0
	}
}

func firstError(r ExecutionRecord) error {
	return r.Error
}
