package orchestrator

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codeintel/internal/config"
	"github.com/standardbeagle/codeintel/internal/types"
)

func testRegistry(names ...string) *Registry {
	r := NewRegistry()
	for _, n := range names {
		r.Add(&AgentDescriptor{Name: n})
	}
	return r
}

func baseCfg() config.Orchestrator {
	return config.Orchestrator{
		MaxConcurrency:          4,
		MaxRetries:              2,
		CircuitBreakerThreshold: 3,
		CircuitBreakerResetSec:  1,
		AgentTimeoutSec:         1,
		MemoryPressureMB:        0,
	}
}

func TestSequentialRunsStepsInOrderAndPassesOutput(t *testing.T) {
	var order []string
	runner := func(ctx context.Context, desc *AgentDescriptor, shared *SharedContext, step Step, check func(string) error) (string, error) {
		order = append(order, desc.Name)
		if v, ok := shared.Get("last_output"); ok {
			return fmt.Sprintf("%s-after-%v", desc.Name, v), nil
		}
		return desc.Name + "-output", nil
	}
	o := New(testRegistry("first", "second"), NewToolRegistry(), runner, baseCfg())

	plan := SequentialOf(true, Step{AgentName: "first"}, Step{AgentName: "second"})
	shared, records, planStatus, err := o.Execute(context.Background(), plan, types.ModeBuild)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
	require.Len(t, records, 2)
	assert.Equal(t, StatusOK, records[0].Status)
	assert.Equal(t, StatusOK, records[1].Status)
	assert.Equal(t, PlanStatusOK, planStatus)

	v, ok := shared.Get("last_output")
	require.True(t, ok)
	assert.Equal(t, "second-after-first-output", v)
}

func TestSequentialStopsOnFirstFailure(t *testing.T) {
	var ran []string
	runner := func(ctx context.Context, desc *AgentDescriptor, shared *SharedContext, step Step, check func(string) error) (string, error) {
		ran = append(ran, desc.Name)
		if desc.Name == "bad" {
			return "", fmt.Errorf("boom")
		}
		return "ok", nil
	}
	cfg := baseCfg()
	cfg.MaxRetries = 0
	o := New(testRegistry("good", "bad", "never"), NewToolRegistry(), runner, cfg)

	plan := SequentialOf(false, Step{AgentName: "good"}, Step{AgentName: "bad"}, Step{AgentName: "never"})
	_, records, planStatus, err := o.Execute(context.Background(), plan, types.ModeBuild)
	require.Error(t, err)
	assert.Equal(t, []string{"good", "bad"}, ran)
	require.Len(t, records, 2)
	assert.Equal(t, StatusFailed, records[1].Status)
	assert.Equal(t, PlanStatusPartial, planStatus, "one ok step and one failed step must report partial")
}

func TestParallelRunsConcurrentlyAndMergesSharedContext(t *testing.T) {
	var inFlight int32
	var maxInFlight int32
	runner := func(ctx context.Context, desc *AgentDescriptor, shared *SharedContext, step Step, check func(string) error) (string, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			cur := atomic.LoadInt32(&maxInFlight)
			if n <= cur || atomic.CompareAndSwapInt32(&maxInFlight, cur, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		shared.Set(desc.Name, desc.Name+"-value")
		return desc.Name, nil
	}
	o := New(testRegistry("a", "b", "c"), NewToolRegistry(), runner, baseCfg())

	plan := ParallelOf(Step{AgentName: "a"}, Step{AgentName: "b"}, Step{AgentName: "c"})
	shared, records, _, err := o.Execute(context.Background(), plan, types.ModeBuild)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Greater(t, atomic.LoadInt32(&maxInFlight), int32(1))

	for _, name := range []string{"a", "b", "c"} {
		v, ok := shared.Get(name)
		require.True(t, ok)
		assert.Equal(t, name+"-value", v)
	}
}

func TestParallelPlanWithOneFailingAndOneSucceedingStepReportsPartial(t *testing.T) {
	runner := func(ctx context.Context, desc *AgentDescriptor, shared *SharedContext, step Step, check func(string) error) (string, error) {
		if desc.Name == "bad" {
			return "", fmt.Errorf("boom")
		}
		return "ok", nil
	}
	cfg := baseCfg()
	cfg.MaxRetries = 0
	o := New(testRegistry("good", "bad"), NewToolRegistry(), runner, cfg)

	plan := ParallelOf(Step{AgentName: "good"}, Step{AgentName: "bad"})
	_, records, planStatus, err := o.Execute(context.Background(), plan, types.ModeBuild)
	require.Error(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, PlanStatusPartial, planStatus)
}

func TestParallelPlanWithEveryStepFailingReportsFailed(t *testing.T) {
	runner := func(ctx context.Context, desc *AgentDescriptor, shared *SharedContext, step Step, check func(string) error) (string, error) {
		return "", fmt.Errorf("boom")
	}
	cfg := baseCfg()
	cfg.MaxRetries = 0
	o := New(testRegistry("a", "b"), NewToolRegistry(), runner, cfg)

	plan := ParallelOf(Step{AgentName: "a"}, Step{AgentName: "b"})
	_, records, planStatus, err := o.Execute(context.Background(), plan, types.ModeBuild)
	require.Error(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, PlanStatusFailed, planStatus)
}

func TestMixedBarrierOrdersSegmentsBeforeNextBatchStarts(t *testing.T) {
	var events []string
	runner := func(ctx context.Context, desc *AgentDescriptor, shared *SharedContext, step Step, check func(string) error) (string, error) {
		events = append(events, "start:"+desc.Name)
		time.Sleep(5 * time.Millisecond)
		events = append(events, "end:"+desc.Name)
		return "", nil
	}
	o := New(testRegistry("pre1", "pre2", "post"), NewToolRegistry(), runner, baseCfg())

	plan := MixedOf(
		Batch(Step{AgentName: "pre1"}, Step{AgentName: "pre2"}),
		Barrier(),
		Batch(Step{AgentName: "post"}),
	)
	_, records, _, err := o.Execute(context.Background(), plan, types.ModeBuild)
	require.NoError(t, err)
	require.Len(t, records, 3)

	postStartIdx := -1
	for i, e := range events {
		if e == "start:post" {
			postStartIdx = i
		}
	}
	require.GreaterOrEqual(t, postStartIdx, 0)
	for i, e := range events {
		if i == postStartIdx {
			continue
		}
		if e == "end:pre1" || e == "end:pre2" {
			assert.Less(t, i, postStartIdx, "post must not start before the prior batch finished")
		}
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	var attempts int32
	runner := func(ctx context.Context, desc *AgentDescriptor, shared *SharedContext, step Step, check func(string) error) (string, error) {
		n := atomic.AddInt32(&attempts, 1)
		if n < 3 {
			return "", fmt.Errorf("transient failure #%d", n)
		}
		return "finally ok", nil
	}
	o := New(testRegistry("flaky"), NewToolRegistry(), runner, baseCfg())

	_, records, _, err := o.Execute(context.Background(), SingleOf(Step{AgentName: "flaky"}), types.ModeBuild)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, StatusOK, records[0].Status)
	assert.Equal(t, 2, records[0].Retries)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestCircuitBreakerOpensAfterConsecutiveFailuresAndBlocksFurtherAttempts(t *testing.T) {
	runner := func(ctx context.Context, desc *AgentDescriptor, shared *SharedContext, step Step, check func(string) error) (string, error) {
		return "", fmt.Errorf("always fails")
	}
	cfg := baseCfg()
	cfg.MaxRetries = 0
	cfg.CircuitBreakerThreshold = 2
	cfg.CircuitBreakerResetSec = 5
	o := New(testRegistry("flaky"), NewToolRegistry(), runner, cfg)

	for i := 0; i < 2; i++ {
		_, records, _, err := o.Execute(context.Background(), SingleOf(Step{AgentName: "flaky"}), types.ModeBuild)
		require.Error(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, StatusFailed, records[0].Status)
	}

	_, records, _, err := o.Execute(context.Background(), SingleOf(Step{AgentName: "flaky"}), types.ModeBuild)
	require.Error(t, err)
	require.Len(t, records, 1)
	assert.Contains(t, records[0].Error.Error(), "circuit breaker open")
}

func TestAgentTimeoutMarksStepTimedOut(t *testing.T) {
	runner := func(ctx context.Context, desc *AgentDescriptor, shared *SharedContext, step Step, check func(string) error) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}
	cfg := baseCfg()
	cfg.MaxRetries = 0
	cfg.AgentTimeoutSec = 1
	o := New(testRegistry("slow"), NewToolRegistry(), runner, cfg)

	start := time.Now()
	_, records, _, err := o.Execute(context.Background(), SingleOf(Step{AgentName: "slow"}), types.ModeBuild)
	require.Error(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, StatusTimedOut, records[0].Status)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestCapabilityGateDeniesToolOutsideAllowlist(t *testing.T) {
	registry := NewRegistry()
	registry.Add(&AgentDescriptor{Name: "reader", ToolAllowlist: []string{"read_file"}})

	tools := NewToolRegistry()
	tools.Register(&Tool{Name: "read_file", SideEffect: SideEffectRead})
	tools.Register(&Tool{Name: "write_file", SideEffect: SideEffectSmallEdit})

	runner := func(ctx context.Context, desc *AgentDescriptor, shared *SharedContext, step Step, check func(string) error) (string, error) {
		if err := check("write_file"); err != nil {
			return "", err
		}
		return "should not reach here", nil
	}
	o := New(registry, tools, runner, baseCfg())

	_, records, _, err := o.Execute(context.Background(), SingleOf(Step{AgentName: "reader"}), types.ModeBuild)
	require.Error(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, StatusFailed, records[0].Status)
}

func TestSequentialPlanBindsPriorStepOutputIntoPromptTemplate(t *testing.T) {
	registry := NewRegistry()
	registry.Add(&AgentDescriptor{Name: "a1"})
	registry.Add(&AgentDescriptor{Name: "a2", PromptTemplate: "use {result} as input"})

	var a2Prompt string
	runner := func(ctx context.Context, desc *AgentDescriptor, shared *SharedContext, step Step, check func(string) error) (string, error) {
		if desc.Name == "a1" {
			shared.Set("result", "A1's output")
			return "a1-done", nil
		}
		a2Prompt = RenderPrompt(desc, shared, step)
		return "a2-done", nil
	}
	o := New(registry, NewToolRegistry(), runner, baseCfg())

	plan := SequentialOf(false, Step{AgentName: "a1"}, Step{AgentName: "a2"})
	_, records, planStatus, err := o.Execute(context.Background(), plan, types.ModeBuild)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, PlanStatusOK, planStatus)
	assert.Equal(t, "use A1's output as input", a2Prompt)
}

func TestUnknownAgentNameFails(t *testing.T) {
	runner := func(ctx context.Context, desc *AgentDescriptor, shared *SharedContext, step Step, check func(string) error) (string, error) {
		return "unreachable", nil
	}
	o := New(testRegistry("known"), NewToolRegistry(), runner, baseCfg())

	_, records, _, err := o.Execute(context.Background(), SingleOf(Step{AgentName: "ghost"}), types.ModeBuild)
	require.Error(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, StatusFailed, records[0].Status)
}
