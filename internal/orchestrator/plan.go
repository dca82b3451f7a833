package orchestrator

// Plan is a discriminated union of execution shapes (§3 "Plan"). Exactly
// one field is set per variant; the Kind field names which.
type Plan struct {
	Kind PlanKind

	// Single: the one step to run.
	Single *Step

	// Sequential: steps run in order; PassOutput propagates step i's output
	// into SharedContext before step i+1 starts.
	Sequential []Step
	PassOutput bool

	// Parallel: steps start together; completion waits for all.
	Parallel []Step

	// Mixed: a list of segments separated by Barriers (§4.9 "Mixed").
	Mixed []MixedSegment
}

type PlanKind string

const (
	PlanSingle     PlanKind = "single"
	PlanSequential PlanKind = "sequential"
	PlanParallel   PlanKind = "parallel"
	PlanMixed      PlanKind = "mixed"
)

// Step invokes one agent by name (§3 "Plan" Step ::= Single | Parallel |
// Barrier; a Step here is the leaf — Single/Parallel segments in Mixed wrap
// slices of Step).
type Step struct {
	AgentName string
	Input     map[string]any
}

// MixedSegment is one piece of a Mixed plan: either a batch of steps to run
// (concurrently if len > 1) or a Barrier with no steps, which the executor
// treats as a happens-before fence against every prior segment's writes.
type MixedSegment struct {
	Steps     []Step
	IsBarrier bool
}

func SingleOf(step Step) Plan {
	return Plan{Kind: PlanSingle, Single: &step}
}

func SequentialOf(passOutput bool, steps ...Step) Plan {
	return Plan{Kind: PlanSequential, Sequential: steps, PassOutput: passOutput}
}

func ParallelOf(steps ...Step) Plan {
	return Plan{Kind: PlanParallel, Parallel: steps}
}

func MixedOf(segments ...MixedSegment) Plan {
	return Plan{Kind: PlanMixed, Mixed: segments}
}

func Barrier() MixedSegment {
	return MixedSegment{IsBarrier: true}
}

func Batch(steps ...Step) MixedSegment {
	return MixedSegment{Steps: steps}
}
