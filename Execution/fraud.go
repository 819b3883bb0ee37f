package Execution

import "time"

// Timing heuristics. Pure: timestamps in, flags out, no storage. The flags
// are advisory telemetry for a human reviewer, never a gate.

// Workflow keys the threshold table. Thresholds are intentionally not shared
// across workflows: a routine round takes seconds to minutes, a maintenance
// visit spans setup, diagnosis and repair, so each gets its own "too fast"
// floor and "too slow" ceiling.
type Workflow string

const (
	SingleScan            Workflow = "singleScan"
	GenericDoubleScan     Workflow = "genericDoubleScan"
	MaintenanceDoubleScan Workflow = "maintenanceDoubleScan"
)

// Thresholds holds the (too fast, too slow) pair of a workflow.
type Thresholds struct {
	MinFast time.Duration // elapsed below this flags QuickEntry
	MaxSlow time.Duration // elapsed above this flags DeferredEntry
}

var thresholds = map[Workflow]Thresholds{
	SingleScan:            {MinFast: 5 * time.Second, MaxSlow: 30 * time.Minute},
	GenericDoubleScan:     {MinFast: 1 * time.Minute, MaxSlow: 2 * time.Hour},
	MaintenanceDoubleScan: {MinFast: 5 * time.Minute, MaxSlow: 8 * time.Hour},
}

// ThresholdsFor exposes the threshold pair of a workflow, mainly for tests
// and reporting.
func ThresholdsFor(w Workflow) Thresholds {
	return thresholds[w]
}

// Flags are the timing-derived fraud flags. Independent and non-exclusive.
type Flags struct {
	QuickEntry    bool
	DeferredEntry bool
}

// EvaluateSingleScan flags a single-scan submission: QuickEntry when the form
// came in under 5 seconds after the scan, DeferredEntry when it came in more
// than 30 minutes after.
func EvaluateSingleScan(scannedAt, submittedAt time.Time) Flags {
	return evaluate(SingleScan, submittedAt.Sub(scannedAt))
}

// EvaluateDoubleScan flags the elapsed presence window of a double-scan
// execution against the workflow's thresholds. The caller guarantees
// secondScanAt is after firstScanAt; the dwell-time precondition in the
// engine enforces it before this is reached.
func EvaluateDoubleScan(w Workflow, firstScanAt, secondScanAt time.Time) Flags {
	return evaluate(w, secondScanAt.Sub(firstScanAt))
}

func evaluate(w Workflow, elapsed time.Duration) Flags {
	t := thresholds[w]
	return Flags{
		QuickEntry:    elapsed < t.MinFast,
		DeferredEntry: elapsed > t.MaxSlow,
	}
}
