package workflow

import "github.com/wasm-slim/wasm-slim/pkg/pipeline"

// State is a position in the build workflow lifecycle.
type State string

const (
	// StateInit is the starting state of every Execute call.
	StateInit State = "init"

	// StateManifestOptimized means Phase 1 finished: every manifest was
	// analyzed and, on a real run, mutated with backups in hand.
	StateManifestOptimized State = "manifest_optimized"

	// StateBuildExecuted means the build pipeline produced metrics.
	StateBuildExecuted State = "build_executed"

	// StateBudgetChecked means Phase 3 ran or was skipped.
	StateBudgetChecked State = "budget_checked"

	// StateRolledBack means backups were restored after a build failure.
	StateRolledBack State = "rolled_back"

	// StateDone is the successful terminal state.
	StateDone State = "done"

	// StateFailed is the failing terminal state.
	StateFailed State = "failed"
)

// EventStateTransition is recorded on the telemetry collector for every
// state change, with "from" and "to" metadata.
const EventStateTransition pipeline.BuildEvent = "state_transition"
