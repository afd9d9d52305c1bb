package domain

type RunState string

const (
	RunStateNew      RunState = "new"
	RunStateQueued   RunState = "queued"
	RunStateRunning  RunState = "running"
	RunStateComplete RunState = "complete"
)

type RunResult string

const (
	RunResultUnknown RunResult = "unknown"
	RunResultPassed  RunResult = "passed"
	RunResultFailed  RunResult = "failed"
)

// StatusSnapshot is the Test API view of a run at one point in time.
// Result stays unknown until State is complete.
type StatusSnapshot struct {
	State  RunState
	Result RunResult
	// Reason is the engine condition reason the snapshot was derived from.
	Reason string
	// Degraded marks a snapshot that stands in for a failed engine query.
	Degraded bool
}
