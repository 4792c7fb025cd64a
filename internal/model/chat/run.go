package chat

// RunStatus is the remote lifecycle state of an assistant run.
type RunStatus string

const (
	RunQueued         RunStatus = "queued"
	RunInProgress     RunStatus = "in_progress"
	RunCancelling     RunStatus = "cancelling"
	RunRequiresAction RunStatus = "requires_action"
	RunCompleted      RunStatus = "completed"
	RunFailed         RunStatus = "failed"
	RunCancelled      RunStatus = "cancelled"
	RunExpired        RunStatus = "expired"
	RunIncomplete     RunStatus = "incomplete"
)

// Pending reports whether the run is still expected to change state on its own.
func (s RunStatus) Pending() bool {
	switch s {
	case RunQueued, RunInProgress, RunCancelling:
		return true
	default:
		return false
	}
}

// Completed reports whether a reply can be fetched for the run.
func (s RunStatus) Completed() bool {
	return s == RunCompleted
}

// Run is a remote job snapshot. It is never mutated locally.
type Run struct {
	ID       string    `json:"id"`
	ThreadID string    `json:"threadId"`
	Status   RunStatus `json:"status"`
}
