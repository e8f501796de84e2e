package entities

// RunState is the terminal state a pipeline run ended in.
type RunState string

// Run states. Drafting and Notified are transient; the rest are terminal.
const (
	RunStateFailed      RunState = "FAILED"
	RunStateUnchanged   RunState = "UNCHANGED"
	RunStateNoSelection RunState = "NO_SELECTION"
	RunStateDrafting    RunState = "DRAFTING"
	RunStateNotified    RunState = "NOTIFIED"
	RunStateApproved    RunState = "APPROVED"
	RunStateRejected    RunState = "REJECTED"
	RunStateTimedOut    RunState = "TIMED_OUT"
)

// RunStateForApproval maps a decision to the terminal state of a notified run.
func RunStateForApproval(a Approval) RunState {
	switch a.State {
	case ApprovalApproved:
		return RunStateApproved
	case ApprovalRejected:
		return RunStateRejected
	default:
		return RunStateTimedOut
	}
}
