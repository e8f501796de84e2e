package entities

import "strings"

// ApprovalState is the lifecycle state of a human decision.
type ApprovalState string

// Approval states. A timed-out wait stays pending; there is no separate terminal state.
const (
	ApprovalPending  ApprovalState = "pending"
	ApprovalApproved ApprovalState = "approved"
	ApprovalRejected ApprovalState = "rejected"
)

// Approval is the decision recorded for a notified change.
type Approval struct {
	State  ApprovalState `json:"state"`
	By     string        `json:"by,omitempty"`
	Reason string        `json:"reason,omitempty"`
}

// PendingApproval returns an approval that has not been decided.
func PendingApproval() Approval {
	return Approval{State: ApprovalPending}
}

// IsApproved reports whether the change was explicitly approved.
func (a Approval) IsApproved() bool {
	return a.State == ApprovalApproved
}

// Decision token prefixes carried by approve/reject buttons.
const (
	approveTokenPrefix = "approve"
	rejectTokenPrefix  = "reject"
)

// CorrelationKey binds a notification to the exact URL and change it concerns,
// so that decisions from unrelated runs cannot be applied.
type CorrelationKey struct {
	URLHash    string `json:"url_hash"`
	ChangeHash string `json:"change_hash"`
}

// String renders the key as "<urlhash>:<changehash>".
func (k CorrelationKey) String() string {
	return k.URLHash + ":" + k.ChangeHash
}

// ApproveToken is the token attached to the approve action.
func (k CorrelationKey) ApproveToken() string {
	return approveTokenPrefix + ":" + k.String()
}

// RejectToken is the token attached to the reject action.
func (k CorrelationKey) RejectToken() string {
	return rejectTokenPrefix + ":" + k.String()
}

// ParseDecisionToken splits a decision token into its decision and key.
// ok is false for anything that is not a well-formed approve/reject token.
func ParseDecisionToken(token string) (ApprovalState, CorrelationKey, bool) {
	parts := strings.Split(token, ":")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return ApprovalPending, CorrelationKey{}, false
	}

	key := CorrelationKey{URLHash: parts[1], ChangeHash: parts[2]}
	switch parts[0] {
	case approveTokenPrefix:
		return ApprovalApproved, key, true
	case rejectTokenPrefix:
		return ApprovalRejected, key, true
	default:
		return ApprovalPending, CorrelationKey{}, false
	}
}
