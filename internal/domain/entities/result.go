package entities

import "time"

// Status is the primary caller-facing outcome of a run.
type Status string

// Run statuses.
const (
	StatusOK       Status = "OK"
	StatusNoChange Status = "NO_CHANGE"
	StatusError    Status = "ERROR"
)

// Highlight is a compact, reader-facing summary of one selected candidate.
type Highlight struct {
	Title        string `json:"title"`
	WhyItMatters string `json:"why_it_matters"`
	Evidence     string `json:"evidence"`
}

// PipelineResult is the single structured record produced by every run.
type PipelineResult struct {
	Status                Status       `json:"status"`
	RunID                 string       `json:"run_id,omitempty"`
	URL                   string       `json:"url"`
	ChangeHash            *string      `json:"change_hash"`
	Highlights            []Highlight  `json:"highlights"`
	Significance          Significance `json:"significance"`
	DraftResponse         string       `json:"draft_response"`
	NextActions           []string     `json:"next_actions"`
	NotificationMessageID *string      `json:"notification_message_id"`
	Approval              Approval     `json:"approval"`
	Errors                []string     `json:"errors"`
}

// NewResult returns a result with every collection initialized, so it never
// serializes nulls where arrays are expected.
func NewResult(status Status, url string) *PipelineResult {
	return &PipelineResult{
		Status:       status,
		URL:          url,
		Highlights:   []Highlight{},
		Significance: SignificanceLow,
		NextActions:  []string{},
		Approval:     PendingApproval(),
		Errors:       []string{},
	}
}

// NewErrorResult returns an error-shaped result carrying the given messages.
func NewErrorResult(url string, errs ...string) *PipelineResult {
	r := NewResult(StatusError, url)
	r.Errors = append(r.Errors, errs...)
	return r
}

// SetChangeHash records the change digest, leaving it null when empty.
func (r *PipelineResult) SetChangeHash(hash string) {
	if hash == "" {
		r.ChangeHash = nil
		return
	}
	r.ChangeHash = &hash
}

// SetMessageID records the notification id, leaving it null when empty.
func (r *PipelineResult) SetMessageID(id string) {
	if id == "" {
		r.NotificationMessageID = nil
		return
	}
	r.NotificationMessageID = &id
}

// ApprovalEventType identifies the event emitted after an approval.
const ApprovalEventType = "COMPETITOR_UPDATE_APPROVED"

// ApprovalEvent is emitted downstream once a change has been approved.
type ApprovalEvent struct {
	Type       string    `json:"type"`
	URL        string    `json:"url"`
	ChangeHash string    `json:"change_hash"`
	Actions    []string  `json:"actions"`
	ApprovedBy string    `json:"approved_by"`
	ApprovedAt time.Time `json:"approved_at"`
}
