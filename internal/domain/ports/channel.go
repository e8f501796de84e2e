package ports

import (
	"context"
	"time"

	"github.com/ersonp/pagewatch/internal/domain/entities"
)

// ApprovalChannel posts change notifications and collects human decisions.
type ApprovalChannel interface {
	// Post publishes the notification with approve/reject actions tagged with key.
	// It returns the message id or a *ChannelError.
	Post(ctx context.Context, markdown string, key entities.CorrelationKey) (string, error)

	// AwaitDecision blocks until a decision tagged with key arrives for messageID,
	// the timeout elapses, or ctx is done. It never fails: anything other than a
	// matching decision resolves to a pending approval.
	AwaitDecision(ctx context.Context, messageID string, timeout time.Duration, key entities.CorrelationKey) entities.Approval
}
