package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/ersonp/pagewatch/internal/domain/entities"
	"github.com/ersonp/pagewatch/internal/domain/services"
)

const (
	notifyTestTitle   = services.NotificationTitle + " (Test)"
	notifyTestSummary = "- Test post to verify approval channel wiring."
	notifyTestAction  = "- Confirm bot can post and buttons work"
)

// NotifyTestHandler sends a test approval request without scraping.
type NotifyTestHandler struct {
	approval *services.ApprovalService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewNotifyTestHandler creates a new NotifyTestHandler.
func NewNotifyTestHandler(approval *services.ApprovalService, logger *slog.Logger) *NotifyTestHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotifyTestHandler{
		approval: approval,
		validate: validator.New(),
		logger:   logger.With("component", "notify-test"),
	}
}

// Handle posts a test notification for url and waits for a decision.
func (h *NotifyTestHandler) Handle(ctx context.Context, url string) *entities.PipelineResult {
	if err := h.validate.Var(url, "required,http_url"); err != nil {
		h.logger.Warn("invalid request", "url", url, "error", err)
		return entities.NewErrorResult(url, fmt.Sprintf("invalid request: url %q must be an absolute http(s) URL", url))
	}

	key := entities.CorrelationKey{
		URLHash:    services.ShortHash(url),
		ChangeHash: services.ShortHash("notify-test"),
	}

	markdown := notifyTestTitle + "\n" +
		"URL: " + url + "\n" +
		"Significance: low\n" +
		"\nSummary:\n" +
		notifyTestSummary + "\n" +
		"\nRecommended actions:\n" +
		notifyTestAction

	messageID, approval, err := h.approval.Notify(ctx, markdown, key)
	if err != nil {
		h.logger.Error("test notification failed", "url", url, "error", err)
		result := entities.NewErrorResult(url, err.Error())
		result.SetChangeHash(key.ChangeHash)
		return result
	}

	result := entities.NewResult(entities.StatusOK, url)
	result.SetChangeHash(key.ChangeHash)
	result.Highlights = []entities.Highlight{
		{Title: "Test", WhyItMatters: "Verify approval channel connectivity", Evidence: "manual test"},
	}
	result.DraftResponse = "- Test run to verify posting."
	result.NextActions = []string{"Verify buttons", "Check bot permissions"}
	result.SetMessageID(messageID)
	result.Approval = approval
	h.logger.Info("test notification finished", "url", url, "message_id", messageID, "approval", approval.State)
	return result
}
