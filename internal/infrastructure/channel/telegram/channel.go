// Package telegram implements the approval channel on top of the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/ersonp/pagewatch/internal/domain/entities"
	"github.com/ersonp/pagewatch/internal/domain/ports"
	"github.com/ersonp/pagewatch/internal/infrastructure/config"
)

const (
	defaultAPIURL      = "https://api.telegram.org"
	defaultPollTimeout = 25 * time.Second
	defaultRetryDelay  = time.Second
	answerTimeout      = 5 * time.Second
	maxRetryInterval   = 15 * time.Second

	approveLabel = "Approve ✅"
	rejectLabel  = "Reject ❌"
	answerText   = "Thanks! Recorded your decision."
)

var errMisconfigured = errors.New("telegram channel misconfigured: bot token and chat id are required")

// Options tunes polling. Zero values take defaults; a negative PollTimeout
// turns long polling off.
type Options struct {
	PollTimeout time.Duration
	RetryDelay  time.Duration
	Client      *http.Client
}

// Channel posts approval requests to a chat and reads button presses back.
type Channel struct {
	apiURL string
	token  string
	chatID string
	client *http.Client
	opts   Options
	logger *slog.Logger

	mu     sync.Mutex
	offset int64
}

var _ ports.ApprovalChannel = (*Channel)(nil)

// New creates a new Channel.
func New(cfg config.TelegramConfig, opts Options, logger *slog.Logger) *Channel {
	if opts.PollTimeout < 0 {
		opts.PollTimeout = 0
	} else if opts.PollTimeout == 0 {
		opts.PollTimeout = defaultPollTimeout
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.PollTimeout + 10*time.Second}
	}
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Channel{
		apiURL: apiURL,
		token:  cfg.BotToken,
		chatID: cfg.ChatID,
		client: client,
		opts:   opts,
		logger: logger.With("component", "telegram"),
	}
}

// Post sends the markdown message with approve/reject buttons bound to key.
func (c *Channel) Post(ctx context.Context, markdown string, key entities.CorrelationKey) (string, error) {
	if c.token == "" || c.chatID == "" {
		return "", &ports.ChannelError{Op: "post", Err: errMisconfigured}
	}

	req := sendMessageRequest{
		ChatID: c.chatID,
		Text:   markdown,
		ReplyMarkup: inlineKeyboard{InlineKeyboard: [][]inlineButton{
			{{Text: approveLabel, CallbackData: key.ApproveToken()}},
			{{Text: rejectLabel, CallbackData: key.RejectToken()}},
		}},
	}

	var msg message
	if err := c.call(ctx, "sendMessage", req, &msg); err != nil {
		return "", &ports.ChannelError{Op: "post", Err: err}
	}

	id := strconv.FormatInt(msg.MessageID, 10)
	c.logger.Info("approval request posted", "message_id", id, "key", key.String())
	return id, nil
}

// AwaitDecision long-polls for a button press on messageID carrying key.
// Presses on other messages or for other keys are ignored. The wait ends
// pending on timeout or cancellation; transport errors are retried with
// exponential backoff until then.
func (c *Channel) AwaitDecision(ctx context.Context, messageID string, timeout time.Duration, key entities.CorrelationKey) entities.Approval {
	if messageID == "" {
		return entities.PendingApproval()
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log := c.logger.With("message_id", messageID, "key", key.String())
	for ctx.Err() == nil {
		poll := c.pollTimeout(ctx)
		fetch := func() ([]update, error) {
			return c.getUpdates(ctx, c.pollTimeout(ctx))
		}
		updates, err := backoff.Retry(ctx, fetch,
			backoff.WithBackOff(c.retryBackOff()),
			backoff.WithMaxElapsedTime(time.Until(deadlineOf(ctx))),
			backoff.WithNotify(func(err error, next time.Duration) {
				log.Warn("polling updates failed", "error", err, "retry_in", next)
			}),
		)
		if err != nil {
			break
		}

		for _, u := range updates {
			if approval, ok := c.match(u, messageID, key); ok {
				c.answer(ctx, u.CallbackQuery.ID)
				log.Info("decision received", "state", approval.State, "by", approval.By)
				return approval
			}
		}

		// Without long polling an empty batch returns at once.
		if len(updates) == 0 && poll == 0 {
			if sleepCtx(ctx, c.opts.RetryDelay) != nil {
				break
			}
		}
	}

	log.Info("no decision before timeout")
	return entities.PendingApproval()
}

func (c *Channel) match(u update, messageID string, key entities.CorrelationKey) (entities.Approval, bool) {
	cq := u.CallbackQuery
	if cq == nil || cq.Message == nil {
		return entities.Approval{}, false
	}
	if strconv.FormatInt(cq.Message.MessageID, 10) != messageID {
		return entities.Approval{}, false
	}

	state, got, ok := entities.ParseDecisionToken(cq.Data)
	if !ok || got != key {
		return entities.Approval{}, false
	}
	return entities.Approval{State: state, By: cq.From.displayName()}, true
}

// retryBackOff paces getUpdates retries while the Bot API is unreachable.
func (c *Channel) retryBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.opts.RetryDelay
	bo.MaxInterval = maxRetryInterval
	bo.Multiplier = 2
	return bo
}

func deadlineOf(ctx context.Context) time.Time {
	if deadline, ok := ctx.Deadline(); ok {
		return deadline
	}
	return time.Now().Add(defaultPollTimeout)
}

// pollTimeout returns the long-poll window, never past the context deadline.
func (c *Channel) pollTimeout(ctx context.Context) time.Duration {
	poll := c.opts.PollTimeout
	if deadline, ok := ctx.Deadline(); ok {
		poll = min(poll, time.Until(deadline))
	}
	return max(poll.Truncate(time.Second), 0)
}

func (c *Channel) getUpdates(ctx context.Context, poll time.Duration) ([]update, error) {
	c.mu.Lock()
	offset := c.offset
	c.mu.Unlock()

	req := getUpdatesRequest{
		Offset:         offset,
		Timeout:        int(poll / time.Second),
		AllowedUpdates: []string{"callback_query"},
	}

	var updates []update
	if err := c.call(ctx, "getUpdates", req, &updates); err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		c.mu.Lock()
		c.offset = max(c.offset, updates[len(updates)-1].UpdateID+1)
		c.mu.Unlock()
	}
	return updates, nil
}

func (c *Channel) answer(ctx context.Context, callbackID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), answerTimeout)
	defer cancel()

	req := answerCallbackRequest{CallbackQueryID: callbackID, Text: answerText}
	if err := c.call(ctx, "answerCallbackQuery", req, nil); err != nil {
		c.logger.Warn("answering callback failed", "error", err)
	}
}

// call POSTs a JSON request to a Bot API method and decodes its result into out.
func (c *Channel) call(ctx context.Context, method string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", method, err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.apiURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading %s response: %w", method, err)
	}

	var env apiResponse
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("telegram %s: %s", method, resp.Status)
	}
	if !env.OK {
		return fmt.Errorf("telegram %s: %s (%d)", method, env.Description, env.ErrorCode)
	}

	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("decoding %s result: %w", method, err)
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
