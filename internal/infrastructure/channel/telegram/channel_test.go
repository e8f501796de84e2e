package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/pagewatch/internal/domain/entities"
	"github.com/ersonp/pagewatch/internal/domain/ports"
	"github.com/ersonp/pagewatch/internal/infrastructure/config"
)

const testToken = "123:abc"

var testKey = entities.CorrelationKey{URLHash: "aaaaaaaaaaaa", ChangeHash: "bbbbbbbbbbbb"}

// fakeBot is a minimal Bot API server. Each update is delivered once.
type fakeBot struct {
	mu        sync.Mutex
	sent      []sendMessageRequest
	updates   []update
	answered  []string
	polls     int
	sendReply string
	pollFails bool
	failPolls int
}

func (b *fakeBot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	method := strings.TrimPrefix(r.URL.Path, "/bot"+testToken+"/")
	switch method {
	case "sendMessage":
		var req sendMessageRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.sent = append(b.sent, req)
		reply := b.sendReply
		if reply == "" {
			reply = `{"ok":true,"result":{"message_id":101}}`
		}
		_, _ = w.Write([]byte(reply))
	case "getUpdates":
		b.polls++
		if b.pollFails || b.polls <= b.failPolls {
			http.Error(w, "<html>bad gateway</html>", http.StatusBadGateway)
			return
		}
		var req getUpdatesRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		var out []update
		for _, u := range b.updates {
			if u.UpdateID >= req.Offset {
				out = append(out, u)
			}
		}
		result, _ := json.Marshal(out)
		_, _ = w.Write([]byte(`{"ok":true,"result":` + string(result) + `}`))
	case "answerCallbackQuery":
		var req answerCallbackRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.answered = append(b.answered, req.CallbackQueryID)
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	default:
		http.NotFound(w, r)
	}
}

func newTestChannel(t *testing.T, bot *fakeBot) *Channel {
	t.Helper()
	srv := httptest.NewServer(bot)
	t.Cleanup(srv.Close)

	cfg := config.TelegramConfig{BotToken: testToken, ChatID: "-100", APIURL: srv.URL}
	return New(cfg, Options{PollTimeout: -1, RetryDelay: 10 * time.Millisecond}, nil)
}

func press(id int64, messageID int64, data string, from user) update {
	return update{
		UpdateID: id,
		CallbackQuery: &callbackQuery{
			ID:      "cq-" + data,
			From:    from,
			Message: &message{MessageID: messageID},
			Data:    data,
		},
	}
}

func TestChannel_Post(t *testing.T) {
	bot := &fakeBot{}
	ch := newTestChannel(t, bot)

	id, err := ch.Post(t.Context(), "🔍 Competitor Update Detected\nURL: https://x.test", testKey)

	require.NoError(t, err)
	assert.Equal(t, "101", id)
	require.Len(t, bot.sent, 1)
	sent := bot.sent[0]
	assert.Equal(t, "-100", sent.ChatID)
	assert.Contains(t, sent.Text, "URL: https://x.test")
	require.Len(t, sent.ReplyMarkup.InlineKeyboard, 2)
	assert.Equal(t, "approve:aaaaaaaaaaaa:bbbbbbbbbbbb", sent.ReplyMarkup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "reject:aaaaaaaaaaaa:bbbbbbbbbbbb", sent.ReplyMarkup.InlineKeyboard[1][0].CallbackData)
}

func TestChannel_Post_Errors(t *testing.T) {
	t.Run("misconfigured", func(t *testing.T) {
		ch := New(config.TelegramConfig{}, Options{}, nil)

		_, err := ch.Post(t.Context(), "x", testKey)

		var ce *ports.ChannelError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "post", ce.Op)
		assert.ErrorIs(t, err, errMisconfigured)
	})

	t.Run("api error", func(t *testing.T) {
		bot := &fakeBot{sendReply: `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`}
		ch := newTestChannel(t, bot)

		id, err := ch.Post(t.Context(), "x", testKey)

		assert.Empty(t, id)
		var ce *ports.ChannelError
		require.ErrorAs(t, err, &ce)
		assert.Contains(t, err.Error(), "chat not found")
	})
}

func TestChannel_AwaitDecision(t *testing.T) {
	other := entities.CorrelationKey{URLHash: "aaaaaaaaaaaa", ChangeHash: "cccccccccccc"}

	tests := []struct {
		name    string
		updates []update
		want    entities.Approval
		answer  string
	}{
		{
			name:    "approved by username",
			updates: []update{press(1, 101, testKey.ApproveToken(), user{ID: 7, Username: "alice", FirstName: "Alice"})},
			want:    entities.Approval{State: entities.ApprovalApproved, By: "@alice"},
			answer:  "cq-" + testKey.ApproveToken(),
		},
		{
			name: "ignores other messages and keys",
			updates: []update{
				press(1, 999, testKey.ApproveToken(), user{Username: "mallory"}),
				press(2, 101, other.ApproveToken(), user{Username: "mallory"}),
				press(3, 101, "approve:garbage", user{Username: "mallory"}),
				press(4, 101, testKey.RejectToken(), user{FirstName: "Dana"}),
			},
			want:   entities.Approval{State: entities.ApprovalRejected, By: "Dana"},
			answer: "cq-" + testKey.RejectToken(),
		},
		{
			name:    "foreign decision only",
			updates: []update{press(1, 101, other.ApproveToken(), user{Username: "mallory"})},
			want:    entities.PendingApproval(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot := &fakeBot{updates: tt.updates}
			ch := newTestChannel(t, bot)

			got := ch.AwaitDecision(t.Context(), "101", 200*time.Millisecond, testKey)

			assert.Equal(t, tt.want, got)
			if tt.answer != "" {
				assert.Equal(t, []string{tt.answer}, bot.answered)
			} else {
				assert.Empty(t, bot.answered)
			}
		})
	}
}

func TestChannel_AwaitDecision_Pending(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		bot := &fakeBot{}
		ch := newTestChannel(t, bot)

		start := time.Now()
		got := ch.AwaitDecision(t.Context(), "101", 100*time.Millisecond, testKey)

		assert.Equal(t, entities.PendingApproval(), got)
		assert.Less(t, time.Since(start), 2*time.Second)
		assert.Positive(t, bot.polls)
	})

	t.Run("cancelled", func(t *testing.T) {
		bot := &fakeBot{updates: []update{press(1, 101, testKey.ApproveToken(), user{Username: "alice"})}}
		ch := newTestChannel(t, bot)
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		got := ch.AwaitDecision(ctx, "101", time.Minute, testKey)

		assert.Equal(t, entities.PendingApproval(), got)
	})

	t.Run("no message id", func(t *testing.T) {
		bot := &fakeBot{}
		ch := newTestChannel(t, bot)

		got := ch.AwaitDecision(t.Context(), "", time.Minute, testKey)

		assert.Equal(t, entities.PendingApproval(), got)
		assert.Zero(t, bot.polls)
	})

	t.Run("transport errors are retried", func(t *testing.T) {
		bot := &fakeBot{pollFails: true}
		ch := newTestChannel(t, bot)

		got := ch.AwaitDecision(t.Context(), "101", 100*time.Millisecond, testKey)

		assert.Equal(t, entities.PendingApproval(), got)
		assert.Greater(t, bot.polls, 1)
	})

	t.Run("recovers after transient failures", func(t *testing.T) {
		bot := &fakeBot{
			failPolls: 3,
			updates:   []update{press(7, 101, testKey.ApproveToken(), user{Username: "alice"})},
		}
		ch := newTestChannel(t, bot)

		got := ch.AwaitDecision(t.Context(), "101", 5*time.Second, testKey)

		assert.Equal(t, entities.Approval{State: entities.ApprovalApproved, By: "@alice"}, got)
		assert.Equal(t, 4, bot.polls)
	})
}

func TestChannel_RetryBackOff(t *testing.T) {
	ch := New(config.TelegramConfig{}, Options{RetryDelay: 200 * time.Millisecond}, nil)

	bo := ch.retryBackOff()

	assert.Equal(t, 200*time.Millisecond, bo.InitialInterval)
	assert.Equal(t, maxRetryInterval, bo.MaxInterval)
	assert.Equal(t, 2.0, bo.Multiplier)
}

func TestChannel_OffsetAdvances(t *testing.T) {
	bot := &fakeBot{updates: []update{press(41, 555, testKey.ApproveToken(), user{Username: "alice"})}}
	ch := newTestChannel(t, bot)

	_ = ch.AwaitDecision(t.Context(), "101", 50*time.Millisecond, testKey)

	assert.Equal(t, int64(42), ch.offset)
}

func TestUserDisplayName(t *testing.T) {
	assert.Equal(t, "@alice", user{Username: "alice", FirstName: "Alice"}.displayName())
	assert.Equal(t, "Bob", user{FirstName: "Bob"}.displayName())
}
