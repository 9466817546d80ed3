// Package telegram is the transport glue between the Telegram Bot API and
// the engine. It runs the long-polling update loop, parses commands, and
// implements the engine's Sender interface. No matchmaking state lives here.
package telegram

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/driftchat/strangerbot/internal/engine"
)

// Reply keyboard button labels, kept identical to the original bot so
// existing users' keyboards keep working.
const (
	buttonNext = "🔄 Next"
	buttonStop = "❌ Stop"
)

const (
	sendTimeout   = 10 * time.Second
	outboxBacklog = 64
)

// Transport owns the Telegram bot connection. Outbound messages go through
// one outbox per user so deliveries to a user keep their order.
type Transport struct {
	bot *telego.Bot

	mu       sync.Mutex
	outboxes map[int64]*outbox
}

// NewTransport creates a bot client for the given token.
func NewTransport(token string) (*Transport, error) {
	bot, err := telego.NewBot(token, telego.WithDiscardLogger())
	if err != nil {
		return nil, fmt.Errorf("telegram: create bot: %w", err)
	}
	return &Transport{bot: bot, outboxes: make(map[int64]*outbox)}, nil
}

// outbox serializes one user's outbound messages on a single goroutine.
type outbox struct {
	ch chan string
}

func newOutbox(send func(text string)) *outbox {
	o := &outbox{ch: make(chan string, outboxBacklog)}
	go func() {
		for text := range o.ch {
			send(text)
		}
	}()
	return o
}

// push hands text to the outbox goroutine without blocking; it reports false
// when the backlog is full.
func (o *outbox) push(text string) bool {
	select {
	case o.ch <- text:
		return true
	default:
		return false
	}
}

func replyKeyboard() *telego.ReplyKeyboardMarkup {
	return tu.Keyboard(
		tu.KeyboardRow(
			tu.KeyboardButton(buttonNext),
			tu.KeyboardButton(buttonStop),
		),
	).WithResizeKeyboard()
}

// SendText implements engine.Sender. Delivery is fire-and-forget: the API
// call runs on the user's outbox goroutine, in hand-off order, and failures
// are logged, never propagated (the engine treats outbound sends as handled
// by the transport).
func (t *Transport) SendText(userID int64, text string) {
	t.mu.Lock()
	o := t.outboxes[userID]
	if o == nil {
		o = newOutbox(func(text string) { t.send(userID, text) })
		t.outboxes[userID] = o
	}
	t.mu.Unlock()

	if !o.push(text) {
		log.Printf("[telegram] outbox for %d full, dropping message", userID)
	}
}

func (t *Transport) send(userID int64, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	msg := tu.Message(tu.ID(userID), text).WithReplyMarkup(replyKeyboard())
	if _, err := t.bot.SendMessage(ctx, msg); err != nil {
		log.Printf("[telegram] send to %d: %v", userID, err)
	}
}

// Run consumes updates via long polling and dispatches them to the engine
// until the context is cancelled. Only private one-on-one chats are served.
func (t *Transport) Run(ctx context.Context, eng *engine.Engine) error {
	updates, err := t.bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("telegram: long polling: %w", err)
	}
	log.Printf("[telegram] update loop started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			msg := update.Message
			if msg == nil || msg.From == nil || msg.Text == "" {
				continue
			}
			if msg.Chat.Type != telego.ChatTypePrivate {
				continue
			}
			t.dispatch(eng, msg.From.ID, msg.Text)
		}
	}
}
