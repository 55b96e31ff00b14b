// Package telegram bridges Telegram chats to the dispatcher. Each chat is
// one session: the welcome table listing is sent before the first message
// of the chat is processed.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/schemabot/internal/dispatch"
	"github.com/user/schemabot/internal/gateway"
	"github.com/user/schemabot/internal/types"
)

const maxTelegramMessage = 4096

// Adapter bridges Telegram to the gateway and dispatcher.
type Adapter struct {
	bot        *tgbotapi.BotAPI
	gateway    *gateway.Gateway
	dispatcher *dispatch.Dispatcher
	sessions   types.SessionStore
}

// New creates a Telegram adapter.
func New(token string, gw *gateway.Gateway, dispatcher *dispatch.Dispatcher, sessions types.SessionStore) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return &Adapter{
		bot:        bot,
		gateway:    gw,
		dispatcher: dispatcher,
		sessions:   sessions,
	}, nil
}

// Start begins long-polling for Telegram updates.
func (a *Adapter) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := a.bot.GetUpdatesChan(u)

	for {
		select {
		case update := <-updates:
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			a.handleMessage(ctx, update.Message)
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			return
		}
	}
}

func (a *Adapter) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	key := buildSessionKey(msg.From.ID, msg.Chat.ID)

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			a.startSession(ctx, chatID, key)
			return
		case "end":
			a.endSession(ctx, chatID, key)
			return
		}
		// Any other command is ordinary input and falls through to echo.
	}

	// First contact without /start still gets the welcome listing before
	// the message itself is processed.
	if _, ok := a.sessions.Lookup(ctx, key); !ok {
		a.startSession(ctx, chatID, key)
	}

	event := &types.InboundMessage{
		Source:     "telegram",
		SessionKey: key,
		UserID:     strconv.FormatInt(msg.From.ID, 10),
		Text:       msg.Text,
	}
	err := a.gateway.HandleInbound(ctx, event, gateway.WithOnComplete(func(reply string) {
		a.send(chatID, reply)
	}))
	if err != nil {
		slog.Error("handle inbound failed", "session_key", string(key), "error", err)
		a.send(chatID, "Sorry, I encountered an error processing your message.")
	}
}

func (a *Adapter) startSession(ctx context.Context, chatID int64, key types.SessionKey) {
	_, messages, err := a.dispatcher.StartSession(ctx, key)
	if err != nil {
		slog.Error("start session failed", "session_key", string(key), "error", err)
		a.send(chatID, "Sorry, I could not start this session.")
		return
	}
	for _, m := range messages {
		a.send(chatID, m)
	}
}

func (a *Adapter) endSession(ctx context.Context, chatID int64, key types.SessionKey) {
	session, ok := a.sessions.Lookup(ctx, key)
	if !ok {
		a.send(chatID, "No active session.")
		return
	}
	if err := a.gateway.EndSession(ctx, session.ID); err != nil {
		slog.Error("end session failed", "session_key", string(key), "error", err)
		return
	}
	a.send(chatID, "Session ended. Send /start to begin a new one.")
}

func (a *Adapter) send(chatID int64, text string) {
	for _, part := range splitMessage(text) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = "Markdown"
		if _, err := a.bot.Send(msg); err != nil {
			// Retry without markdown if it fails
			msg.ParseMode = ""
			if _, err := a.bot.Send(msg); err != nil {
				slog.Error("send message failed", "chat_id", chatID, "error", err)
			}
		}
	}
}

func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := maxTelegramMessage
		if end > len(text) {
			end = len(text)
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}

func buildSessionKey(userID, chatID int64) types.SessionKey {
	return types.NewSessionKey("telegram",
		strconv.FormatInt(userID, 10),
		strconv.FormatInt(chatID, 10),
	)
}
