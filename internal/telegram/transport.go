// README: Telegram transport. Maps bot updates to rider events and renders replies as messages, keyboards and photos.
package telegram

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"flytaxi/internal/logger"
	"flytaxi/internal/modules/order"
	"flytaxi/internal/types"
)

const textFailure = "Сталася помилка. Спробуйте ще раз або надішліть /start."

type Orchestrator interface {
	Handle(ctx context.Context, riderID types.ID, ev order.Event) (order.Reply, error)
}

type Transport struct {
	bot   *bot.Bot
	order Orchestrator
	log   *zap.Logger
}

func New(token string, svc Orchestrator, log *zap.Logger) (*Transport, error) {
	t := &Transport{order: svc, log: logger.OrNop(log)}
	b, err := bot.New(token, bot.WithDefaultHandler(t.handle))
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	t.bot = b
	return t, nil
}

// Run polls for updates until ctx is cancelled.
func (t *Transport) Run(ctx context.Context) error {
	t.log.Info("telegram transport polling")
	t.bot.Start(ctx)
	t.log.Info("telegram transport stopped")
	return nil
}

func (t *Transport) handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	in, ok := FromUpdate(update)
	if !ok {
		return
	}
	if in.CallbackID != "" {
		if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: in.CallbackID}); err != nil {
			t.log.Warn("answer callback failed", zap.Error(err))
		}
	}

	reply, err := t.order.Handle(ctx, in.RiderID, in.Event)
	if err != nil {
		t.log.Error("event failed", zap.String("rider_id", in.RiderID.String()), zap.String("event", in.Event.Kind.String()), zap.Error(err))
		reply = order.Reply{Effects: []order.Effect{order.Prompt{Text: textFailure}}}
	}
	t.render(ctx, b, in.ChatID, reply)
}

func (t *Transport) render(ctx context.Context, b *bot.Bot, chatID int64, reply order.Reply) {
	for _, e := range reply.Effects {
		switch v := e.(type) {
		case order.ShowImage:
			_, err := b.SendPhoto(ctx, &bot.SendPhotoParams{
				ChatID:  chatID,
				Photo:   &models.InputFileUpload{Filename: "route.png", Data: bytes.NewReader(v.Image)},
				Caption: v.Caption,
			})
			if err != nil {
				t.log.Warn("send photo failed", zap.Int64("chat_id", chatID), zap.Error(err))
			}
		case order.Prompt:
			_, err := b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID:      chatID,
				Text:        v.Text,
				ReplyMarkup: Markup(v),
			})
			if err != nil {
				t.log.Warn("send message failed", zap.Int64("chat_id", chatID), zap.Error(err))
			}
		}
	}
}

// Inbound is a decoded update.
type Inbound struct {
	RiderID    types.ID
	ChatID     int64
	Event      order.Event
	CallbackID string
}

// RiderID namespaces Telegram user ids.
func RiderID(userID int64) types.ID {
	return types.ID(fmt.Sprintf("%s%d", types.TelegramPrefix, userID))
}

// FromUpdate decodes the updates the conversation understands.
func FromUpdate(u *models.Update) (Inbound, bool) {
	switch {
	case u == nil:
		return Inbound{}, false
	case u.CallbackQuery != nil:
		cq := u.CallbackQuery
		chatID := cq.From.ID
		if cq.Message.Message != nil {
			chatID = cq.Message.Message.Chat.ID
		}
		return Inbound{
			RiderID:    RiderID(cq.From.ID),
			ChatID:     chatID,
			Event:      order.EventFromOption(cq.Data),
			CallbackID: cq.ID,
		}, true
	case u.Message != nil && u.Message.From != nil:
		m := u.Message
		in := Inbound{RiderID: RiderID(m.From.ID), ChatID: m.Chat.ID}
		switch {
		case m.Contact != nil:
			phone := m.Contact.PhoneNumber
			if m.Contact.UserID != 0 && m.Contact.UserID != m.From.ID {
				phone = ""
			}
			name := strings.TrimSpace(m.Contact.FirstName + " " + m.Contact.LastName)
			in.Event = order.ContactEvent(phone, name, m.From.Username)
		case m.Location != nil:
			in.Event = order.LocationEvent(types.Point{Lat: m.Location.Latitude, Lng: m.Location.Longitude})
		case m.Text != "":
			in.Event = textEvent(m.Text)
		default:
			return Inbound{}, false
		}
		return in, true
	default:
		return Inbound{}, false
	}
}

func textEvent(text string) order.Event {
	t := strings.TrimSpace(text)
	cmd, _, _ := strings.Cut(t, " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	switch strings.ToLower(cmd) {
	case "/start":
		return order.StartEvent()
	case "/cancel":
		return order.CancelEvent()
	}
	switch strings.ToLower(t) {
	case "готово", "done":
		return order.SelectionEvent(order.OptionWaypointsDone)
	}
	return order.TextEvent(t)
}

// Markup shows contact and location requests as a reply keyboard and plain
// options as inline buttons. A prompt without choices clears the keyboard.
func Markup(p order.Prompt) models.ReplyMarkup {
	if len(p.Choices) == 0 {
		return &models.ReplyKeyboardRemove{RemoveKeyboard: true}
	}
	var requests []models.KeyboardButton
	var options [][]models.InlineKeyboardButton
	for _, c := range p.Choices {
		switch c.Kind {
		case order.ChoiceContact:
			requests = append(requests, models.KeyboardButton{Text: c.Label, RequestContact: true})
		case order.ChoiceLocation:
			requests = append(requests, models.KeyboardButton{Text: c.Label, RequestLocation: true})
		default:
			options = append(options, []models.InlineKeyboardButton{{Text: c.Label, CallbackData: c.ID}})
		}
	}
	if len(requests) > 0 {
		return &models.ReplyKeyboardMarkup{
			Keyboard:        [][]models.KeyboardButton{requests},
			ResizeKeyboard:  true,
			OneTimeKeyboard: true,
		}
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: options}
}
