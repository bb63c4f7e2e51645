package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"carrental/internal/domain"
	"carrental/internal/events"
	"carrental/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// apiTimeout bounds every Bot API call. It must stay above the 60s long-poll
// timeout used by the owner console.
const apiTimeout = 75 * time.Second

// queueSize is how many events may wait for delivery before new ones are dropped.
const queueSize = 100

var ErrQueueFull = errors.New("telegram notification queue is full")

// NewBot connects to the Telegram Bot API.
func NewBot(token string, debug bool) (*tgbotapi.BotAPI, error) {
	client := &http.Client{Timeout: apiTimeout}
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	bot.Debug = debug
	return bot, nil
}

// TelegramNotifier tells owners about new and cancelled bookings. Events are
// queued by the bus handler and sent from Start, off the request path.
type TelegramNotifier struct {
	sender  domain.TelegramSender
	chatIDs []int64
	queue   chan *events.Event
	logger  *zerolog.Logger
}

func NewTelegramNotifier(sender domain.TelegramSender, chatIDs []int64, logger *zerolog.Logger) *TelegramNotifier {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &TelegramNotifier{
		sender:  sender,
		chatIDs: chatIDs,
		queue:   make(chan *events.Event, queueSize),
		logger:  logger,
	}
}

// Subscribe attaches the notifier to the lifecycle events it reports on.
func (n *TelegramNotifier) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventBookingCreated, n.Enqueue)
	bus.Subscribe(events.EventBookingCancelled, n.Enqueue)
}

// Enqueue is an events.EventHandler. It never blocks; when the queue is full
// the event is dropped.
func (n *TelegramNotifier) Enqueue(event *events.Event) error {
	select {
	case n.queue <- event:
		return nil
	default:
		n.logger.Warn().Str("event_type", event.Type).Msg("telegram queue full, notification dropped")
		return ErrQueueFull
	}
}

// Start delivers queued events until ctx is done.
func (n *TelegramNotifier) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-n.queue:
			if err := n.Handle(event); err != nil {
				n.logger.Error().Err(err).Str("event_type", event.Type).Msg("telegram notification failed")
			}
		}
	}
}

// Handle sends the message for event to every owner chat.
func (n *TelegramNotifier) Handle(event *events.Event) error {
	payload, err := events.DecodeBooking(event)
	if err != nil {
		return fmt.Errorf("decode %s: %w", event.Type, err)
	}

	text := FormatMessage(event.Type, payload)
	if text == "" {
		return nil
	}

	var errs []error
	for _, chatID := range n.chatIDs {
		if _, err := n.sender.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
			n.logger.Error().Err(err).Int64("chat_id", chatID).Str("booking_id", payload.BookingID).Msg("telegram send failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FormatMessage renders the owner-facing text, or "" for events that are not reported.
func FormatMessage(eventType string, p events.BookingEventPayload) string {
	var title string
	switch eventType {
	case events.EventBookingCreated:
		title = "🆕 Новая заявка на аренду"
	case events.EventBookingCancelled:
		title = "❌ Заявка отменена"
	default:
		return ""
	}

	car := p.CarName
	if car == "" {
		car = p.CarID
	}
	customer := p.CustomerName
	if customer == "" {
		customer = p.CustomerID
	}

	var b strings.Builder
	b.WriteString(title + "\n\n")
	fmt.Fprintf(&b, "Автомобиль: %s\n", car)
	fmt.Fprintf(&b, "Клиент: %s", customer)
	if p.CustomerEmail != "" {
		fmt.Fprintf(&b, " (%s)", p.CustomerEmail)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Даты: %s → %s (%d дн.)\n",
		p.StartDate.Format(models.DateLayout), p.EndDate.Format(models.DateLayout), p.TotalDays)
	fmt.Fprintf(&b, "Сумма: %.2f\n", p.TotalAmount)
	fmt.Fprintf(&b, "ID: %s", p.BookingID)
	return b.String()
}
