// Package bot is the owners' Telegram console: stats, pending approvals and
// workbook export.
package bot

import (
	"context"
	"time"

	"carrental/internal/domain"
	"carrental/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Bot struct {
	tgService      domain.TelegramService
	owners         map[int64]struct{}
	bookingService domain.BookingService
	statsService   domain.StatsService
	logger         *zerolog.Logger
	now            func() time.Time
}

func NewBot(
	tgService domain.TelegramService,
	ownerIDs []int64,
	bookingService domain.BookingService,
	statsService domain.StatsService,
	logger *zerolog.Logger,
) *Bot {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	owners := make(map[int64]struct{}, len(ownerIDs))
	for _, id := range ownerIDs {
		owners[id] = struct{}{}
	}

	return &Bot{
		tgService:      tgService,
		owners:         owners,
		bookingService: bookingService,
		statsService:   statsService,
		logger:         logger,
		now:            time.Now,
	}
}

// Start polls updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tgService.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.tgService.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

// Stop stops receiving Telegram updates (best-effort).
func (b *Bot) Stop() {
	if b == nil || b.tgService == nil {
		return
	}
	b.tgService.StopReceivingUpdates()
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	kind := "ignored"
	defer func() {
		metrics.ObserveBotUpdate(kind, time.Since(start).Seconds())
	}()

	updateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	l := b.logger.With().Str("request_id", uuid.NewString()).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(func() {
		var userID int64
		switch {
		case update.Message != nil && update.Message.From != nil:
			userID = update.Message.From.ID
		case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
			userID = update.CallbackQuery.From.ID
		}
		if userID == 0 {
			return
		}

		if !b.isOwner(userID) {
			l.Warn().Int64("user_id", userID).Msg("update from non-owner ignored")
			if update.Message != nil {
				b.sendMessage(update.Message.Chat.ID, "⛔ Эта консоль доступна только владельцам.")
			}
			return
		}

		if update.CallbackQuery != nil {
			kind = "callback"
			b.handleCallbackQuery(updateCtx, update.CallbackQuery)
			return
		}
		if update.Message != nil && update.Message.IsCommand() {
			kind = "command"
			b.handleCommand(updateCtx, update.Message)
		}
	})
}

func (b *Bot) isOwner(userID int64) bool {
	_, ok := b.owners[userID]
	return ok
}

func (b *Bot) withRecovery(handler func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Interface("panic", r).Msg("Recovered from panic in update handler")
		}
	}()
	handler()
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.tgService.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send message")
	}
}
