package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"carrental/internal/domain"
	"carrental/internal/export"
	"carrental/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// maxListed ограничивает число карточек в одном ответе
const maxListed = 10

const helpText = `Команды владельца:
/stats - статистика и выручка
/pending - заявки на подтверждение
/active - подтверждённые аренды
/export - выгрузка в Excel`

const (
	actionApprove  = "approve"
	actionReject   = "reject"
	actionComplete = "complete"
)

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		b.sendMessage(chatID, helpText)
	case "stats":
		b.handleStats(ctx, chatID)
	case "pending":
		b.handleList(ctx, chatID, models.StatusPending)
	case "active":
		b.handleList(ctx, chatID, models.StatusApproved)
	case "export":
		b.handleExport(ctx, chatID)
	default:
		b.sendMessage(chatID, "Неизвестная команда.\n\n"+helpText)
	}
}

func (b *Bot) handleStats(ctx context.Context, chatID int64) {
	stats, err := b.statsService.GetStats(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("get stats")
		b.sendMessage(chatID, "Ошибка при получении статистики")
		return
	}
	b.sendMessage(chatID, formatStats(stats))
}

// handleList sends one card per booking in status, each with its action buttons.
func (b *Bot) handleList(ctx context.Context, chatID int64, status models.BookingStatus) {
	all, err := b.bookingService.ListAll(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("list bookings")
		b.sendMessage(chatID, "Ошибка при получении заявок")
		return
	}

	var matched []*models.BookingDetails
	for _, d := range all {
		if d.Status == status {
			matched = append(matched, d)
		}
	}
	if len(matched) == 0 {
		b.sendMessage(chatID, "Нет заявок в статусе "+statusLabel(status))
		return
	}

	if len(matched) > maxListed {
		b.sendMessage(chatID, fmt.Sprintf("Показаны %d из %d", maxListed, len(matched)))
		matched = matched[:maxListed]
	}
	for _, d := range matched {
		msg := tgbotapi.NewMessage(chatID, formatBooking(d))
		if kb, ok := bookingKeyboard(d); ok {
			msg.ReplyMarkup = kb
		}
		if _, err := b.tgService.Send(msg); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("booking_id", d.ID).Msg("send booking card")
		}
	}
}

func (b *Bot) handleExport(ctx context.Context, chatID int64) {
	bookings, err := b.bookingService.ListAll(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("list bookings for export")
		b.sendMessage(chatID, "Ошибка при выгрузке")
		return
	}
	stats, err := b.statsService.GetStats(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("stats for export")
		b.sendMessage(chatID, "Ошибка при выгрузке")
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, bookings, stats); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("build workbook")
		b.sendMessage(chatID, "Ошибка при выгрузке")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("bookings_%s.xlsx", b.now().Format("2006-01-02")),
		Bytes: buf.Bytes(),
	})
	doc.Caption = fmt.Sprintf("Бронирований: %d", len(bookings))
	if _, err := b.tgService.Send(doc); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("send export")
	}
}

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	action, bookingID, ok := strings.Cut(callback.Data, ":")
	if !ok || bookingID == "" {
		b.answerCallback(callback.ID, "")
		return
	}

	var target models.BookingStatus
	switch action {
	case actionApprove:
		target = models.StatusApproved
	case actionReject:
		target = models.StatusRejected
	case actionComplete:
		target = models.StatusCompleted
	default:
		b.answerCallback(callback.ID, "")
		return
	}

	updated, err := b.bookingService.SetStatus(ctx, bookingID, target)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("booking_id", bookingID).Str("status", string(target)).Msg("set status from bot")
		b.answerCallback(callback.ID, callbackError(err))
		return
	}
	b.answerCallback(callback.ID, "Статус: "+statusLabel(updated.Status))

	if callback.Message != nil {
		edit := tgbotapi.NewEditMessageText(callback.Message.Chat.ID, callback.Message.MessageID, formatBooking(updated))
		if kb, ok := bookingKeyboard(updated); ok {
			edit.ReplyMarkup = &kb
		}
		if _, err := b.tgService.Send(edit); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("edit booking card")
		}
	}
}

func (b *Bot) answerCallback(id, text string) {
	if _, err := b.tgService.Request(tgbotapi.NewCallback(id, text)); err != nil {
		b.logger.Error().Err(err).Msg("answer callback")
	}
}

func callbackError(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "Заявка не найдена"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "Недопустимый переход статуса"
	default:
		return "Ошибка, попробуйте позже"
	}
}

// bookingKeyboard offers the owner decisions still open for the booking.
func bookingKeyboard(d *models.BookingDetails) (tgbotapi.InlineKeyboardMarkup, bool) {
	switch d.Status {
	case models.StatusPending:
		return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Подтвердить", actionApprove+":"+d.ID),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отклонить", actionReject+":"+d.ID),
		)), true
	case models.StatusApproved:
		return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏁 Завершить", actionComplete+":"+d.ID),
		)), true
	default:
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
}
