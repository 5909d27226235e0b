package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/intent-bot/internal/metrics"
	"go.uber.org/zap"
)

// ErrorObserver receives every error raised while handling an update.
type ErrorObserver func(update tgbotapi.Update, err error)

// LogErrors is the default observer: it logs and drops the update.
func LogErrors(logger *zap.Logger) ErrorObserver {
	return func(update tgbotapi.Update, err error) {
		fields := []zap.Field{
			zap.Error(err),
			zap.Int("update_id", update.UpdateID),
		}
		if update.Message != nil && update.Message.Chat != nil {
			fields = append(fields, zap.Int64("chat_id", update.Message.Chat.ID))
		}
		logger.Error("Update caused error", fields...)
	}
}

// HandleUpdate handles one update. Errors and panics go to the error
// observer; the caller always gets control back.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			metrics.UpdatesTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
			b.onError(update, fmt.Errorf("panic while handling update: %v", r))
		}
	}()

	handled, err := b.handleUpdate(ctx, update)
	switch {
	case err != nil:
		metrics.UpdatesTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		b.onError(update, err)
	case handled:
		metrics.UpdatesTotal.WithLabelValues(metrics.OutcomeHandled).Inc()
	default:
		metrics.UpdatesTotal.WithLabelValues(metrics.OutcomeIgnored).Inc()
	}
}
