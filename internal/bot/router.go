package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/intent-bot/internal/metrics"
	"github.com/xaenox/intent-bot/internal/models"
	"go.uber.org/zap"
)

// MentionQuery returns the text to classify for a message, and false when a
// group message does not address the bot. Group text has every occurrence of
// the handle removed and is trimmed; other chats pass through unchanged.
func MentionQuery(chatType, text, mention string) (string, bool) {
	if !isGroup(chatType) {
		return text, true
	}
	if mention == "" || !strings.Contains(text, mention) {
		return "", false
	}
	return strings.TrimSpace(strings.ReplaceAll(text, mention, "")), true
}

func isGroup(chatType string) bool {
	return chatType == "group" || chatType == "supergroup"
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) (bool, error) {
	chatID := message.Chat.ID
	text := message.Text

	b.logger.Info("Incoming message",
		zap.Int64("chat_id", chatID),
		zap.String("chat_type", message.Chat.Type),
		zap.String("text", text))

	query, ok := MentionQuery(message.Chat.Type, text, b.cfg.Mention)
	if !ok {
		return false, nil
	}

	response, err := b.classifier.Classify(ctx, query)
	if err != nil {
		return false, fmt.Errorf("classify message: %w", err)
	}
	b.logger.Info("Bot response",
		zap.Int64("chat_id", chatID),
		zap.String("response", response))

	if err := b.sendReply(message, response); err != nil {
		return false, err
	}

	if b.storage == nil {
		return true, nil
	}
	conv := &models.Conversation{
		UserID:    chatID,
		Username:  senderUsername(message),
		Message:   text,
		Timestamp: message.Time().UTC(),
	}
	if err := b.storage.SaveConversation(ctx, conv); err != nil {
		return true, fmt.Errorf("save conversation: %w", err)
	}
	metrics.ConversationsSaved.Inc()
	return true, nil
}

func senderUsername(message *tgbotapi.Message) string {
	if message.From == nil {
		return ""
	}
	return message.From.UserName
}
