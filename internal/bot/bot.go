package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/intent-bot/internal/classifier"
	"github.com/xaenox/intent-bot/internal/storage"
	"go.uber.org/zap"
)

const (
	startReply  = "Hello! I'm Supratim Nag."
	helpReply   = "I'm snsupratim! Ask me something."
	customReply = "Custom command.."
)

// API is the subset of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Config struct {
	// Mention is the handle that addresses the bot in group chats, e.g. "@mybot".
	Mention     string
	PollTimeout int
}

type Option func(*Bot)

// WithErrorObserver replaces the default log-only error observer.
func WithErrorObserver(observer ErrorObserver) Option {
	return func(b *Bot) {
		if observer != nil {
			b.onError = observer
		}
	}
}

type Bot struct {
	api        API
	cfg        Config
	classifier classifier.Classifier
	storage    storage.Storage
	onError    ErrorObserver
	logger     *zap.Logger
}

// New builds a bot. store may be nil, in which case nothing is persisted.
func New(api API, cfg Config, clf classifier.Classifier, store storage.Storage, logger *zap.Logger, opts ...Option) *Bot {
	b := &Bot{
		api:        api,
		cfg:        cfg,
		classifier: clf,
		storage:    store,
		onError:    LogErrors(logger),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Connect authenticates against the Telegram Bot API.
func Connect(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return api, nil
}

// Start long-polls for updates and handles them one at a time, in arrival
// order, until ctx is cancelled or the update channel closes.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.PollTimeout

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("Polling for updates", zap.Int("timeout", u.Timeout))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("Stopped polling for updates")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// handleUpdate reports whether the update got a reply.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) (bool, error) {
	message := update.Message
	if message == nil || message.Chat == nil || message.Text == "" {
		return false, nil
	}

	if message.IsCommand() {
		return b.handleCommand(message)
	}
	return b.handleMessage(ctx, message)
}

func (b *Bot) handleCommand(message *tgbotapi.Message) (bool, error) {
	var reply string
	switch message.Command() {
	case "start":
		reply = startReply
	case "help":
		reply = helpReply
	case "custom":
		reply = customReply
	default:
		b.logger.Debug("Ignoring unknown command",
			zap.String("command", message.Command()),
			zap.Int64("chat_id", message.Chat.ID))
		return false, nil
	}
	if err := b.sendMessage(message.Chat.ID, reply); err != nil {
		return false, err
	}
	return true, nil
}

func (b *Bot) sendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send message to chat %d: %w", chatID, err)
	}
	return nil
}

// sendReply answers message on its chat, quoting it only in group chats.
func (b *Bot) sendReply(message *tgbotapi.Message, text string) error {
	chatID := message.Chat.ID
	msg := tgbotapi.NewMessage(chatID, text)
	if isGroup(message.Chat.Type) {
		msg.ReplyToMessageID = message.MessageID
	}
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send reply to chat %d: %w", chatID, err)
	}
	return nil
}
