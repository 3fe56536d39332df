package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/musclecards/internal/persistence"
	"github.com/example/musclecards/internal/session"
	"github.com/example/musclecards/internal/transport"
	"github.com/example/musclecards/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

//go:generate mockgen -source=bot.go -destination=mock/bot_mock.go

// Sender is the part of tgbotapi.BotAPI the bot talks through
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// ProfileStore keeps the learner settings. persistence.Gateway implements it.
type ProfileStore interface {
	LoadProfile(ctx context.Context) (persistence.Profile, error)
	SaveProfile(ctx context.Context, p persistence.Profile) error
}

// ReviewHistory answers questions about past reviews. database.ReviewLogRepository implements it.
type ReviewHistory interface {
	CountByRating(ctx context.Context) (map[models.Rating]int, error)
}

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// Bot represents the Telegram front end of a single learner
type Bot struct {
	api     Sender
	session *session.Session
	profile ProfileStore
	history ReviewHistory
	resumer transport.Resumer
	config  *BotConfig
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a new bot instance. history may be nil.
func New(api Sender, sess *session.Session, profile ProfileStore, history ReviewHistory, config *BotConfig, logger *zap.Logger) *Bot {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		api:     api,
		session: sess,
		profile: profile,
		history: history,
		resumer: transport.Resumer{Catalog: sess.Catalog(), Themes: config.Themes},
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
}

// NewBotAPI authorizes against Telegram with token
func NewBotAPI(token string, debug bool) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, errors.New("telegram token is not set")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	api.Debug = debug
	return api, nil
}

// Run handles updates one at a time until ctx is done or the channel closes
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	b.logger.Info("bot started", zap.Int64("owner", b.config.OwnerChatID))
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := b.HandleUpdate(ctx, update); err != nil {
				b.logger.Error("failed to handle update", zap.Int("update_id", update.UpdateID), zap.Error(err))
			}
		}
	}
}

// HandleUpdate dispatches one update from Telegram
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	switch {
	case update.Message != nil:
		if !b.isOwner(update.Message.Chat) {
			return b.sendMessage(tgbotapi.NewMessage(update.Message.Chat.ID, "This bot is private."))
		}
		if update.Message.IsCommand() {
			return b.HandleCommand(ctx, update.Message)
		}
		return b.sendMessage(tgbotapi.NewMessage(update.Message.Chat.ID, "Unknown input. Use /help to see the commands."))
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		if cb.Message == nil || !b.isOwner(cb.Message.Chat) {
			b.logger.Warn("callback from foreign chat", zap.String("callback", cb.ID))
			b.answerCallback(cb.ID, "This bot is private.")
			return nil
		}
		return b.HandleCallback(ctx, cb)
	}
	return nil
}

func (b *Bot) isOwner(chat *tgbotapi.Chat) bool {
	return chat != nil && chat.ID == b.config.OwnerChatID
}

// SendReminder implements the scheduler.Notifier interface
func (b *Bot) SendReminder(ctx context.Context, count int) error {
	cardForm := "cards"
	if count == 1 {
		cardForm = "card"
	}

	msg := tgbotapi.NewMessage(b.config.OwnerChatID, fmt.Sprintf("You have %d %s due for review.", count, cardForm))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{{{Text: "Review now", CallbackData: callbackReview}}})
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}
	return nil
}

func (b *Bot) sendMessage(msg tgbotapi.Chattable) error {
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (b *Bot) answerCallback(id, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		b.logger.Warn("failed to answer callback", zap.String("callback", id), zap.Error(err))
	}
}

// MainMenuButtons returns the buttons for the main menu
func (b *Bot) MainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{
			{Text: "📚 Review", CallbackData: callbackReview},
			{Text: "📊 Statistics", CallbackData: callbackStats},
		},
	}
}
