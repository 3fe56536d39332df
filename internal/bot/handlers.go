package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/musclecards/internal/codec"
	"github.com/example/musclecards/internal/persistence"
	"github.com/example/musclecards/internal/session"
	"github.com/example/musclecards/internal/transport"
	"github.com/example/musclecards/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Constants for callback data. Cards are referenced by catalog index,
// ids may not fit Telegram's 64 byte callback data.
const (
	callbackReview = "review"
	callbackStats  = "stats"
	callbackShow   = "show"
	callbackRate   = "rate"

	examDateLayout = "2006-01-02"
)

// HandleCommand handles bot commands
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	var err error
	switch message.Command() {
	case "start":
		err = b.handleStart(message)
	case "help":
		err = b.handleHelp(message)
	case "review":
		err = b.handleReview(message.Chat.ID)
	case "stats":
		err = b.handleStats(ctx, message.Chat.ID)
	case "savecode":
		err = b.handleSaveCode(ctx, message)
	case "link":
		err = b.handleLink(ctx, message)
	case "resume":
		err = b.handleResume(ctx, message)
	case "exam":
		err = b.handleExam(ctx, message)
	case "name":
		err = b.handleName(ctx, message)
	case "theme":
		err = b.handleTheme(ctx, message)
	case "reset":
		err = b.handleReset(ctx, message)
	default:
		err = b.handleUnknownCommand(message)
	}
	return err
}

func (b *Bot) handleStart(message *tgbotapi.Message) error {
	text := "👋 Welcome to Muscle Cards!\n\n" +
		"Review anatomy cards on a spaced repetition schedule.\n\n" +
		"🔹 How it works:\n" +
		"1. Open a card with /review\n" +
		"2. Rate how well you remembered it\n" +
		"3. The card comes back when you are about to forget it"

	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ReplyMarkup = createKeyboard(b.MainMenuButtons())
	return b.sendMessage(msg)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) error {
	text := "📖 Commands\n\n" +
		"/review - Show the next due card\n" +
		"/stats - Show your progress\n\n" +
		"💾 Progress:\n" +
		"/savecode - Get a save code\n" +
		"/link - Get a share link\n" +
		"/resume <link|code> - Restore from a link or save code\n" +
		"/reset - Forget all progress\n\n" +
		"⚙️ Settings:\n" +
		"/exam YYYY-MM-DD|off - Set or clear the exam date\n" +
		"/name <text> - Set your display name\n" +
		"/theme <" + strings.Join(b.themes(), "|") + "> - Pick a theme"

	return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, text))
}

func (b *Bot) handleUnknownCommand(message *tgbotapi.Message) error {
	return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, "Unknown command. Use /help to see the commands."))
}

func (b *Bot) themes() []string {
	if b.config.Themes == nil {
		return transport.DefaultThemes
	}
	return b.config.Themes
}

func (b *Bot) handleReview(chatID int64) error {
	queue := b.session.DueQueue(1)
	if len(queue) == 0 {
		text := "🎉 Nothing is due right now."
		if next := b.session.Stats(b.now()).NextDueAt; !next.IsZero() {
			text += fmt.Sprintf("\nNext review: %s", next.Local().Format("2006-01-02 15:04"))
		}
		return b.sendMessage(tgbotapi.NewMessage(chatID, text))
	}

	card, _ := b.session.Catalog().Card(queue[0].CardID)
	if err := b.session.SetActive(card.ID); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, cardPrompt(card))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "👀 Show answer", CallbackData: b.showCallback(card.ID)}},
	})
	return b.sendMessage(msg)
}

func cardPrompt(card models.Card) string {
	prompt := card.Prompt
	if prompt == "" {
		prompt = card.ID
	}
	if card.Topic != "" {
		return fmt.Sprintf("📌 %s\n\n%s", card.Topic, prompt)
	}
	return prompt
}

func (b *Bot) cardRef(cardID string) string {
	index, _ := b.session.Catalog().IndexOf(cardID)
	return strconv.Itoa(index)
}

// cardByRef resolves the card index carried by callback data
func (b *Bot) cardByRef(ref string) (models.Card, bool) {
	index, err := strconv.Atoi(ref)
	if err != nil {
		return models.Card{}, false
	}
	cat := b.session.Catalog()
	id, ok := cat.IDAt(index)
	if !ok {
		return models.Card{}, false
	}
	return cat.Card(id)
}

func (b *Bot) showCallback(cardID string) string {
	return callbackShow + ":" + b.cardRef(cardID)
}

func (b *Bot) rateCallback(r models.Rating, cardID string) string {
	return callbackRate + ":" + r.String() + ":" + b.cardRef(cardID)
}

func (b *Bot) showAnswer(chatID int64, ref string) error {
	card, ok := b.cardByRef(ref)
	if !ok {
		return b.sendMessage(tgbotapi.NewMessage(chatID, "⚠️ This card is no longer in the catalog."))
	}

	answer := card.Answer
	if answer == "" {
		answer = card.ID
	}
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("%s\n\n✅ %s", cardPrompt(card), answer))
	msg.ReplyMarkup = b.ratingKeyboard(card.ID)
	return b.sendMessage(msg)
}

func (b *Bot) ratingKeyboard(cardID string) tgbotapi.InlineKeyboardMarkup {
	labels := map[models.Rating]string{
		models.RatingAgain: "🔁 Again",
		models.RatingHard:  "😓 Hard",
		models.RatingGood:  "🙂 Good",
		models.RatingEasy:  "😎 Easy",
	}
	row := make([]MenuButton, 0, len(models.Ratings))
	for _, r := range models.Ratings {
		row = append(row, MenuButton{Text: labels[r], CallbackData: b.rateCallback(r, cardID)})
	}
	return createKeyboard([][]MenuButton{row})
}

func (b *Bot) rate(ctx context.Context, chatID int64, ratingName, ref string) error {
	rating, err := models.ParseRating(ratingName)
	if err != nil {
		return b.sendMessage(tgbotapi.NewMessage(chatID, "⚠️ Unknown rating."))
	}
	card, ok := b.cardByRef(ref)
	if !ok {
		return b.sendMessage(tgbotapi.NewMessage(chatID, "⚠️ This card is no longer in the catalog."))
	}

	next, err := b.session.Answer(ctx, card.ID, rating)
	if errors.Is(err, session.ErrUnknownCard) {
		return b.sendMessage(tgbotapi.NewMessage(chatID, "⚠️ This card is no longer in the catalog."))
	}
	if err != nil {
		return err
	}

	text := fmt.Sprintf("Rated %s. Next review in %s.", rating, formatInterval(next.DueAt.Sub(b.now())))
	if perr := b.session.LastPersistError(); perr != nil {
		text += "\n⚠️ Progress could not be saved, it is kept in memory for now."
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "➡️ Next card", CallbackData: callbackReview}},
	})
	return b.sendMessage(msg)
}

func formatInterval(d time.Duration) string {
	switch {
	case d < time.Hour:
		minutes := int(d.Round(time.Minute) / time.Minute)
		if minutes < 1 {
			minutes = 1
		}
		return fmt.Sprintf("%d min", minutes)
	case d < 24*time.Hour:
		return fmt.Sprintf("%d h", int(d.Round(time.Hour)/time.Hour))
	default:
		days := int(d.Round(24*time.Hour) / (24 * time.Hour))
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
}

func (b *Bot) handleStats(ctx context.Context, chatID int64) error {
	stats := b.session.Stats(b.now())

	var sb strings.Builder
	sb.WriteString("📊 Your progress\n\n")
	fmt.Fprintf(&sb, "Cards: %d\n", stats.Total)
	for _, st := range []models.Status{models.StatusNew, models.StatusLearning, models.StatusReview, models.StatusMastered} {
		fmt.Fprintf(&sb, "• %s: %d\n", st, stats.ByStatus[st])
	}
	fmt.Fprintf(&sb, "Due now: %d\n", stats.Due)
	fmt.Fprintf(&sb, "Average ease: %.2f\n", stats.AverageEase)
	if !stats.NextDueAt.IsZero() {
		fmt.Fprintf(&sb, "Next review: %s\n", stats.NextDueAt.Local().Format("2006-01-02 15:04"))
	}
	if stats.DaysToDeadline >= 0 {
		fmt.Fprintf(&sb, "Days to exam: %d\n", stats.DaysToDeadline)
	}

	if b.history != nil {
		counts, err := b.history.CountByRating(ctx)
		if err != nil {
			b.logger.Warn("failed to load review history", zap.Error(err))
		} else {
			total := 0
			for _, n := range counts {
				total += n
			}
			fmt.Fprintf(&sb, "\nReviews: %d", total)
			for _, r := range models.Ratings {
				fmt.Fprintf(&sb, "\n• %s: %d", r, counts[r])
			}
		}
	}

	return b.sendMessage(tgbotapi.NewMessage(chatID, sb.String()))
}

func (b *Bot) metadata(ctx context.Context) (transport.Metadata, error) {
	p, err := b.profile.LoadProfile(ctx)
	if err != nil {
		return transport.Metadata{}, err
	}
	return transport.Metadata{
		CardID:      b.session.Active(),
		DisplayName: p.DisplayName,
		Theme:       p.Theme,
	}, nil
}

func (b *Bot) handleSaveCode(ctx context.Context, message *tgbotapi.Message) error {
	meta, err := b.metadata(ctx)
	if err != nil {
		return err
	}

	code, skipped := transport.BuildSaveCode(b.session.Snapshot(), b.session.Catalog(), meta)
	b.logSkipped(skipped)
	return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, "💾 Your save code:\n\n"+code))
}

func (b *Bot) handleLink(ctx context.Context, message *tgbotapi.Message) error {
	meta, err := b.metadata(ctx)
	if err != nil {
		return err
	}

	link, skipped, err := transport.BuildShareLink(b.session.Snapshot(), b.session.Catalog(), meta, b.config.ShareBaseURL)
	if err != nil {
		return err
	}
	b.logSkipped(skipped)
	return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, "🔗 Your link:\n\n"+link))
}

func (b *Bot) logSkipped(skipped []codec.Skip) {
	for _, s := range skipped {
		b.logger.Warn("state left out of export", zap.String("card", s.CardID), zap.Stringer("reason", s.Reason))
	}
}

func (b *Bot) handleResume(ctx context.Context, message *tgbotapi.Message) error {
	input := strings.TrimSpace(message.CommandArguments())
	if input == "" {
		return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, "Usage: /resume <link or save code>"))
	}

	res, err := b.resumer.Resume(input)
	var rerr *transport.ResumeError
	if errors.As(err, &rerr) {
		b.logger.Info("rejected resume input", zap.Error(err))
		return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, "❌ Could not restore: "+rerr.Kind.String()+"."))
	}
	if err != nil {
		return err
	}

	// settings are saved before progress is replaced, a failed save leaves everything as it was
	p, err := b.profile.LoadProfile(ctx)
	if err != nil {
		return err
	}
	if res.CardID != "" {
		p.ActiveCard = res.CardID
	}
	if res.DisplayName != "" {
		p.DisplayName = res.DisplayName
	}
	if res.Theme != "" {
		p.Theme = res.Theme
	}
	if err := b.profile.SaveProfile(ctx, p); err != nil {
		b.logger.Error("failed to save profile on resume", zap.Error(err))
		return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, "⚠️ Could not save your settings, nothing was restored."))
	}

	restored := 0
	if res.States != nil {
		dropped := b.session.Import(ctx, res.States)
		restored = len(res.States) - dropped
	}
	if res.CardID != "" {
		if err := b.session.SetActive(res.CardID); err != nil {
			return err
		}
	}

	text := fmt.Sprintf("✅ Restored %d cards.", restored)
	if n := len(res.Skipped); n > 0 {
		text += fmt.Sprintf(" %d entries could not be read and were ignored.", n)
	}
	if res.States != nil && b.session.LastPersistError() != nil {
		text += "\n⚠️ Progress could not be saved, it is kept in memory for now."
	}
	return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, text))
}

func (b *Bot) handleExam(ctx context.Context, message *tgbotapi.Message) error {
	arg := strings.TrimSpace(message.CommandArguments())

	var deadline *time.Time
	switch strings.ToLower(arg) {
	case "":
		if d := b.session.Deadline(); d != nil {
			return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, "📅 Exam date: "+d.Format(examDateLayout)))
		}
		return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, "No exam date set. Usage: /exam YYYY-MM-DD|off"))
	case "off":
	default:
		d, err := time.ParseInLocation(examDateLayout, arg, time.Local)
		if err != nil {
			return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, "⚠️ Use the format YYYY-MM-DD."))
		}
		if !d.After(b.now()) {
			return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, "⚠️ The exam date must be in the future."))
		}
		deadline = &d
	}

	err := b.updateProfile(ctx, func(p *persistence.Profile) { p.ExamDate = deadline })
	if err != nil {
		return err
	}
	b.session.SetDeadline(deadline)

	if deadline == nil {
		return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, "📅 Exam date cleared."))
	}
	return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, "📅 Exam date set to "+deadline.Format(examDateLayout)+"."))
}

func (b *Bot) handleName(ctx context.Context, message *tgbotapi.Message) error {
	name := strings.TrimSpace(message.CommandArguments())
	if name == "" {
		return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, "Usage: /name <text>"))
	}
	if err := b.updateProfile(ctx, func(p *persistence.Profile) { p.DisplayName = name }); err != nil {
		return err
	}
	return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, "👤 Name set to "+name+"."))
}

func (b *Bot) handleTheme(ctx context.Context, message *tgbotapi.Message) error {
	theme := strings.ToLower(strings.TrimSpace(message.CommandArguments()))
	known := false
	for _, t := range b.themes() {
		if t == theme {
			known = true
			break
		}
	}
	if !known {
		return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, "Usage: /theme <"+strings.Join(b.themes(), "|")+">"))
	}
	if err := b.updateProfile(ctx, func(p *persistence.Profile) { p.Theme = theme }); err != nil {
		return err
	}
	return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, "🎨 Theme set to "+theme+"."))
}

func (b *Bot) handleReset(ctx context.Context, message *tgbotapi.Message) error {
	if err := b.session.Reset(ctx); err != nil {
		b.logger.Error("failed to clear stored progress", zap.Error(err))
		return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, "⚠️ Progress was reset here but could not be removed from storage."))
	}
	if err := b.updateProfile(ctx, func(p *persistence.Profile) { p.ActiveCard = "" }); err != nil {
		return err
	}
	return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, "🧹 All progress has been reset."))
}

func (b *Bot) updateProfile(ctx context.Context, change func(*persistence.Profile)) error {
	p, err := b.profile.LoadProfile(ctx)
	if err != nil {
		return err
	}
	change(&p)
	return b.profile.SaveProfile(ctx, p)
}

// HandleCallback handles inline keyboard presses
func (b *Bot) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if callback == nil || callback.Message == nil || callback.Message.Chat == nil {
		return fmt.Errorf("invalid callback data: required fields are missing")
	}

	// Always send an answer to the callback query to remove the loading state
	b.answerCallback(callback.ID, "")

	chatID := callback.Message.Chat.ID
	parts := strings.SplitN(callback.Data, ":", 3)

	switch {
	case callback.Data == callbackReview:
		return b.handleReview(chatID)
	case callback.Data == callbackStats:
		return b.handleStats(ctx, chatID)
	case len(parts) == 2 && parts[0] == callbackShow:
		return b.showAnswer(chatID, parts[1])
	case len(parts) == 3 && parts[0] == callbackRate:
		return b.rate(ctx, chatID, parts[1], parts[2])
	default:
		return b.sendMessage(tgbotapi.NewMessage(chatID, "⚠️ Unknown action"))
	}
}
