package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	mock_bot "github.com/example/musclecards/internal/bot/mock"
	"github.com/example/musclecards/internal/persistence"
	"github.com/example/musclecards/internal/session"
	"github.com/example/musclecards/internal/spaced_repetition"
	"github.com/example/musclecards/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ownerID int64 = 4242

var testNow = time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

type fixture struct {
	bot     *Bot
	session *session.Session
	profile *mock_bot.MockProfileStore
	history *mock_bot.MockReviewHistory
	sent    []tgbotapi.MessageConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	cat, err := models.NewCatalog([]models.Card{
		{ID: "biceps", Prompt: "Main elbow flexor with two heads?", Answer: "Biceps brachii", Topic: "Upper limb"},
		{ID: "triceps", Prompt: "Elbow extensor?", Answer: "Triceps brachii", Topic: "Upper limb"},
		{ID: "deltoid", Prompt: "Shoulder abductor?", Answer: "Deltoid"},
	})
	require.NoError(t, err)

	sm := spaced_repetition.NewSM2()
	sm.Now = func() time.Time { return testNow }

	f := &fixture{
		session: session.New(cat, nil, session.WithScheduler(sm)),
		profile: mock_bot.NewMockProfileStore(ctrl),
		history: mock_bot.NewMockReviewHistory(ctrl),
	}

	sender := mock_bot.NewMockSender(ctrl)
	sender.EXPECT().Send(gomock.Any()).DoAndReturn(func(c tgbotapi.Chattable) (tgbotapi.Message, error) {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			f.sent = append(f.sent, msg)
		}
		return tgbotapi.Message{}, nil
	}).AnyTimes()
	sender.EXPECT().Request(gomock.Any()).Return(&tgbotapi.APIResponse{Ok: true}, nil).AnyTimes()

	cfg := DefaultConfig()
	cfg.OwnerChatID = ownerID
	f.bot = New(sender, f.session, f.profile, f.history, cfg, nil)
	f.bot.now = func() time.Time { return testNow }
	return f
}

func (f *fixture) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

func command(chatID int64, text string) tgbotapi.Update {
	cmdLen := strings.IndexByte(text, ' ')
	if cmdLen < 0 {
		cmdLen = len(text)
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		From:     &tgbotapi.User{ID: chatID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}}
}

func callback(chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: chatID},
		Data:    data,
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
	}}
}

func buttons(t *testing.T, msg tgbotapi.MessageConfig) []tgbotapi.InlineKeyboardButton {
	t.Helper()
	kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	var out []tgbotapi.InlineKeyboardButton
	for _, row := range kb.InlineKeyboard {
		out = append(out, row...)
	}
	return out
}

func TestBot_RejectsOtherChats(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.bot.HandleUpdate(ctx, command(1, "/review")))
	assert.Equal(t, "This bot is private.", f.last(t).Text)
	assert.Equal(t, int64(1), f.last(t).ChatID)

	require.NoError(t, f.bot.HandleUpdate(ctx, callback(1, "rate:good:0")))
	st, err := f.session.State("biceps")
	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, st.Status)
	assert.Equal(t, "", f.session.Active())
}

func TestBot_ReviewFlow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.bot.HandleUpdate(ctx, command(ownerID, "/review")))
	prompt := f.last(t)
	assert.Contains(t, prompt.Text, "Main elbow flexor")
	assert.NotContains(t, prompt.Text, "Biceps brachii")
	btns := buttons(t, prompt)
	require.Len(t, btns, 1)
	require.NotNil(t, btns[0].CallbackData)
	assert.Equal(t, "show:0", *btns[0].CallbackData)
	assert.Equal(t, "biceps", f.session.Active())

	require.NoError(t, f.bot.HandleUpdate(ctx, callback(ownerID, "show:0")))
	answer := f.last(t)
	assert.Contains(t, answer.Text, "Biceps brachii")
	btns = buttons(t, answer)
	require.Len(t, btns, 4)
	var data []string
	for _, b := range btns {
		data = append(data, *b.CallbackData)
	}
	assert.Equal(t, []string{"rate:again:0", "rate:hard:0", "rate:good:0", "rate:easy:0"}, data)

	require.NoError(t, f.bot.HandleUpdate(ctx, callback(ownerID, "rate:good:0")))
	assert.Equal(t, "Rated good. Next review in 1 day.", f.last(t).Text)

	st, err := f.session.State("biceps")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReview, st.Status)
	assert.Equal(t, 1, st.Streak)
	assert.Equal(t, testNow.Add(24*time.Hour), st.DueAt)

	require.NoError(t, f.bot.HandleUpdate(ctx, callback(ownerID, "review")))
	assert.Contains(t, f.last(t).Text, "Shoulder abductor?")
}

func TestBot_RateAgainShowsMinutes(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.bot.HandleUpdate(context.Background(), callback(ownerID, "rate:again:1")))
	assert.Equal(t, "Rated again. Next review in 1 min.", f.last(t).Text)
}

func TestBot_CallbackErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want string
	}{
		{name: "card index out of range", data: "rate:good:3", want: "no longer in the catalog"},
		{name: "negative card index", data: "rate:good:-1", want: "no longer in the catalog"},
		{name: "card id instead of index", data: "rate:good:biceps", want: "no longer in the catalog"},
		{name: "unknown rating", data: "rate:meh:0", want: "Unknown rating"},
		{name: "show unknown card", data: "show:7", want: "no longer in the catalog"},
		{name: "garbage", data: "whatever", want: "Unknown action"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			require.NoError(t, f.bot.HandleUpdate(context.Background(), callback(ownerID, tt.data)))
			assert.Contains(t, f.last(t).Text, tt.want)
		})
	}
}

func TestBot_CallbackDataFitsLongIDs(t *testing.T) {
	t.Parallel()

	longID := strings.Repeat("flexor-digitorum-superficialis-", 4)
	cat, err := models.NewCatalog([]models.Card{{ID: "biceps"}, {ID: longID, Answer: "FDS"}})
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	var sent []tgbotapi.MessageConfig
	sender := mock_bot.NewMockSender(ctrl)
	sender.EXPECT().Send(gomock.Any()).DoAndReturn(func(c tgbotapi.Chattable) (tgbotapi.Message, error) {
		sent = append(sent, c.(tgbotapi.MessageConfig))
		return tgbotapi.Message{}, nil
	}).AnyTimes()
	sender.EXPECT().Request(gomock.Any()).Return(&tgbotapi.APIResponse{Ok: true}, nil).AnyTimes()

	sm := spaced_repetition.NewSM2()
	sm.Now = func() time.Time { return testNow }
	sess := session.New(cat, nil, session.WithScheduler(sm))
	cfg := DefaultConfig()
	cfg.OwnerChatID = ownerID
	b := New(sender, sess, mock_bot.NewMockProfileStore(ctrl), nil, cfg, nil)
	b.now = func() time.Time { return testNow }

	ctx := context.Background()
	require.NoError(t, b.HandleUpdate(ctx, callback(ownerID, "show:1")))
	require.NotEmpty(t, sent)
	kb := buttons(t, sent[len(sent)-1])
	require.Len(t, kb, 4)
	for _, btn := range kb {
		require.NotNil(t, btn.CallbackData)
		assert.LessOrEqual(t, len(*btn.CallbackData), 64, *btn.CallbackData)
	}

	require.NoError(t, b.HandleUpdate(ctx, callback(ownerID, *kb[3].CallbackData)))
	st, err := sess.State(longID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Streak)
	assert.Equal(t, longID, sess.Active())
}

func TestBot_NothingDue(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	for _, id := range []string{"biceps", "triceps", "deltoid"} {
		_, err := f.session.Answer(ctx, id, models.RatingEasy)
		require.NoError(t, err)
	}

	require.NoError(t, f.bot.HandleUpdate(ctx, command(ownerID, "/review")))
	assert.Contains(t, f.last(t).Text, "Nothing is due right now.")
	assert.Contains(t, f.last(t).Text, "Next review:")
}

func TestBot_SaveCodeAndResume(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	src := newFixture(t)
	_, err := src.session.Answer(ctx, "biceps", models.RatingGood)
	require.NoError(t, err)
	_, err = src.session.Answer(ctx, "deltoid", models.RatingHard)
	require.NoError(t, err)
	src.profile.EXPECT().LoadProfile(gomock.Any()).Return(persistence.Profile{DisplayName: "Ana", Theme: "dark"}, nil)

	require.NoError(t, src.bot.HandleUpdate(ctx, command(ownerID, "/savecode")))
	text := src.last(t).Text
	idx := strings.LastIndex(text, "\n")
	require.Positive(t, idx)
	code := text[idx+1:]

	dst := newFixture(t)
	dst.profile.EXPECT().LoadProfile(gomock.Any()).Return(persistence.Profile{}, nil)
	dst.profile.EXPECT().SaveProfile(gomock.Any(), persistence.Profile{
		DisplayName: "Ana",
		Theme:       "dark",
		ActiveCard:  "deltoid",
	}).Return(nil)

	require.NoError(t, dst.bot.HandleUpdate(ctx, command(ownerID, "/resume "+code)))
	assert.Equal(t, "✅ Restored 2 cards.", dst.last(t).Text)
	want, got := src.session.Snapshot(), dst.session.Snapshot()
	require.Len(t, got, len(want))
	for id, w := range want {
		g, ok := got[id]
		require.True(t, ok, id)
		assert.Equal(t, w.Status, g.Status, id)
		assert.Equal(t, w.Streak, g.Streak, id)
		assert.Equal(t, w.IntervalDays, g.IntervalDays, id)
		assert.InDelta(t, w.EaseFactor, g.EaseFactor, 0.005, id)
		assert.True(t, w.DueAt.Equal(g.DueAt), id)
	}
	assert.Equal(t, "deltoid", dst.session.Active())
}

func TestBot_Link(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.profile.EXPECT().LoadProfile(gomock.Any()).Return(persistence.Profile{Theme: "anatomy"}, nil)

	require.NoError(t, f.bot.HandleUpdate(context.Background(), command(ownerID, "/link")))
	text := f.last(t).Text
	assert.Contains(t, text, "https://musclecards.app/?")
	assert.Contains(t, text, "theme=anatomy")
	assert.Contains(t, text, "cv=")
}

func TestBot_ResumeRejected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "no argument", input: "/resume", want: "Usage: /resume"},
		{name: "garbage code", input: "/resume %%%", want: "Could not restore: malformed save code."},
		{name: "unknown theme", input: "/resume ?theme=neon", want: "Could not restore: unknown theme."},
		{name: "unknown card", input: "/resume ?card=gluteus", want: "Could not restore: unknown card."},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			require.NoError(t, f.bot.HandleUpdate(context.Background(), command(ownerID, tt.input)))
			assert.Contains(t, f.last(t).Text, tt.want)
			assert.Empty(t, f.session.Snapshot())
		})
	}
}

func TestBot_ResumeProfileSaveFails(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	src := newFixture(t)
	_, err := src.session.Answer(ctx, "triceps", models.RatingGood)
	require.NoError(t, err)
	src.profile.EXPECT().LoadProfile(gomock.Any()).Return(persistence.Profile{Theme: "dark"}, nil)
	require.NoError(t, src.bot.HandleUpdate(ctx, command(ownerID, "/savecode")))
	text := src.last(t).Text
	code := text[strings.LastIndex(text, "\n")+1:]

	dst := newFixture(t)
	dst.profile.EXPECT().LoadProfile(gomock.Any()).Return(persistence.Profile{}, nil)
	dst.profile.EXPECT().SaveProfile(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	require.NoError(t, dst.bot.HandleUpdate(ctx, command(ownerID, "/resume "+code)))
	assert.Equal(t, "⚠️ Could not save your settings, nothing was restored.", dst.last(t).Text)
	assert.Empty(t, dst.session.Snapshot())
	assert.Equal(t, "", dst.session.Active())
}

func TestBot_Exam(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	exam := time.Date(2026, 5, 1, 0, 0, 0, 0, time.Local)
	f.profile.EXPECT().LoadProfile(gomock.Any()).Return(persistence.Profile{}, nil)
	f.profile.EXPECT().SaveProfile(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, p persistence.Profile) error {
		if p.ExamDate == nil || !p.ExamDate.Equal(exam) {
			return errors.New("unexpected exam date")
		}
		return nil
	})
	require.NoError(t, f.bot.HandleUpdate(ctx, command(ownerID, "/exam 2026-05-01")))
	assert.Equal(t, "📅 Exam date set to 2026-05-01.", f.last(t).Text)
	require.NotNil(t, f.session.Deadline())
	assert.True(t, f.session.Deadline().Equal(exam))

	require.NoError(t, f.bot.HandleUpdate(ctx, command(ownerID, "/exam")))
	assert.Equal(t, "📅 Exam date: 2026-05-01", f.last(t).Text)

	require.NoError(t, f.bot.HandleUpdate(ctx, command(ownerID, "/exam tomorrow")))
	assert.Contains(t, f.last(t).Text, "YYYY-MM-DD")

	require.NoError(t, f.bot.HandleUpdate(ctx, command(ownerID, "/exam 2020-01-01")))
	assert.Contains(t, f.last(t).Text, "must be in the future")

	f.profile.EXPECT().LoadProfile(gomock.Any()).Return(persistence.Profile{ExamDate: &exam}, nil)
	f.profile.EXPECT().SaveProfile(gomock.Any(), persistence.Profile{}).Return(nil)
	require.NoError(t, f.bot.HandleUpdate(ctx, command(ownerID, "/exam off")))
	assert.Equal(t, "📅 Exam date cleared.", f.last(t).Text)
	assert.Nil(t, f.session.Deadline())
}

func TestBot_NameAndTheme(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	f.profile.EXPECT().LoadProfile(gomock.Any()).Return(persistence.Profile{Theme: "light"}, nil)
	f.profile.EXPECT().SaveProfile(gomock.Any(), persistence.Profile{DisplayName: "Ana Lopez", Theme: "light"}).Return(nil)
	require.NoError(t, f.bot.HandleUpdate(ctx, command(ownerID, "/name  Ana Lopez ")))
	assert.Equal(t, "👤 Name set to Ana Lopez.", f.last(t).Text)

	require.NoError(t, f.bot.HandleUpdate(ctx, command(ownerID, "/theme neon")))
	assert.Contains(t, f.last(t).Text, "Usage: /theme <light|dark|anatomy|contrast>")

	f.profile.EXPECT().LoadProfile(gomock.Any()).Return(persistence.Profile{DisplayName: "Ana Lopez"}, nil)
	f.profile.EXPECT().SaveProfile(gomock.Any(), persistence.Profile{DisplayName: "Ana Lopez", Theme: "contrast"}).Return(nil)
	require.NoError(t, f.bot.HandleUpdate(ctx, command(ownerID, "/theme Contrast")))
	assert.Equal(t, "🎨 Theme set to contrast.", f.last(t).Text)
}

func TestBot_ProfileStoreError(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.profile.EXPECT().LoadProfile(gomock.Any()).Return(persistence.Profile{}, errors.New("disk full"))

	err := f.bot.HandleUpdate(context.Background(), command(ownerID, "/name Ana"))
	require.Error(t, err)
}

func TestBot_Reset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	_, err := f.session.Answer(ctx, "biceps", models.RatingGood)
	require.NoError(t, err)

	f.profile.EXPECT().LoadProfile(gomock.Any()).Return(persistence.Profile{ActiveCard: "biceps", Theme: "dark"}, nil)
	f.profile.EXPECT().SaveProfile(gomock.Any(), persistence.Profile{Theme: "dark"}).Return(nil)

	require.NoError(t, f.bot.HandleUpdate(ctx, command(ownerID, "/reset")))
	assert.Equal(t, "🧹 All progress has been reset.", f.last(t).Text)
	assert.Empty(t, f.session.Snapshot())
	assert.Equal(t, "", f.session.Active())
}

func TestBot_Stats(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	_, err := f.session.Answer(ctx, "biceps", models.RatingGood)
	require.NoError(t, err)
	f.history.EXPECT().CountByRating(gomock.Any()).Return(map[models.Rating]int{
		models.RatingGood:  2,
		models.RatingAgain: 1,
	}, nil)

	require.NoError(t, f.bot.HandleUpdate(ctx, command(ownerID, "/stats")))
	text := f.last(t).Text
	assert.Contains(t, text, "Cards: 3")
	assert.Contains(t, text, "• NEW: 2")
	assert.Contains(t, text, "• REVIEW: 1")
	assert.Contains(t, text, "Due now: 2")
	assert.Contains(t, text, "Reviews: 3")
	assert.Contains(t, text, "• again: 1")
}

func TestBot_StatsHistoryError(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.history.EXPECT().CountByRating(gomock.Any()).Return(nil, errors.New("db locked"))

	require.NoError(t, f.bot.HandleUpdate(context.Background(), callback(ownerID, "stats")))
	text := f.last(t).Text
	assert.Contains(t, text, "Cards: 3")
	assert.NotContains(t, text, "Reviews:")
}

func TestBot_SendReminder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.bot.SendReminder(context.Background(), 1))
	msg := f.last(t)
	assert.Equal(t, ownerID, msg.ChatID)
	assert.Equal(t, "You have 1 card due for review.", msg.Text)
	btns := buttons(t, msg)
	require.Len(t, btns, 1)
	assert.Equal(t, callbackReview, *btns[0].CallbackData)

	require.NoError(t, f.bot.SendReminder(context.Background(), 5))
	assert.Equal(t, "You have 5 cards due for review.", f.last(t).Text)
}

func TestBot_SendReminderError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	sender := mock_bot.NewMockSender(ctrl)
	sender.EXPECT().Send(gomock.Any()).Return(tgbotapi.Message{}, errors.New("forbidden"))

	cat, err := models.CatalogFromIDs("biceps")
	require.NoError(t, err)
	b := New(sender, session.New(cat, nil), mock_bot.NewMockProfileStore(ctrl), nil, nil, nil)

	require.Error(t, b.SendReminder(context.Background(), 3))
}

func TestBot_Run(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	updates := make(chan tgbotapi.Update, 2)
	updates <- command(ownerID, "/help")
	updates <- command(ownerID, "/nope")
	close(updates)

	require.NoError(t, f.bot.Run(context.Background(), updates))
	require.Len(t, f.sent, 2)
	assert.Contains(t, f.sent[0].Text, "/savecode")
	assert.Equal(t, "Unknown command. Use /help to see the commands.", f.sent[1].Text)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, f.bot.Run(ctx, make(chan tgbotapi.Update)))
}

func TestFormatInterval(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1 min", formatInterval(10*time.Second))
	assert.Equal(t, "45 min", formatInterval(45*time.Minute))
	assert.Equal(t, "3 h", formatInterval(3*time.Hour))
	assert.Equal(t, "1 day", formatInterval(24*time.Hour))
	assert.Equal(t, "6 days", formatInterval(6*24*time.Hour))
}
