package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "leafscan/internal/application"
	"leafscan/internal/domain/entity"
	"leafscan/internal/infrastructure/storage"
)

type fakeAPI struct {
	mu      sync.Mutex
	sent    []tgbotapi.Chattable
	updates chan tgbotapi.Update
	stopped bool
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) GetFile(config tgbotapi.FileConfig) (tgbotapi.File, error) {
	return tgbotapi.File{FileID: config.FileID, FilePath: "photos/" + config.FileID}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeAPI) photos() []tgbotapi.PhotoConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.PhotoConfig
	for _, c := range f.sent {
		if p, ok := c.(tgbotapi.PhotoConfig); ok {
			out = append(out, p)
		}
	}
	return out
}

type fakeInspector struct {
	out  *app.InspectionOutput
	err  error
	seen []byte
}

func (i *fakeInspector) Analyze(ctx context.Context, imageData []byte) (*app.InspectionOutput, error) {
	i.seen = imageData
	return i.out, i.err
}

func newTestBot(t *testing.T, inspector Inspector) (*Bot, *fakeAPI, *app.UserService) {
	t.Helper()

	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/photos/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("image-bytes"))
	}))
	t.Cleanup(files.Close)

	log, _ := test.NewNullLogger()
	api := &fakeAPI{updates: make(chan tgbotapi.Update)}
	users := app.NewUserService(storage.NewMemoryUserRepository())

	bot := newBot(api, "token", users, inspector, log)
	bot.client = files.Client()
	bot.fileURL = func(f tgbotapi.File) string { return files.URL + "/" + f.FilePath }

	return bot, api, users
}

func command(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From:     &tgbotapi.User{ID: 7},
		Chat:     &tgbotapi.Chat{ID: 70},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}
}

func photo(fileID string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: 7},
		Chat: &tgbotapi.Chat{ID: 70},
		Photo: []tgbotapi.PhotoSize{
			{FileID: "small", Width: 90, Height: 90},
			{FileID: fileID, Width: 800, Height: 800},
		},
	}
}

func TestBot_Commands(t *testing.T) {
	bot, api, users := newTestBot(t, &fakeInspector{})
	ctx := context.Background()

	bot.handleMessage(ctx, command("/check"))
	user, err := users.Get(ctx, 7, 70)
	require.NoError(t, err)
	assert.Equal(t, entity.StateAwaitingPhoto, user.State)

	bot.handleMessage(ctx, command("/cancel"))
	user, err = users.Get(ctx, 7, 70)
	require.NoError(t, err)
	assert.Equal(t, entity.StateMainMenu, user.State)

	bot.handleMessage(ctx, command("/help"))
	bot.handleMessage(ctx, command("/unknown"))

	assert.Equal(t, []string{msgAwaitingPhoto, msgCancelled, msgHelp, msgUnknownCommand}, api.texts())
}

func TestBot_TextWithoutPhoto(t *testing.T) {
	bot, api, _ := newTestBot(t, &fakeInspector{})

	bot.handleMessage(context.Background(), &tgbotapi.Message{
		From: &tgbotapi.User{ID: 7},
		Chat: &tgbotapi.Chat{ID: 70},
		Text: "hello",
	})

	assert.Equal(t, []string{msgSendPhoto}, api.texts())
}

func TestBot_PhotoWithDetections(t *testing.T) {
	inspector := &fakeInspector{out: &app.InspectionOutput{
		Result: entity.NewInspectionResult(100, 100, []entity.Detection{
			{Disease: "Brown Spot", Confidence: 0.9, Severity: entity.SeverityLow},
		}),
		Annotated:   []byte("jpeg"),
		RecordID:    "rec-1",
		Description: &entity.AiDescription{Text: "Remove infected leaves."},
	}}
	bot, api, users := newTestBot(t, inspector)
	ctx := context.Background()

	bot.handleMessage(ctx, photo("big"))

	assert.Equal(t, []byte("image-bytes"), inspector.seen)
	assert.Equal(t, []string{msgProcessing}, api.texts())

	photos := api.photos()
	require.Len(t, photos, 1)
	assert.Contains(t, photos[0].Caption, "Disease: Brown Spot")
	assert.Contains(t, photos[0].Caption, "Confidence: 90.00%")
	assert.Contains(t, photos[0].Caption, "Remove infected leaves.")
	assert.Contains(t, photos[0].Caption, "Record ID: rec-1")

	user, err := users.Get(ctx, 7, 70)
	require.NoError(t, err)
	assert.Equal(t, entity.StateMainMenu, user.State)
	assert.Equal(t, "rec-1", user.LastRecordID)
}

func TestBot_PhotoWithoutDetections(t *testing.T) {
	inspector := &fakeInspector{out: &app.InspectionOutput{
		Result: entity.NewInspectionResult(100, 100, nil),
	}}
	bot, api, _ := newTestBot(t, inspector)

	bot.handleMessage(context.Background(), photo("big"))

	assert.Equal(t, []string{msgProcessing, msgNoDiseases}, api.texts())
	assert.Empty(t, api.photos())
}

func TestBot_PhotoErrors(t *testing.T) {
	t.Run("analyze fails", func(t *testing.T) {
		bot, api, users := newTestBot(t, &fakeInspector{err: errors.New("boom")})
		ctx := context.Background()

		bot.handleMessage(ctx, photo("big"))

		assert.Equal(t, []string{msgProcessing, msgProcessingError}, api.texts())
		user, err := users.Get(ctx, 7, 70)
		require.NoError(t, err)
		assert.False(t, user.IsBusy())
	})

	t.Run("download fails", func(t *testing.T) {
		inspector := &fakeInspector{}
		bot, api, _ := newTestBot(t, inspector)

		bot.handleMessage(context.Background(), photo("missing"))

		assert.Equal(t, []string{msgProcessing, msgProcessingError}, api.texts())
		assert.Nil(t, inspector.seen)
	})

	t.Run("user busy", func(t *testing.T) {
		bot, api, users := newTestBot(t, &fakeInspector{})
		ctx := context.Background()
		_, err := users.StartProcessing(ctx, 7, 70)
		require.NoError(t, err)

		bot.handleMessage(ctx, photo("big"))

		assert.Equal(t, []string{msgBusy}, api.texts())
	})
}

func TestImageFileID(t *testing.T) {
	id, ok := imageFileID(photo("big"))
	assert.True(t, ok)
	assert.Equal(t, "big", id)

	id, ok = imageFileID(&tgbotapi.Message{Document: &tgbotapi.Document{FileID: "doc", MimeType: "image/png"}})
	assert.True(t, ok)
	assert.Equal(t, "doc", id)

	_, ok = imageFileID(&tgbotapi.Message{Document: &tgbotapi.Document{FileID: "pdf", MimeType: "application/pdf"}})
	assert.False(t, ok)
}

func TestBot_RunStopsOnCancel(t *testing.T) {
	bot, api, _ := newTestBot(t, &fakeInspector{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx) }()

	api.updates <- tgbotapi.Update{Message: command("/help")}
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("bot did not stop")
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.True(t, api.stopped)
	assert.Len(t, api.sent, 1)
}
