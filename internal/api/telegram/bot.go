package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	app "leafscan/internal/application"
)

const (
	msgStart = `🌾 Hi! I detect rice leaf diseases on photos.

📸 Send me a photo of a rice leaf and I will mark the affected areas.

📋 Commands:
/check — start a check
/help — help
/cancel — cancel the current operation`

	msgHelp = `ℹ️ How to use the bot:

1️⃣ Send a photo of a rice leaf
2️⃣ The bot analyses the image
3️⃣ You get the photo with marked areas and a list of diseases

💡 Tips:
• Shoot in good light
• Keep one leaf in frame
• The photo should be sharp`

	msgAwaitingPhoto   = "📸 Send a photo of a rice leaf to check it for diseases."
	msgCancelled       = "❌ Cancelled. Send /check to start a new check."
	msgSendPhoto       = "📸 Please send a photo of a rice leaf."
	msgUnknownCommand  = "❓ Unknown command. Use /help."
	msgProcessing      = "⏳ Analysing image..."
	msgBusy            = "⏳ Still analysing your previous photo, please wait."
	msgNoDiseases      = "✅ No diseases detected in the image."
	msgProcessingError = "⚠️ Could not process the image. Try another photo."

	// captionLimit ограничение Telegram на подпись к фото
	captionLimit = 1024
	// maxDownloadBytes ограничение на размер скачиваемого файла
	maxDownloadBytes = 20 << 20
)

// botAPI часть tgbotapi.BotAPI, которой пользуется бот
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFile(config tgbotapi.FileConfig) (tgbotapi.File, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Inspector то, что боту нужно от сервиса проверок
type Inspector interface {
	Analyze(ctx context.Context, imageData []byte) (*app.InspectionOutput, error)
}

// Bot представляет Telegram-бота
type Bot struct {
	api       botAPI
	users     *app.UserService
	inspector Inspector
	log       logrus.FieldLogger
	client    *http.Client
	fileURL   func(tgbotapi.File) string
}

// NewBot создаёт нового бота
func NewBot(token string, users *app.UserService, inspector Inspector, log logrus.FieldLogger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.WithField("account", api.Self.UserName).Info("telegram bot authorized")

	return newBot(api, token, users, inspector, log), nil
}

func newBot(api botAPI, token string, users *app.UserService, inspector Inspector, log logrus.FieldLogger) *Bot {
	return &Bot{
		api:       api,
		users:     users,
		inspector: inspector,
		log:       log,
		client:    http.DefaultClient,
		fileURL:   func(f tgbotapi.File) string { return f.Link(token) },
	}
}

// Run запускает основной цикл обработки сообщений до отмены ctx
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	// Обработка команд
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	// Фото или картинка, присланная файлом
	if fileID, ok := imageFileID(msg); ok {
		b.handlePhoto(ctx, msg, fileID)
		return
	}

	b.sendMessage(msg.Chat.ID, msgSendPhoto)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	var (
		reply string
		err   error
	)

	switch msg.Command() {
	case "start":
		_, err = b.users.Cancel(ctx, msg.From.ID, msg.Chat.ID)
		reply = msgStart
	case "help":
		reply = msgHelp
	case "check":
		_, err = b.users.BeginCheck(ctx, msg.From.ID, msg.Chat.ID)
		reply = msgAwaitingPhoto
	case "cancel":
		_, err = b.users.Cancel(ctx, msg.From.ID, msg.Chat.ID)
		reply = msgCancelled
	default:
		reply = msgUnknownCommand
	}

	if err != nil {
		b.log.WithError(err).WithField("user_id", msg.From.ID).Error("update user state failed")
	}
	b.sendMessage(msg.Chat.ID, reply)
}

// handlePhoto скачивает фото, запускает анализ и отвечает результатом
func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message, fileID string) {
	log := b.log.WithFields(logrus.Fields{"user_id": msg.From.ID, "chat_id": msg.Chat.ID})

	if _, err := b.users.StartProcessing(ctx, msg.From.ID, msg.Chat.ID); err != nil {
		if errors.Is(err, app.ErrUserBusy) {
			b.sendMessage(msg.Chat.ID, msgBusy)
			return
		}
		log.WithError(err).Error("start processing failed")
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	recordID := ""
	defer func() {
		if _, err := b.users.FinishProcessing(ctx, msg.From.ID, msg.Chat.ID, recordID); err != nil {
			log.WithError(err).Error("finish processing failed")
		}
	}()

	b.sendMessage(msg.Chat.ID, msgProcessing)

	imageData, err := b.downloadFile(ctx, fileID)
	if err != nil {
		log.WithError(err).Error("download photo failed")
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	out, err := b.inspector.Analyze(ctx, imageData)
	if err != nil {
		log.WithError(err).Warn("analyse photo failed")
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}
	recordID = out.RecordID

	if !out.Result.HasDetections {
		b.sendMessage(msg.Chat.ID, msgNoDiseases)
		return
	}

	b.sendResult(msg.Chat.ID, out)
}

// sendResult отправляет фото с рамками и отчёт
func (b *Bot) sendResult(chatID int64, out *app.InspectionOutput) {
	text := FormatReport(out)

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "result.jpg", Bytes: out.Annotated})
	if len([]rune(text)) <= captionLimit {
		photo.Caption = text
		text = ""
	}
	if _, err := b.api.Send(photo); err != nil {
		b.log.WithError(err).Error("send photo failed")
	}

	if text != "" {
		b.sendMessage(chatID, text)
	}
}

// FormatReport текст ответа: находки, рекомендации и ID записи.
func FormatReport(out *app.InspectionOutput) string {
	var b strings.Builder
	b.WriteString("Analysis Complete!\n\nDetected Diseases:\n")
	b.WriteString(app.Summary(out.Result.Detections))

	if out.Description != nil && out.Description.Text != "" {
		b.WriteString("\nRecommendations:\n")
		b.WriteString(out.Description.Text)
		b.WriteString("\n")
	}
	if out.RecordID != "" {
		fmt.Fprintf(&b, "\nRecord ID: %s", out.RecordID)
	}
	return strings.TrimRight(b.String(), "\n")
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.fileURL(file), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.WithError(err).WithField("chat_id", chatID).Error("send message failed")
	}
}

// imageFileID возвращает фото максимального размера или картинку-документ
func imageFileID(msg *tgbotapi.Message) (string, bool) {
	if len(msg.Photo) > 0 {
		return msg.Photo[len(msg.Photo)-1].FileID, true
	}
	if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/") {
		return msg.Document.FileID, true
	}
	return "", false
}

var _ Inspector = (*app.InspectionService)(nil)
