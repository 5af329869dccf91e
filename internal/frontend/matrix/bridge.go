// ABOUTME: Matrix frontend for triad-bot
// ABOUTME: Handles Matrix sync, message routing to the conversation service, and replies

package matrix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/zokz/triad-bot/internal/conversation"
	"github.com/zokz/triad-bot/internal/format"
)

// Conversation is the orchestration surface the bridge drives. Satisfied by
// *conversation.Service.
type Conversation interface {
	HandleText(ctx context.Context, userID, text string) []string
	HandleImage(ctx context.Context, userID string, image []byte, caption string) ([]string, error)
	Reset(userID string)
}

// Config holds the Matrix connection and filtering settings.
type Config struct {
	Homeserver      string
	UserID          string
	AccessToken     string
	AllowedUsers    []string
	AllowedRooms    []string
	CommandPrefix   string
	TypingIndicator bool

	// MaxImageSize bounds accepted attachments in bytes. Events declaring a
	// larger size are rejected before the download.
	MaxImageSize int64
}

// Bridge connects a Matrix homeserver to the conversation service.
type Bridge struct {
	config Config
	matrix *mautrix.Client
	conv   Conversation
	logger *slog.Logger

	// Track users we're actively processing to avoid duplicate handling
	processing sync.Map

	// ctx is the parent context for message processing goroutines
	ctx    context.Context
	cancel context.CancelFunc
}

// NewBridge creates a new Matrix bridge.
func NewBridge(cfg Config, conv Conversation, logger *slog.Logger) (*Bridge, error) {
	client, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}

	return &Bridge{
		config: cfg,
		matrix: client,
		conv:   conv,
		logger: logger.With("component", "matrix"),
	}, nil
}

// Run starts the bridge and blocks until context is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	b.logger.Info("starting matrix bridge",
		"homeserver", b.config.Homeserver,
		"user_id", b.config.UserID,
	)

	// Store context for message processing goroutines
	b.ctx, b.cancel = context.WithCancel(ctx)
	defer b.cancel()

	syncer, ok := b.matrix.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("unexpected syncer type: %T", b.matrix.Syncer)
	}
	syncer.OnEventType(event.EventMessage, b.handleMessageEvent)

	b.logger.Info("connecting to matrix homeserver")

	syncErr := make(chan error, 1)
	go func() {
		syncErr <- b.matrix.SyncWithContext(b.ctx)
	}()

	b.logger.Info("matrix bridge running")

	select {
	case <-ctx.Done():
		b.logger.Info("shutting down matrix bridge")
		b.cancel()
		return nil
	case err := <-syncErr:
		return fmt.Errorf("matrix sync failed: %w", err)
	}
}

// handleMessageEvent processes incoming Matrix messages.
func (b *Bridge) handleMessageEvent(ctx context.Context, evt *event.Event) {
	// Ignore our own messages
	if evt.Sender == id.UserID(b.config.UserID) {
		return
	}

	content, ok := evt.Content.Parsed.(*event.MessageEventContent)
	if !ok {
		return
	}

	sender := evt.Sender.String()
	roomID := evt.RoomID.String()

	if !allowed(b.config.AllowedRooms, roomID) {
		b.logger.Debug("ignoring message from non-allowed room", "room", roomID)
		return
	}
	if !allowed(b.config.AllowedUsers, sender) {
		b.logger.Debug("ignoring message from non-allowed user", "sender", sender)
		return
	}

	switch content.MsgType {
	case event.MsgText:
		body := strings.TrimSpace(content.Body)
		if body == "" {
			return
		}
		if cmd, ok := parseCommand(body, b.config.CommandPrefix); ok {
			go b.processCommand(b.ctx, evt.RoomID, sender, cmd)
			return
		}
		b.logger.Info("received message",
			"room", roomID,
			"sender", sender,
			"content", format.Truncate(body, 50),
		)
		// Process in a goroutine to not block sync
		go b.processText(b.ctx, evt.RoomID, sender, body)

	case event.MsgImage:
		b.logger.Info("received image",
			"room", roomID,
			"sender", sender,
			"size", imageSize(content),
		)
		go b.processImage(b.ctx, evt.RoomID, sender, content)
	}
}

// processCommand handles bot commands such as reset.
func (b *Bridge) processCommand(ctx context.Context, roomID id.RoomID, sender, cmd string) {
	switch cmd {
	case "start", "help":
		b.sendMessage(roomID, helpText(b.config.CommandPrefix))
	case "reset", "clear":
		b.conv.Reset(sender)
		b.logger.Info("history cleared", "sender", sender)
		b.sendMessage(roomID, "История диалога очищена.")
	default:
		b.sendMessage(roomID, fmt.Sprintf("Неизвестная команда: %s", cmd))
	}
}

// processText runs one text query through the conversation service.
func (b *Bridge) processText(ctx context.Context, roomID id.RoomID, sender, body string) {
	if !b.claim(sender) {
		return
	}
	defer b.release(sender)

	if b.config.TypingIndicator {
		b.setTyping(roomID, true)
		defer b.setTyping(roomID, false)
	}

	chunks := b.conv.HandleText(ctx, sender, body)
	b.sendChunks(roomID, chunks)
}

// processImage downloads the attachment and runs it through the vision path.
func (b *Bridge) processImage(ctx context.Context, roomID id.RoomID, sender string, content *event.MessageEventContent) {
	if !b.claim(sender) {
		return
	}
	defer b.release(sender)

	// Reject on the declared size before fetching anything.
	if exceedsLimit(content, b.config.MaxImageSize) {
		b.logger.Warn("rejecting oversize image before download",
			"sender", sender,
			"size", imageSize(content),
			"limit", b.config.MaxImageSize,
		)
		b.sendMessage(roomID, oversizeMessage(b.config.MaxImageSize))
		return
	}

	if b.config.TypingIndicator {
		b.setTyping(roomID, true)
		defer b.setTyping(roomID, false)
	}

	uri, err := content.URL.Parse()
	if err != nil {
		b.logger.Error("invalid image URI", "sender", sender, "error", err)
		b.sendMessage(roomID, "Не удалось получить изображение.")
		return
	}

	data, err := b.matrix.DownloadBytes(ctx, uri)
	if err != nil {
		b.logger.Error("image download failed", "sender", sender, "error", err)
		b.sendMessage(roomID, "Не удалось загрузить изображение.")
		return
	}

	// The caption rides in the message body; a bare upload carries the
	// filename there instead, which we ignore.
	caption := content.Body
	if content.FileName != "" && caption == content.FileName {
		caption = ""
	}

	chunks, err := b.conv.HandleImage(ctx, sender, data, caption)
	if errors.Is(err, conversation.ErrImageTooLarge) {
		b.sendMessage(roomID, oversizeMessage(b.config.MaxImageSize))
		return
	}
	if err != nil {
		b.logger.Error("image handling failed", "sender", sender, "error", err)
		b.sendMessage(roomID, "Не удалось обработать изображение.")
		return
	}
	b.sendChunks(roomID, chunks)
}

// claim marks a user as in-flight; a second message while one is being
// processed is dropped rather than queued.
func (b *Bridge) claim(sender string) bool {
	if _, loaded := b.processing.LoadOrStore(sender, true); loaded {
		b.logger.Debug("already processing message for user, dropping", "sender", sender)
		return false
	}
	return true
}

func (b *Bridge) release(sender string) {
	b.processing.Delete(sender)
}

// parseCommand strips the configured prefix and returns the lowercase command
// name. A message without the prefix is not a command.
func parseCommand(body, prefix string) (string, bool) {
	if prefix == "" || !strings.HasPrefix(body, prefix) {
		return "", false
	}
	cmd := strings.TrimPrefix(body, prefix)
	cmd = strings.ToLower(strings.TrimSpace(cmd))
	if cmd == "" {
		return "", false
	}
	return cmd, true
}

// allowed reports whether the value passes the filter list. An empty list
// allows everything.
func allowed(list []string, value string) bool {
	if len(list) == 0 {
		return true
	}
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

// imageSize returns the declared attachment size, or 0 when absent.
func imageSize(content *event.MessageEventContent) int {
	if content.Info == nil {
		return 0
	}
	return content.Info.Size
}

// exceedsLimit reports whether the event's declared attachment size is over
// the limit. An absent declared size defers the check to the service, which
// measures the downloaded bytes.
func exceedsLimit(content *event.MessageEventContent, limit int64) bool {
	if limit <= 0 {
		return false
	}
	return int64(imageSize(content)) > limit
}

// oversizeMessage renders the attachment rejection text with the configured
// limit.
func oversizeMessage(limit int64) string {
	return fmt.Sprintf("Изображение слишком большое. Максимальный размер: %d МБ.", limit/(1024*1024))
}

// helpText renders the greeting listing the bot's capabilities.
func helpText(prefix string) string {
	return "Привет! Я бот-ассистент с тремя моделями.\n\n" +
		"Что умею:\n" +
		"• отвечать на вопросы\n" +
		"• анализировать изображения\n" +
		"• искать актуальную информацию в интернете\n\n" +
		fmt.Sprintf("Команда %sreset очищает историю диалога. Задай любой вопрос!", prefix)
}

// typingTimeout is the duration the typing indicator shows (30 seconds).
const typingTimeout = 30 * time.Second

// networkTimeout is the timeout for Matrix API calls.
const networkTimeout = 10 * time.Second

// setTyping sends typing indicator to room.
func (b *Bridge) setTyping(roomID id.RoomID, typing bool) {
	var timeout time.Duration
	if typing {
		timeout = typingTimeout
	}
	// Use a timeout context to avoid hanging during shutdown or network issues
	ctx, cancel := context.WithTimeout(context.Background(), networkTimeout)
	defer cancel()
	_, err := b.matrix.UserTyping(ctx, roomID, typing, timeout)
	if err != nil {
		b.logger.Debug("failed to set typing indicator", "room", roomID.String(), "error", err)
	}
}

// sendChunks delivers the reply chunks in order.
func (b *Bridge) sendChunks(roomID id.RoomID, chunks []string) {
	for _, chunk := range chunks {
		b.sendMessage(roomID, chunk)
	}
}

// sendMessage sends a text message to a room.
func (b *Bridge) sendMessage(roomID id.RoomID, text string) {
	// Use a longer timeout for sending messages (they can be large)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, err := b.matrix.SendText(ctx, roomID, text)
	if err != nil {
		b.logger.Error("failed to send message", "room", roomID.String(), "error", err)
	}
}
