package bot

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Handler connects the conversation controller to the Telegram API via
// long polling.
type Handler struct {
	api         *tgbotapi.BotAPI
	controller  *Controller
	pollTimeout int
}

func NewHandler(token string, pollTimeout int, controller *Controller) (*Handler, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	return &Handler{
		api:         api,
		controller:  controller,
		pollTimeout: pollTimeout,
	}, nil
}

// Run polls for updates until ctx is cancelled. Updates are handled one
// at a time, in order.
func (h *Handler) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "Bot polling started", "username", h.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = h.pollTimeout
	updates := h.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			h.api.StopReceivingUpdates()
			slog.InfoContext(ctx, "Bot polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			h.handleUpdate(ctx, update)
		}
	}
}

func (h *Handler) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	var (
		replies []Reply
		err     error
	)
	if msg.IsCommand() {
		replies, err = h.controller.HandleCommand(ctx, chatID, userID, msg.From.UserName, msg.Command())
	} else {
		replies, err = h.controller.HandleText(ctx, chatID, userID, msg.Text)
	}

	if err != nil {
		slog.ErrorContext(ctx, "Turn failed",
			"chat_id", chatID, "user_id", userID, "error", err)
		h.send(tgbotapi.NewMessage(chatID, "Có lỗi xảy ra, vui lòng thử lại sau."))
		return
	}

	h.sendReplies(chatID, 0, replies)
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	userID := cb.From.ID

	// Acknowledge first so the client stops its spinner either way.
	if _, err := h.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		slog.Warn("Callback answer failed", "chat_id", chatID, "error", err)
	}

	replies, err := h.controller.HandleCallback(ctx, chatID, userID, cb.Data)
	if err != nil {
		slog.ErrorContext(ctx, "Turn failed",
			"chat_id", chatID, "user_id", userID, "error", err)
		h.send(tgbotapi.NewMessage(chatID, "Có lỗi xảy ra, vui lòng thử lại sau."))
		return
	}

	h.sendReplies(chatID, cb.Message.MessageID, replies)
}

// sendReplies delivers controller output. editMsgID is the message a
// Reply with Edit set replaces; zero means plain sends only.
func (h *Handler) sendReplies(chatID int64, editMsgID int, replies []Reply) {
	for _, r := range replies {
		switch {
		case r.PhotoPath != "":
			photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(r.PhotoPath))
			h.send(photo)

		case r.Document != nil:
			doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
				Name:  r.Document.Name,
				Bytes: r.Document.Data,
			})
			h.send(doc)

		case r.Edit && editMsgID != 0:
			if len(r.Keyboard) > 0 {
				markup := keyboardMarkup(r.Keyboard)
				h.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, editMsgID, r.Text, markup))
			} else {
				h.send(tgbotapi.NewEditMessageText(chatID, editMsgID, r.Text))
			}

		default:
			msg := tgbotapi.NewMessage(chatID, r.Text)
			if len(r.Keyboard) > 0 {
				msg.ReplyMarkup = keyboardMarkup(r.Keyboard)
			}
			h.send(msg)
		}
	}
}

func (h *Handler) send(c tgbotapi.Chattable) {
	if _, err := h.api.Send(c); err != nil {
		slog.Error("Send failed", "error", err)
	}
}

func keyboardMarkup(rows [][]Button) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range rows {
		var buttons []tgbotapi.InlineKeyboardButton
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		keyboard = append(keyboard, buttons)
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: keyboard}
}
