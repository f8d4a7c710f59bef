package telegram

import (
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tokibot/pkg/update"
)

// inbound is one decoded update. At most one of message and callback is set.
type inbound struct {
	id       int
	message  *update.Message
	callback *update.CallbackQuery
}

// forumFields carries the forum attributes the bundled Bot API types lack.
type forumFields struct {
	MessageThreadID int `json:"message_thread_id"`
	Chat            struct {
		IsForum bool `json:"is_forum"`
	} `json:"chat"`
}

type rawUpdate struct {
	Message       *forumFields `json:"message"`
	CallbackQuery *struct {
		Message *forumFields `json:"message"`
	} `json:"callback_query"`
}

func decodeUpdates(raw json.RawMessage) ([]inbound, error) {
	var updates []tgbotapi.Update
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, fmt.Errorf("decoding updates: %w", err)
	}
	var extras []rawUpdate
	if err := json.Unmarshal(raw, &extras); err != nil {
		return nil, fmt.Errorf("decoding update extras: %w", err)
	}

	out := make([]inbound, 0, len(updates))
	for i, u := range updates {
		var extra rawUpdate
		if i < len(extras) {
			extra = extras[i]
		}

		in := inbound{id: u.UpdateID}
		switch {
		case u.Message != nil:
			in.message = convertMessage(u.Message, extra.Message)
		case u.CallbackQuery != nil:
			var msgExtra *forumFields
			if extra.CallbackQuery != nil {
				msgExtra = extra.CallbackQuery.Message
			}
			in.callback = convertCallback(u.CallbackQuery, msgExtra)
		}
		out = append(out, in)
	}
	return out, nil
}

func convertUser(u *tgbotapi.User) *update.User {
	if u == nil {
		return nil
	}
	return &update.User{
		ID:        u.ID,
		IsBot:     u.IsBot,
		Username:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func convertMessage(m *tgbotapi.Message, extra *forumFields) *update.Message {
	if m == nil {
		return nil
	}
	msg := &update.Message{
		ID:   m.MessageID,
		From: convertUser(m.From),
		Text: m.Text,
		Date: int64(m.Date),
	}
	if m.Chat != nil {
		msg.Chat = update.Chat{ID: m.Chat.ID, Type: m.Chat.Type, Title: m.Chat.Title}
	}
	if extra != nil {
		msg.ThreadID = extra.MessageThreadID
		msg.Chat.IsForum = extra.Chat.IsForum
	}
	if m.Sticker != nil {
		msg.Sticker = &update.Sticker{
			FileID:       m.Sticker.FileID,
			FileUniqueID: m.Sticker.FileUniqueID,
			Emoji:        m.Sticker.Emoji,
		}
	}
	if m.ReplyToMessage != nil {
		// One level only; the replied-to message keeps its own chat.
		reply := *m.ReplyToMessage
		reply.ReplyToMessage = nil
		msg.ReplyTo = convertMessage(&reply, nil)
		msg.ReplyTo.Chat.IsForum = msg.Chat.IsForum
	}
	return msg
}

func convertCallback(q *tgbotapi.CallbackQuery, extra *forumFields) *update.CallbackQuery {
	return &update.CallbackQuery{
		ID:      q.ID,
		From:    convertUser(q.From),
		Message: convertMessage(q.Message, extra),
		Data:    q.Data,
	}
}
