// Package update defines the transport-neutral inbound events the dispatcher consumes.
package update

import "strconv"

// Chat types reported by the transport.
const (
	ChatPrivate    = "private"
	ChatGroup      = "group"
	ChatSupergroup = "supergroup"
	ChatChannel    = "channel"
)

// User identifies a sender.
type User struct {
	ID        int64
	IsBot     bool
	Username  string
	FirstName string
	LastName  string
}

// IDString returns the user id in the form used by the access lists.
func (u *User) IDString() string {
	if u == nil {
		return ""
	}
	return strconv.FormatInt(u.ID, 10)
}

// Chat describes the conversation an update belongs to.
type Chat struct {
	ID      int64
	Type    string
	Title   string
	IsForum bool
}

// Sticker carries the identifiers of a sticker attached to a message.
type Sticker struct {
	FileID       string
	FileUniqueID string
	Emoji        string
}

// Message is an inbound text message.
type Message struct {
	ID   int
	From *User // nil when the platform omitted the sender
	Chat Chat
	Text string
	Date int64

	// ThreadID is the forum topic the message was posted in, 0 for none.
	ThreadID int

	// ReplyTo is set when the message replies to another message.
	ReplyTo *Message

	Sticker *Sticker
}

// SenderID returns the sender id, or 0 when the sender is absent.
func (m *Message) SenderID() int64 {
	if m == nil || m.From == nil {
		return 0
	}
	return m.From.ID
}

// ReplyToID returns the id of the message being replied to, or 0.
func (m *Message) ReplyToID() int {
	if m == nil || m.ReplyTo == nil {
		return 0
	}
	return m.ReplyTo.ID
}

// CallbackQuery is a button press on an inline keyboard.
type CallbackQuery struct {
	ID   string
	From *User
	// Message is the message the button was attached to. It may be nil for
	// inline-mode messages, in which case there is no chat to answer in.
	Message *Message
	Data    string
}

// ChatID returns the chat of the originating message, or 0.
func (q *CallbackQuery) ChatID() int64 {
	if q == nil || q.Message == nil {
		return 0
	}
	return q.Message.Chat.ID
}
