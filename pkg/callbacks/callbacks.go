// Package callbacks holds the reply and button callback tables.
//
// Both tables are overwrite-or-insert maps. Entries are never removed when
// they fire: every reply to an anchor message triggers its callback again,
// and a button keeps working for as long as the process lives.
package callbacks

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"tokibot/pkg/chat"
	"tokibot/pkg/update"
)

// maxCallbackData is the platform limit on button payloads.
const maxCallbackData = 64

// ReplyFunc handles a user reply to an anchor message.
type ReplyFunc func(ctx context.Context, msg *update.Message) error

type anchor struct {
	chatID    int64
	messageID int
}

// ReplyTable maps anchor messages to reply callbacks.
type ReplyTable struct {
	mu      sync.RWMutex
	entries map[anchor]ReplyFunc
}

// NewReplyTable creates an empty table.
func NewReplyTable() *ReplyTable {
	return &ReplyTable{entries: make(map[anchor]ReplyFunc)}
}

// Set registers fn for replies to messageID in chatID, replacing any previous callback.
func (t *ReplyTable) Set(chatID int64, messageID int, fn ReplyFunc) {
	if fn == nil || messageID == 0 {
		return
	}
	t.mu.Lock()
	t.entries[anchor{chatID, messageID}] = fn
	t.mu.Unlock()
}

// Get returns the callback registered for the anchor.
func (t *ReplyTable) Get(chatID int64, messageID int) (ReplyFunc, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	fn, ok := t.entries[anchor{chatID, messageID}]
	return fn, ok
}

// Delete removes the callback of an anchor.
func (t *ReplyTable) Delete(chatID int64, messageID int) {
	t.mu.Lock()
	delete(t.entries, anchor{chatID, messageID})
	t.mu.Unlock()
}

// Len returns the number of anchors.
func (t *ReplyTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Answer is what a button callback receives.
type Answer struct {
	Query  *update.CallbackQuery
	Chat   *chat.Chat
	ChatID int64
	UserID int64
}

// AnswerFunc handles a button press.
type AnswerFunc func(ctx context.Context, a *Answer) error

// AnswerTable maps button payloads to callbacks.
type AnswerTable struct {
	mu      sync.RWMutex
	entries map[string]AnswerFunc
}

// NewAnswerTable creates an empty table.
func NewAnswerTable() *AnswerTable {
	return &AnswerTable{entries: make(map[string]AnswerFunc)}
}

// Set registers fn for buttonID, replacing any previous callback.
func (t *AnswerTable) Set(buttonID string, fn AnswerFunc) {
	if fn == nil {
		return
	}
	t.mu.Lock()
	t.entries[buttonID] = fn
	t.mu.Unlock()
}

// Get returns the callback registered for buttonID.
func (t *AnswerTable) Get(buttonID string) (AnswerFunc, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	fn, ok := t.entries[buttonID]
	return fn, ok
}

// Len returns the number of registered buttons.
func (t *AnswerTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// NewButtonID returns a unique button payload starting with prefix.
func NewButtonID(prefix string) string {
	id := uuid.NewString()
	if limit := maxCallbackData - len(id) - 1; len(prefix) > limit {
		prefix = prefix[:limit]
	}
	if prefix == "" {
		return id
	}
	return prefix + ":" + id
}
