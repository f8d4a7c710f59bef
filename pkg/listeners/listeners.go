// Package listeners keeps the ordered predicate/action pairs used for passive
// (non-command) handling of messages and button presses.
package listeners

import (
	"context"
	"sync"

	"tokibot/pkg/update"
)

// MessagePredicate decides whether a message listener fires.
type MessagePredicate func(msg *update.Message) bool

// MessageAction runs when a message listener fires.
type MessageAction func(ctx context.Context, msg *update.Message)

// ButtonPredicate decides whether a button listener fires.
type ButtonPredicate func(query *update.CallbackQuery) bool

// ButtonAction runs when a button listener fires.
type ButtonAction func(ctx context.Context, query *update.CallbackQuery)

// Unregister removes the listener it was returned for. Calling it more than
// once is a no-op.
type Unregister func()

type entry[P, A any] struct {
	predicate P
	action    A
}

type ordered[P, A any] struct {
	mu      sync.RWMutex
	entries []*entry[P, A]
}

func (o *ordered[P, A]) add(predicate P, action A) Unregister {
	e := &entry[P, A]{predicate: predicate, action: action}

	o.mu.Lock()
	o.entries = append(o.entries, e)
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { o.remove(e) })
	}
}

func (o *ordered[P, A]) remove(target *entry[P, A]) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i, e := range o.entries {
		if e == target {
			o.entries = append(o.entries[:i:i], o.entries[i+1:]...)
			return
		}
	}
}

func (o *ordered[P, A]) snapshot() []*entry[P, A] {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]*entry[P, A], len(o.entries))
	copy(out, o.entries)
	return out
}

func (o *ordered[P, A]) len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.entries)
}

// Registry holds message listeners and button listeners. Registration
// order is evaluation order.
type Registry struct {
	messages ordered[MessagePredicate, MessageAction]
	buttons  ordered[ButtonPredicate, ButtonAction]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends a message listener and returns its unregister function.
func (r *Registry) Add(predicate MessagePredicate, action MessageAction) Unregister {
	return r.messages.add(predicate, action)
}

// AddButton appends a button listener and returns its unregister function.
func (r *Registry) AddButton(predicate ButtonPredicate, action ButtonAction) Unregister {
	return r.buttons.add(predicate, action)
}

// MatchMessage returns the actions of every message listener whose predicate
// accepts msg, in registration order. Predicates run outside the lock so
// they may register or remove listeners themselves.
func (r *Registry) MatchMessage(msg *update.Message) []MessageAction {
	var matched []MessageAction
	for _, e := range r.messages.snapshot() {
		if e.predicate != nil && e.predicate(msg) {
			matched = append(matched, e.action)
		}
	}
	return matched
}

// MatchButton returns the actions of every button listener whose predicate
// accepts query, in registration order.
func (r *Registry) MatchButton(query *update.CallbackQuery) []ButtonAction {
	var matched []ButtonAction
	for _, e := range r.buttons.snapshot() {
		if e.predicate != nil && e.predicate(query) {
			matched = append(matched, e.action)
		}
	}
	return matched
}

// Len returns the number of message listeners.
func (r *Registry) Len() int {
	return r.messages.len()
}

// ButtonLen returns the number of button listeners.
func (r *Registry) ButtonLen() int {
	return r.buttons.len()
}
