package listeners

import (
	"context"
	"strings"
	"testing"

	"tokibot/pkg/update"
)

func textMessage(text string) *update.Message {
	return &update.Message{ID: 1, From: &update.User{ID: 7}, Chat: update.Chat{ID: 100}, Text: text}
}

func TestAllMatchingListenersFireInOrder(t *testing.T) {
	r := NewRegistry()
	var order []string

	r.Add(func(m *update.Message) bool { return strings.Contains(m.Text, "hello") },
		func(context.Context, *update.Message) { order = append(order, "first") })
	r.Add(func(m *update.Message) bool { return false },
		func(context.Context, *update.Message) { order = append(order, "never") })
	r.Add(func(m *update.Message) bool { return strings.HasPrefix(m.Text, "hello") },
		func(context.Context, *update.Message) { order = append(order, "second") })

	for _, action := range r.MatchMessage(textMessage("hello there")) {
		action(context.Background(), nil)
	}

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("fired %v, want [first second]", order)
	}
}

func TestUnregisterRemovesByIdentityAndIsIdempotent(t *testing.T) {
	r := NewRegistry()
	always := func(*update.Message) bool { return true }
	noop := func(context.Context, *update.Message) {}

	removeA := r.Add(always, noop)
	r.Add(always, noop)

	removeA()
	removeA()

	if got := r.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
	if got := len(r.MatchMessage(textMessage("x"))); got != 1 {
		t.Fatalf("matched %d listeners, want 1", got)
	}
}

func TestPredicateMayUnregisterDuringMatch(t *testing.T) {
	r := NewRegistry()
	var remove Unregister
	remove = r.Add(func(*update.Message) bool {
		remove()
		return true
	}, func(context.Context, *update.Message) {})

	if got := len(r.MatchMessage(textMessage("x"))); got != 1 {
		t.Fatalf("matched %d listeners, want 1", got)
	}
	if r.Len() != 0 {
		t.Fatal("listener should be removed after self-unregister")
	}
}

func TestButtonListenersAreSeparate(t *testing.T) {
	r := NewRegistry()
	r.AddButton(func(q *update.CallbackQuery) bool { return q.Data == "go" },
		func(context.Context, *update.CallbackQuery) {})

	if r.Len() != 0 {
		t.Fatal("button listener leaked into message listeners")
	}
	if got := len(r.MatchButton(&update.CallbackQuery{Data: "go"})); got != 1 {
		t.Fatalf("matched %d button listeners, want 1", got)
	}
	if got := len(r.MatchButton(&update.CallbackQuery{Data: "stop"})); got != 0 {
		t.Fatalf("matched %d button listeners, want 0", got)
	}
}
