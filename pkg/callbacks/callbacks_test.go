package callbacks

import (
	"context"
	"strings"
	"testing"

	"tokibot/pkg/update"
)

func TestReplyTableOverwritesAndPersists(t *testing.T) {
	table := NewReplyTable()
	var first, second int
	table.Set(1, 10, func(context.Context, *update.Message) error { first++; return nil })
	table.Set(1, 10, func(context.Context, *update.Message) error { second++; return nil })

	for i := 0; i < 3; i++ {
		fn, ok := table.Get(1, 10)
		if !ok {
			t.Fatalf("lookup %d: callback missing", i)
		}
		_ = fn(context.Background(), &update.Message{})
	}
	if first != 0 || second != 3 {
		t.Fatalf("first=%d second=%d, want 0 and 3", first, second)
	}
	if _, ok := table.Get(2, 10); ok {
		t.Fatal("anchor must be scoped to its chat")
	}

	table.Delete(1, 10)
	if table.Len() != 0 {
		t.Fatalf("Len = %d after delete", table.Len())
	}
}

func TestAnswerTableOverwrite(t *testing.T) {
	table := NewAnswerTable()
	var got string
	table.Set("b", func(context.Context, *Answer) error { got = "old"; return nil })
	table.Set("b", func(context.Context, *Answer) error { got = "new"; return nil })

	fn, ok := table.Get("b")
	if !ok {
		t.Fatal("button missing")
	}
	_ = fn(context.Background(), &Answer{})
	if got != "new" || table.Len() != 1 {
		t.Fatalf("got=%q len=%d", got, table.Len())
	}
}

func TestNewButtonIDFitsPayloadLimit(t *testing.T) {
	a, b := NewButtonID("cosplay_refresh"), NewButtonID("cosplay_refresh")
	if a == b {
		t.Fatal("ids must be unique")
	}
	if !strings.HasPrefix(a, "cosplay_refresh:") {
		t.Fatalf("id %q lacks prefix", a)
	}
	long := NewButtonID(strings.Repeat("x", 100))
	if len(long) > maxCallbackData {
		t.Fatalf("len = %d, exceeds %d", len(long), maxCallbackData)
	}
}
