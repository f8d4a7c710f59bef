package plugins

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"tokibot/pkg/callbacks"
	"tokibot/pkg/chat"
	"tokibot/pkg/commands"
	"tokibot/pkg/cron"
	"tokibot/pkg/listeners"
	"tokibot/pkg/loader"
	"tokibot/pkg/logger"
	"tokibot/pkg/state"
	"tokibot/pkg/update"
)

type sent struct {
	kind  chat.Kind
	text  string
	file  chat.File
	items []chat.GroupItem
	opts  chat.SendOptions
}

type recorder struct {
	mu      sync.Mutex
	sends   []sent
	deleted []int
	nextID  int
}

func (r *recorder) add(s sent, n int) (*chat.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sends = append(r.sends, s)
	h := &chat.Handle{ChatID: 1}
	for i := 0; i < n; i++ {
		r.nextID++
		h.MessageIDs = append(h.MessageIDs, r.nextID)
	}
	return h, nil
}

func (r *recorder) SendText(_ context.Context, _ chat.Target, text string, opts chat.SendOptions) (*chat.Handle, error) {
	return r.add(sent{kind: chat.KindText, text: text, opts: opts}, 1)
}

func (r *recorder) SendMedia(_ context.Context, _ chat.Target, kind chat.Kind, file chat.File, opts chat.SendOptions) (*chat.Handle, error) {
	return r.add(sent{kind: kind, text: opts.Caption, file: file, opts: opts}, 1)
}

func (r *recorder) SendLocation(_ context.Context, _ chat.Target, _ chat.Location, opts chat.SendOptions) (*chat.Handle, error) {
	return r.add(sent{kind: chat.KindLocation, opts: opts}, 1)
}

func (r *recorder) SendMediaGroup(_ context.Context, _ chat.Target, items []chat.GroupItem, opts chat.SendOptions) (*chat.Handle, error) {
	return r.add(sent{kind: chat.KindMediaGroup, items: items, opts: opts}, len(items))
}

func (r *recorder) DeleteMessage(_ context.Context, _ int64, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *recorder) AnswerCallback(context.Context, string, string) error { return nil }

func (r *recorder) GetChat(_ context.Context, id int64) (*chat.ChatInfo, error) {
	return &chat.ChatInfo{ID: id, Type: update.ChatPrivate}, nil
}

func (r *recorder) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, s := range r.sends {
		out = append(out, s.text)
	}
	return out
}

func (r *recorder) last(t *testing.T) sent {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sends) == 0 {
		t.Fatalf("nothing was sent")
	}
	return r.sends[len(r.sends)-1]
}

type imageProber struct{}

func (imageProber) Probe(context.Context, string) (string, error) { return "image/jpeg", nil }

type harness struct {
	rec      *recorder
	factory  *chat.Factory
	bindings commands.Bindings
}

func newHarness() *harness {
	rec := &recorder{}
	return &harness{
		rec:     rec,
		factory: chat.NewFactory(rec, imageProber{}, nil, logger.NewNop()),
		bindings: commands.Bindings{
			Listeners: listeners.NewRegistry(),
			Answers:   callbacks.NewAnswerTable(),
			Replies:   callbacks.NewReplyTable(),
		},
	}
}

func (h *harness) context(text string, table *commands.Table) *commands.Context {
	msg := &update.Message{
		ID:   10,
		From: &update.User{ID: 5, FirstName: "Ana"},
		Chat: update.Chat{ID: 1, Type: update.ChatPrivate},
		Text: text,
	}
	fields := strings.Fields(text)
	var args []string
	if len(fields) > 1 {
		args = fields[1:]
	}
	cc := &commands.Context{
		Chat:    h.factory.ForMessage(msg),
		Message: msg,
		Args:    args,
		ChatID:  1,
		UserID:  5,
		Access:  commands.NewAccess("/", nil, nil),
		Table:   table,
		Log:     logger.NewNop(),
	}
	return cc.Bind(h.bindings)
}

func run(t *testing.T, c *Catalog, kind loader.Kind, name string, cc *commands.Context) {
	t.Helper()
	h, ok := c.Handler(kind, name)
	if !ok {
		t.Fatalf("handler %s/%s not registered", kind, name)
	}
	if err := h(context.Background(), cc); err != nil {
		t.Fatalf("handler %s failed: %v", name, err)
	}
}

func TestDefaultsAreValidAndResolvable(t *testing.T) {
	c := NewCatalog(Deps{})
	seen := map[string]bool{}
	for _, d := range c.Defaults() {
		if err := d.Validate(); err != nil {
			t.Fatalf("default %s invalid: %v", d.Name, err)
		}
		if _, ok := c.Handler(d.Kind, d.HandlerName()); !ok {
			t.Fatalf("default %s has no handler", d.Name)
		}
		seen[d.Name] = true
	}
	for _, name := range []string{"help", "ping", "demo", "converse", "button", "getsticker", "ai", "agen", "cosplay", "stats", "reload", "message_logger", "greeter", "daily_reminder", "daily_cosplay"} {
		if !seen[name] {
			t.Fatalf("missing default definition %s", name)
		}
	}
}

func TestDefaultsLoad(t *testing.T) {
	c := NewCatalog(Deps{})
	registry := commands.NewRegistry()
	l := loader.New(logger.NewNop(), t.TempDir()+"/missing", c, registry, nil, nil)

	res, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if res.Skipped != 0 || res.Commands != 11 || res.Events != 2 || res.Jobs != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if cmd, ok := registry.Table().Get("stickerid"); !ok || cmd.Name != "getsticker" {
		t.Fatalf("alias stickerid not resolved")
	}
}

func TestHelpAndPing(t *testing.T) {
	h := newHarness()
	c := NewCatalog(Deps{})

	table := commands.NewTable()
	_ = table.AddCommand(&commands.Command{Name: "ping", Description: "Pong"})
	_ = table.AddCommand(&commands.Command{Name: "about"})

	run(t, c, loader.KindCommand, "help", h.context("/help", table))
	want := "Available commands:\n/about - No description\n/ping - Pong"
	if got := h.rec.last(t).text; got != want {
		t.Fatalf("help text = %q, want %q", got, want)
	}

	run(t, c, loader.KindCommand, "help", h.context("/help", commands.NewTable()))
	if got := h.rec.last(t).text; got != "No commands available." {
		t.Fatalf("empty help text = %q", got)
	}

	run(t, c, loader.KindCommand, "ping", h.context("/ping", nil))
	if got := h.rec.last(t).text; got != "Pong!" {
		t.Fatalf("ping text = %q", got)
	}
}

func TestGetSticker(t *testing.T) {
	h := newHarness()
	c := NewCatalog(Deps{})

	run(t, c, loader.KindCommand, "getsticker", h.context("/getsticker", nil))
	if got := h.rec.last(t).text; got != textNoSticker {
		t.Fatalf("unexpected text %q", got)
	}

	cc := h.context("/getsticker", nil)
	cc.Message.ReplyTo = &update.Message{ID: 3, Sticker: &update.Sticker{FileID: "CAAD123"}}
	run(t, c, loader.KindCommand, "getsticker", cc)
	last := h.rec.last(t)
	if last.text != "CAAD123" || last.opts.ReplyToMessageID != 10 {
		t.Fatalf("unexpected sticker reply: %+v", last)
	}
}

type fakeReloader struct{ err error }

func (f fakeReloader) Reload(context.Context) error { return f.err }

func TestReload(t *testing.T) {
	h := newHarness()
	c := NewCatalog(Deps{})

	run(t, c, loader.KindCommand, "reload", h.context("/reload", nil))
	if got := h.rec.last(t).text; got != textReloadFailed {
		t.Fatalf("unwired reload text = %q", got)
	}

	c.SetReloader(fakeReloader{})
	run(t, c, loader.KindCommand, "reload", h.context("/reload", nil))
	if got := h.rec.last(t).text; got != textReloaded {
		t.Fatalf("reload text = %q", got)
	}

	c.SetReloader(fakeReloader{err: errors.New("disk")})
	run(t, c, loader.KindCommand, "reload", h.context("/reload", nil))
	if got := h.rec.last(t).text; got != textReloadFailed {
		t.Fatalf("failed reload text = %q", got)
	}
}

type fakeUsage []state.Count

func (f fakeUsage) Counts(context.Context) ([]state.Count, error) { return f, nil }

type fakeJobs []cron.Status

func (f fakeJobs) List() []cron.Status { return f }

func TestStats(t *testing.T) {
	h := newHarness()
	c := NewCatalog(Deps{
		Usage: fakeUsage{{Command: "ping", Total: 3}},
		Jobs:  fakeJobs{{Name: "daily", Schedule: "0 9 * * *", NextRun: time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)}},
	})

	run(t, c, loader.KindCommand, "stats", h.context("/stats", nil))
	got := h.rec.last(t).text
	for _, want := range []string{"ping: 3", "Scheduled jobs: 1", "daily (0 9 * * *)"} {
		if !strings.Contains(got, want) {
			t.Fatalf("stats text %q missing %q", got, want)
		}
	}
}

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/gpt4o":
			var req chatRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			_ = json.NewEncoder(w).Encode(chatResponse{Answer: "echo: " + req.Ask + " (" + req.UID + ")"})
		case "/api/cosplaytele":
			_ = json.NewEncoder(w).Encode(CosplayResult{
				Password: "pw",
				Result: []Cosplay{{
					Title:         "Set",
					Cosplayer:     "Someone",
					Character:     "Hero",
					Images:        []string{"https://img/1.jpg", "https://img/2.jpg", "https://img/3.jpg"},
					DownloadLinks: []string{"https://dl/1"},
				}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAIConversation(t *testing.T) {
	srv := newAPIServer(t)
	h := newHarness()
	c := NewCatalog(Deps{API: NewAPI(srv.URL, srv.Client(), time.Second)})

	run(t, c, loader.KindCommand, "ai", h.context("/ai hello there", nil))
	texts := h.rec.texts()
	if len(texts) != 2 || texts[0] != "Generating response..." || texts[1] != "echo: hello there (5)" {
		t.Fatalf("unexpected texts: %q", texts)
	}
	if len(h.rec.deleted) != 1 || h.rec.deleted[0] != 1 {
		t.Fatalf("pending message not deleted: %v", h.rec.deleted)
	}

	fn, ok := h.bindings.Replies.Get(1, 2)
	if !ok {
		t.Fatalf("reply callback not registered on the answer")
	}
	if err := fn(context.Background(), &update.Message{ID: 11, Text: "more", Chat: update.Chat{ID: 1}}); err != nil {
		t.Fatalf("reply callback failed: %v", err)
	}
	if got := h.rec.last(t).text; got != "echo: more (5)" {
		t.Fatalf("continuation text = %q", got)
	}
	if _, ok := h.bindings.Replies.Get(1, 3); !ok {
		t.Fatalf("continuation answer not registered")
	}
}

func TestAIFailureHidesUpstreamDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream secret detail", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	h := newHarness()
	c := NewCatalog(Deps{API: NewAPI(srv.URL, srv.Client(), time.Second)})

	run(t, c, loader.KindCommand, "ai", h.context("/ai hello", nil))
	got := h.rec.last(t).text
	if got != textAIFailed {
		t.Fatalf("reply = %q, want %q", got, textAIFailed)
	}
	for _, text := range h.rec.texts() {
		if strings.Contains(text, srv.URL) || strings.Contains(text, "502") || strings.Contains(text, "secret") {
			t.Fatalf("reply leaked upstream details: %q", text)
		}
	}
}

func TestAIRequiresPrompt(t *testing.T) {
	h := newHarness()
	c := NewCatalog(Deps{API: NewAPI("http://unused", nil, time.Second)})

	run(t, c, loader.KindCommand, "ai", h.context("/ai", nil))
	if got := h.rec.last(t).text; got != "Please provide your prompt!" {
		t.Fatalf("unexpected text %q", got)
	}
	run(t, c, loader.KindCommand, "agen", h.context("/agen", nil))
	if got := h.rec.last(t).text; got != "Provide A Prompt first!" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestAgenSendsImageURL(t *testing.T) {
	h := newHarness()
	c := NewCatalog(Deps{API: NewAPI("https://api.example", nil, time.Second)})

	run(t, c, loader.KindCommand, "agen", h.context("/agen blue sky", nil))
	var photo *sent
	for i := range h.rec.sends {
		if h.rec.sends[i].kind == chat.KindPhoto {
			photo = &h.rec.sends[i]
		}
	}
	if photo == nil || photo.file.URL != "https://api.example/api/crushimg?prompt=blue+sky" {
		t.Fatalf("unexpected photo send: %+v", photo)
	}
}

func TestCosplayAlbumAndRefresh(t *testing.T) {
	srv := newAPIServer(t)
	h := newHarness()
	c := NewCatalog(Deps{API: NewAPI(srv.URL, srv.Client(), time.Second)})

	run(t, c, loader.KindCommand, "cosplay", h.context("/cosplay hero", nil))

	var album, prompt *sent
	for i := range h.rec.sends {
		s := &h.rec.sends[i]
		switch {
		case s.kind == chat.KindMediaGroup:
			album = s
		case s.text == "Want another cosplay or download?":
			prompt = s
		}
	}
	if album == nil || len(album.items) != 3 {
		t.Fatalf("expected a three item album, got %+v", album)
	}
	if !strings.Contains(album.items[0].Caption, "🔍 Search Term: hero") || !strings.Contains(album.items[0].Caption, "🔐 Password: pw") {
		t.Fatalf("unexpected caption %q", album.items[0].Caption)
	}
	if prompt == nil || prompt.opts.ReplyMarkup == nil || prompt.opts.ReplyToMessageID != 10 {
		t.Fatalf("button prompt missing or incomplete: %+v", prompt)
	}
	if h.bindings.Answers.Len() != 1 {
		t.Fatalf("expected one refresh button, got %d", h.bindings.Answers.Len())
	}

	before := len(h.rec.deleted)
	fn := findAnswer(t, h)
	answer := &callbacks.Answer{Chat: h.factory.ForChat(1), ChatID: 1, UserID: 5}
	if err := fn(context.Background(), answer); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if deleted := len(h.rec.deleted) - before; deleted != 4 {
		t.Fatalf("expected album and prompt deleted (4 messages), got %d", deleted)
	}
	if h.bindings.Answers.Len() != 2 {
		t.Fatalf("refresh must register a new button")
	}
}

func findAnswer(t *testing.T, h *harness) callbacks.AnswerFunc {
	t.Helper()
	prompt := h.rec.last(t)
	data := buttonData(t, prompt.opts.ReplyMarkup)
	fn, ok := h.bindings.Answers.Get(data)
	if !ok {
		t.Fatalf("no callback for button %q", data)
	}
	return fn
}

// buttonData returns the callback payload of the first button.
func buttonData(t *testing.T, markup any) string {
	t.Helper()
	raw, err := json.Marshal(markup)
	if err != nil {
		t.Fatalf("marshal markup: %v", err)
	}
	var decoded struct {
		InlineKeyboard [][]struct {
			CallbackData string `json:"callback_data"`
		} `json:"inline_keyboard"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal markup: %v", err)
	}
	if len(decoded.InlineKeyboard) == 0 || len(decoded.InlineKeyboard[0]) == 0 {
		t.Fatalf("markup has no buttons")
	}
	return decoded.InlineKeyboard[0][0].CallbackData
}

func TestButtonDemo(t *testing.T) {
	h := newHarness()
	c := NewCatalog(Deps{})

	run(t, c, loader.KindCommand, "button", h.context("/button", nil))
	fn := findAnswer(t, h)
	if err := fn(context.Background(), &callbacks.Answer{Chat: h.factory.ForChat(1), ChatID: 1, UserID: 77}); err != nil {
		t.Fatalf("button callback failed: %v", err)
	}
	if got := h.rec.last(t).text; got != "Button clicked by user 77!" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestConverseDemo(t *testing.T) {
	listenWindow = time.Hour
	h := newHarness()
	c := NewCatalog(Deps{})

	run(t, c, loader.KindCommand, "converse", h.context("/converse", nil))
	if h.bindings.Listeners.Len() != 1 {
		t.Fatalf("expected one listener")
	}
	hello := &update.Message{ID: 20, Chat: update.Chat{ID: 1}, Text: "well HELLO"}
	actions := h.bindings.Listeners.MatchMessage(hello)
	if len(actions) != 1 {
		t.Fatalf("listener did not match")
	}
	actions[0](context.Background(), hello)
	if got := h.rec.last(t).text; got != `I heard you say "hello"! What's up?` {
		t.Fatalf("unexpected text %q", got)
	}
	if other := h.bindings.Listeners.MatchMessage(&update.Message{Chat: update.Chat{ID: 2}, Text: "hello"}); len(other) != 0 {
		t.Fatalf("listener must only match its chat")
	}

	fn, ok := h.bindings.Replies.Get(1, 1)
	if !ok {
		t.Fatalf("reply callback not registered")
	}
	if err := fn(context.Background(), &update.Message{Text: "Bo"}); err != nil {
		t.Fatalf("reply callback failed: %v", err)
	}
	if got := h.rec.last(t).text; got != "Nice to meet you, Bo!" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestDemoFeatures(t *testing.T) {
	h := newHarness()
	c := NewCatalog(Deps{})

	run(t, c, loader.KindCommand, "demo", h.context("/demo bogus", nil))
	if got := h.rec.last(t).text; !strings.HasPrefix(got, "Unknown feature: bogus") {
		t.Fatalf("unexpected text %q", got)
	}

	run(t, c, loader.KindCommand, "demo", h.context("/demo inline", nil))
	if last := h.rec.last(t); last.opts.ReplyMarkup == nil || last.opts.ParseMode != "Markdown" {
		t.Fatalf("inline demo missing markup: %+v", last)
	}

	run(t, c, loader.KindCommand, "demo", h.context("/demo sticker", nil))
	if last := h.rec.last(t); last.kind != chat.KindSticker || last.file.FileID != demoSticker {
		t.Fatalf("unexpected sticker send: %+v", last)
	}
}

func TestEvents(t *testing.T) {
	h := newHarness()
	c := NewCatalog(Deps{})

	run(t, c, loader.KindEvent, "greeter", h.context("Hello", nil))
	if got := h.rec.last(t).text; got != "Hi there! How can I help you?" {
		t.Fatalf("unexpected greeting %q", got)
	}
	n := len(h.rec.sends)
	run(t, c, loader.KindEvent, "greeter", h.context("hello world", nil))
	run(t, c, loader.KindEvent, "message_logger", h.context("anything", nil))
	if len(h.rec.sends) != n {
		t.Fatalf("events must not reply to other messages")
	}

	cc := h.context("", nil)
	cc.Message = nil
	run(t, c, loader.KindCronjob, "daily_reminder", cc)
	if got := h.rec.last(t).text; got != "Good morning! This is your daily reminder." {
		t.Fatalf("unexpected reminder %q", got)
	}
}
