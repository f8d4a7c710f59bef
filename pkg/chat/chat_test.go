package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"tokibot/pkg/logger"
	"tokibot/pkg/update"
)

type sentCall struct {
	method string
	to     Target
	kind   Kind
	text   string
	file   File
	items  []GroupItem
	opts   SendOptions
}

type fakeTransport struct {
	mu      sync.Mutex
	calls   []sentCall
	errs    []error
	info    *ChatInfo
	infoErr error
	nextID  int
	deleted []int
}

func (f *fakeTransport) record(c sentCall) (*Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	f.nextID++
	return &Handle{ChatID: c.to.ChatID, MessageIDs: []int{f.nextID}}, nil
}

func (f *fakeTransport) SendText(_ context.Context, to Target, text string, opts SendOptions) (*Handle, error) {
	return f.record(sentCall{method: "text", to: to, kind: KindText, text: text, opts: opts})
}

func (f *fakeTransport) SendMedia(_ context.Context, to Target, kind Kind, file File, opts SendOptions) (*Handle, error) {
	return f.record(sentCall{method: "media", to: to, kind: kind, file: file, opts: opts})
}

func (f *fakeTransport) SendLocation(_ context.Context, to Target, _ Location, opts SendOptions) (*Handle, error) {
	return f.record(sentCall{method: "location", to: to, kind: KindLocation, opts: opts})
}

func (f *fakeTransport) SendMediaGroup(_ context.Context, to Target, items []GroupItem, opts SendOptions) (*Handle, error) {
	return f.record(sentCall{method: "group", to: to, kind: KindMediaGroup, items: items, opts: opts})
}

func (f *fakeTransport) DeleteMessage(_ context.Context, _ int64, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeTransport) AnswerCallback(context.Context, string, string) error { return nil }

func (f *fakeTransport) GetChat(_ context.Context, chatID int64) (*ChatInfo, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	if f.info != nil {
		return f.info, nil
	}
	return &ChatInfo{ID: chatID, Type: update.ChatSupergroup, IsForum: true, CanSendMessages: true}, nil
}

type fakeProber struct {
	types map[string]string
	err   error
	calls int
}

func (p *fakeProber) Probe(_ context.Context, url string) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	if ct, ok := p.types[url]; ok {
		return ct, nil
	}
	return "image/jpeg", nil
}

type fakeDownloader struct {
	err   error
	calls []string
}

func (d *fakeDownloader) Download(_ context.Context, url string) (File, error) {
	d.calls = append(d.calls, url)
	if d.err != nil {
		return File{}, d.err
	}
	return File{Data: []byte("bytes of " + url), Name: "file.bin"}, nil
}

func newTestChat(t *testing.T, tr *fakeTransport, p *fakeProber, d *fakeDownloader) *Chat {
	t.Helper()
	if p == nil {
		p = &fakeProber{}
	}
	if d == nil {
		d = &fakeDownloader{}
	}
	f := NewFactory(tr, p, d, logger.NewNop())
	return f.ForMessage(&update.Message{
		ID:       1,
		Chat:     update.Chat{ID: -100, Type: update.ChatSupergroup, IsForum: true},
		ThreadID: 7,
	})
}

func TestReplyTextEmptyBodyIsNoop(t *testing.T) {
	tr := &fakeTransport{}
	c := newTestChat(t, tr, nil, nil)

	if h := c.Reply(context.Background(), Text("")); h != nil {
		t.Fatalf("expected nil handle, got %+v", h)
	}
	if len(tr.calls) != 0 {
		t.Fatalf("expected no transport calls, got %d", len(tr.calls))
	}
}

func TestReplyTextUsesOriginThread(t *testing.T) {
	tr := &fakeTransport{}
	c := newTestChat(t, tr, nil, nil)

	h := c.Reply(context.Background(), Text("hi"))
	if h == nil || h.MessageID() == 0 {
		t.Fatalf("expected handle, got %+v", h)
	}
	if got := tr.calls[0].to; got.ChatID != -100 || got.ThreadID != 7 {
		t.Fatalf("target = %+v, want chat -100 thread 7", got)
	}

	c.Reply(context.Background(), Text("elsewhere"), To(42))
	if got := tr.calls[1].to; got.ChatID != 42 || got.ThreadID != 0 {
		t.Fatalf("target = %+v, want chat 42 without thread", got)
	}
}

func TestReplyMediaGroupTruncatesToTen(t *testing.T) {
	tr := &fakeTransport{}
	c := newTestChat(t, tr, nil, nil)

	urls := make([]string, 15)
	for i := range urls {
		urls[i] = "https://example.com/" + string(rune('a'+i)) + ".jpg"
	}
	r := List(KindPhoto, "caption", urls...)
	r.ParseMode = "Markdown"

	if h := c.Reply(context.Background(), r); h == nil {
		t.Fatal("expected handle")
	}
	if len(tr.calls) != 1 || tr.calls[0].method != "group" {
		t.Fatalf("expected one group call, got %+v", tr.calls)
	}
	items := tr.calls[0].items
	if len(items) != MaxGroupSize {
		t.Fatalf("items = %d, want %d", len(items), MaxGroupSize)
	}
	if items[0].Caption != "caption" || items[0].ParseMode != "Markdown" {
		t.Fatalf("first item = %+v", items[0])
	}
	for i, it := range items[1:] {
		if it.Caption != "" || it.ParseMode != "" {
			t.Fatalf("item %d carries caption or parse mode: %+v", i+1, it)
		}
	}
}

func TestReplyAutoMatchesExplicitKind(t *testing.T) {
	const url = "https://example.com/clip"
	p := &fakeProber{types: map[string]string{url: "video/mp4"}}

	autoTr := &fakeTransport{}
	newTestChat(t, autoTr, p, nil).Reply(context.Background(), Auto(url, "look"))

	videoTr := &fakeTransport{}
	newTestChat(t, videoTr, p, nil).Reply(context.Background(), Video(url, "look"))

	if len(autoTr.calls) != 1 || len(videoTr.calls) != 1 {
		t.Fatalf("calls: auto=%d video=%d", len(autoTr.calls), len(videoTr.calls))
	}
	a, v := autoTr.calls[0], videoTr.calls[0]
	if a.method != v.method || a.kind != v.kind || a.file.URL != v.file.URL || a.opts.Caption != v.opts.Caption || a.to != v.to {
		t.Fatalf("auto call %+v differs from video call %+v", a, v)
	}
	if a.kind != KindVideo {
		t.Fatalf("kind = %q, want video", a.kind)
	}
}

func TestReplyAutoProbeFailureSendsGenericError(t *testing.T) {
	tr := &fakeTransport{}
	p := &fakeProber{err: errors.New("timeout")}
	c := newTestChat(t, tr, p, nil)

	if h := c.Reply(context.Background(), Auto("https://example.com/x", "")); h != nil {
		t.Fatal("expected nil handle")
	}
	if len(tr.calls) != 1 || tr.calls[0].text != genericFailureText {
		t.Fatalf("expected generic error notice, got %+v", tr.calls)
	}
	if tr.calls[0].to.ThreadID != 0 {
		t.Fatal("error notice must go to the general thread")
	}
}

func TestReplyTopicClosedFallsBackToGeneralThread(t *testing.T) {
	tr := &fakeTransport{errs: []error{errors.New("Bad Request: TOPIC_CLOSED")}}
	c := newTestChat(t, tr, nil, nil)

	h := c.Reply(context.Background(), Reply{Kind: KindPhoto, Group: []Media{{URL: "https://example.com/a.jpg"}}})
	if h == nil {
		t.Fatal("expected handle after fallback")
	}
	if len(tr.calls) != 2 {
		t.Fatalf("transport calls = %d, want 2", len(tr.calls))
	}
	if tr.calls[0].to.ThreadID != 7 || tr.calls[1].to.ThreadID != 0 {
		t.Fatalf("threads = %d then %d", tr.calls[0].to.ThreadID, tr.calls[1].to.ThreadID)
	}
	if tr.calls[1].kind != KindPhoto {
		t.Fatalf("retry kind = %q", tr.calls[1].kind)
	}
}

func TestReplyTopicClosedAbandonsWhenGeneralThreadLocked(t *testing.T) {
	tr := &fakeTransport{
		errs: []error{errors.New("Bad Request: TOPIC_CLOSED")},
		info: &ChatInfo{IsForum: true, CanSendMessages: false},
	}
	c := newTestChat(t, tr, nil, nil)

	if h := c.Reply(context.Background(), Text("hi")); h != nil {
		t.Fatal("expected nil handle")
	}
	if len(tr.calls) != 1 {
		t.Fatalf("transport calls = %d, want 1", len(tr.calls))
	}
}

func TestReplyTopicClosedRetryFailureIsSilent(t *testing.T) {
	tr := &fakeTransport{errs: []error{
		errors.New("Bad Request: TOPIC_CLOSED"),
		errors.New("Bad Request: TOPIC_CLOSED"),
	}}
	c := newTestChat(t, tr, nil, nil)

	if h := c.Reply(context.Background(), Text("hi")); h != nil {
		t.Fatal("expected nil handle")
	}
	if len(tr.calls) != 2 {
		t.Fatalf("transport calls = %d, want 2", len(tr.calls))
	}
}

func TestReplyRemoteFetchRetriesWithBytes(t *testing.T) {
	tr := &fakeTransport{errs: []error{errors.New("Bad Request: WEBPAGE_CURL_FAILED")}}
	d := &fakeDownloader{}
	c := newTestChat(t, tr, nil, d)

	h := c.Reply(context.Background(), Document("https://example.com/f.pdf", "doc"))
	if h == nil {
		t.Fatal("expected handle")
	}
	if len(d.calls) != 1 {
		t.Fatalf("downloads = %d, want 1", len(d.calls))
	}
	retry := tr.calls[1]
	if len(retry.file.Data) == 0 || retry.file.URL != "" {
		t.Fatalf("retry file = %+v, want raw bytes", retry.file)
	}
	if retry.opts.Caption != "doc" {
		t.Fatalf("retry caption = %q", retry.opts.Caption)
	}
}

func TestReplyRemoteFetchFailedRetryReportsMediaError(t *testing.T) {
	tr := &fakeTransport{errs: []error{
		errors.New("Bad Request: WEBPAGE_CURL_FAILED"),
		errors.New("Bad Request: failed to get HTTP URL content"),
	}}
	d := &fakeDownloader{}
	c := newTestChat(t, tr, nil, d)

	if h := c.Reply(context.Background(), Document("https://example.com/f.pdf", "")); h != nil {
		t.Fatal("expected nil handle")
	}
	if len(d.calls) != 1 {
		t.Fatalf("downloads = %d, want 1", len(d.calls))
	}
	last := tr.calls[len(tr.calls)-1]
	if last.method != "text" || last.text != mediaFailureText {
		t.Fatalf("last call = %+v, want media failure notice", last)
	}
	if len(tr.calls) != 3 {
		t.Fatalf("transport calls = %d, want 3", len(tr.calls))
	}
}

func TestReplyBothFallbacksExhaustedReportsMediaError(t *testing.T) {
	tr := &fakeTransport{errs: []error{
		errors.New("Bad Request: TOPIC_CLOSED"),
		errors.New("Bad Request: failed to get HTTP URL content"),
		errors.New("Bad Request: wrong file identifier"),
	}}
	d := &fakeDownloader{}
	c := newTestChat(t, tr, nil, d)

	if h := c.Reply(context.Background(), Document("https://example.com/f.pdf", "")); h != nil {
		t.Fatal("expected nil handle")
	}
	if len(d.calls) != 1 {
		t.Fatalf("downloads = %d, want 1", len(d.calls))
	}
	if len(tr.calls) != 4 {
		t.Fatalf("transport calls = %d, want 4", len(tr.calls))
	}
	last := tr.calls[len(tr.calls)-1]
	if last.method != "text" || last.text != mediaFailureText || last.to.ThreadID != 0 {
		t.Fatalf("last call = %+v, want media failure notice on the general thread", last)
	}
}

func TestReplyDownloadFailureReportsMediaError(t *testing.T) {
	tr := &fakeTransport{errs: []error{ErrRemoteFetch}}
	d := &fakeDownloader{err: errors.New("404")}
	c := newTestChat(t, tr, nil, d)

	if h := c.Reply(context.Background(), Photo("https://example.com/a.jpg", "")); h != nil {
		t.Fatal("expected nil handle")
	}
	if last := tr.calls[len(tr.calls)-1]; last.text != mediaFailureText {
		t.Fatalf("last call = %+v", last)
	}
}

func TestReplyOtherFailureSendsGenericError(t *testing.T) {
	tr := &fakeTransport{errs: []error{errors.New("Bad Request: chat not found")}}
	c := newTestChat(t, tr, nil, nil)

	if h := c.Reply(context.Background(), Text("hi")); h != nil {
		t.Fatal("expected nil handle")
	}
	if len(tr.calls) != 2 || tr.calls[1].text != genericFailureText {
		t.Fatalf("calls = %+v", tr.calls)
	}
}

func TestReplyMediaGroupItemCaptionAndDeclaredTypes(t *testing.T) {
	tr := &fakeTransport{}
	p := &fakeProber{}
	c := newTestChat(t, tr, p, nil)

	c.Reply(context.Background(), Reply{
		Body: "shared",
		Group: []Media{
			{URL: "https://example.com/1", Type: KindVideo, Caption: "own"},
			{URL: "https://example.com/2", Caption: "ignored"},
		},
	})

	if p.calls != 1 {
		t.Fatalf("probes = %d, want 1 for the undeclared item", p.calls)
	}
	items := tr.calls[0].items
	if items[0].Type != KindVideo || items[0].Caption != "own" {
		t.Fatalf("first item = %+v", items[0])
	}
	if items[1].Type != KindPhoto || items[1].Caption != "" {
		t.Fatalf("second item = %+v", items[1])
	}
}

func TestReplyInvalidLocationIsNoop(t *testing.T) {
	tr := &fakeTransport{}
	c := newTestChat(t, tr, nil, nil)

	if h := c.Reply(context.Background(), Reply{Kind: KindLocation}); h != nil {
		t.Fatal("expected nil handle")
	}
	if len(tr.calls) != 0 {
		t.Fatalf("calls = %d, want 0", len(tr.calls))
	}
	if h := c.Reply(context.Background(), Locate(14.6, 121.0)); h == nil {
		t.Fatal("expected handle for valid location")
	}
}

func TestDeleteRemovesEveryMessage(t *testing.T) {
	tr := &fakeTransport{}
	c := newTestChat(t, tr, nil, nil)

	c.Delete(context.Background(), &Handle{ChatID: -100, MessageIDs: []int{3, 4, 5}})
	c.Delete(context.Background(), nil)
	if len(tr.deleted) != 3 {
		t.Fatalf("deleted = %v", tr.deleted)
	}
}

func TestClassifyContentType(t *testing.T) {
	cases := map[string]Kind{
		"image/gif":                 KindAnimation,
		"image/png":                 KindPhoto,
		"video/mp4":                 KindVideo,
		"audio/mpeg":                KindAudio,
		"application/pdf":           KindDocument,
		"text/plain; charset=utf-8": KindDocument,
		"font/woff2":                KindDocument,
	}
	for ct, want := range cases {
		got, err := ClassifyContentType(ct)
		if err != nil || got != want {
			t.Errorf("ClassifyContentType(%q) = %q, %v; want %q", ct, got, err, want)
		}
	}
	if _, err := ClassifyContentType(""); !errors.Is(err, ErrUnknownMediaType) {
		t.Errorf("empty content type: err = %v", err)
	}
}
