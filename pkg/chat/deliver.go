package chat

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	errAbandoned   = errors.New("delivery abandoned")
	errMediaFailed = errors.New("media delivery failed")
	errEmptyGroup  = errors.New("media group requires at least one item")
)

// request is one concrete platform send.
type request struct {
	kind     Kind
	text     string
	file     File
	items    []GroupItem
	location Location
	opts     SendOptions
}

// build resolves r into a request. A nil request with nil error is a no-op.
func (c *Chat) build(ctx context.Context, r Reply, base Options) (*request, error) {
	opts := SendOptions{ParseMode: r.ParseMode, Options: r.Options.merge(base)}

	switch {
	case r.Kind == KindText:
		if r.Body == "" {
			return nil, nil
		}
		return &request{kind: KindText, text: r.Body, opts: opts}, nil

	case r.Kind == KindSticker:
		if r.Media == nil {
			c.log.Debug("Sticker reply without payload")
			return nil, nil
		}
		return &request{kind: KindSticker, file: r.Media.file(), opts: SendOptions{Options: opts.Options}}, nil

	case r.Kind == KindLocation:
		if r.Location == nil || !r.Location.Valid() {
			c.log.Warn("Location reply without valid coordinates")
			return nil, nil
		}
		return &request{kind: KindLocation, location: *r.Location, opts: SendOptions{Options: opts.Options}}, nil

	case r.Kind == KindMediaGroup:
		if len(r.Group) == 0 {
			return nil, errEmptyGroup
		}
		return c.buildGroup(ctx, r.Group, r.Body, opts, true)

	case r.Kind.IsMedia() || r.Kind == KindAuto:
		if len(r.Group) > 0 {
			return c.buildGroup(ctx, r.Group, r.Body, opts, false)
		}
		if r.Media == nil {
			c.log.Debug("Media reply without payload", zap.String("kind", string(r.Kind)))
			return nil, nil
		}
		kind := r.Kind
		if kind == KindAuto {
			sniffed, err := c.sniff(ctx, *r.Media)
			if err != nil {
				return nil, err
			}
			kind = sniffed
		}
		opts.Caption = r.Body
		return &request{kind: kind, file: r.Media.file(), opts: opts}, nil

	default:
		return nil, fmt.Errorf("unsupported reply kind %q", r.Kind)
	}
}

// buildGroup truncates items to MaxGroupSize and sniffs each undeclared
// item. Only the first item carries a caption and parse mode.
func (c *Chat) buildGroup(ctx context.Context, media []Media, body string, opts SendOptions, itemCaptions bool) (*request, error) {
	if len(media) > MaxGroupSize {
		c.log.Debug("Truncating media group", zap.Int("items", len(media)))
		media = media[:MaxGroupSize]
	}

	items := make([]GroupItem, 0, len(media))
	for i, m := range media {
		kind, err := c.sniff(ctx, m)
		if err != nil {
			return nil, fmt.Errorf("media group item %d: %w", i, err)
		}
		if !kind.IsMedia() {
			return nil, fmt.Errorf("media group item %d: %w: %s", i, ErrUnknownMediaType, kind)
		}
		item := GroupItem{Type: kind, File: m.file()}
		if i == 0 {
			item.Caption = body
			if itemCaptions && m.Caption != "" {
				item.Caption = m.Caption
			}
			item.ParseMode = opts.ParseMode
		}
		items = append(items, item)
	}

	// The platform rejects single-item groups.
	if len(items) == 1 {
		first := items[0]
		opts.Caption = first.Caption
		opts.ParseMode = first.ParseMode
		return &request{kind: first.Type, file: first.File, opts: opts}, nil
	}

	for i := range items {
		// Animations are not valid album members.
		if items[i].Type == KindAnimation {
			items[i].Type = KindDocument
		}
	}
	return &request{kind: KindMediaGroup, items: items, opts: SendOptions{Options: opts.Options}}, nil
}

// deliver sends req, applying each fallback tier at most once.
func (c *Chat) deliver(ctx context.Context, to Target, req *request) (*Handle, error) {
	topicTried, localTried := false, false

	for {
		h, err := c.send(ctx, to, req)
		if err == nil {
			return h, nil
		}

		switch {
		case IsTopicClosed(err) && !topicTried:
			topicTried = true
			c.log.Info("Topic closed, falling back to general thread",
				zap.Int64("chat_id", to.ChatID),
				zap.Int("thread_id", to.ThreadID))
			if !c.generalThreadOpen(ctx, to) {
				return nil, fmt.Errorf("%w: %v", errAbandoned, err)
			}
			to.ThreadID = 0

		case IsRemoteFetch(err) && !localTried:
			localTried = true
			c.log.Info("Platform could not fetch media, uploading locally",
				zap.Int64("chat_id", to.ChatID),
				zap.Error(err))
			if lerr := c.localize(ctx, req); lerr != nil {
				return nil, fmt.Errorf("%w: %v", errMediaFailed, lerr)
			}

		case topicTried && localTried:
			return nil, fmt.Errorf("%w: general thread: %v", errMediaFailed, err)

		case topicTried:
			return nil, fmt.Errorf("%w: general thread: %v", errAbandoned, err)

		case localTried:
			return nil, fmt.Errorf("%w: %v", errMediaFailed, err)

		default:
			return nil, err
		}
	}
}

// generalThreadOpen reports whether a retry on the general thread can succeed.
func (c *Chat) generalThreadOpen(ctx context.Context, to Target) bool {
	if to.ThreadID == 0 {
		return false
	}
	info, err := c.transport.GetChat(ctx, to.ChatID)
	if err != nil {
		c.log.Warn("Failed to inspect chat for topic fallback",
			zap.Int64("chat_id", to.ChatID),
			zap.Error(err))
		return false
	}
	if info.IsForum && !info.CanSendMessages {
		c.log.Info("General thread is not writable", zap.Int64("chat_id", to.ChatID))
		return false
	}
	return true
}

// localize replaces every remote URL in req with downloaded bytes.
func (c *Chat) localize(ctx context.Context, req *request) error {
	if c.downloader == nil {
		return errors.New("no downloader configured")
	}

	fetch := func(f File) (File, error) {
		if f.URL == "" || len(f.Data) > 0 {
			return f, nil
		}
		return c.downloader.Download(ctx, f.URL)
	}

	if req.kind == KindMediaGroup {
		items := make([]GroupItem, len(req.items))
		copy(items, req.items)
		for i := range items {
			f, err := fetch(items[i].File)
			if err != nil {
				return err
			}
			items[i].File = f
		}
		req.items = items
		return nil
	}

	if req.file.URL == "" {
		return errors.New("no remote media to download")
	}
	f, err := fetch(req.file)
	if err != nil {
		return err
	}
	req.file = f
	return nil
}

func (c *Chat) send(ctx context.Context, to Target, req *request) (*Handle, error) {
	switch req.kind {
	case KindText:
		return c.transport.SendText(ctx, to, req.text, req.opts)
	case KindLocation:
		return c.transport.SendLocation(ctx, to, req.location, req.opts)
	case KindMediaGroup:
		return c.transport.SendMediaGroup(ctx, to, req.items, req.opts)
	default:
		return c.transport.SendMedia(ctx, to, req.kind, req.file, req.opts)
	}
}

// fail logs a terminal failure and tells the user, unless the failure
// was a closed topic or an abandoned fallback.
func (c *Chat) fail(ctx context.Context, to Target, kind Kind, err error) {
	fields := []zap.Field{
		zap.Int64("chat_id", to.ChatID),
		zap.Int("thread_id", to.ThreadID),
		zap.String("kind", string(kind)),
		zap.Error(err),
	}
	if errors.Is(err, errAbandoned) || IsTopicClosed(err) {
		c.log.Warn("Reply abandoned", fields...)
		return
	}
	c.log.Error("Reply failed", fields...)

	text := genericFailureText
	if errors.Is(err, errMediaFailed) {
		text = mediaFailureText
	}
	if _, serr := c.transport.SendText(ctx, Target{ChatID: to.ChatID}, text, SendOptions{}); serr != nil {
		c.log.Warn("Failed to send error notice",
			zap.Int64("chat_id", to.ChatID),
			zap.Error(serr))
	}
}
