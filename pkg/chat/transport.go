package chat

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrTopicClosed is returned by transports when the target forum topic is closed.
	ErrTopicClosed = errors.New("chat: topic closed")
	// ErrRemoteFetch is returned when the platform could not fetch a remote media URL.
	ErrRemoteFetch = errors.New("chat: remote media fetch failed")
	// ErrUnknownMediaType means the content type of a payload could not be determined.
	ErrUnknownMediaType = errors.New("chat: unknown media type")
)

var remoteFetchMarkers = []string{
	"WEBPAGE_CURL_FAILED",
	"failed to get HTTP URL content",
	"WEBPAGE_MEDIA_EMPTY",
}

// IsTopicClosed reports whether err means the target thread is closed.
func IsTopicClosed(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTopicClosed) || strings.Contains(err.Error(), "TOPIC_CLOSED")
}

// IsRemoteFetch reports whether err means the platform failed to retrieve a media URL.
func IsRemoteFetch(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRemoteFetch) {
		return true
	}
	msg := err.Error()
	for _, marker := range remoteFetchMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Target addresses a chat and optionally a forum thread.
type Target struct {
	ChatID   int64
	ThreadID int
}

// File references one media file: an URL, a platform file id or raw bytes.
type File struct {
	URL    string
	FileID string
	Data   []byte
	Name   string
}

// SendOptions accompany a single send.
type SendOptions struct {
	Caption   string
	ParseMode string
	Options
}

// GroupItem is one entry of a media group request.
type GroupItem struct {
	Type      Kind
	File      File
	Caption   string
	ParseMode string
}

// ChatInfo is the subset of chat metadata used by the topic fallback.
type ChatInfo struct {
	ID              int64
	Type            string
	IsForum         bool
	CanSendMessages bool
}

// Handle identifies what a reply produced. A media group yields several ids.
type Handle struct {
	ChatID     int64
	MessageIDs []int
}

// MessageID returns the first message id, or 0.
func (h *Handle) MessageID() int {
	if h == nil || len(h.MessageIDs) == 0 {
		return 0
	}
	return h.MessageIDs[0]
}

// Transport is the platform collaborator used to deliver replies.
type Transport interface {
	SendText(ctx context.Context, to Target, text string, opts SendOptions) (*Handle, error)
	// SendMedia sends a single file of kind photo, video, audio, document, animation or sticker.
	SendMedia(ctx context.Context, to Target, kind Kind, file File, opts SendOptions) (*Handle, error)
	SendLocation(ctx context.Context, to Target, loc Location, opts SendOptions) (*Handle, error)
	SendMediaGroup(ctx context.Context, to Target, items []GroupItem, opts SendOptions) (*Handle, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	AnswerCallback(ctx context.Context, queryID, text string) error
	GetChat(ctx context.Context, chatID int64) (*ChatInfo, error)
}
