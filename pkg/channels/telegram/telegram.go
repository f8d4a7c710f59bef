// Package telegram provides Telegram bot integration.
//
// The Client long-polls getUpdates, converts updates into the transport
// neutral types of package update and implements chat.Transport on top of
// raw Bot API requests, so fields such as message_thread_id reach the wire.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tokibot/pkg/chat"
	"tokibot/pkg/config"
	"tokibot/pkg/logger"
	"tokibot/pkg/update"
)

// BotAPI is the subset of *tgbotapi.BotAPI the client uses.
type BotAPI interface {
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
	UploadFiles(endpoint string, params tgbotapi.Params, files []tgbotapi.RequestFile) (*tgbotapi.APIResponse, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Handler receives converted updates.
type Handler interface {
	HandleMessage(ctx context.Context, msg *update.Message)
	HandleCallback(ctx context.Context, q *update.CallbackQuery)
}

// Client is the Telegram transport.
type Client struct {
	log         *logger.Logger
	bot         BotAPI
	username    string
	pollTimeout int

	inflight sync.WaitGroup
}

// Connect creates the Bot API client, honoring the configured proxy.
func Connect(log *logger.Logger, cfg config.TelegramConfig) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}

	// Keep the HTTP timeout longer than the long-poll timeout.
	timeout := cfg.Timeout()
	if floor := time.Duration(cfg.PollTimeout+15) * time.Second; timeout < floor {
		timeout = floor
	}
	httpClient := &http.Client{Timeout: timeout}
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parsing telegram proxy: %w", err)
		}
		httpClient.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		log.Info("Telegram proxy enabled", zap.String("proxy", proxyURL.Redacted()))
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	bot.Debug = false

	log.Info("Telegram bot connected", zap.String("username", bot.Self.UserName))

	c := New(log, bot, cfg.PollTimeout)
	c.username = bot.Self.UserName
	return c, nil
}

// New wraps an existing BotAPI.
func New(log *logger.Logger, bot BotAPI, pollTimeout int) *Client {
	if pollTimeout <= 0 {
		pollTimeout = 30
	}
	return &Client{
		log:         log.Named("telegram"),
		bot:         bot,
		pollTimeout: pollTimeout,
	}
}

// Username returns the bot's username, if known.
func (c *Client) Username() string { return c.username }

// Run polls for updates until ctx is cancelled. Each update is handled in
// its own goroutine; Run waits for in-flight handlers before returning.
func (c *Client) Run(ctx context.Context, h Handler) error {
	c.log.Info("Starting Telegram update loop", zap.Int("poll_timeout", c.pollTimeout))
	defer c.inflight.Wait()

	offset := 0
	for {
		if ctx.Err() != nil {
			c.log.Info("Telegram update loop stopping")
			return nil
		}

		updates, err := c.getUpdates(offset)
		if err != nil {
			c.log.Warn("Failed to get updates, retrying in 3 seconds", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(3 * time.Second):
			}
			continue
		}

		for _, u := range updates {
			if u.id >= offset {
				offset = u.id + 1
			}
			c.handleUpdate(ctx, u, h)
		}
	}
}

func (c *Client) handleUpdate(ctx context.Context, u inbound, h Handler) {
	switch {
	case u.message != nil:
		msg := u.message
		c.inflight.Add(1)
		go func() {
			defer c.inflight.Done()
			h.HandleMessage(ctx, msg)
		}()
	case u.callback != nil:
		q := u.callback
		c.inflight.Add(1)
		go func() {
			defer c.inflight.Done()
			h.HandleCallback(ctx, q)
		}()
	}
}

func (c *Client) getUpdates(offset int) ([]inbound, error) {
	params := tgbotapi.Params{}
	params.AddNonZero("offset", offset)
	params.AddNonZero("timeout", c.pollTimeout)
	if err := params.AddInterface("allowed_updates", []string{"message", "callback_query"}); err != nil {
		return nil, err
	}

	resp, err := c.bot.MakeRequest("getUpdates", params)
	if err != nil {
		return nil, err
	}
	return decodeUpdates(resp.Result)
}

// SendText implements chat.Transport.
func (c *Client) SendText(_ context.Context, to chat.Target, text string, opts chat.SendOptions) (*chat.Handle, error) {
	params, err := baseParams(to, opts)
	if err != nil {
		return nil, err
	}
	params["text"] = text
	return c.send("sendMessage", to.ChatID, params, nil)
}

var mediaMethods = map[chat.Kind]struct{ endpoint, field string }{
	chat.KindPhoto:     {"sendPhoto", "photo"},
	chat.KindVideo:     {"sendVideo", "video"},
	chat.KindAudio:     {"sendAudio", "audio"},
	chat.KindDocument:  {"sendDocument", "document"},
	chat.KindAnimation: {"sendAnimation", "animation"},
	chat.KindSticker:   {"sendSticker", "sticker"},
}

// SendMedia implements chat.Transport.
func (c *Client) SendMedia(_ context.Context, to chat.Target, kind chat.Kind, file chat.File, opts chat.SendOptions) (*chat.Handle, error) {
	method, ok := mediaMethods[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", chat.ErrUnknownMediaType, kind)
	}
	params, err := baseParams(to, opts)
	if err != nil {
		return nil, err
	}
	if kind != chat.KindSticker {
		params.AddNonEmpty("caption", opts.Caption)
	}

	if len(file.Data) > 0 {
		files := []tgbotapi.RequestFile{{
			Name: method.field,
			Data: tgbotapi.FileBytes{Name: uploadName(file, method.field), Bytes: file.Data},
		}}
		return c.send(method.endpoint, to.ChatID, params, files)
	}

	ref := file.URL
	if ref == "" {
		ref = file.FileID
	}
	if ref == "" {
		return nil, fmt.Errorf("%s: empty media reference", method.endpoint)
	}
	params[method.field] = ref
	return c.send(method.endpoint, to.ChatID, params, nil)
}

// SendLocation implements chat.Transport.
func (c *Client) SendLocation(_ context.Context, to chat.Target, loc chat.Location, opts chat.SendOptions) (*chat.Handle, error) {
	params, err := baseParams(to, opts)
	if err != nil {
		return nil, err
	}
	params["latitude"] = strconv.FormatFloat(loc.Latitude, 'f', -1, 64)
	params["longitude"] = strconv.FormatFloat(loc.Longitude, 'f', -1, 64)
	return c.send("sendLocation", to.ChatID, params, nil)
}

type inputMedia struct {
	Type      string `json:"type"`
	Media     string `json:"media"`
	Caption   string `json:"caption,omitempty"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// SendMediaGroup implements chat.Transport. Byte payloads are attached
// as multipart files referenced by attach:// names.
func (c *Client) SendMediaGroup(_ context.Context, to chat.Target, items []chat.GroupItem, opts chat.SendOptions) (*chat.Handle, error) {
	opts.ReplyMarkup = nil // not supported for albums
	params, err := baseParams(to, opts)
	if err != nil {
		return nil, err
	}

	media := make([]inputMedia, 0, len(items))
	var files []tgbotapi.RequestFile
	for i, item := range items {
		m := inputMedia{Type: string(item.Type), Caption: item.Caption, ParseMode: item.ParseMode}
		switch {
		case len(item.File.Data) > 0:
			name := fmt.Sprintf("file-%d", i)
			m.Media = "attach://" + name
			files = append(files, tgbotapi.RequestFile{
				Name: name,
				Data: tgbotapi.FileBytes{Name: uploadName(item.File, name), Bytes: item.File.Data},
			})
		case item.File.URL != "":
			m.Media = item.File.URL
		default:
			m.Media = item.File.FileID
		}
		media = append(media, m)
	}
	if err := params.AddInterface("media", media); err != nil {
		return nil, err
	}

	return c.send("sendMediaGroup", to.ChatID, params, files)
}

// DeleteMessage implements chat.Transport.
func (c *Client) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", chatID)
	params.AddNonZero("message_id", messageID)
	_, err := c.bot.MakeRequest("deleteMessage", params)
	return classify(err)
}

// AnswerCallback implements chat.Transport.
func (c *Client) AnswerCallback(_ context.Context, queryID, text string) error {
	params := tgbotapi.Params{}
	params["callback_query_id"] = queryID
	params.AddNonEmpty("text", text)
	_, err := c.bot.MakeRequest("answerCallbackQuery", params)
	return classify(err)
}

type chatFullInfo struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	IsForum     bool   `json:"is_forum"`
	Permissions *struct {
		CanSendMessages bool `json:"can_send_messages"`
	} `json:"permissions"`
}

// GetChat implements chat.Transport.
func (c *Client) GetChat(_ context.Context, chatID int64) (*chat.ChatInfo, error) {
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", chatID)
	resp, err := c.bot.MakeRequest("getChat", params)
	if err != nil {
		return nil, classify(err)
	}

	var info chatFullInfo
	if err := json.Unmarshal(resp.Result, &info); err != nil {
		return nil, fmt.Errorf("decoding getChat: %w", err)
	}
	return &chat.ChatInfo{
		ID:              info.ID,
		Type:            info.Type,
		IsForum:         info.IsForum,
		CanSendMessages: info.Permissions != nil && info.Permissions.CanSendMessages,
	}, nil
}

func (c *Client) send(endpoint string, chatID int64, params tgbotapi.Params, files []tgbotapi.RequestFile) (*chat.Handle, error) {
	var (
		resp *tgbotapi.APIResponse
		err  error
	)
	if len(files) > 0 {
		resp, err = c.bot.UploadFiles(endpoint, params, files)
	} else {
		resp, err = c.bot.MakeRequest(endpoint, params)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, classify(err))
	}

	h := &chat.Handle{ChatID: chatID}
	if endpoint == "sendMediaGroup" {
		var sent []tgbotapi.Message
		if err := json.Unmarshal(resp.Result, &sent); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", endpoint, err)
		}
		for _, m := range sent {
			h.MessageIDs = append(h.MessageIDs, m.MessageID)
		}
		return h, nil
	}

	var sent tgbotapi.Message
	if err := json.Unmarshal(resp.Result, &sent); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", endpoint, err)
	}
	h.MessageIDs = []int{sent.MessageID}
	return h, nil
}

func baseParams(to chat.Target, opts chat.SendOptions) (tgbotapi.Params, error) {
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", to.ChatID)
	params.AddNonZero("message_thread_id", to.ThreadID)
	params.AddNonEmpty("parse_mode", opts.ParseMode)
	params.AddNonZero("reply_to_message_id", opts.ReplyToMessageID)
	params.AddBool("disable_notification", opts.DisableNotification)
	params.AddBool("protect_content", opts.ProtectContent)
	if opts.ReplyMarkup != nil {
		if err := params.AddInterface("reply_markup", opts.ReplyMarkup); err != nil {
			return nil, fmt.Errorf("encoding reply_markup: %w", err)
		}
	}
	for k, v := range opts.Extra {
		if s, ok := v.(string); ok {
			params[k] = s
			continue
		}
		if err := params.AddInterface(k, v); err != nil {
			return nil, fmt.Errorf("encoding %s: %w", k, err)
		}
	}
	return params, nil
}

func uploadName(f chat.File, fallback string) string {
	if f.Name != "" {
		return f.Name
	}
	return fallback
}

// classify wraps Bot API failures so they match the chat sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, chat.ErrTopicClosed), errors.Is(err, chat.ErrRemoteFetch):
		return err
	case chat.IsTopicClosed(err):
		return fmt.Errorf("%w: %v", chat.ErrTopicClosed, err)
	case chat.IsRemoteFetch(err):
		return fmt.Errorf("%w: %v", chat.ErrRemoteFetch, err)
	}
	return err
}
