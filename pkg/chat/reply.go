package chat

import (
	"fmt"
	"strings"
)

// Kind selects the delivery method of a reply.
type Kind string

const (
	KindUnset      Kind = ""
	KindText       Kind = "text"
	KindPhoto      Kind = "photo"
	KindVideo      Kind = "video"
	KindAudio      Kind = "audio"
	KindDocument   Kind = "document"
	KindAnimation  Kind = "animation"
	KindSticker    Kind = "sticker"
	KindLocation   Kind = "location"
	KindMediaGroup Kind = "media_group"
	// KindAuto asks for the content type to be sniffed before sending.
	KindAuto Kind = "auto"
)

// MaxGroupSize is the largest batch the platform accepts; longer lists are truncated.
const MaxGroupSize = 10

// IsMedia reports whether k is one of the single-file media kinds.
func (k Kind) IsMedia() bool {
	switch k {
	case KindPhoto, KindVideo, KindAudio, KindDocument, KindAnimation:
		return true
	}
	return false
}

// Media is one file payload. Exactly one of URL, FileID or Data is expected.
type Media struct {
	URL    string
	FileID string
	Data   []byte
	// Name is the upload file name used with Data.
	Name string
	// Type is a declared kind. Empty means sniff.
	Type Kind
	// Caption is only honored on the first item of a media group.
	Caption string
}

func (m Media) remote() bool { return m.URL != "" && len(m.Data) == 0 }

func (m Media) file() File {
	return File{URL: m.URL, FileID: m.FileID, Data: m.Data, Name: m.Name}
}

// Location is a geographic point.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Valid reports whether both coordinates are set and within range.
func (l Location) Valid() bool {
	if l.Latitude == 0 || l.Longitude == 0 {
		return false
	}
	return l.Latitude >= -90 && l.Latitude <= 90 && l.Longitude >= -180 && l.Longitude <= 180
}

// Options are passthrough delivery options.
type Options struct {
	ReplyToMessageID    int
	ReplyMarkup         any
	DisableNotification bool
	ProtectContent      bool
	// Extra holds platform parameters not modelled above.
	Extra map[string]any
}

// merge overlays o on top of base. Non-zero fields of o win.
func (o Options) merge(base Options) Options {
	out := base
	if o.ReplyToMessageID != 0 {
		out.ReplyToMessageID = o.ReplyToMessageID
	}
	if o.ReplyMarkup != nil {
		out.ReplyMarkup = o.ReplyMarkup
	}
	out.DisableNotification = out.DisableNotification || o.DisableNotification
	out.ProtectContent = out.ProtectContent || o.ProtectContent
	if len(o.Extra) > 0 {
		extra := make(map[string]any, len(base.Extra)+len(o.Extra))
		for k, v := range base.Extra {
			extra[k] = v
		}
		for k, v := range o.Extra {
			extra[k] = v
		}
		out.Extra = extra
	}
	return out
}

// Reply describes one logical outbound reply.
//
// Payload is carried by exactly one of Media, Group or Location. When Kind
// is unset it is inferred: no payload means text, a Group means a media
// group and a single Media means auto.
type Reply struct {
	Body      string
	Kind      Kind
	Media     *Media
	Group     []Media
	Location  *Location
	ParseMode string
	Options   Options
}

// Text builds a plain text reply.
func Text(body string) Reply { return Reply{Body: body, Kind: KindText} }

// Textf builds a plain text reply from a format string.
func Textf(format string, args ...any) Reply { return Text(fmt.Sprintf(format, args...)) }

// Markdown builds a text reply rendered with Markdown.
func Markdown(body string) Reply { return Reply{Body: body, Kind: KindText, ParseMode: "Markdown"} }

// Photo, Video, Audio, Document and Animation build single remote media replies.
func Photo(url, caption string) Reply     { return single(KindPhoto, url, caption) }
func Video(url, caption string) Reply     { return single(KindVideo, url, caption) }
func Audio(url, caption string) Reply     { return single(KindAudio, url, caption) }
func Document(url, caption string) Reply  { return single(KindDocument, url, caption) }
func Animation(url, caption string) Reply { return single(KindAnimation, url, caption) }

// Auto builds a single media reply whose kind is sniffed from the URL.
func Auto(url, caption string) Reply { return single(KindAuto, url, caption) }

// Sticker sends a sticker by file id or URL.
func Sticker(ref string) Reply {
	m := &Media{URL: ref}
	if !isURL(ref) {
		m = &Media{FileID: ref}
	}
	return Reply{Kind: KindSticker, Media: m}
}

// Locate sends a location pin.
func Locate(latitude, longitude float64) Reply {
	return Reply{Kind: KindLocation, Location: &Location{Latitude: latitude, Longitude: longitude}}
}

// List builds a batched reply of one declared kind. Each item is still sniffed.
func List(kind Kind, caption string, urls ...string) Reply {
	return Reply{Body: caption, Kind: kind, Group: urlItems(urls)}
}

// Album builds a media group from bare URLs.
func Album(caption string, urls ...string) Reply {
	return Reply{Body: caption, Group: urlItems(urls)}
}

func single(kind Kind, url, caption string) Reply {
	return Reply{Body: caption, Kind: kind, Media: &Media{URL: url}}
}

func urlItems(urls []string) []Media {
	items := make([]Media, 0, len(urls))
	for _, u := range urls {
		items = append(items, Media{URL: u})
	}
	return items
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// normalized resolves the implicit kind of r.
func (r Reply) normalized() Reply {
	if r.Kind != KindUnset {
		if r.Kind == KindMediaGroup && r.Group == nil && r.Media != nil {
			r.Group = []Media{*r.Media}
			r.Media = nil
		}
		return r
	}
	switch {
	case r.Group != nil:
		r.Kind = KindMediaGroup
	case r.Media != nil:
		r.Kind = KindAuto
	case r.Location != nil:
		r.Kind = KindLocation
	default:
		r.Kind = KindText
	}
	return r
}
