// Package normalizer converts raw protocol events into the canonical
// message shape the rest of the pipeline works with. It is a pure
// function of the event; the only side effect is the diagnostic report
// on an unrecognized kind.
package normalizer

import (
	"errors"
	"fmt"
	"strings"

	"zapdesk/bot/whatsapp"
)

// ErrUnknownKind marks an event whose content could not be classified.
// The event is reported and dropped; siblings in the same batch keep
// flowing.
var ErrUnknownKind = errors.New("unknown message kind")

// Canonical message kinds.
const (
	KindText        = "chat"
	KindImage       = "image"
	KindVideo       = "video"
	KindAudio       = "audio"
	KindDocument    = "document"
	KindSticker     = "sticker"
	KindLocation    = "location"
	KindContactCard = "vcard"
	KindButtonReply = "buttonReply"
	KindListReply   = "listReply"
	KindReaction    = "reaction"
)

// Normalized is the canonical record of one inbound event.
type Normalized struct {
	WID         string
	Kind        string
	Body        string
	FromMe      bool
	Ack         int
	QuotedWID   string
	RemoteJid   string
	Participant string
	PushName    string
	IsGroup     bool
	Timestamp   int64

	Media *whatsapp.MediaContent
}

// Skippable reports whether an event carries nothing the pipeline should
// route: protocol/system notices and status broadcasts.
func Skippable(raw *whatsapp.RawMessage) bool {
	if raw.Protocol {
		return true
	}
	return strings.HasPrefix(raw.RemoteJid, "status@broadcast")
}

// Normalize classifies a raw event and extracts its body and routing
// identifiers. Ephemeral and view-once wrappers are unwrapped to the
// inner message, keeping the outer envelope's ids.
func Normalize(raw *whatsapp.RawMessage) (*Normalized, error) {
	inner := unwrap(raw)

	kind, body, err := classify(inner)
	if err != nil {
		return nil, err
	}

	return &Normalized{
		WID:         raw.WID,
		Kind:        kind,
		Body:        body,
		FromMe:      raw.FromMe,
		Ack:         raw.Ack,
		QuotedWID:   raw.QuotedWID,
		RemoteJid:   raw.RemoteJid,
		Participant: raw.Participant,
		PushName:    raw.PushName,
		IsGroup:     raw.IsGroup(),
		Timestamp:   raw.Timestamp,
		Media:       inner.Media,
	}, nil
}

func unwrap(raw *whatsapp.RawMessage) *whatsapp.RawMessage {
	for {
		switch {
		case raw.Ephemeral != nil:
			raw = raw.Ephemeral
		case raw.ViewOnce != nil:
			raw = raw.ViewOnce
		default:
			return raw
		}
	}
}

func classify(m *whatsapp.RawMessage) (string, string, error) {
	switch {
	case m.Text != nil:
		return KindText, m.Text.Body, nil

	case m.Media != nil:
		return mediaKind(m.Media), mediaBody(m.Media), nil

	case m.Location != nil:
		body := fmt.Sprintf("latitude: %f | longitude: %f", m.Location.Latitude, m.Location.Longitude)
		if m.Location.Thumbnail != "" {
			body = m.Location.Thumbnail + " | " + body
		}
		return KindLocation, body, nil

	case m.ContactCard != nil:
		if m.ContactCard.Count > 1 {
			return KindContactCard, fmt.Sprintf("%d contacts", m.ContactCard.Count), nil
		}
		return KindContactCard, m.ContactCard.DisplayName, nil

	case m.Interactive != nil:
		kind := KindButtonReply
		if m.Interactive.Kind == "list_reply" {
			kind = KindListReply
		}
		// Menus are built with the option key as the row/button id, so
		// the id is the selection; the title is only a display label.
		body := m.Interactive.ID
		if body == "" {
			body = m.Interactive.Title
		}
		return kind, body, nil

	case m.Buttons != nil:
		return KindText, m.Buttons.Text, nil

	case m.List != nil:
		return KindText, m.List.Text, nil

	case m.Reaction != nil:
		return KindReaction, m.Reaction.Emoji, nil
	}

	return "", "", fmt.Errorf("%w: type %q", ErrUnknownKind, m.Type)
}

func mediaKind(m *whatsapp.MediaContent) string {
	switch m.Kind {
	case "image":
		return KindImage
	case "video":
		return KindVideo
	case "audio":
		return KindAudio
	case "document":
		return KindDocument
	case "sticker":
		return KindSticker
	}
	return m.Kind
}

// mediaBody is the caption when present, else a placeholder filename
// derived from the mime type so the chat preview never shows empty.
func mediaBody(m *whatsapp.MediaContent) string {
	if m.Caption != "" {
		return m.Caption
	}
	if m.Filename != "" {
		return m.Filename
	}
	ext := "bin"
	if idx := strings.Index(m.MimeType, "/"); idx >= 0 && idx+1 < len(m.MimeType) {
		ext = m.MimeType[idx+1:]
		if semi := strings.Index(ext, ";"); semi >= 0 {
			ext = ext[:semi]
		}
	}
	return fmt.Sprintf("%s-file.%s", m.Kind, ext)
}
