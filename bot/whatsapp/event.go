package whatsapp

// RawMessage is one inbound protocol event in provider shape, before
// normalization. Exactly one content field is set for a well-formed
// message; wrapper kinds (ephemeral, view-once) carry the inner message
// instead.
type RawMessage struct {
	WID         string
	RemoteJid   string
	Participant string
	PushName    string
	FromMe      bool
	Timestamp   int64
	Type        string
	Ack         int

	QuotedWID string

	Text        *TextContent
	Media       *MediaContent
	Location    *LocationContent
	ContactCard *ContactCardContent
	Interactive *InteractiveContent
	Buttons     *ButtonsContent
	List        *ListContent
	Reaction    *ReactionContent

	Ephemeral *RawMessage
	ViewOnce  *RawMessage

	Protocol bool
}

type TextContent struct {
	Body string
}

// MediaContent covers image, video, audio, document and sticker payloads.
type MediaContent struct {
	Kind     string // image | video | audio | document | sticker
	MediaID  string
	MimeType string
	Caption  string
	Filename string
}

type LocationContent struct {
	Latitude  float64
	Longitude float64
	Thumbnail string
	Live      bool
}

type ContactCardContent struct {
	DisplayName string
	Vcard       string
	Count       int
}

// InteractiveContent is the customer's reply to a button or list menu.
type InteractiveContent struct {
	Kind  string // button_reply | list_reply
	ID    string
	Title string
}

// ButtonsContent is an outbound quick-reply menu echoed back by the
// provider.
type ButtonsContent struct {
	Text    string
	Buttons []MenuButton
}

// ListContent is an outbound list menu echoed back by the provider.
type ListContent struct {
	Text string
	Rows []MenuRow
}

type ReactionContent struct {
	Emoji     string
	TargetWID string
}

// IsGroup reports whether the event belongs to a group chat.
func (m *RawMessage) IsGroup() bool {
	return len(m.RemoteJid) > 5 && m.RemoteJid[len(m.RemoteJid)-5:] == "@g.us"
}

// AckEvent is a delivery/read receipt for a previously sent message.
type AckEvent struct {
	WID       string
	RemoteJid string
	Ack       int
	Timestamp int64
}
