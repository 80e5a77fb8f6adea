package whatsapp

import "context"

// MenuRow is one selectable row of a list menu.
type MenuRow struct {
	ID    string
	Title string
}

// MenuButton is one quick-reply button.
type MenuButton struct {
	ID   string
	Text string
}

// GroupMetadata describes a group chat.
type GroupMetadata struct {
	ID      string
	Subject string
}

// Session is one live connection to the messaging provider. Send methods
// return the provider message id of the sent message so it can be
// recorded with the conversation.
type Session interface {
	ID() uint
	CompanyID() uint

	SendText(ctx context.Context, jid, text string) (string, error)
	SendList(ctx context.Context, jid, text, buttonText string, rows []MenuRow) (string, error)
	SendButtons(ctx context.Context, jid, text string, buttons []MenuButton) (string, error)
	SendImage(ctx context.Context, jid, url, caption string) (string, error)
	SendDocument(ctx context.Context, jid, url, filename string) (string, error)

	ProfilePictureURL(ctx context.Context, jid string) (string, error)
	GroupMetadata(ctx context.Context, jid string) (*GroupMetadata, error)
	MarkRead(ctx context.Context, wids []string) error
	DownloadMedia(ctx context.Context, mediaID string) (data []byte, mimeType string, err error)
}
