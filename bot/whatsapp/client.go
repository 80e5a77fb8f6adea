package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"zapdesk/internal/lib/sl"
)

const graphAPIURL = "https://graph.facebook.com/v21.0"

// Client is a Graph API session for one connected number.
type Client struct {
	log           *slog.Logger
	http          *http.Client
	accessToken   string
	phoneNumberID string
	whatsappID    uint
	companyID     uint
}

func NewClient(accessToken, phoneNumberID string, whatsappID, companyID uint, log *slog.Logger) *Client {
	return &Client{
		log: log.With(
			sl.Module("whatsapp.client"),
			slog.Uint64("whatsapp_id", uint64(whatsappID)),
		),
		http:          &http.Client{Timeout: 30 * time.Second},
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		whatsappID:    whatsappID,
		companyID:     companyID,
	}
}

func (c *Client) ID() uint        { return c.whatsappID }
func (c *Client) CompanyID() uint { return c.companyID }

// sendResponse is the provider's reply to a send call.
type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// SendText sends a plain text message and returns the provider id.
func (c *Client) SendText(ctx context.Context, jid, text string) (string, error) {
	body := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                jid,
		"type":              "text",
		"text": map[string]any{
			"preview_url": false,
			"body":        text,
		},
	}
	return c.send(ctx, body)
}

// SendList sends a list menu. The provider caps rows at 10 per section.
func (c *Client) SendList(ctx context.Context, jid, text, buttonText string, rows []MenuRow) (string, error) {
	apiRows := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		apiRows = append(apiRows, map[string]any{
			"id":    r.ID,
			"title": truncate(r.Title, 24),
		})
	}
	body := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                jid,
		"type":              "interactive",
		"interactive": map[string]any{
			"type": "list",
			"body": map[string]any{"text": text},
			"action": map[string]any{
				"button": truncate(buttonText, 20),
				"sections": []map[string]any{
					{"rows": apiRows},
				},
			},
		},
	}
	return c.send(ctx, body)
}

// SendButtons sends a quick-reply menu. The provider caps buttons at 3.
func (c *Client) SendButtons(ctx context.Context, jid, text string, buttons []MenuButton) (string, error) {
	apiButtons := make([]map[string]any, 0, len(buttons))
	for _, b := range buttons {
		apiButtons = append(apiButtons, map[string]any{
			"type": "reply",
			"reply": map[string]any{
				"id":    b.ID,
				"title": truncate(b.Text, 20),
			},
		})
	}
	body := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                jid,
		"type":              "interactive",
		"interactive": map[string]any{
			"type":   "button",
			"body":   map[string]any{"text": text},
			"action": map[string]any{"buttons": apiButtons},
		},
	}
	return c.send(ctx, body)
}

// SendImage sends an image by public URL.
func (c *Client) SendImage(ctx context.Context, jid, url, caption string) (string, error) {
	body := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                jid,
		"type":              "image",
		"image": map[string]any{
			"link":    url,
			"caption": caption,
		},
	}
	return c.send(ctx, body)
}

// SendDocument sends a document by public URL.
func (c *Client) SendDocument(ctx context.Context, jid, url, filename string) (string, error) {
	body := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                jid,
		"type":              "document",
		"document": map[string]any{
			"link":     url,
			"filename": filename,
		},
	}
	return c.send(ctx, body)
}

func (c *Client) send(ctx context.Context, body map[string]any) (string, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", graphAPIURL, c.phoneNumberID)
	data, err := c.do(ctx, http.MethodPost, url, jsonBody)
	if err != nil {
		return "", err
	}

	var resp sendResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("failed to parse send response: %w", err)
	}
	if len(resp.Messages) == 0 {
		return "", fmt.Errorf("send response carried no message id")
	}
	return resp.Messages[0].ID, nil
}

// MarkRead marks inbound messages as read on the provider side.
func (c *Client) MarkRead(ctx context.Context, wids []string) error {
	url := fmt.Sprintf("%s/%s/messages", graphAPIURL, c.phoneNumberID)
	for _, wid := range wids {
		body := map[string]any{
			"messaging_product": "whatsapp",
			"status":            "read",
			"message_id":        wid,
		}
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		if _, err := c.do(ctx, http.MethodPost, url, jsonBody); err != nil {
			return err
		}
	}
	return nil
}

// ProfilePictureURL fetches the contact's profile picture URL.
func (c *Client) ProfilePictureURL(ctx context.Context, jid string) (string, error) {
	url := fmt.Sprintf("%s/%s?fields=profile_picture_url", graphAPIURL, jid)
	data, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	var resp struct {
		ProfilePictureURL string `json:"profile_picture_url"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("failed to parse profile response: %w", err)
	}
	return resp.ProfilePictureURL, nil
}

// GroupMetadata fetches the subject of a group chat.
func (c *Client) GroupMetadata(ctx context.Context, jid string) (*GroupMetadata, error) {
	url := fmt.Sprintf("%s/%s?fields=subject", graphAPIURL, jid)
	data, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		ID      string `json:"id"`
		Subject string `json:"subject"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse group response: %w", err)
	}
	return &GroupMetadata{ID: resp.ID, Subject: resp.Subject}, nil
}

// DownloadMedia resolves a media id to its binary content. Media URLs
// become available with a delay after the webhook fires, so the lookup
// retries with a widening backoff before giving up.
func (c *Client) DownloadMedia(ctx context.Context, mediaID string) ([]byte, string, error) {
	var lastErr error
	for attempt := 1; attempt <= 10; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		data, mimeType, err := c.downloadMediaOnce(ctx, mediaID)
		if err == nil {
			return data, mimeType, nil
		}
		lastErr = err
		c.log.Debug("media download attempt failed",
			slog.String("media_id", mediaID),
			slog.Int("attempt", attempt),
			sl.Err(err),
		)
	}
	return nil, "", fmt.Errorf("downloading media %s: %w", mediaID, lastErr)
}

func (c *Client) downloadMediaOnce(ctx context.Context, mediaID string) ([]byte, string, error) {
	metaURL := fmt.Sprintf("%s/%s", graphAPIURL, mediaID)
	data, err := c.do(ctx, http.MethodGet, metaURL, nil)
	if err != nil {
		return nil, "", err
	}

	var meta struct {
		URL      string `json:"url"`
		MimeType string `json:"mime_type"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, "", fmt.Errorf("failed to parse media response: %w", err)
	}
	if meta.URL == "" {
		return nil, "", fmt.Errorf("media %s has no download url yet", mediaID)
	}

	content, err := c.do(ctx, http.MethodGet, meta.URL, nil)
	if err != nil {
		return nil, "", err
	}
	return content, meta.MimeType, nil
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewBuffer(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(data))
	}
	return data, nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
