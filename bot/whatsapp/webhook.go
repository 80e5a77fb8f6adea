package whatsapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
)

// WebhookPayload is the incoming webhook body from the provider.
type WebhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Value struct {
				MessagingProduct string `json:"messaging_product"`
				Metadata         struct {
					DisplayPhoneNumber string `json:"display_phone_number"`
					PhoneNumberID      string `json:"phone_number_id"`
				} `json:"metadata"`
				Contacts []struct {
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
					WaID string `json:"wa_id"`
				} `json:"contacts"`
				Messages []webhookMessage `json:"messages"`
				Statuses []struct {
					ID          string `json:"id"`
					Status      string `json:"status"`
					Timestamp   string `json:"timestamp"`
					RecipientID string `json:"recipient_id"`
				} `json:"statuses"`
			} `json:"value"`
			Field string `json:"field"`
		} `json:"changes"`
	} `json:"entry"`
}

type webhookMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Context   *struct {
		From string `json:"from"`
		ID   string `json:"id"`
	} `json:"context,omitempty"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Image    *webhookMedia `json:"image,omitempty"`
	Video    *webhookMedia `json:"video,omitempty"`
	Audio    *webhookMedia `json:"audio,omitempty"`
	Document *webhookMedia `json:"document,omitempty"`
	Sticker  *webhookMedia `json:"sticker,omitempty"`
	Location *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location,omitempty"`
	Contacts []struct {
		Name struct {
			FormattedName string `json:"formatted_name"`
		} `json:"name"`
	} `json:"contacts,omitempty"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply,omitempty"`
		ListReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"list_reply,omitempty"`
	} `json:"interactive,omitempty"`
	Button *struct {
		Payload string `json:"payload"`
		Text    string `json:"text"`
	} `json:"button,omitempty"`
	Reaction *struct {
		Emoji     string `json:"emoji"`
		MessageID string `json:"message_id"`
	} `json:"reaction,omitempty"`
	System *struct {
		Body string `json:"body"`
	} `json:"system,omitempty"`
	Errors []struct {
		Code  int    `json:"code"`
		Title string `json:"title"`
	} `json:"errors,omitempty"`
}

// ackOrdinal maps provider status strings onto the ack scale.
var ackOrdinal = map[string]int{
	"sent":      1,
	"delivered": 2,
	"read":      3,
}

// DecodePayload turns a webhook payload into raw message and ack events.
func DecodePayload(payload *WebhookPayload) ([]RawMessage, []AckEvent) {
	var msgs []RawMessage
	var acks []AckEvent

	if payload.Object != "whatsapp_business_account" {
		return nil, nil
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			names := make(map[string]string, len(change.Value.Contacts))
			for _, c := range change.Value.Contacts {
				names[c.WaID] = c.Profile.Name
			}
			for _, wm := range change.Value.Messages {
				msgs = append(msgs, decodeMessage(wm, names[wm.From]))
			}
			for _, st := range change.Value.Statuses {
				ack, ok := ackOrdinal[st.Status]
				if !ok {
					continue
				}
				ts, _ := strconv.ParseInt(st.Timestamp, 10, 64)
				acks = append(acks, AckEvent{
					WID:       st.ID,
					RemoteJid: st.RecipientID,
					Ack:       ack,
					Timestamp: ts,
				})
			}
		}
	}
	return msgs, acks
}

func decodeMessage(wm webhookMessage, pushName string) RawMessage {
	ts, _ := strconv.ParseInt(wm.Timestamp, 10, 64)
	raw := RawMessage{
		WID:       wm.ID,
		RemoteJid: wm.From,
		PushName:  pushName,
		Timestamp: ts,
		Type:      wm.Type,
	}
	if wm.Context != nil {
		raw.QuotedWID = wm.Context.ID
	}

	switch {
	case wm.Text != nil:
		raw.Text = &TextContent{Body: wm.Text.Body}
	case wm.Image != nil:
		raw.Media = mediaContent("image", wm.Image)
	case wm.Video != nil:
		raw.Media = mediaContent("video", wm.Video)
	case wm.Audio != nil:
		raw.Media = mediaContent("audio", wm.Audio)
	case wm.Document != nil:
		raw.Media = mediaContent("document", wm.Document)
	case wm.Sticker != nil:
		raw.Media = mediaContent("sticker", wm.Sticker)
	case wm.Location != nil:
		raw.Location = &LocationContent{
			Latitude:  wm.Location.Latitude,
			Longitude: wm.Location.Longitude,
		}
	case len(wm.Contacts) > 0:
		raw.ContactCard = &ContactCardContent{
			DisplayName: wm.Contacts[0].Name.FormattedName,
			Count:       len(wm.Contacts),
		}
	case wm.Interactive != nil && wm.Interactive.ButtonReply != nil:
		raw.Interactive = &InteractiveContent{
			Kind:  "button_reply",
			ID:    wm.Interactive.ButtonReply.ID,
			Title: wm.Interactive.ButtonReply.Title,
		}
	case wm.Interactive != nil && wm.Interactive.ListReply != nil:
		raw.Interactive = &InteractiveContent{
			Kind:  "list_reply",
			ID:    wm.Interactive.ListReply.ID,
			Title: wm.Interactive.ListReply.Title,
		}
	case wm.Button != nil:
		raw.Interactive = &InteractiveContent{
			Kind:  "button_reply",
			ID:    wm.Button.Payload,
			Title: wm.Button.Text,
		}
	case wm.Reaction != nil:
		raw.Reaction = &ReactionContent{
			Emoji:     wm.Reaction.Emoji,
			TargetWID: wm.Reaction.MessageID,
		}
	case wm.System != nil:
		raw.Protocol = true
	}
	return raw
}

func mediaContent(kind string, m *webhookMedia) *MediaContent {
	return &MediaContent{
		Kind:     kind,
		MediaID:  m.ID,
		MimeType: m.MimeType,
		Caption:  m.Caption,
		Filename: m.Filename,
	}
}

type webhookMedia struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	SHA256   string `json:"sha256"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// VerifySignature checks the X-Hub-Signature-256 header against the
// request body.
func VerifySignature(appSecret string, requestBody []byte, signature string) bool {
	if signature == "" || len(signature) < 8 || signature[:7] != "sha256=" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(requestBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature[7:]), []byte(expected))
}

// ParsePayload unmarshals a webhook body.
func ParsePayload(requestBody []byte) (*WebhookPayload, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(requestBody, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
