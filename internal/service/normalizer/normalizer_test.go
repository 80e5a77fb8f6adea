package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"zapdesk/bot/whatsapp"
)

func TestNormalizeText(t *testing.T) {
	raw := &whatsapp.RawMessage{
		WID:       "wamid.1",
		RemoteJid: "5511999990000",
		PushName:  "Maria",
		Text:      &whatsapp.TextContent{Body: "oi"},
	}

	n, err := Normalize(raw)
	assert.NoError(t, err)
	assert.Equal(t, KindText, n.Kind)
	assert.Equal(t, "oi", n.Body)
	assert.Equal(t, "wamid.1", n.WID)
	assert.False(t, n.IsGroup)
}

func TestNormalizeUnwrapsEphemeral(t *testing.T) {
	raw := &whatsapp.RawMessage{
		WID:       "wamid.2",
		RemoteJid: "5511999990000",
		Ephemeral: &whatsapp.RawMessage{
			ViewOnce: &whatsapp.RawMessage{
				Media: &whatsapp.MediaContent{Kind: "image", MediaID: "m1", MimeType: "image/jpeg"},
			},
		},
	}

	n, err := Normalize(raw)
	assert.NoError(t, err)
	assert.Equal(t, KindImage, n.Kind)
	assert.Equal(t, "wamid.2", n.WID)
	assert.NotNil(t, n.Media)
}

func TestNormalizeMediaBodyFallsBackToPlaceholder(t *testing.T) {
	raw := &whatsapp.RawMessage{
		WID:       "wamid.3",
		RemoteJid: "5511999990000",
		Media:     &whatsapp.MediaContent{Kind: "audio", MediaID: "m2", MimeType: "audio/ogg; codecs=opus"},
	}

	n, err := Normalize(raw)
	assert.NoError(t, err)
	assert.Equal(t, KindAudio, n.Kind)
	assert.Equal(t, "audio-file.ogg", n.Body)
}

func TestNormalizeMediaCaptionWins(t *testing.T) {
	raw := &whatsapp.RawMessage{
		WID:       "wamid.4",
		RemoteJid: "5511999990000",
		Media:     &whatsapp.MediaContent{Kind: "image", MediaID: "m3", Caption: "look at this"},
	}

	n, err := Normalize(raw)
	assert.NoError(t, err)
	assert.Equal(t, "look at this", n.Body)
}

func TestNormalizeInteractivePrefersID(t *testing.T) {
	raw := &whatsapp.RawMessage{
		WID:       "wamid.5",
		RemoteJid: "5511999990000",
		Interactive: &whatsapp.InteractiveContent{
			Kind:  "list_reply",
			ID:    "2",
			Title: "Financeiro",
		},
	}

	n, err := Normalize(raw)
	assert.NoError(t, err)
	assert.Equal(t, KindListReply, n.Kind)
	assert.Equal(t, "2", n.Body)
}

func TestNormalizeLocationComposesBody(t *testing.T) {
	raw := &whatsapp.RawMessage{
		WID:       "wamid.6",
		RemoteJid: "5511999990000",
		Location:  &whatsapp.LocationContent{Latitude: -23.55, Longitude: -46.63},
	}

	n, err := Normalize(raw)
	assert.NoError(t, err)
	assert.Equal(t, KindLocation, n.Kind)
	assert.Contains(t, n.Body, "latitude: -23.55")
	assert.Contains(t, n.Body, "longitude: -46.63")
}

func TestNormalizeUnknownKind(t *testing.T) {
	raw := &whatsapp.RawMessage{
		WID:       "wamid.7",
		RemoteJid: "5511999990000",
		Type:      "order",
	}

	_, err := Normalize(raw)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestSkippable(t *testing.T) {
	assert.True(t, Skippable(&whatsapp.RawMessage{Protocol: true}))
	assert.True(t, Skippable(&whatsapp.RawMessage{RemoteJid: "status@broadcast"}))
	assert.False(t, Skippable(&whatsapp.RawMessage{RemoteJid: "5511999990000"}))
}

func TestGroupDetection(t *testing.T) {
	raw := &whatsapp.RawMessage{
		WID:         "wamid.8",
		RemoteJid:   "123456-789@g.us",
		Participant: "5511999990000",
		Text:        &whatsapp.TextContent{Body: "oi"},
	}

	n, err := Normalize(raw)
	assert.NoError(t, err)
	assert.True(t, n.IsGroup)
	assert.Equal(t, "5511999990000", n.Participant)
}
