package body

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"zapdesk/entity"
)

func TestFormatAtReplacesPlaceholders(t *testing.T) {
	contact := &entity.Contact{Name: "Maria Souza"}
	morning := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

	out := FormatAt("{{ms}}, {{name}}! Como podemos ajudar?", contact, morning)
	assert.Equal(t, "Bom dia, Maria! Como podemos ajudar?", out)
}

func TestFormatAtDayPeriods(t *testing.T) {
	cases := []struct {
		hour int
		want string
	}{
		{3, "Boa madrugada"},
		{9, "Bom dia"},
		{15, "Boa tarde"},
		{21, "Boa noite"},
	}
	for _, tc := range cases {
		at := time.Date(2026, 8, 31, tc.hour, 0, 0, 0, time.UTC)
		assert.Equal(t, tc.want, FormatAt("{{ms}}", nil, at))
	}
}

func TestFormatWithNilContact(t *testing.T) {
	out := FormatAt("Ola {{name}}", nil, time.Now())
	assert.Equal(t, "Ola ", out)
}

func TestIsAutomatic(t *testing.T) {
	assert.True(t, IsAutomatic(Marker+"menu text"))
	assert.False(t, IsAutomatic("menu text"))
}
