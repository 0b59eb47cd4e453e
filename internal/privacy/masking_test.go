package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSenderName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"short name unchanged", "Ann", "Ann"},
		{"exactly visible length unchanged", "Anna", "Anna"},
		{"ascii masked", "Alexander", "Alex∙∙∙∙∙"},
		{"cyrillic masked rune-aware", "Система", "Сист∙∙∙"},
		{"cyrillic eight runes", "Оператор", "Опер∙∙∙∙"},
		{"five chars", "admin", "admi∙"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskSenderName(tt.input))
		})
	}
}

func TestMaskSensitiveFields(t *testing.T) {
	fields := map[string]interface{}{
		"sender_name": "Alexander",
		"message_id":  int64(7),
	}

	masked := MaskSensitiveFields(fields)
	assert.Equal(t, "Alex∙∙∙∙∙", masked["sender_name"])
	assert.Equal(t, int64(7), masked["message_id"])

	assert.Nil(t, MaskSensitiveFields(nil))
}
