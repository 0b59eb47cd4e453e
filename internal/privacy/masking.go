package privacy

import (
	"chatwire/internal/constants"
)

// MaskSenderName hides all but the first few runes of a sender name with a
// filler glyph, one glyph per hidden rune.
// Example: "Система" -> "Сист∙∙∙∙". Names at or under the visible length are
// returned unchanged. Masking is rune-aware so multi-byte names keep their
// visible length.
func MaskSenderName(name string) string {
	return maskAfter(name, constants.SenderNameVisibleRunes)
}

// maskAfter keeps the first keep runes of s and replaces the remainder with
// the filler glyph.
func maskAfter(s string, keep int) string {
	runes := []rune(s)
	if len(runes) <= keep {
		return s
	}

	masked := make([]rune, len(runes))
	copy(masked, runes[:keep])
	for i := keep; i < len(runes); i++ {
		masked[i] = constants.SenderNameFillerRune
	}
	return string(masked)
}

// MaskSensitiveFields applies sender-name masking to common logging fields.
func MaskSensitiveFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return nil
	}

	masked := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		switch k {
		case "sender", "sender_name", "senderName":
			if s, ok := v.(string); ok {
				masked[k] = MaskSenderName(s)
			} else {
				masked[k] = v
			}
		default:
			masked[k] = v
		}
	}
	return masked
}
