package util

import (
	"strings"

	"github.com/google/uuid"
)

const (
	sessionPrefix = "sess_"
	orderPrefix   = "ord_"
	channelPrefix = "wa_"
	// SessionHexLength is the number of hex characters after the session prefix.
	SessionHexLength = 12
)

// NewSessionID returns "sess_" followed by 12 hex characters taken from a random UUID.
func NewSessionID() string {
	return sessionPrefix + compactUUID()[:SessionHexLength]
}

// NewOrderID returns "ord_" followed by a full random UUID without dashes.
func NewOrderID() string {
	return orderPrefix + compactUUID()
}

// ChannelSessionID maps a messaging sender such as "+66 81-234-5678" or
// "whatsapp:+66812345678" to a stable session id made of its digits.
// It returns "" when sender has no digits.
func ChannelSessionID(sender string) string {
	digits := DigitsOnly(sender)
	if digits == "" {
		return ""
	}
	return channelPrefix + digits
}

// DigitsOnly strips everything except ASCII digits.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func compactUUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
