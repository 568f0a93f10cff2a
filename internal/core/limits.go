package core

import (
	"strings"

	"github.com/ergochat/irc-go/ircutils"
)

// truncate cuts s to at most limit bytes without splitting a UTF-8 sequence.
// A non-positive limit disables truncation.
func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return ircutils.TruncateUTF8Safe(s, limit)
}

func (h *Hub) normalizeNick(nick string) string {
	return strings.TrimSpace(truncate(strings.TrimSpace(nick), h.settings.NickLimit))
}
