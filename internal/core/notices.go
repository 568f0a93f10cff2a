package core

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Keys of informational notices.
const (
	msgBanlist             = "banlist"
	msgBanlistEmpty        = "banlist_empty"
	msgChannelBanlist      = "channel_banlist"
	msgChannelBanlistEmpty = "channel_banlist_empty"
	msgBanned              = "banned_id"
	msgUnbanned            = "unbanned_id"
	msgChannelBanned       = "channel_banned_id"
	msgChannelUnbanned     = "channel_unbanned_id"
	msgAccessChanged       = "access_changed"
	msgWhoami              = "whoami"
	msgWhois               = "whois"
	msgFindIP              = "find_ip"
	msgFindIPEmpty         = "find_ip_empty"
	msgRegistered          = "registered"
	msgVerificationSent    = "verification_sent"
	msgVerified            = "verified"
	msgUnregistered        = "unregistered"
)

var noticeLanguage = language.English

var englishNotices = map[string]string{
	ErrCodeBanned:                  "You are banned.",
	ErrCodeInvalidCommand:          "Invalid command.",
	ErrCodeInvalidCommandParams:    "Invalid command parameters.",
	ErrCodeInvalidCommandAccess:    "You don't have access to that command.",
	ErrCodeInvalidLogin:            "Incorrect password.",
	ErrCodeNickVerified:            "That nick is registered, log in to use it.",
	ErrCodeNickNotVerified:         "That nick is not registered.",
	ErrCodeAlreadyBeingUsed:        "That nick is already being used.",
	ErrCodeNegotiationFailed:       "Could not find a free nick, try again.",
	ErrCodeUserDoesntExist:         "User %s does not exist.",
	ErrCodePMOffline:               "That user is not online.",
	ErrCodeNotBanned:               "%s is not banned.",
	ErrCodeInternal:                "Something went wrong, try again later.",
	ErrCodeAlreadyRegistered:       "You are already registered.",
	ErrCodeNotRegistered:           "You are not registered.",
	ErrCodeInvalidEmail:            "Invalid email address.",
	ErrCodeInvalidPassword:         "Password is too short.",
	ErrCodeInvalidVerificationCode: "Invalid verification code.",

	msgBanlist:             "Globally banned: %s",
	msgBanlistEmpty:        "Nobody is banned globally.",
	msgChannelBanlist:      "Banned in this channel: %s",
	msgChannelBanlistEmpty: "Nobody is banned in this channel.",
	msgBanned:              "%s is now banned.",
	msgUnbanned:            "%s is no longer banned.",
	msgChannelBanned:       "%s is now banned from this channel.",
	msgChannelUnbanned:     "%s is no longer banned from this channel.",
	msgAccessChanged:       "%s now has access level %s.",
	msgWhoami:              "You are %s with access level %s, connected from %s.",
	msgWhois:               "%s has access level %s, last seen from %s.",
	msgFindIP:              "Nicks seen from %s: %s",
	msgFindIPEmpty:         "No nicks seen from %s.",
	msgRegistered:          "You are now registered.",
	msgVerificationSent:    "A verification code was sent to %s.",
	msgVerified:            "Your nick is now verified.",
	msgUnregistered:        "Your nick is no longer registered.",
}

func newNoticeCatalog() (catalog.Catalog, error) {
	b := catalog.NewBuilder(catalog.Fallback(noticeLanguage))
	for key, text := range englishNotices {
		if err := b.SetString(noticeLanguage, key, text); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// text renders a notice. The printer groups digits, so numbers are passed as strings.
func (h *Hub) text(key string, args ...any) string {
	p := message.NewPrinter(noticeLanguage, message.Catalog(h.catalog))
	return p.Sprintf(key, args...)
}

func (h *Hub) success(key string, args ...any) Result {
	return Result{OK: true, Message: h.text(key, args...)}
}

func (h *Hub) failure(code string, args ...any) Result {
	return Result{Code: code, Message: h.text(code, args...)}
}
