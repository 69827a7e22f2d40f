// Package i18n loads the localized message catalogs used for API responses
// and negotiates a language from Accept-Language.
package i18n

import (
	"embed"
	"fmt"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

//go:embed active.*.toml
var localeFS embed.FS

// Message identifiers shared with the HTTP layer.
const (
	MsgInvalidRequest     = "InvalidRequest"
	MsgUnauthenticated    = "Unauthenticated"
	MsgSessionExpired     = "SessionExpired"
	MsgSessionRevoked     = "SessionRevoked"
	MsgInvalidCredentials = "InvalidCredentials"
	MsgForbidden          = "Forbidden"
	MsgNotFound           = "NotFound"
	MsgTitleTaken         = "TitleTaken"
	MsgAlreadyAttending   = "AlreadyAttending"
	MsgNotAttending       = "NotAttending"
	MsgQuotaExceeded      = "QuotaExceeded"
	MsgValidationFailed   = "ValidationFailed"
	MsgIdentityProvider   = "IdentityProvider"
	MsgInvalidState       = "InvalidState"
	MsgRateLimited        = "RateLimited"
	MsgInternal           = "Internal"

	MsgEventCreated  = "EventCreated"
	MsgEventUpdated  = "EventUpdated"
	MsgEventDeleted  = "EventDeleted"
	MsgEventJoined   = "EventJoined"
	MsgEventLeft     = "EventLeft"
	MsgAdminStatus   = "AdminStatusSet"
	MsgFieldRequired = "FieldRequired"

	MsgProfanity       = "FieldProfanity"
	MsgTitleRequired   = "TitleRequired"
	MsgDateFormat      = "DateFormat"
	MsgTimeFormat      = "TimeFormat"
	MsgImageNotAllowed = "ImageNotAllowed"
	MsgUserIDRequired  = "UserIDRequired"
)

var supported = []language.Tag{language.English, language.Japanese}

// Bundle holds every loaded catalog.
type Bundle struct {
	bundle  *i18n.Bundle
	matcher language.Matcher
}

// NewBundle loads the embedded English and Japanese catalogs. English is the
// fallback language.
func NewBundle() (*Bundle, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, file := range []string{"active.en.toml", "active.ja.toml"} {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			return nil, fmt.Errorf("i18n: failed to load %s: %w", file, err)
		}
	}

	return &Bundle{bundle: bundle, matcher: language.NewMatcher(supported)}, nil
}

// MustNewBundle is NewBundle for process start-up and tests.
func MustNewBundle() *Bundle {
	b, err := NewBundle()
	if err != nil {
		panic(err)
	}
	return b
}

// Negotiate picks the supported language that best matches an
// Accept-Language header value.
func (b *Bundle) Negotiate(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(strings.TrimSpace(acceptLanguage))
	if err != nil || len(tags) == 0 {
		return supported[0]
	}
	_, index, confidence := b.matcher.Match(tags...)
	if confidence == language.No || index < 0 || index >= len(supported) {
		return supported[0]
	}
	return supported[index]
}

// Localizer returns a Localizer for the negotiated language.
func (b *Bundle) Localizer(acceptLanguage string) *Localizer {
	tag := b.Negotiate(acceptLanguage)
	return &Localizer{
		localizer: i18n.NewLocalizer(b.bundle, tag.String(), supported[0].String()),
		tag:       tag,
	}
}

// Localizer renders messages in one language.
type Localizer struct {
	localizer *i18n.Localizer
	tag       language.Tag
}

// Language returns the language messages are rendered in.
func (l *Localizer) Language() language.Tag {
	if l == nil {
		return supported[0]
	}
	return l.tag
}

// Message renders id with optional template data. Unknown ids render as the
// id itself.
func (l *Localizer) Message(id string, data map[string]any) string {
	if l == nil || id == "" {
		return id
	}
	msg, err := l.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
	})
	if err != nil {
		return id
	}
	return msg
}
