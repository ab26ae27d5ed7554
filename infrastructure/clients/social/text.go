package social

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"brandhub/domain/model"

	"golang.org/x/oauth2"
)

// missingTags returns the hashtags, normalised to "#tag", that text does not
// already contain. Comparison is case-insensitive.
func missingTags(text string, hashtags []string) []string {
	present := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if strings.HasPrefix(w, "#") {
			present[strings.TrimRight(w, ".,;:!?")] = struct{}{}
		}
	}
	var out []string
	for _, h := range hashtags {
		tag := strings.TrimLeft(strings.TrimSpace(h), "#")
		if tag == "" {
			continue
		}
		key := "#" + strings.ToLower(tag)
		if _, ok := present[key]; ok {
			continue
		}
		present[key] = struct{}{}
		out = append(out, "#"+tag)
	}
	return out
}

func composeTail(text string, hashtags []string, link string, withLink bool) (tags, tailLink string) {
	tags = strings.Join(missingTags(text, hashtags), " ")
	if withLink && link != "" && !strings.Contains(text, link) {
		tailLink = link
	}
	return tags, tailLink
}

func joinParagraphs(parts ...string) string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}

// ComposeText appends the hashtags not already present in text and,
// when withLink is set, the link on its own paragraph.
func ComposeText(text string, hashtags []string, link string, withLink bool) string {
	tags, tailLink := composeTail(text, hashtags, link, withLink)
	return joinParagraphs(strings.TrimSpace(text), tags, tailLink)
}

// ComposeLimited is ComposeText for a network with a max rune limit. Only the
// body is shortened; hashtags and the link stay intact. A positive linkWeight
// is the length the network charges for a link regardless of its size.
func ComposeLimited(text string, hashtags []string, link string, max, linkWeight int) string {
	full := ComposeText(text, hashtags, link, true)
	if postLength(full, link, linkWeight) <= max {
		return full
	}
	body := strings.TrimSpace(text)
	if link != "" && strings.Contains(body, link) {
		body = strings.TrimSpace(strings.Replace(body, link, "", 1))
	}
	tags, tailLink := composeTail(body, hashtags, link, true)
	budget := max - postLength(joinParagraphs(tags, tailLink), link, linkWeight)
	if body != "" {
		budget -= 2
	}
	if budget < 1 {
		return Truncate(full, max)
	}
	return joinParagraphs(Truncate(body, budget), tags, tailLink)
}

func postLength(s, link string, linkWeight int) int {
	n := utf8.RuneCountInString(s)
	if linkWeight > 0 && link != "" && strings.Contains(s, link) {
		n += linkWeight - utf8.RuneCountInString(link)
	}
	return n
}

// ToOAuth2 converts stored tokens into an oauth2 token.
func ToOAuth2(t *model.OAuthTokens) *oauth2.Token {
	if t == nil {
		return &oauth2.Token{}
	}
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    "Bearer",
	}
	if t.ExpiresAt != nil {
		tok.Expiry = *t.ExpiresAt
	}
	return tok
}

// FromOAuth2 converts a refreshed oauth2 token. The previous refresh token
// is kept when the provider does not rotate it.
func FromOAuth2(tok *oauth2.Token, previous *model.OAuthTokens) *model.OAuthTokens {
	out := &model.OAuthTokens{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}
	if out.RefreshToken == "" && previous != nil {
		out.RefreshToken = previous.RefreshToken
	}
	if previous != nil {
		out.Scope = previous.Scope
	}
	if scope, ok := tok.Extra("scope").(string); ok && scope != "" {
		out.Scope = scope
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		out.ExpiresAt = &exp
	}
	return out
}

// NeedsRefresh reports whether an OAuth2 refresh should run: a refresh
// token exists and the expiry is unknown or inside window.
func NeedsRefresh(t *model.OAuthTokens, now time.Time, window time.Duration) bool {
	if t == nil || t.RefreshToken == "" {
		return false
	}
	if t.ExpiresAt == nil {
		return true
	}
	return t.ExpiresWithin(now, window)
}
