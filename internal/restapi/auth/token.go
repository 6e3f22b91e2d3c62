package auth

import (
	"net/http"
	"regexp"
)

// SessionCookieName is the cookie carrying an opaque session id (spec §6).
const SessionCookieName = "session_id"

// tokenPattern matches either a three-part JWT or a UUID, grounded on
// the source system's extract_token_from_auth regex.
var tokenPattern = regexp.MustCompile(`Snowflake Token="([A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+|[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})"`)

// ExtractTokenFromAuth pulls the token out of an
// `Authorization: Snowflake Token="<token>"` header, if present.
func ExtractTokenFromAuth(headers http.Header) (string, bool) {
	match := tokenPattern.FindStringSubmatch(headers.Get("Authorization"))
	if match == nil {
		return "", false
	}
	return match[1], true
}

// ExtractTokenFromCookie reads the session_id cookie, if present.
func ExtractTokenFromCookie(r *http.Request) (string, bool) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", false
	}
	return c.Value, true
}

// IsJWT reports whether token looks like a three-part JWT rather than
// an opaque UUID session token.
func IsJWT(token string) bool {
	dots := 0
	for _, r := range token {
		if r == '.' {
			dots++
		}
	}
	return dots == 2
}
