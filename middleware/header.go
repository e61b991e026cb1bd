package middleware

import (
	"net/http"
	"strings"
)

// TokenFromRequest reads the token from the Auth-Token header. A "Bearer "
// prefix is tolerated.
func TokenFromRequest(r *http.Request) (string, bool) {
	return tokenFromHeader(r.Header.Get(HeaderName))
}

func tokenFromHeader(value string) (string, bool) {
	const bearer = "Bearer "

	token := strings.TrimSpace(value)
	if strings.HasPrefix(token, bearer) {
		token = strings.TrimSpace(token[len(bearer):])
	}
	if token == "" {
		return "", false
	}

	return token, true
}
