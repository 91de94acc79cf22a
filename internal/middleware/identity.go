package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/labstack/echo/v4"
)

// ctxToken holds the token RequireSession accepted.
const ctxToken = "session_token"

// HeaderSessionToken carries the admin token for clients that cannot set
// Authorization.
const HeaderSessionToken = "X-Session-Token"

const maxPeekBytes = 1 << 20

// SessionToken extracts the admin session token from, in order, the
// Authorization bearer header, X-Session-Token, the sessionToken query
// parameter and the sessionToken field of a JSON body. Only the first
// maxPeekBytes of the body are inspected; the handler still reads all of it.
func SessionToken(c echo.Context) string {
	if v, ok := c.Get(ctxToken).(string); ok && v != "" {
		return v
	}
	r := c.Request()
	if auth := r.Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
		if tok := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")); tok != "" {
			return tok
		}
	}
	if tok := strings.TrimSpace(r.Header.Get(HeaderSessionToken)); tok != "" {
		return tok
	}
	if tok := strings.TrimSpace(c.QueryParam("sessionToken")); tok != "" {
		return tok
	}
	return bodyToken(c)
}

func bodyToken(c echo.Context) string {
	r := c.Request()
	if r.Body == nil || !strings.HasPrefix(r.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes))
	r.Body = peekedBody{Reader: io.MultiReader(bytes.NewReader(raw), r.Body), Closer: r.Body}
	if err != nil || len(raw) == 0 {
		return ""
	}
	var peek struct {
		SessionToken string `json:"sessionToken"`
	}
	if json.Unmarshal(raw, &peek) != nil {
		return ""
	}
	return strings.TrimSpace(peek.SessionToken)
}

// peekedBody replays the peeked prefix ahead of the unread remainder and
// closes the original body.
type peekedBody struct {
	io.Reader
	io.Closer
}
