// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements TokenAuth, the credential check in front of the
// rule-editing API. Tokens are minted out-of-band by the chat listener and
// presented back either as the ?token= query parameter (the form embedded in
// edit links) or as an Authorization: Bearer header.
//
// Status mapping is deliberate and must stay asymmetric:
//   - 401 when no token was presented at all (missing credential), and
//   - 403 when a token was presented but did not authorize (invalid or
//     expired, indistinguishable on purpose).
//
// The gate itself never learns about the missing-credential case; that
// distinction lives here, in the caller.
package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// tokenQueryParam is the query parameter carrying the edit token.
	tokenQueryParam = "token"
	// principalIDKey is the Gin context key holding the authorized
	// principal's id (decimal string) for logging and rate-limit keying.
	principalIDKey = "principalID"
)

// Authorizer resolves a token value to the principal it was issued to.
// Satisfied by auth.Gate.
type Authorizer interface {
	Authorize(token string) (uint64, error)
}

// TokenAuth returns a Gin middleware that admits only requests carrying a
// currently valid edit token. On success the bound principal id is stored in
// the context under "principalID" so downstream middleware and handlers can
// attribute the request.
func TokenAuth(gate Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "unauthorized",
				"message":    "missing token",
			})
			return
		}

		principalID, err := gate.Authorize(token)
		if err != nil {
			// One message for both invalid and expired; do not leak which.
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "forbidden",
				"message":    "access denied",
			})
			return
		}

		c.Set(principalIDKey, strconv.FormatUint(principalID, 10))
		c.Next()
	}
}

// PrincipalID returns the authorized principal's id from the context, or 0
// when the request did not pass TokenAuth.
func PrincipalID(c *gin.Context) uint64 {
	v, ok := c.Get(principalIDKey)
	if !ok {
		return 0
	}
	s, _ := v.(string)
	id, _ := strconv.ParseUint(s, 10, 64)
	return id
}

// extractToken pulls the token from the query parameter or, failing that,
// from an Authorization: Bearer header.
func extractToken(c *gin.Context) string {
	if tok := strings.TrimSpace(c.Query(tokenQueryParam)); tok != "" {
		return tok
	}
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}
