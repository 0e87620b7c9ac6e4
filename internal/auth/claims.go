package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the decoded, unverified payload of a backend access token.
type Claims struct {
	jwt.RegisteredClaims
	OrgID string   `json:"org_id"`
	Role  Role     `json:"role"`
	Teams []string `json:"teams,omitempty"`
}

// DefaultClockSkew is how long before the claimed expiry a token is
// proactively treated as expired, so the console never sends a request
// that races against server-side expiry.
const DefaultClockSkew = 60 * time.Second

// unverifiedParser decodes claims without signature verification. The
// console never validates tokens — it only reads them to decide whether
// a silent refresh is due and which role to gate the UI with.
var unverifiedParser = jwt.NewParser()

// DecodeToken decodes the claim set embedded in a bearer token.
// It returns nil on any malformed input and never panics.
func DecodeToken(token string) *Claims {
	claims := &Claims{}
	if _, _, err := unverifiedParser.ParseUnverified(token, claims); err != nil {
		return nil
	}
	return claims
}

// IsTokenExpired reports whether the token should be treated as expired
// as of now. Malformed tokens and tokens without an expiry claim are
// expired by definition (fail closed).
func IsTokenExpired(token string, skew time.Duration) bool {
	return TokenExpiredAt(token, skew, time.Now())
}

// TokenExpiredAt is IsTokenExpired with an explicit reference time.
// The session manager uses this with its injected clock.
func TokenExpiredAt(token string, skew time.Duration, now time.Time) bool {
	claims := DecodeToken(token)
	if claims == nil || claims.ExpiresAt == nil {
		return true
	}
	return !now.Before(claims.ExpiresAt.Time.Add(-skew))
}
