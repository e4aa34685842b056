package auth

import (
	"errors"

	"github.com/golang-jwt/jwt"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrMissingOrg   = errors.New("token carries no organization id")
)

// Claims is what presenterd needs out of the backend-issued bearer token.
// The token is verified by the backend on every call; locally we only
// decode it to route requests, so no signature check happens here.
type Claims struct {
	Subject string
	OrgID   string
	Email   string
}

type tokenClaims struct {
	jwt.StandardClaims
	OrgID string `json:"org_id"`
	Email string `json:"email"`
}

// Parse decodes the bearer token and extracts the routing claims. An
// undecodable token or a missing organization id blocks the caller before
// any network call is attempted.
func Parse(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrInvalidToken
	}

	claims := &tokenClaims{}
	parser := jwt.Parser{}
	if _, _, err := parser.ParseUnverified(tokenStr, claims); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.OrgID == "" {
		return nil, ErrMissingOrg
	}

	return &Claims{
		Subject: claims.Subject,
		OrgID:   claims.OrgID,
		Email:   claims.Email,
	}, nil
}
