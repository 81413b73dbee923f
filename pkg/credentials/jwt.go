package credentials

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ParseClaims extracts the expiry and scope claims from a JWT access
// token without verifying its signature: the kernel trusts the issuing
// service (this runs after a refresh exchange it itself initiated), and
// only needs the claims to populate Token.ExpiresAt/Scopes for local
// bookkeeping.
func ParseClaims(accessToken string) (exp time.Time, scopes []string, err error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}, nil, fmt.Errorf("credentials: parsing JWT claims: %w", err)
	}

	if expClaim, ok := claims["exp"]; ok {
		if expFloat, ok := expClaim.(float64); ok {
			exp = time.Unix(int64(expFloat), 0).UTC()
		}
	}

	switch v := claims["scope"].(type) {
	case string:
		scopes = splitScope(v)
	case []interface{}:
		for _, s := range v {
			if str, ok := s.(string); ok {
				scopes = append(scopes, str)
			}
		}
	}
	return exp, scopes, nil
}

func splitScope(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ' ' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
