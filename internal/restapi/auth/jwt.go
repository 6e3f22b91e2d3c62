// Package auth issues and validates the session-bearing JWTs and
// opaque session tokens accepted by the REST surface's Authorization
// header, per spec §4.7/§6.
package auth

import (
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

// Claims are the custom fields carried in a session JWT, grounded on
// the source system's Claims{sub, aud, iat, exp, session_id}.
type Claims struct {
	Subject   string `json:"sub"`
	SessionID string `json:"session_id"`
}

// Validator issues and validates HS256 session JWTs. aud is always
// checked against the request's Host header — §8 testable property 7.
type Validator struct {
	secret []byte
}

func NewValidator(secret string) *Validator {
	return &Validator{secret: []byte(secret)}
}

// Issue signs a JWT bound to audience (the request Host) for username,
// embedding sessionID as a custom claim.
func (v *Validator) Issue(username, audience, sessionID string, ttl time.Duration) (string, error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: v.secret},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("creating jwt signer: %w", err)
	}

	now := time.Now()
	registered := jwt.Claims{
		Subject:  username,
		Audience: jwt.Audience{audience},
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(ttl)),
	}
	custom := Claims{Subject: username, SessionID: sessionID}

	token, err := jwt.Signed(signer).Claims(registered).Claims(custom).Serialize()
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return token, nil
}

// Validate parses raw, verifies its HS256 signature, and checks exp
// and aud == audience (5s leeway), per spec §4.7. aud is required:
// a token missing it is rejected the same as a mismatched one.
func (v *Validator) Validate(raw, audience string) (*Claims, error) {
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, fmt.Errorf("parsing jwt: %w", err)
	}

	var registered jwt.Claims
	var custom Claims
	if err := tok.Claims(v.secret, &registered, &custom); err != nil {
		return nil, fmt.Errorf("verifying jwt signature: %w", err)
	}

	if len(registered.Audience) == 0 {
		return nil, fmt.Errorf("jwt missing required aud claim")
	}
	if err := registered.ValidateWithLeeway(jwt.Expected{
		Audience: jwt.Audience{audience},
		Time:     time.Now(),
	}, 5*time.Second); err != nil {
		return nil, fmt.Errorf("validating jwt claims: %w", err)
	}

	return &custom, nil
}
