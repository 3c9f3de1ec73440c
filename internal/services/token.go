package services

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	chat_errors "marketplace-chat/pkg/errors"
)

// TokenVerifier validates access tokens issued by the marketplace identity
// service. Issuance, refresh and revocation live there, not here.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

type identityClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// ParseParticipant returns the verified participant id carried in the token.
func (v *TokenVerifier) ParseParticipant(token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, chat_errors.ErrUnauthorized
	}

	var claims identityClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, chat_errors.ErrUnauthorized
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, chat_errors.ErrUnauthorized
	}

	participantID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, chat_errors.ErrUnauthorized
	}
	return participantID, nil
}
