package auth

import (
	"context"
	"crypto/subtle"

	"github.com/daftuyda/Igris/internal"
)

type LocalAuthProvider struct {
	tokens map[string]string
	logger internal.Logger
}

func NewLocalAuthProvider(tokens map[string]string, logger internal.Logger) *LocalAuthProvider {
	cp := make(map[string]string, len(tokens))
	for k, v := range tokens {
		cp[k] = v
	}
	return &LocalAuthProvider{tokens: cp, logger: logger}
}

func (a *LocalAuthProvider) Resolve(ctx context.Context, token string) (string, error) {
	for known, userID := range a.tokens {
		if subtle.ConstantTimeCompare([]byte(known), []byte(token)) == 1 {
			return userID, nil
		}
	}
	a.logger.Warn("invalid token")
	return "", ErrUnauthorized
}
