package auth

import (
	"context"
	"errors"

	"github.com/daftuyda/Igris/internal"
	"github.com/daftuyda/Igris/internal/config"
)

var ErrUnauthorized = errors.New("unauthorized")

// Provider maps a bearer token to the id of the user it belongs to.
type Provider interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// NewProvider uses static tokens in development, or when no auth service is configured.
func NewProvider(cfg *config.Config, logger internal.Logger) Provider {
	if cfg.Env != "development" && cfg.AuthServiceURL != "" {
		return NewRemoteAuthProvider(cfg.AuthServiceURL, logger)
	}
	return NewLocalAuthProvider(cfg.AuthTokens, logger)
}
