package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/arabicbase/arabicbase/internal/auth"
	"github.com/arabicbase/arabicbase/internal/config"
)

// AuthKey is the hex-encoded token key.
type AuthKey string

// ProvideAuthKey uses the configured key, or loads or generates one in the
// data directory.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)

	if cfg.Auth.TokenKey != "" {
		return AuthKey(cfg.Auth.TokenKey), nil
	}

	key, err := auth.LoadOrGenerateKey(cfg.App.DataDir)
	if err != nil {
		return "", err
	}
	cfg.Auth.TokenKey = key

	log.Info("authentication key loaded",
		slog.String("data_dir", cfg.App.DataDir),
		slog.Duration("token_duration", cfg.Auth.TokenDuration))

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	key := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService(string(key), cfg.Auth.TokenDuration)
}
