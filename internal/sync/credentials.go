package sync

import (
	"context"
	"fmt"

	"github.com/adpulse/adpulse/internal/database/models"
	"github.com/adpulse/adpulse/pkg/platforms"
)

// PlatformCredentials is the configured credential set for one platform.
type PlatformCredentials struct {
	AccessToken  string `yaml:"access_token" env:"ACCESS_TOKEN"`
	RefreshToken string `yaml:"refresh_token" env:"REFRESH_TOKEN"`
	ClientID     string `yaml:"client_id" env:"CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"CLIENT_SECRET"`
}

// CredentialsConfig holds per-platform API credentials.
type CredentialsConfig struct {
	Facebook PlatformCredentials `yaml:"facebook"`
	Google   PlatformCredentials `yaml:"google"`
}

// ConfigCredentialSource resolves credentials from static configuration.
// Accounts reference a credential set by platform; per-account tokens
// would plug in behind the same interface.
type ConfigCredentialSource struct {
	byPlatform map[string]platforms.Credentials
}

// NewConfigCredentialSource builds the source from configuration.
func NewConfigCredentialSource(cfg CredentialsConfig) *ConfigCredentialSource {
	return &ConfigCredentialSource{
		byPlatform: map[string]platforms.Credentials{
			models.PlatformFacebook: {
				AccessToken:  cfg.Facebook.AccessToken,
				RefreshToken: cfg.Facebook.RefreshToken,
				ClientID:     cfg.Facebook.ClientID,
				ClientSecret: cfg.Facebook.ClientSecret,
			},
			models.PlatformGoogle: {
				AccessToken:  cfg.Google.AccessToken,
				RefreshToken: cfg.Google.RefreshToken,
				ClientID:     cfg.Google.ClientID,
				ClientSecret: cfg.Google.ClientSecret,
			},
		},
	}
}

// Resolve returns the credentials for the account's platform.
func (s *ConfigCredentialSource) Resolve(ctx context.Context, account *models.AdAccount) (platforms.Credentials, error) {
	creds, ok := s.byPlatform[account.Platform]
	if !ok {
		return platforms.Credentials{}, fmt.Errorf("no credentials configured for platform %q", account.Platform)
	}
	if creds.AccessToken == "" && creds.RefreshToken == "" {
		return platforms.Credentials{}, fmt.Errorf("credentials for platform %q are empty", account.Platform)
	}
	return creds, nil
}
