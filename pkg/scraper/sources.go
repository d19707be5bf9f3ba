package scraper

import (
	"igaudit/pkg/auth"
	"igaudit/pkg/config"
	"igaudit/pkg/logger"
)

// CredentialSources builds the configured credential sources in lookup
// order. Sources that cannot be opened are logged and left out.
func CredentialSources(cfg *config.Config, log logger.Logger) []auth.CredentialSource {
	var sources []auth.CredentialSource

	for _, name := range cfg.Credentials.Sources {
		switch name {
		case config.SourceConfig:
			sources = append(sources, auth.NewStaticSource(config.SourceConfig, map[string]string{
				auth.CookieUserID:    cfg.Instagram.DSUserID,
				auth.CookieCSRFToken: cfg.Instagram.CSRFToken,
				auth.CookieSessionID: cfg.Instagram.SessionID,
			}))
		case config.SourceEnv:
			sources = append(sources, auth.NewEnvironmentSource())
		case config.SourceKeyring:
			sources = append(sources, auth.NewKeyringStore())
		case config.SourceFile:
			store, err := auth.NewEncryptedFileStore(cfg.Credentials.File)
			if err != nil {
				log.WithError(err).Warn("Encrypted credential file unavailable")
				continue
			}
			sources = append(sources, store)
		case config.SourceChrome:
			sources = append(sources, auth.NewChromeSource(cfg.Credentials.ChromeDebugURL))
		}
	}

	return sources
}

// SessionStores returns the writable stores used by auth login and logout,
// keychain first when it works on this system
func SessionStores(cfg *config.Config, log logger.Logger) []auth.SessionStore {
	var stores []auth.SessionStore

	if kr := auth.NewKeyringStore(); kr.Available() {
		stores = append(stores, kr)
	} else {
		log.Debug("System keychain not available")
	}

	if file, err := auth.NewEncryptedFileStore(cfg.Credentials.File); err == nil {
		stores = append(stores, file)
	} else {
		log.WithError(err).Warn("Encrypted credential file unavailable")
	}

	return stores
}
