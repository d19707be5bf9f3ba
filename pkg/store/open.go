package store

import (
	"fmt"

	"igaudit/pkg/config"
	"igaudit/pkg/logger"
)

// Open creates the backend selected by cfg
func Open(cfg config.StoreConfig, log logger.Logger) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return NewMemoryStore(), nil
	case config.BackendFile:
		return NewFileStore(cfg.Path, log)
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
