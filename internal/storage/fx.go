package storage

import (
	"fmt"

	"github.com/operalab/commesse/internal/config"
	"github.com/operalab/commesse/internal/storage/domain"
	"github.com/operalab/commesse/internal/storage/local"
	"github.com/operalab/commesse/internal/storage/s3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// New selects the attachment backend from configuration.
func New(cfg config.Config, log *zap.Logger) (domain.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendS3:
		return s3.New(cfg.Storage, log)
	case config.BackendLocal:
		return local.New(cfg.Storage.Root, cfg.Storage.PublicURL, log)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

var Module = fx.Module("storage",
	fx.Provide(New),
)
