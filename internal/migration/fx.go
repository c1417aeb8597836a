package migration

import (
	"github.com/operalab/commesse/internal/config"
	"github.com/operalab/commesse/internal/ledger/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			// sqlite and mysql are dev/test dialects; gorm derives the
			// schema from the models there
			return conn.AutoMigrate(
				&domain.Commission{},
				&domain.Phase{},
				&domain.Voice{},
				&domain.VoiceFile{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
