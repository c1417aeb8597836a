package ledger

import (
	"github.com/operalab/commesse/internal/ledger/repository"
	"github.com/operalab/commesse/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
