package benefit

import (
	"github.com/smallbiznis/shaadmin/internal/benefit/repository"
	"github.com/smallbiznis/shaadmin/internal/benefit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("benefit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
