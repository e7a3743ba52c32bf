package dashboard

import (
	"github.com/smallbiznis/shaadmin/internal/dashboard/repository"
	"github.com/smallbiznis/shaadmin/internal/dashboard/service"
	"go.uber.org/fx"
)

var Module = fx.Module("dashboard.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
