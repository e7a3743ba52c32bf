package report

import (
	"github.com/smallbiznis/shaadmin/internal/report/render"
	"github.com/smallbiznis/shaadmin/internal/report/repository"
	"github.com/smallbiznis/shaadmin/internal/report/service"
	"go.uber.org/fx"
)

var Module = fx.Module("report.service",
	fx.Provide(repository.Provide),
	fx.Provide(render.New),
	fx.Provide(service.New),
)
