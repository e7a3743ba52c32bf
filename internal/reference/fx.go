package reference

import (
	"github.com/smallbiznis/shaadmin/internal/reference/repository"
	"github.com/smallbiznis/shaadmin/internal/reference/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reference.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
