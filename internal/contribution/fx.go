package contribution

import (
	"github.com/smallbiznis/shaadmin/internal/contribution/repository"
	"github.com/smallbiznis/shaadmin/internal/contribution/service"
	"go.uber.org/fx"
)

var Module = fx.Module("contribution.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
