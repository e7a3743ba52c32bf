package employer

import (
	"github.com/smallbiznis/shaadmin/internal/employer/repository"
	"github.com/smallbiznis/shaadmin/internal/employer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("employer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
