package identity

import (
	"github.com/smallbiznis/shaadmin/internal/identity/repository"
	"github.com/smallbiznis/shaadmin/internal/identity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("identity.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
