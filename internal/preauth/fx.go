package preauth

import (
	"github.com/smallbiznis/shaadmin/internal/preauth/repository"
	"github.com/smallbiznis/shaadmin/internal/preauth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("preauth.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
