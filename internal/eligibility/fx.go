package eligibility

import (
	"github.com/smallbiznis/shaadmin/internal/eligibility/domain"
	"github.com/smallbiznis/shaadmin/internal/eligibility/repository"
	"github.com/smallbiznis/shaadmin/internal/eligibility/service"
	pkgrepo "github.com/smallbiznis/shaadmin/pkg/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("eligibility.service",
	fx.Provide(repository.Provide),
	fx.Provide(pkgrepo.ProvideStore[domain.Check]),
	fx.Provide(service.New),
)
