package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/shaadmin/internal/audit/domain"
	"github.com/smallbiznis/shaadmin/internal/authorization"
	benefitdomain "github.com/smallbiznis/shaadmin/internal/benefit/domain"
	claimdomain "github.com/smallbiznis/shaadmin/internal/claim/domain"
	"github.com/smallbiznis/shaadmin/internal/config"
	contributiondomain "github.com/smallbiznis/shaadmin/internal/contribution/domain"
	dashboarddomain "github.com/smallbiznis/shaadmin/internal/dashboard/domain"
	eligibilitydomain "github.com/smallbiznis/shaadmin/internal/eligibility/domain"
	employerdomain "github.com/smallbiznis/shaadmin/internal/employer/domain"
	identitydomain "github.com/smallbiznis/shaadmin/internal/identity/domain"
	memberdomain "github.com/smallbiznis/shaadmin/internal/member/domain"
	notificationdomain "github.com/smallbiznis/shaadmin/internal/notification/domain"
	"github.com/smallbiznis/shaadmin/internal/observability"
	obslogger "github.com/smallbiznis/shaadmin/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/shaadmin/internal/observability/metrics"
	obstracing "github.com/smallbiznis/shaadmin/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/shaadmin/internal/payment/domain"
	preauthdomain "github.com/smallbiznis/shaadmin/internal/preauth/domain"
	providerdomain "github.com/smallbiznis/shaadmin/internal/provider/domain"
	"github.com/smallbiznis/shaadmin/internal/ratelimit"
	referencedomain "github.com/smallbiznis/shaadmin/internal/reference/domain"
	reportdomain "github.com/smallbiznis/shaadmin/internal/report/domain"
	"github.com/smallbiznis/shaadmin/internal/scheduler"
	"github.com/smallbiznis/shaadmin/internal/schememetrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module serves the HTTP API. The domain modules are assembled by the
// command that runs it.
var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	RegisterValidators()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	addr := cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	authzSvc        authorization.Service
	auditSvc        auditdomain.Service
	identitySvc     identitydomain.Service
	memberSvc       memberdomain.Service
	employerSvc     employerdomain.Service
	providerSvc     providerdomain.Service
	benefitSvc      benefitdomain.Service
	contributionSvc contributiondomain.Service
	preAuthSvc      preauthdomain.Service
	claimSvc        claimdomain.Service
	paymentSvc      paymentdomain.Service
	eligibilitySvc  eligibilitydomain.Service
	notificationSvc notificationdomain.Service
	reportSvc       reportdomain.Service
	dashboardSvc    dashboarddomain.Service
	referenceSvc    referencedomain.Service
	scheduler       *scheduler.Scheduler
	limiter         *ratelimit.Limiter
	gauges          *schememetrics.Gauges
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	AuthzSvc        authorization.Service
	AuditSvc        auditdomain.Service
	IdentitySvc     identitydomain.Service
	MemberSvc       memberdomain.Service
	EmployerSvc     employerdomain.Service
	ProviderSvc     providerdomain.Service
	BenefitSvc      benefitdomain.Service
	ContributionSvc contributiondomain.Service
	PreAuthSvc      preauthdomain.Service
	ClaimSvc        claimdomain.Service
	PaymentSvc      paymentdomain.Service
	EligibilitySvc  eligibilitydomain.Service
	NotificationSvc notificationdomain.Service
	ReportSvc       reportdomain.Service
	DashboardSvc    dashboarddomain.Service
	ReferenceSvc    referencedomain.Service
	Scheduler       *scheduler.Scheduler
	Limiter         *ratelimit.Limiter    `optional:"true"`
	Gauges          *schememetrics.Gauges `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		authzSvc:        p.AuthzSvc,
		auditSvc:        p.AuditSvc,
		identitySvc:     p.IdentitySvc,
		memberSvc:       p.MemberSvc,
		employerSvc:     p.EmployerSvc,
		providerSvc:     p.ProviderSvc,
		benefitSvc:      p.BenefitSvc,
		contributionSvc: p.ContributionSvc,
		preAuthSvc:      p.PreAuthSvc,
		claimSvc:        p.ClaimSvc,
		paymentSvc:      p.PaymentSvc,
		eligibilitySvc:  p.EligibilitySvc,
		notificationSvc: p.NotificationSvc,
		reportSvc:       p.ReportSvc,
		dashboardSvc:    p.DashboardSvc,
		referenceSvc:    p.ReferenceSvc,
		scheduler:       p.Scheduler,
		limiter:         p.Limiter,
		gauges:          p.Gauges,
	}

	svc.registerMetricsRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerMetricsRoutes() {
	if s.gauges == nil {
		return
	}
	s.engine.GET("/metrics/scheme", gin.WrapH(s.gauges.Handler()))
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1", s.ActorRequired())

	write := s.rateLimit(ratelimit.ClassWrite)
	can := s.authorize

	// -------- Users --------
	api.POST("/users", can(authorization.ObjectUser, authorization.ActionCreate), write, s.CreateUser)
	api.GET("/users", can(authorization.ObjectUser, authorization.ActionView), s.ListUsers)
	api.GET("/users/:id", can(authorization.ObjectUser, authorization.ActionView), s.GetUser)
	api.POST("/users/:id/verify", can(authorization.ObjectUser, authorization.ActionUpdate), write, s.VerifyUser)
	api.POST("/users/:id/deactivate", can(authorization.ObjectUser, authorization.ActionUpdate), write, s.DeactivateUser)

	// -------- Members --------
	api.POST("/members", can(authorization.ObjectMember, authorization.ActionCreate), write, s.RegisterMember)
	api.GET("/members", can(authorization.ObjectMember, authorization.ActionView), s.ListMembers)
	api.GET("/members/by-sha-number", can(authorization.ObjectMember, authorization.ActionView), s.GetMemberBySHANumber)
	api.GET("/members/:id", can(authorization.ObjectMember, authorization.ActionView), s.GetMember)
	api.PATCH("/members/:id", can(authorization.ObjectMember, authorization.ActionUpdate), write, s.UpdateMember)
	api.POST("/members/:id/deactivate", can(authorization.ObjectMember, authorization.ActionUpdate), write, s.DeactivateMember)
	api.POST("/members/:id/activate", can(authorization.ObjectMember, authorization.ActionUpdate), write, s.ActivateMember)
	api.GET("/members/:id/dependents", can(authorization.ObjectMember, authorization.ActionView), s.ListMemberDependents)
	api.GET("/members/:id/contribution-summary", can(authorization.ObjectContribution, authorization.ActionView), s.GetMemberContributionSummary)

	// -------- Employers --------
	api.POST("/employers", can(authorization.ObjectEmployer, authorization.ActionCreate), write, s.RegisterEmployer)
	api.GET("/employers", can(authorization.ObjectEmployer, authorization.ActionView), s.ListEmployers)
	api.GET("/employers/:id", can(authorization.ObjectEmployer, authorization.ActionView), s.GetEmployer)
	api.PATCH("/employers/:id", can(authorization.ObjectEmployer, authorization.ActionUpdate), write, s.UpdateEmployer)
	api.POST("/employers/:id/deactivate", can(authorization.ObjectEmployer, authorization.ActionUpdate), write, s.DeactivateEmployer)
	api.POST("/employers/:id/activate", can(authorization.ObjectEmployer, authorization.ActionUpdate), write, s.ActivateEmployer)
	api.DELETE("/employers/:id", can(authorization.ObjectEmployer, authorization.ActionDelete), write, s.DeleteEmployer)

	// -------- Providers --------
	api.POST("/providers", can(authorization.ObjectProvider, authorization.ActionCreate), write, s.RegisterProvider)
	api.GET("/providers", can(authorization.ObjectProvider, authorization.ActionView), s.ListProviders)
	api.GET("/providers/:id", can(authorization.ObjectProvider, authorization.ActionView), s.GetProvider)
	api.PATCH("/providers/:id", can(authorization.ObjectProvider, authorization.ActionUpdate), write, s.UpdateProvider)
	api.PUT("/providers/:id/contract", can(authorization.ObjectProvider, authorization.ActionUpdate), write, s.SetProviderContract)
	api.POST("/providers/:id/deactivate", can(authorization.ObjectProvider, authorization.ActionUpdate), write, s.DeactivateProvider)
	api.POST("/providers/:id/activate", can(authorization.ObjectProvider, authorization.ActionUpdate), write, s.ActivateProvider)

	// -------- Benefit catalog --------
	api.POST("/benefit-packages", can(authorization.ObjectBenefit, authorization.ActionCreate), write, s.CreateBenefitPackage)
	api.GET("/benefit-packages", can(authorization.ObjectBenefit, authorization.ActionView), s.ListBenefitPackages)
	api.GET("/benefit-packages/:id", can(authorization.ObjectBenefit, authorization.ActionView), s.GetBenefitPackage)
	api.PATCH("/benefit-packages/:id", can(authorization.ObjectBenefit, authorization.ActionUpdate), write, s.UpdateBenefitPackage)
	api.POST("/benefit-services", can(authorization.ObjectBenefit, authorization.ActionCreate), write, s.CreateBenefitService)
	api.GET("/benefit-services", can(authorization.ObjectBenefit, authorization.ActionView), s.ListBenefitServices)
	api.GET("/benefit-services/:id", can(authorization.ObjectBenefit, authorization.ActionView), s.GetBenefitService)
	api.PATCH("/benefit-services/:id", can(authorization.ObjectBenefit, authorization.ActionUpdate), write, s.UpdateBenefitService)

	// -------- Contributions --------
	api.POST("/contributions", can(authorization.ObjectContribution, authorization.ActionCreate), write, s.RecordContribution)
	api.GET("/contributions", can(authorization.ObjectContribution, authorization.ActionView), s.ListContributions)
	api.GET("/contributions/:id", can(authorization.ObjectContribution, authorization.ActionView), s.GetContribution)
	api.POST("/contributions/bulk/mark-completed", can(authorization.ObjectContribution, authorization.ActionComplete), write, s.BulkCompleteContributions)
	api.POST("/contributions/bulk/mark-failed", can(authorization.ObjectContribution, authorization.ActionFail), write, s.BulkFailContributions)
	api.POST("/contributions/:id/reverse", can(authorization.ObjectContribution, authorization.ActionReverse), write, s.ReverseContribution)

	// -------- Pre-authorizations --------
	api.POST("/preauthorizations", can(authorization.ObjectPreAuth, authorization.ActionRequest), write, s.RequestPreAuthorization)
	api.GET("/preauthorizations", can(authorization.ObjectPreAuth, authorization.ActionView), s.ListPreAuthorizations)
	api.POST("/preauthorizations/expire", can(authorization.ObjectPreAuth, authorization.ActionExpire), write, s.ExpirePreAuthorizations)
	api.POST("/preauthorizations/bulk/approve", can(authorization.ObjectPreAuth, authorization.ActionApprove), write, s.BulkApprovePreAuthorizations)
	api.POST("/preauthorizations/bulk/reject", can(authorization.ObjectPreAuth, authorization.ActionReject), write, s.BulkRejectPreAuthorizations)
	api.GET("/preauthorizations/:id", can(authorization.ObjectPreAuth, authorization.ActionView), s.GetPreAuthorization)
	api.POST("/preauthorizations/:id/approve", can(authorization.ObjectPreAuth, authorization.ActionApprove), write, s.ApprovePreAuthorization)
	api.POST("/preauthorizations/:id/reject", can(authorization.ObjectPreAuth, authorization.ActionReject), write, s.RejectPreAuthorization)

	// -------- Claims --------
	api.POST("/claims", can(authorization.ObjectClaim, authorization.ActionSubmit), write, s.SubmitClaim)
	api.GET("/claims", can(authorization.ObjectClaim, authorization.ActionView), s.ListClaims)
	api.POST("/claims/bulk/review", can(authorization.ObjectClaim, authorization.ActionReview), write, s.BulkReviewClaims)
	api.POST("/claims/bulk/approve", can(authorization.ObjectClaim, authorization.ActionApprove), write, s.BulkApproveClaims)
	api.POST("/claims/bulk/reject", can(authorization.ObjectClaim, authorization.ActionReject), write, s.BulkRejectClaims)
	api.GET("/claims/:id", can(authorization.ObjectClaim, authorization.ActionView), s.GetClaim)
	api.POST("/claims/:id/review", can(authorization.ObjectClaim, authorization.ActionReview), write, s.ReviewClaim)
	api.POST("/claims/:id/approve", can(authorization.ObjectClaim, authorization.ActionApprove), write, s.ApproveClaim)
	api.POST("/claims/:id/reject", can(authorization.ObjectClaim, authorization.ActionReject), write, s.RejectClaim)
	api.PATCH("/claims/:id/items/:item_id", can(authorization.ObjectClaim, authorization.ActionAdjust), write, s.AdjustClaimItem)

	// -------- Payments --------
	api.POST("/payments", can(authorization.ObjectPayment, authorization.ActionCreate), write, s.CreatePayment)
	api.GET("/payments", can(authorization.ObjectPayment, authorization.ActionView), s.ListPayments)
	api.POST("/payments/bulk/mark-completed", can(authorization.ObjectPayment, authorization.ActionComplete), write, s.BulkCompletePayments)
	api.POST("/payments/bulk/mark-failed", can(authorization.ObjectPayment, authorization.ActionFail), write, s.BulkFailPayments)
	api.GET("/payments/:id", can(authorization.ObjectPayment, authorization.ActionView), s.GetPayment)
	api.POST("/payments/:id/processing", can(authorization.ObjectPayment, authorization.ActionComplete), write, s.MarkPaymentProcessing)

	// -------- Eligibility --------
	api.POST("/eligibility-checks", can(authorization.ObjectEligibility, authorization.ActionCheck), write, s.CheckEligibility)
	api.GET("/eligibility-checks", can(authorization.ObjectEligibility, authorization.ActionView), s.ListEligibilityChecks)
	api.GET("/eligibility-checks/:id", can(authorization.ObjectEligibility, authorization.ActionView), s.GetEligibilityCheck)

	// -------- Notifications --------
	api.GET("/notifications", can(authorization.ObjectNotification, authorization.ActionView), s.ListNotifications)
	api.GET("/notifications/unread-count", can(authorization.ObjectNotification, authorization.ActionView), s.UnreadNotificationCount)
	api.POST("/notifications/mark-read", can(authorization.ObjectNotification, authorization.ActionUpdate), s.MarkNotificationsRead)
	api.POST("/notifications/mark-unread", can(authorization.ObjectNotification, authorization.ActionUpdate), s.MarkNotificationsUnread)

	// -------- Audit, reports, dashboard --------
	api.GET("/audit-logs", can(authorization.ObjectAuditLog, authorization.ActionView), s.ListAuditLogs)

	api.POST("/reports", can(authorization.ObjectReport, authorization.ActionGenerate), s.rateLimit(ratelimit.ClassReport), s.GenerateReport)
	api.GET("/reports", can(authorization.ObjectReport, authorization.ActionView), s.ListReports)
	api.GET("/reports/:id", can(authorization.ObjectReport, authorization.ActionView), s.GetReport)
	api.GET("/reports/:id/download", can(authorization.ObjectReport, authorization.ActionView), s.DownloadReport)

	api.GET("/dashboard", can(authorization.ObjectDashboard, authorization.ActionView), s.GetDashboard)

	api.GET("/reference-sequences/:family", can(authorization.ObjectReference, authorization.ActionView), s.GetReferenceSequence)
}
