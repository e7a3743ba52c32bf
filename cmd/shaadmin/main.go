package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/internal/actorcontext"
	"github.com/smallbiznis/shaadmin/internal/audit"
	"github.com/smallbiznis/shaadmin/internal/authorization"
	"github.com/smallbiznis/shaadmin/internal/benefit"
	"github.com/smallbiznis/shaadmin/internal/cache"
	"github.com/smallbiznis/shaadmin/internal/claim"
	"github.com/smallbiznis/shaadmin/internal/clock"
	"github.com/smallbiznis/shaadmin/internal/config"
	"github.com/smallbiznis/shaadmin/internal/contribution"
	"github.com/smallbiznis/shaadmin/internal/dashboard"
	"github.com/smallbiznis/shaadmin/internal/eligibility"
	"github.com/smallbiznis/shaadmin/internal/employer"
	"github.com/smallbiznis/shaadmin/internal/events"
	"github.com/smallbiznis/shaadmin/internal/identity"
	"github.com/smallbiznis/shaadmin/internal/member"
	"github.com/smallbiznis/shaadmin/internal/migration"
	"github.com/smallbiznis/shaadmin/internal/notification"
	"github.com/smallbiznis/shaadmin/internal/observability"
	"github.com/smallbiznis/shaadmin/internal/payment"
	"github.com/smallbiznis/shaadmin/internal/preauth"
	"github.com/smallbiznis/shaadmin/internal/provider"
	"github.com/smallbiznis/shaadmin/internal/ratelimit"
	"github.com/smallbiznis/shaadmin/internal/reference"
	"github.com/smallbiznis/shaadmin/internal/report"
	"github.com/smallbiznis/shaadmin/internal/scheduler"
	"github.com/smallbiznis/shaadmin/internal/schememetrics"
	"github.com/smallbiznis/shaadmin/internal/server"
	"github.com/smallbiznis/shaadmin/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "shaadmin",
		Short: "Health insurance scheme administration",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(expirePreAuthsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the pre-authorization sweep and the metrics worker",
		Run: func(cmd *cobra.Command, args []string) {
			fx.New(
				infrastructure(),
				migration.Module,
				domains(),
				scheduler.Module,
				scheduler.Loop,
				schememetrics.Module,
				server.Module,
			).Run()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and seed the bootstrap administrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				config.Module,
				observability.Module,
				db.Module,
				migration.Module,
			)
			if err := app.Start(cmd.Context()); err != nil {
				return err
			}
			return app.Stop(context.Background())
		},
	}
}

func expirePreAuthsCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "expire-preauths",
		Short: "Expire approved pre-authorizations past their validity window once",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				sched *scheduler.Scheduler
				log   *zap.Logger
			)
			app := fx.New(
				infrastructure(),
				domains(),
				scheduler.Module,
				fx.Populate(&sched, &log),
			)
			if err := app.Start(cmd.Context()); err != nil {
				return err
			}
			defer func() { _ = app.Stop(context.Background()) }()

			ctx, cancel := context.WithTimeout(actorcontext.WithActor(cmd.Context(), actorcontext.System), timeout)
			defer cancel()

			expired, err := sched.RunJob(ctx, scheduler.JobExpirePreAuths)
			if err != nil {
				return err
			}
			log.Info("pre-authorizations expired", zap.Int64("count", expired))
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d pre-authorizations\n", expired)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "abort the sweep after this long")
	return cmd
}

func infrastructure() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		cache.Module,
		ratelimit.Module,
		events.Module,
	)
}

func domains() fx.Option {
	return fx.Options(
		audit.Module,
		authorization.Module,
		identity.Module,
		reference.Module,
		notification.Module,
		member.Module,
		employer.Module,
		provider.Module,
		benefit.Module,
		contribution.Module,
		preauth.Module,
		claim.Module,
		payment.Module,
		eligibility.Module,
		report.Module,
		dashboard.Module,
	)
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
