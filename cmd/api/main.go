package main

import (
	"context"
	"fmt"
	common_api "go-bpm/internal/common/api"
	"go-bpm/internal/common/apperr"
	"go-bpm/internal/config"
	"go-bpm/internal/database"
	"go-bpm/internal/features/account"
	"go-bpm/internal/features/admin"
	"go-bpm/internal/features/events"
	"go-bpm/internal/features/process"
	"go-bpm/internal/features/reconcile"
	"go-bpm/internal/features/structure"
	"go-bpm/internal/features/system"
	"go-bpm/internal/logger"
	"go-bpm/internal/metrics"
	"go-bpm/internal/middleware"
	"go-bpm/pkg/utils"
	"time"

	_ "go-bpm/docs" // Import swagger docs

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer(cfg *config.Config, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		// RequestLogger logs the cause of a 500 written here
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return apperr.Respond(c, err)
		},
	})

	app.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	app.Use(middleware.RequestLogger(log))

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),    // Cast to Interface
		fx.ResultTags(`group:"routes"`), // Add to Group
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route, log *zap.Logger) {
	log.Info("registering routes", zap.Int("count", len(routes)))
	for _, route := range routes {
		log.Debug("setting up route", zap.String("route", fmt.Sprintf("%T", route)))
		route.Setup(app)
	}
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`, ``),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				log.Info("listening", zap.String("addr", port))
				if err := app.Listen(port); err != nil {
					log.Fatal("server failed to start", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

type indexed interface {
	EnsureIndexes(ctx context.Context) error
}

// InitializeIndexes ensures that necessary database indexes are created
func InitializeIndexes(
	lc fx.Lifecycle,
	log *zap.Logger,
	businesses account.BusinessRepository,
	employees account.EmployeeRepository,
	structures *structure.Repositories,
	processes process.Repository,
) {
	repos := map[string]indexed{
		"businesses":  businesses,
		"employees":   employees,
		"roles":       structures.Roles,
		"departments": structures.Departments,
		"processes":   processes,
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				for name, repo := range repos {
					if err := repo.EnsureIndexes(ctx); err != nil {
						log.Error("failed to ensure indexes", zap.String("collection", name), zap.Error(err))
					}
				}
			}()
			return nil
		},
	})
}

// StartReconciler runs the assignment reconciler on its schedule.
func StartReconciler(lc fx.Lifecycle, r *reconcile.Reconciler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return r.Start()
		},
		OnStop: func(ctx context.Context) error {
			r.Stop()
			return nil
		},
	})
}

// @title           go-bpm API
// @version         1.0
// @description     Multi-tenant business process management backend.

// @host            localhost:8080
// @BasePath        /

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewDBLogWriter,
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Database
			database.NewDatabase,
			database.NewTxRunner,

			utils.NewTokenSigner,
			events.NewHub,
			events.NewPublisher,

			// Initialize Repository
			account.NewBusinessRepository,
			account.NewEmployeeRepository,
			account.NewAdminRepository,
			account.NewSupportRepository,
			structure.NewRepositories,
			process.NewRepository,

			// Initialize Service
			account.NewAuthService,
			account.NewEmployeeService,
			structure.NewStructures,
			process.NewService,
			admin.NewAdminService,
			reconcile.NewReconciler,

			// Interface Adapters to break circular dependencies and satisfy Fx
			func(s account.AuthService) middleware.ActorResolver { return s },
			func(s *structure.Structures) account.NodeChecker { return s },
			func(s *structure.Structures) process.NodeLinks { return s },
			func(s account.EmployeeService) process.MemberVerifier { return s },
			func(r process.Repository) structure.ProcessSide { return r },
			func(db *database.MongodbDB) system.Pinger { return db },
			func(s *structure.Structures) reconcile.TenantLocker { return s },
			func(r *reconcile.Reconciler) admin.Reconciler { return r },

			// Initialize Controller
			account.NewAccountController,
			process.NewProcessController,
			admin.NewAdminController,
			events.NewEventsController,

			// Initialize API Routes
			AsRoute(system.NewHealthApi),
			AsRoute(system.NewMetricsApi),
			AsRoute(system.NewSwaggerApi),
			AsRoute(account.NewAccountApi),
			AsRoute(structure.NewStructureApi),
			AsRoute(process.NewProcessApi),
			AsRoute(admin.NewAdminApi),
			AsRoute(events.NewEventsApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			metrics.Register,
			// Register Routes & Start
			RegisterAllRoutesWithAnnotation,
			StartServer,
			InitializeIndexes,
			StartReconciler,
		),
	)

	app.Run()
}
