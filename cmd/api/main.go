package main

import (
	"context"
	"fmt"
	"time"

	common_api "go-clinic/internal/common/api"
	"go-clinic/internal/cache"
	"go-clinic/internal/config"
	"go-clinic/internal/database"
	"go-clinic/internal/features/appointment"
	"go-clinic/internal/features/appointment_import"
	"go-clinic/internal/features/audit"
	"go-clinic/internal/features/auth"
	"go-clinic/internal/features/clinic"
	"go-clinic/internal/features/inbox"
	"go-clinic/internal/features/inventory"
	"go-clinic/internal/features/job"
	"go-clinic/internal/features/lead"
	"go-clinic/internal/features/patient"
	"go-clinic/internal/features/scheduler"
	"go-clinic/internal/features/sync"
	"go-clinic/internal/features/system"
	"go-clinic/internal/features/tenant"
	"go-clinic/internal/features/user"
	"go-clinic/internal/logger"
	"go-clinic/internal/metrics"
	"go-clinic/internal/middleware"
	"go-clinic/pkg/utils"

	_ "go-clinic/docs" // swagger docs

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates the Fiber app with the shared middleware stack.
func NewFiberServer(cfg *config.Config, m *metrics.Metrics) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler,
		// Multipart overhead on top of the largest accepted spreadsheet.
		BodyLimit: int(cfg.MaxImportBytes()) + 1024*1024,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	app.Use(middleware.Metrics(m))

	return app
}

// AsRoute tags the constructor so Fx adds it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),
		fx.ResultTags(`group:"routes"`),
	)
}

// RegisterAllRoutes calls Setup on every route in the "routes" group.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route, log *zap.Logger) {
	for _, route := range routes {
		log.Debug("Setting up route", zap.String("route", fmt.Sprintf("%T", route)))
		route.Setup(app)
	}
	log.Info("Routes registered", zap.Int("count", len(routes)))
}

var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`, ``),
)

// StartServer starts Fiber in a goroutine and shuts it down with the app.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config, log *zap.Logger, shutdowner fx.Shutdowner) {
	utils.SetSecret(cfg.JWTSecret)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				log.Info("HTTP server listening", zap.String("addr", port))
				if err := app.Listen(port); err != nil {
					log.Error("Server failed", zap.Error(err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.ShutdownWithContext(ctx)
		},
	})
}

type indexParams struct {
	fx.In

	Repos []database.IndexSpec `group:"indexes"`
}

// InitializeIndexes ensures collection indexes in the background.
func InitializeIndexes(lc fx.Lifecycle, p indexParams, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				for _, repo := range p.Repos {
					if err := repo.EnsureIndexes(ctx); err != nil {
						log.Warn("Failed to ensure indexes", zap.String("repository", fmt.Sprintf("%T", repo)), zap.Error(err))
					}
				}
			}()
			return nil
		},
	})
}

// AsIndexed provides the repository and also adds it to the "indexes" group.
func AsIndexed[T database.IndexSpec](f any) fx.Option {
	return fx.Options(
		fx.Provide(f),
		fx.Provide(fx.Annotate(
			func(r T) database.IndexSpec { return r },
			fx.ResultTags(`group:"indexes"`),
		)),
	)
}

// @title           Clinic API
// @version         1.0
// @description     Multi-tenant clinic backend: appointments, spreadsheet imports, inventory, inbox and leads.

// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			database.NewDatabase,
			logger.NewLogger,
			metrics.NewMetrics,
			cache.NewRedis,
			cache.NewRedisCache,
			NewFiberServer,
		),

		AsIndexed[tenant.TenantRepository](tenant.NewTenantRepository),
		AsIndexed[audit.AuditRepository](audit.NewAuditRepository),
		AsIndexed[user.UserRepository](user.NewUserRepository),
		AsIndexed[clinic.DoctorRepository](clinic.NewDoctorRepository),
		AsIndexed[clinic.RoomRepository](clinic.NewRoomRepository),
		AsIndexed[patient.PatientRepository](patient.NewPatientRepository),
		AsIndexed[appointment.AppointmentRepository](appointment.NewAppointmentRepository),
		AsIndexed[appointment_import.ImportJobRepository](appointment_import.NewImportJobRepository),
		AsIndexed[inventory.InventoryRepository](inventory.NewInventoryRepository),
		AsIndexed[inbox.InboxRepository](inbox.NewInboxRepository),
		AsIndexed[job.JobRepository](job.NewJobRepository),
		AsIndexed[lead.LeadRepository](lead.NewLeadRepository),
		AsIndexed[sync.SyncRepository](sync.NewSyncRepository),

		fx.Provide(
			// Services
			audit.NewAuditService,
			tenant.NewTenantService,
			user.NewUserService,
			auth.NewAuthService,
			clinic.NewClinicService,
			patient.NewPatientService,
			appointment.NewAppointmentService,
			appointment_import.NewImportService,
			inventory.NewInventoryService,
			inbox.NewProviders,
			inbox.NewHub,
			inbox.NewInboxService,
			job.NewJobService,
			lead.NewScorer,
			lead.NewLeadService,
			sync.NewWarehouse,
			sync.NewSyncService,
			scheduler.NewScheduler,

			// Interface adapters between features
			func(r user.UserRepository) audit.UserFinder { return r },
			func(s *lead.Scorer) tenant.ScriptChecker { return s },
			func(s clinic.ClinicService) appointment.Resources { return s },
			func(s clinic.ClinicService) appointment_import.References { return s },
			func(s patient.PatientService) appointment.Patients { return s },
			func(s patient.PatientService) appointment_import.Patients { return s },
			func(s patient.PatientService) inbox.Patients { return s },
			func(s patient.PatientService) lead.Patients { return s },
			func(s appointment.AppointmentService) appointment_import.Booker { return s },
			func(s appointment.AppointmentService) sync.Appointments { return s },
			func(s appointment.AppointmentService) scheduler.Appointments { return s },
			func(s tenant.TenantService) inbox.Tenants { return s },
			func(s tenant.TenantService) job.Tenants { return s },
			func(s tenant.TenantService) lead.Tenants { return s },
			func(s tenant.TenantService) scheduler.Tenants { return s },
			func(s inbox.InboxService) scheduler.Notifier { return s },
			func(s sync.SyncService) scheduler.Syncer { return s },

			// Controllers
			tenant.NewTenantController,
			audit.NewAuditController,
			user.NewUserController,
			auth.NewAuthController,
			clinic.NewClinicController,
			patient.NewPatientController,
			appointment.NewAppointmentController,
			appointment_import.NewImportController,
			inventory.NewInventoryController,
			inbox.NewInboxController,
			job.NewJobController,
			lead.NewLeadController,
			sync.NewSyncController,
			scheduler.NewSchedulerController,
			system.NewSystemController,

			// Routes
			AsRoute(system.NewSystemApi),
			AsRoute(auth.NewAuthApi),
			AsRoute(tenant.NewTenantApi),
			AsRoute(user.NewUserApi),
			AsRoute(audit.NewAuditApi),
			AsRoute(clinic.NewClinicApi),
			AsRoute(patient.NewPatientApi),
			AsRoute(appointment_import.NewImportApi),
			AsRoute(appointment.NewAppointmentApi),
			AsRoute(inventory.NewInventoryApi),
			AsRoute(inbox.NewInboxApi),
			AsRoute(job.NewJobApi),
			AsRoute(lead.NewLeadApi),
			AsRoute(sync.NewSyncApi),
			AsRoute(scheduler.NewSchedulerApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			RegisterAllRoutesWithAnnotation,
			StartServer,
			InitializeIndexes,
			scheduler.StartScheduler,
		),
	)

	app.Run()
}
