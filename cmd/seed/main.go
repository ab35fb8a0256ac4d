package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/config"
	"go-clinic/internal/database"
	"go-clinic/internal/features/audit"
	"go-clinic/internal/features/auth"
	"go-clinic/internal/features/clinic"
	"go-clinic/internal/features/inventory"
	"go-clinic/internal/features/lead"
	"go-clinic/internal/features/tenant"
	"go-clinic/internal/features/user"
	"go-clinic/internal/logger"
	"go-clinic/pkg/apperrors"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const dataPath = "cmd/seed/data/clinic.json"

type seedData struct {
	ClinicName string `json:"clinic_name"`
	Admin      struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	} `json:"admin"`
	Doctors []clinic.DoctorRequest `json:"doctors"`
	Rooms   []clinic.RoomRequest   `json:"rooms"`
	Units   []struct {
		Name   string  `json:"name"`
		Symbol string  `json:"symbol"`
		Base   string  `json:"base"`
		Factor float64 `json:"factor"`
	} `json:"units"`
}

// Seed creates a demo clinic with its admin, doctors, rooms and units.
// Running it twice is a no-op because the admin email already exists.
func Seed(
	lc fx.Lifecycle,
	authService auth.AuthService,
	clinicService clinic.ClinicService,
	inventoryService inventory.InventoryService,
	logger *zap.Logger,
	shutdowner fx.Shutdowner,
) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer func() {
					if err := shutdowner.Shutdown(); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()
				if err := run(context.Background(), authService, clinicService, inventoryService, logger); err != nil {
					logger.Error("Seeding failed", zap.Error(err))
				}
			}()
			return nil
		},
	})
}

func run(ctx context.Context, authService auth.AuthService, clinicService clinic.ClinicService, inventoryService inventory.InventoryService, logger *zap.Logger) error {
	b, err := os.ReadFile(dataPath)
	if err != nil {
		return err
	}
	var data seedData
	if err := json.Unmarshal(b, &data); err != nil {
		return err
	}

	res, err := authService.Register(ctx, auth.RegisterRequest{
		ClinicName: data.ClinicName,
		Name:       data.Admin.Name,
		Email:      data.Admin.Email,
		Password:   data.Admin.Password,
	})
	if errors.Is(err, apperrors.ErrConflict) {
		logger.Info("Admin already exists, skipping", zap.String("email", data.Admin.Email))
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("Clinic created", zap.String("clinic", res.Tenant.Name), zap.String("slug", res.Tenant.Slug))

	scope := common_models.Scope{TenantID: res.Tenant.ID, UserID: res.User.ID, Role: common_models.RoleAdmin}

	for _, d := range data.Doctors {
		if _, err := clinicService.CreateDoctor(ctx, scope, d); err != nil {
			return err
		}
	}
	for _, r := range data.Rooms {
		if _, err := clinicService.CreateRoom(ctx, scope, r); err != nil {
			return err
		}
	}

	// Base units are listed before the units derived from them.
	bySymbol := map[string]string{}
	for _, u := range data.Units {
		req := inventory.UnitRequest{Name: u.Name, Symbol: u.Symbol, Factor: u.Factor}
		if u.Base != "" {
			req.BaseUnitID = bySymbol[u.Base]
		}
		created, err := inventoryService.CreateUnit(ctx, scope, req)
		if err != nil {
			return err
		}
		bySymbol[u.Symbol] = created.ID.Hex()
	}

	logger.Info("Seeding finished",
		zap.Int("doctors", len(data.Doctors)),
		zap.Int("rooms", len(data.Rooms)),
		zap.Int("units", len(data.Units)),
	)
	return nil
}

func main() {
	fx.New(
		fx.Provide(
			config.LoadConfig,
			database.NewDatabase,
			logger.NewLogger,

			tenant.NewTenantRepository,
			audit.NewAuditRepository,
			user.NewUserRepository,
			clinic.NewDoctorRepository,
			clinic.NewRoomRepository,
			inventory.NewInventoryRepository,

			audit.NewAuditService,
			tenant.NewTenantService,
			auth.NewAuthService,
			clinic.NewClinicService,
			inventory.NewInventoryService,
			lead.NewScorer,

			func(r user.UserRepository) audit.UserFinder { return r },
			func(s *lead.Scorer) tenant.ScriptChecker { return s },
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	).Run()
}
