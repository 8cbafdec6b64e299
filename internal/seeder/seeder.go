package seeder

import (
	"context"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/trustdrive/stagelink/internal/database"
	"github.com/trustdrive/stagelink/internal/entity"
)

// Seeder performs database seeding for local/dev setups: two stages, an
// admin, a stage manager, a driver with vehicle, and dashboard quotes.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// All seeds every dataset in dependency order.
func (s *Seeder) All(ctx context.Context) error {
	if err := s.Registry(ctx); err != nil {
		return err
	}
	return s.Quotes(ctx)
}

// Registry seeds the stages, staff accounts, driver profile and vehicle the
// parcel and ledger flows need. Re-running is safe; existing rows win.
func (s *Seeder) Registry(ctx context.Context) error {
	stages := []entity.Stage{
		{ID: 1, Name: "Downtown", Location: "CBD"},
		{ID: 2, Name: "Nakuru Main", Location: "Nakuru"},
	}
	for i := range stages {
		_, err := s.db.NewInsert().Model(&stages[i]).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	profile := entity.DriverProfile{
		ID:          1,
		PlateNumber: "KDA 123X",
		DriverName:  "Boniface Kiprop",
		DriverPhone: "+254700000003",
		Route:       "CBD - Nakuru",
		StageID:     ptr(int64(1)),
	}
	_, err := s.db.NewInsert().Model(&profile).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}

	users := []entity.User{
		{
			ID:            1,
			Email:         "admin@stagelink.local",
			PasswordHash:  mustHash("admin-change-me"),
			Role:          entity.RoleAdmin,
			FullName:      "Stagelink Admin",
			AccountStatus: entity.AccountActive,
		},
		{
			ID:            2,
			Email:         "manager.downtown@stagelink.local",
			PasswordHash:  mustHash("manager-change-me"),
			Role:          entity.RoleStageManager,
			FullName:      "Amina Odhiambo",
			Phone:         "+254700000002",
			StageID:       ptr(int64(1)),
			AccountStatus: entity.AccountActive,
		},
		{
			ID:              3,
			Email:           "driver.kda123x@stagelink.local",
			PasswordHash:    mustHash("driver-change-me"),
			Role:            entity.RoleDriver,
			FullName:        "Boniface Kiprop",
			Phone:           "+254700000003",
			StageID:         ptr(int64(1)),
			DriverProfileID: ptr(int64(1)),
			AccountStatus:   entity.AccountActive,
		},
	}
	for i := range users {
		_, err := s.db.NewInsert().Model(&users[i]).
			On("CONFLICT (email) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	_, err = s.db.NewUpdate().Model((*entity.Stage)(nil)).
		Set("manager_id = ?", 2).
		Where("id = ? AND manager_id IS NULL", 1).
		Exec(ctx)
	if err != nil {
		return err
	}

	vehicle := entity.Vehicle{
		ID:          1,
		PlateNumber: "KDA 123X",
		Category:    entity.VehicleCategoryPSV,
		Capacity:    entity.VehicleDefaultCapacity,
		DriverID:    ptr(int64(3)),
		StageID:     ptr(int64(1)),
	}
	_, err = s.db.NewInsert().Model(&vehicle).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("seeded registry",
			zap.Int("stages", len(stages)),
			zap.Int("users", len(users)),
		)
	}
	return nil
}

// Quotes seeds the driver dashboard quotes if they are missing.
func (s *Seeder) Quotes(ctx context.Context) error {
	quotes := []entity.Quote{
		{ID: 1, Text: "The road rewards the patient.", IsActive: true},
		{ID: 2, Text: "Every trip counts, every passenger matters.", IsActive: true},
		{ID: 3, Text: "Drive like your family is in every seat.", IsActive: true},
	}
	for i := range quotes {
		_, err := s.db.NewInsert().Model(&quotes[i]).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded quotes", zap.Int("count", len(quotes)))
	}
	return nil
}

func mustHash(password string) string {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return string(hashed)
}

func ptr[T any](v T) *T {
	return &v
}
