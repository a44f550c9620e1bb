package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/ecodocs/internal/auth"
	settingsDatamodel "github.com/frahmantamala/ecodocs/internal/core/datamodel/settings"
	userDatamodel "github.com/frahmantamala/ecodocs/internal/core/datamodel/user"
	"github.com/frahmantamala/ecodocs/internal/settings"
	settingsPostgres "github.com/frahmantamala/ecodocs/internal/settings/postgres"
)

var (
	seedUsername string
	seedEmail    string
	seedPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the administrator account and default settings",
	Long:  `Create the administrator account (left untouched when it already exists) and the system settings row.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer sqlDB.Close()

		db, err := initGorm(sqlDB)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		ctx := context.Background()

		hash, err := auth.HashPassword(seedPassword, cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}

		admin := userDatamodel.User{}
		res := db.WithContext(ctx).
			Where(userDatamodel.User{Username: seedUsername}).
			Attrs(userDatamodel.User{Email: seedEmail, PasswordHash: hash, Role: string(auth.RoleAdmin)}).
			FirstOrCreate(&admin)
		if res.Error != nil {
			log.Fatalf("failed to seed admin user: %v", res.Error)
		}
		if res.RowsAffected == 0 {
			fmt.Println("admin user already exists:", admin.Username)
		} else {
			fmt.Println("Seeded admin user:", admin.Username, admin.Email)
		}

		repo := settingsPostgres.NewSettingsRepository(db)
		s, err := repo.GetOrCreate(ctx, &settingsDatamodel.SystemSettings{
			ID:          settingsDatamodel.SingletonID,
			CompanyName: settings.DefaultCompanyName,
		})
		if err != nil {
			log.Fatalf("failed to seed system settings: %v", err)
		}
		fmt.Println("System settings ready:", s.CompanyName)
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedUsername, "username", "admin", "administrator username")
	seedCmd.Flags().StringVar(&seedEmail, "email", "admin@ecodocs.com", "administrator email")
	seedCmd.Flags().StringVar(&seedPassword, "password", "admin123", "administrator password")
}
