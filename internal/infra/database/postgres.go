package database

import (
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/totegamma/eform-core/internal/domain"
	"github.com/totegamma/eform-core/internal/infra/database/models"
)

func NewPostgres(dsn string) (*gorm.DB, error) {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold:             300 * time.Millisecond, // Slow SQL threshold
			LogLevel:                  logger.Warn,            // Log level
			IgnoreRecordNotFoundError: true,                   // Ignore ErrRecordNotFound error for logger
			Colorful:                  true,                   // Enable color
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger,
	})
	return db, err
}

// Migrate creates or updates the schema. The models avoid dialect specific
// column types so the same schema also builds on sqlite.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Profile{},
		&models.User{},
		&models.Team{},
		&models.UserTeam{},
		&models.FieldType{},
		&models.Form{},
		&models.Field{},
		&models.FieldRank{},
		&models.FormPermission{},
		&models.Project{},
		&models.ProjectTeam{},
		&models.DataRow{},
	)
}

// Seed inserts the field type registry and the profiles. Existing rows are kept.
func Seed(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, ft := range domain.DefaultFieldTypes {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "value"}},
				DoNothing: true,
			}).Create(&models.FieldType{
				Code:        domain.NewCode(domain.CodePrefixFieldType),
				Label:       ft.Label,
				Value:       string(ft.Value),
				Description: "Field type " + ft.Label,
			}).Error
			if err != nil {
				return err
			}
		}

		for _, p := range domain.DefaultProfiles {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "value"}},
				DoNothing: true,
			}).Create(&models.Profile{
				Code:        domain.NewCode(domain.CodePrefixProfile),
				Label:       p.Label,
				Value:       string(p.Value),
				Description: p.Description,
			}).Error
			if err != nil {
				return err
			}
		}

		return nil
	})
}
