package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/remindly/deadline-service/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_deadlines",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.DeadlineModel{}); err != nil {
					return err
				}
				indexes := []string{
					// Partial index serving the due scan: only unsent rows matter.
					`CREATE INDEX IF NOT EXISTS idx_deadlines_due_unsent ON deadlines (due_at) WHERE sent = false`,
					`CREATE INDEX IF NOT EXISTS idx_deadlines_created_at ON deadlines (created_at)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.DeadlineModel{})
			},
		},
	})

	return m.Migrate()
}
