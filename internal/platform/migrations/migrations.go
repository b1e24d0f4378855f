// Package migrations centralizes the gormigrate versions applied at startup.
package migrations

import (
	"fmt"

	gormigrate "github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/marcelojr/inspireboard/internal/domain"
)

func Run(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("migrations: nil db")
	}

	// gormigrate keeps schema versions explicit instead of leaning on raw
	// AutoMigrate in production.
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "202608150001_init_schema",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&domain.Person{}, &domain.Vote{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("votes", "people")
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("migrations: apply failed: %w", err)
	}

	return nil
}
