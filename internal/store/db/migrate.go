package db

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"ms-seating/internal/models"
)

var tables = []interface{}{
	(*models.Event)(nil),
	(*models.Row)(nil),
	(*models.SeatHold)(nil),
	(*models.Reservation)(nil),
}

// CreateSchema creates the seat tables from the bun models. PostgreSQL
// deployments normally run the SQL migrations instead; this is what SQLite
// and the tests use.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	for _, model := range tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	return nil
}

func DropSchema(ctx context.Context, db *bun.DB) error {
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(tables[i]).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("drop table for %T: %w", tables[i], err)
		}
	}
	return nil
}
