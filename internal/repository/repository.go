package repository

import (
	"context"
	"database/sql"
	"time"

	"evohome_gateway/internal/models"
)

// Operators stores the local API users.
type Operators interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.Operator, error)
}

// EventRepo is the append-only gateway event log.
type EventRepo interface {
	Append(ctx context.Context, e models.GatewayEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.GatewayEvent, error)
}

type Repository struct {
	EventRepo EventRepo
	Operators Operators
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		EventRepo: NewEventSQLite(db),
		Operators: NewOperatorRepository(db),
	}
}
