package store

import (
	"context"
	"time"

	"service-queue/internal/models"
)

// Filter selects entries. Zero-valued fields are ignored.
type Filter struct {
	ID          int64
	Key         string
	Statuses    []models.Status
	CreatedFrom time.Time
	CreatedTo   time.Time
}

type SortField string

const (
	SortLastCallAt SortField = "last_call_at"
	SortCreatedAt  SortField = "created_at"
	SortNumber     SortField = "number"
	SortID         SortField = "id"
	SortStatus     SortField = "status"
	SortClientName SortField = "client_name"
)

func (f SortField) Valid() bool {
	switch f {
	case SortLastCallAt, SortCreatedAt, SortNumber, SortID, SortStatus, SortClientName:
		return true
	}
	return false
}

type Sort struct {
	Field SortField
	Desc  bool
}

// Changes lists the columns written by UpdateWhere. Nil pointers are left untouched.
type Changes struct {
	Status     models.Status
	Location   *string
	SummonedAt *time.Time
	ServedAt   *time.Time
	CanceledAt *time.Time
}

type EntryStore interface {
	Insert(ctx context.Context, entry models.Entry) (models.Entry, error)
	// InsertNumbered assigns max(number created in [from, to)) + 1 and inserts atomically.
	InsertNumbered(ctx context.Context, entry models.Entry, from, to time.Time) (models.Entry, error)
	Find(ctx context.Context, filter Filter, sort Sort) ([]models.Entry, error)
	First(ctx context.Context, filter Filter) (models.Entry, bool, error)
	UpdateWhere(ctx context.Context, filter Filter, changes Changes) (int64, error)
}

type OperatorStore interface {
	CreateOperator(ctx context.Context, operator models.Operator) (models.Operator, error)
	FindOperatorByEmail(ctx context.Context, email string) (models.Operator, bool, error)
}
