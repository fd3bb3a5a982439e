package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"service-queue/internal/models"
	"service-queue/internal/store"
)

func (s *Store) CreateOperator(ctx context.Context, operator models.Operator) (models.Operator, error) {
	operator.Email = strings.ToLower(strings.TrimSpace(operator.Email))
	if operator.IsBanned == "" {
		operator.IsBanned = "n"
	}
	if operator.CreatedAt.IsZero() {
		operator.CreatedAt = s.clock()
	}

	query := `
		INSERT INTO sqm_operator
		(ds_name, ds_email, ds_password, ds_permissions, do_banned, dt_created)
		VALUES (?, ?, ?, ?, ?, ?)`
	args := []any{
		operator.Name,
		operator.Email,
		operator.Password,
		operator.Permissions,
		operator.IsBanned,
		operator.CreatedAt.UTC(),
	}

	var err error
	if s.dialect.returning {
		err = s.db.QueryRowContext(ctx, s.dialect.rebind(query)+" RETURNING id_sqm_operator", args...).Scan(&operator.ID)
	} else {
		var result sql.Result
		result, err = s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
		if err == nil {
			operator.ID, err = result.LastInsertId()
		}
	}
	if err != nil {
		if isUniqueViolation(err) {
			return models.Operator{}, store.ErrDuplicateOperator
		}
		return models.Operator{}, err
	}
	return operator, nil
}

func (s *Store) FindOperatorByEmail(ctx context.Context, email string) (models.Operator, bool, error) {
	var o models.Operator
	query := `SELECT id_sqm_operator, ds_name, ds_email, ds_password, ds_permissions, do_banned, dt_created
	          FROM sqm_operator WHERE ds_email = ?`
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(query), strings.ToLower(strings.TrimSpace(email))).Scan(
		&o.ID,
		&o.Name,
		&o.Email,
		&o.Password,
		&o.Permissions,
		&o.IsBanned,
		&o.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Operator{}, false, nil
	}
	if err != nil {
		return models.Operator{}, false, err
	}
	o.IsBanned = strings.TrimSpace(o.IsBanned)
	return o, true, nil
}

var _ store.OperatorStore = (*Store)(nil)
