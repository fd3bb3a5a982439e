package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"service-queue/internal/models"
	"service-queue/internal/store"
)

const entryColumns = `id_sqm_entry, ds_key, dt_created, ds_clientname, nr_number,
	ds_location, do_status, dt_summoned, dt_served, dt_canceled`

// lastCallExpr mirrors models.Entry.LastCall for ORDER BY.
const lastCallExpr = `CASE do_status WHEN 'S' THEN dt_summoned WHEN 'D' THEN dt_served WHEN 'C' THEN dt_canceled END`

var sortColumns = map[store.SortField]string{
	store.SortLastCallAt: lastCallExpr,
	store.SortCreatedAt:  "dt_created",
	store.SortNumber:     "nr_number",
	store.SortID:         "id_sqm_entry",
	store.SortStatus:     "do_status",
	store.SortClientName: "ds_clientname",
}

func (s *Store) Insert(ctx context.Context, entry models.Entry) (models.Entry, error) {
	id, err := s.insertEntry(ctx, s.db, entry)
	if err != nil {
		return models.Entry{}, err
	}
	entry.ID = id
	return entry, nil
}

func (s *Store) InsertNumbered(ctx context.Context, entry models.Entry, from, to time.Time) (models.Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Entry{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if s.dialect.numberLock != "" {
		if _, err = tx.ExecContext(ctx, s.dialect.numberLock); err != nil {
			return models.Entry{}, err
		}
	}

	var last int64
	query := "SELECT COALESCE(MAX(nr_number), 0) FROM sqm_entry WHERE dt_created >= ? AND dt_created < ?" + s.dialect.maxSuffix
	if err = tx.QueryRowContext(ctx, s.dialect.rebind(query), from.UTC(), to.UTC()).Scan(&last); err != nil {
		return models.Entry{}, err
	}

	number := int(last) + 1
	entry.Number = &number
	entry.ClientName = nil

	var id int64
	if id, err = s.insertEntry(ctx, tx, entry); err != nil {
		return models.Entry{}, err
	}
	if err = tx.Commit(); err != nil {
		return models.Entry{}, err
	}

	entry.ID = id
	return entry, nil
}

func (s *Store) insertEntry(ctx context.Context, q queryer, entry models.Entry) (int64, error) {
	query := `
		INSERT INTO sqm_entry
		(ds_key, dt_created, ds_clientname, nr_number, ds_location, do_status, dt_summoned, dt_served, dt_canceled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	args := []any{
		entry.Key,
		entry.CreatedAt.UTC(),
		nullString(entry.ClientName),
		nullInt(entry.Number),
		nullString(entry.Location),
		string(entry.Status),
		nullTime(entry.SummonedAt),
		nullTime(entry.ServedAt),
		nullTime(entry.CanceledAt),
	}

	if s.dialect.returning {
		var id int64
		err := q.QueryRowContext(ctx, s.dialect.rebind(query)+" RETURNING id_sqm_entry", args...).Scan(&id)
		return id, err
	}

	result, err := q.ExecContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *Store) Find(ctx context.Context, filter store.Filter, sort store.Sort) ([]models.Entry, error) {
	where, args := buildWhere(filter)
	query := "SELECT " + entryColumns + " FROM sqm_entry" + where + buildOrder(sort)
	return s.queryEntries(ctx, query, args...)
}

func (s *Store) First(ctx context.Context, filter store.Filter) (models.Entry, bool, error) {
	where, args := buildWhere(filter)
	query := "SELECT " + entryColumns + " FROM sqm_entry" + where + " ORDER BY id_sqm_entry ASC LIMIT 1"
	entries, err := s.queryEntries(ctx, query, args...)
	if err != nil {
		return models.Entry{}, false, err
	}
	if len(entries) == 0 {
		return models.Entry{}, false, nil
	}
	return entries[0], true, nil
}

// UpdateWhere runs one conditional UPDATE and reports the affected row count.
func (s *Store) UpdateWhere(ctx context.Context, filter store.Filter, changes store.Changes) (int64, error) {
	where, whereArgs := buildWhere(filter)
	if where == "" {
		return 0, store.ErrEmptyFilter
	}

	var sets []string
	var args []any
	if changes.Status != "" {
		sets = append(sets, "do_status = ?")
		args = append(args, string(changes.Status))
	}
	if changes.Location != nil {
		sets = append(sets, "ds_location = ?")
		args = append(args, *changes.Location)
	}
	if changes.SummonedAt != nil {
		sets = append(sets, "dt_summoned = ?")
		args = append(args, changes.SummonedAt.UTC())
	}
	if changes.ServedAt != nil {
		sets = append(sets, "dt_served = ?")
		args = append(args, changes.ServedAt.UTC())
	}
	if changes.CanceledAt != nil {
		sets = append(sets, "dt_canceled = ?")
		args = append(args, changes.CanceledAt.UTC())
	}
	if len(sets) == 0 {
		return 0, store.ErrEmptyChanges
	}

	query := "UPDATE sqm_entry SET " + strings.Join(sets, ", ") + where
	result, err := s.db.ExecContext(ctx, s.dialect.rebind(query), append(args, whereArgs...)...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]models.Entry, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (models.Entry, error) {
	var (
		e          models.Entry
		status     string
		clientName sql.NullString
		number     sql.NullInt64
		location   sql.NullString
		summonedAt sql.NullTime
		servedAt   sql.NullTime
		canceledAt sql.NullTime
	)

	err := rows.Scan(
		&e.ID,
		&e.Key,
		&e.CreatedAt,
		&clientName,
		&number,
		&location,
		&status,
		&summonedAt,
		&servedAt,
		&canceledAt,
	)
	if err != nil {
		return e, err
	}

	e.Status = models.Status(strings.TrimSpace(status))
	if clientName.Valid {
		e.ClientName = &clientName.String
	}
	if number.Valid {
		n := int(number.Int64)
		e.Number = &n
	}
	if location.Valid {
		e.Location = &location.String
	}
	e.SummonedAt = timePtr(summonedAt)
	e.ServedAt = timePtr(servedAt)
	e.CanceledAt = timePtr(canceledAt)
	return e, nil
}

func buildWhere(filter store.Filter) (string, []any) {
	var conds []string
	var args []any

	if filter.ID != 0 {
		conds = append(conds, "id_sqm_entry = ?")
		args = append(args, filter.ID)
	}
	if filter.Key != "" {
		conds = append(conds, "ds_key = ?")
		args = append(args, filter.Key)
	}
	if len(filter.Statuses) > 0 {
		marks := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			marks[i] = "?"
			args = append(args, string(status))
		}
		conds = append(conds, "do_status IN ("+strings.Join(marks, ", ")+")")
	}
	if !filter.CreatedFrom.IsZero() {
		conds = append(conds, "dt_created >= ?")
		args = append(args, filter.CreatedFrom.UTC())
	}
	if !filter.CreatedTo.IsZero() {
		conds = append(conds, "dt_created < ?")
		args = append(args, filter.CreatedTo.UTC())
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// buildOrder keeps NULLs last on DESC and first on ASC for every dialect, id breaks ties.
func buildOrder(sort store.Sort) string {
	column, ok := sortColumns[sort.Field]
	if !ok {
		column = "id_sqm_entry"
	}
	direction := "ASC"
	if sort.Desc {
		direction = "DESC"
	}
	return fmt.Sprintf(" ORDER BY CASE WHEN %[1]s IS NULL THEN 0 ELSE 1 END %[2]s, %[1]s %[2]s, id_sqm_entry %[2]s", column, direction)
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: v.UTC(), Valid: true}
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

var _ store.EntryStore = (*Store)(nil)
