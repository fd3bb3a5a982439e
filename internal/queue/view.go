package queue

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"service-queue/internal/models"
	"service-queue/internal/store"
)

const LastCallLayout = "02/01/2006 15:04"

var statusTexts = map[models.Status]string{
	models.StatusWaiting:  "Aguardando",
	models.StatusSummoned: "Convocado",
	models.StatusServed:   "Atendido",
	models.StatusCanceled: "Cancelado",
}

func statusText(status models.Status) string {
	if text, ok := statusTexts[status]; ok {
		return text
	}
	return string(status)
}

// ListParams shapes the display projection. The zero value sorts by last
// call, newest first. Direction is "asc", "desc" or empty for the field default.
type ListParams struct {
	SortBy    store.SortField
	Direction string
	Statuses  []models.Status
}

// ParseListParams reads the raw query values. An empty sortBy keeps the
// default order; a sortBy without direction sorts ascending.
func ParseListParams(sortBy, sortDirection, status string) (ListParams, error) {
	var params ListParams

	sortBy = strings.ToLower(strings.TrimSpace(sortBy))
	direction := strings.ToLower(strings.TrimSpace(sortDirection))

	if sortBy != "" {
		field := store.SortField(sortBy)
		if !field.Valid() {
			return ListParams{}, fmt.Errorf("%w: unknown sort_by %q", ErrValidation, sortBy)
		}
		params.SortBy = field
	}

	switch direction {
	case "", "asc", "desc":
		params.Direction = direction
	default:
		return ListParams{}, fmt.Errorf("%w: unknown sort_direction %q", ErrValidation, sortDirection)
	}

	for _, raw := range strings.Split(status, ",") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		st, ok := models.ParseStatus(raw)
		if !ok {
			return ListParams{}, fmt.Errorf("%w: unknown status %q", ErrValidation, raw)
		}
		params.Statuses = append(params.Statuses, st)
	}
	return params, nil
}

func (p ListParams) sort() store.Sort {
	if p.SortBy == "" {
		return store.Sort{Field: store.SortLastCallAt, Desc: p.Direction != "asc"}
	}
	return store.Sort{Field: p.SortBy, Desc: p.Direction == "desc"}
}

// List returns today's entries with their display fields.
func (s *Service) List(ctx context.Context, params ListParams) ([]models.EntryView, error) {
	ctx, span := s.tracer.Start(ctx, "queue.List")
	defer span.End()

	from, to := s.today()
	entries, err := s.entries.Find(ctx, store.Filter{
		Statuses:    params.Statuses,
		CreatedFrom: from,
		CreatedTo:   to,
	}, params.sort())
	if err != nil {
		return nil, fail(span, err)
	}

	span.SetAttributes(attribute.Int("queue.entries", len(entries)))
	views := make([]models.EntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, s.project(entry))
	}
	return views, nil
}

func (s *Service) project(entry models.Entry) models.EntryView {
	view := models.EntryView{
		Entry:      entry,
		StatusText: statusText(entry.Status),
		LastCallAt: entry.LastCall(),
	}
	if view.LastCallAt != nil {
		text := view.LastCallAt.In(s.location).Format(LastCallLayout)
		view.LastCallText = &text
	}
	return view
}
