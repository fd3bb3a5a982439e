package models

import (
	"strings"
	"time"
)

// Status - Kode status entry, sama dengan isi kolom do_status
type Status string

const (
	StatusWaiting  Status = "W"
	StatusSummoned Status = "S"
	StatusServed   Status = "D"
	StatusCanceled Status = "C"
)

var statusNames = map[string]Status{
	"w":        StatusWaiting,
	"waiting":  StatusWaiting,
	"s":        StatusSummoned,
	"summoned": StatusSummoned,
	"d":        StatusServed,
	"served":   StatusServed,
	"c":        StatusCanceled,
	"canceled": StatusCanceled,
}

// ParseStatus accepts either the stored code ("S") or the long name ("summoned").
func ParseStatus(raw string) (Status, bool) {
	status, ok := statusNames[strings.ToLower(strings.TrimSpace(raw))]
	return status, ok
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusServed || s == StatusCanceled
}

func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusSummoned, StatusServed, StatusCanceled:
		return true
	}
	return false
}

// Entry - Satu tiket di antrian (tabel sqm_entry)
type Entry struct {
	ID         int64      `json:"id"`
	Key        string     `json:"key"`
	CreatedAt  time.Time  `json:"created_at"`
	ClientName *string    `json:"client_name"`
	Number     *int       `json:"number"`
	Location   *string    `json:"location"`
	Status     Status     `json:"status"`
	SummonedAt *time.Time `json:"summoned_at"`
	ServedAt   *time.Time `json:"served_at"`
	CanceledAt *time.Time `json:"canceled_at"`
}

// LastCall returns the stamp of the current status, nil while waiting.
func (e Entry) LastCall() *time.Time {
	switch e.Status {
	case StatusSummoned:
		return e.SummonedAt
	case StatusServed:
		return e.ServedAt
	case StatusCanceled:
		return e.CanceledAt
	}
	return nil
}

// EntryView - Entry plus field turunan untuk display
type EntryView struct {
	Entry
	StatusText   string     `json:"status_text"`
	LastCallAt   *time.Time `json:"last_call_at"`
	LastCallText *string    `json:"last_call_text"`
}
