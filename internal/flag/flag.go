// Package flag holds the per-tenant change-notification cell that writers
// raise and long-poll readers consume.
package flag

import (
	"context"
	"fmt"
)

// Severity of the latest unconsumed change. Higher values win on Raise.
type Severity int

const (
	NothingNew Severity = 0
	NewData    Severity = 1
	NewCall    Severity = 2
)

func (s Severity) String() string {
	switch s {
	case NothingNew:
		return "nothing_new"
	case NewData:
		return "new_data"
	case NewCall:
		return "new_call"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Store is a coalescing flag per scope. Raise never lowers the stored value,
// only ReadAndClear resets it to NothingNew.
type Store interface {
	Raise(ctx context.Context, scope string, severity Severity) error
	Peek(ctx context.Context, scope string) (Severity, error)
	ReadAndClear(ctx context.Context, scope string) (Severity, error)
}
