package content

import (
	"fmt"
	"strings"
)

// Status is the export lifecycle flag shared by every exportable entity.
type Status string

const (
	StatusUnexported Status = "unexported"
	StatusExported   Status = "exported"
	StatusReverted   Status = "reverted"
)

// allowed maps a prior status to the statuses it may move to.
var allowed = map[Status][]Status{
	StatusUnexported: {StatusExported},
	StatusExported:   {StatusReverted, StatusUnexported},
	StatusReverted:   {StatusExported, StatusUnexported},
}

// ParseStatus normalizes raw input into a known Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}

// Valid reports whether s is one of the lifecycle values.
func (s Status) Valid() bool {
	switch s {
	case StatusUnexported, StatusExported, StatusReverted:
		return true
	default:
		return false
	}
}

func (s Status) String() string { return string(s) }

// CanTransition reports whether a row in status from may be moved to status to.
func CanTransition(from, to Status) bool {
	for _, next := range allowed[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PendingStatuses are the statuses the dumper still owns and fetch picks up.
func PendingStatuses() []Status {
	return []Status{StatusUnexported, StatusReverted}
}

// AllStatuses lists every lifecycle value.
func AllStatuses() []Status {
	return []Status{StatusUnexported, StatusExported, StatusReverted}
}

// AfterEdit returns the status a row takes when its content changes.
// Exported rows are flagged for re-export; everything else keeps its status.
func AfterEdit(current Status) Status {
	if current == StatusExported {
		return StatusReverted
	}
	return current
}
