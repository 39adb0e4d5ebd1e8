package shift

import (
	"pos_umkm/internal/pos"
)

type Action string

const (
	// ActionKeep leaves local state untouched.
	ActionKeep Action = "keep"
	// ActionAdopt replaces local state with the remote open shift.
	ActionAdopt Action = "adopt"
	// ActionPreserve keeps a provisional shift the remote has not seen yet.
	ActionPreserve Action = "preserve"
	// ActionClear drops a confirmed shift that was closed elsewhere.
	ActionClear Action = "clear"
	// ActionRequireOpen means no shift exists anywhere; one must be started.
	ActionRequireOpen Action = "require_open"
)

// RemoteView is the result of asking the remote for the store's open shift.
// Err is set when the question could not be answered.
type RemoteView struct {
	Shift *pos.Shift
	Err   error
}

type Decision struct {
	Action  Action
	ShiftID string
}

// Reconcile decides the authoritative shift from the local record, the remote
// answer and the connectivity status. It has no side effects.
func Reconcile(localID string, view RemoteView, online bool) Decision {
	if !online || view.Err != nil {
		if localID == "" {
			return Decision{Action: ActionRequireOpen}
		}
		return Decision{Action: ActionKeep, ShiftID: localID}
	}

	if view.Shift != nil {
		return Decision{Action: ActionAdopt, ShiftID: view.Shift.ID}
	}

	switch {
	case localID == "":
		return Decision{Action: ActionRequireOpen}
	case pos.IsTemporaryID(localID):
		return Decision{Action: ActionPreserve, ShiftID: localID}
	default:
		return Decision{Action: ActionClear}
	}
}
