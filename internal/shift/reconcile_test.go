package shift

import (
	"errors"
	"testing"

	"pos_umkm/internal/pos"

	"github.com/stretchr/testify/assert"
)

func TestReconcile(t *testing.T) {
	remoteShift := &pos.Shift{ID: "remote-1", Status: pos.ShiftOpen}
	netErr := errors.New("dial tcp: i/o timeout")
	temp := pos.TemporaryPrefix + "abc"

	tests := []struct {
		name    string
		localID string
		view    RemoteView
		online  bool
		want    Decision
	}{
		{"offline trusts local", "remote-1", RemoteView{}, false, Decision{ActionKeep, "remote-1"}},
		{"offline trusts provisional", temp, RemoteView{}, false, Decision{ActionKeep, temp}},
		{"offline without shift", "", RemoteView{}, false, Decision{Action: ActionRequireOpen}},
		{"remote open shift adopted", "", RemoteView{Shift: remoteShift}, true, Decision{ActionAdopt, "remote-1"}},
		{"remote replaces provisional", temp, RemoteView{Shift: remoteShift}, true, Decision{ActionAdopt, "remote-1"}},
		{"remote replaces stale local", "old-1", RemoteView{Shift: remoteShift}, true, Decision{ActionAdopt, "remote-1"}},
		{"provisional preserved", temp, RemoteView{}, true, Decision{ActionPreserve, temp}},
		{"confirmed closed elsewhere", "old-1", RemoteView{}, true, Decision{Action: ActionClear}},
		{"nothing anywhere", "", RemoteView{}, true, Decision{Action: ActionRequireOpen}},
		{"network error keeps provisional", temp, RemoteView{Err: netErr}, true, Decision{ActionKeep, temp}},
		{"network error keeps confirmed", "old-1", RemoteView{Err: netErr}, true, Decision{ActionKeep, "old-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reconcile(tt.localID, tt.view, tt.online))
		})
	}
}
