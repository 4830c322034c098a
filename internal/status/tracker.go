// internal/status/tracker.go
package status

// Tracker owns the status state machine of one unit.
// Poll outcomes drive health and error code, a 1 Hz tick drives seconds_in_error.
type Tracker struct {
	snap Snapshot
}

func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{Health: HealthUnknown}}
}

func (t *Tracker) Snapshot() Snapshot { return t.snap }

// Connected records the identity reported by the device.
func (t *Tracker) Connected(whoAmI uint16) bool {
	if t.snap.WhoAmI == whoAmI {
		return false
	}
	t.snap.WhoAmI = whoAmI
	return true
}

// Observe folds one poll outcome in and reports whether the snapshot changed.
func (t *Tracker) Observe(err error) bool {
	prev := t.snap
	if err == nil {
		// recovery resets everything
		t.snap.Health = HealthOK
		t.snap.LastErrorCode = CodeNone
		t.snap.SecondsInError = 0
	} else {
		t.snap.Health = HealthError
		t.snap.LastErrorCode = CodeFor(err)
		// seconds_in_error only moves on Tick
	}
	return prev != t.snap
}

// Tick advances seconds_in_error while the unit is not OK. It never wraps.
func (t *Tracker) Tick() bool {
	if t.snap.Health == HealthOK || t.snap.SecondsInError == 0xFFFF {
		return false
	}
	t.snap.SecondsInError++
	return true
}
