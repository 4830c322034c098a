// internal/writer/status_writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"

	cfg "github.com/tamzrod/harp-replicator/internal/config"
	"github.com/tamzrod/harp-replicator/internal/status"
)

// StatusWriter is the delivery-only contract for device status.
// It receives a snapshot and writes it verbatim.
// No logic, no interpretation.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

// deviceStatusWriter is the concrete implementation used by the replicator.
type deviceStatusWriter struct {
	plan StatusPlan
	cli  endpointClient

	needFull bool
	last     status.Snapshot
	nameRegs []uint16
}

// NewDeviceStatusWriter builds the writer for one status block.
// Status memory is always spoken to over Modbus.
func NewDeviceStatusWriter(sp StatusPlan, clients map[string]endpointClient) *deviceStatusWriter {
	return &deviceStatusWriter{
		plan:     sp,
		cli:      clients[clientKey(cfg.ProtocolModbus, sp.Endpoint)],
		needFull: true, // full re-assert on first successful write
		last:     status.Snapshot{Health: status.HealthUnknown},
		nameRegs: status.EncodeDeviceName(sp.DeviceName),
	}
}

// NewStatusWriters builds one writer per status block in the plan.
// An empty result means status is disabled for the unit.
func NewStatusWriters(plan Plan, clients map[string]endpointClient) []StatusWriter {
	out := make([]StatusWriter, 0, len(plan.Status))
	for _, sp := range plan.Status {
		out = append(out, NewDeviceStatusWriter(sp, clients))
	}
	return out
}

// WriteStatus delivers a device status snapshot into status memory.
// On any write failure, the next successful call will re-assert the full block.
func (sw *deviceStatusWriter) WriteStatus(s status.Snapshot) error {
	if sw == nil {
		return errors.New("status writer: disabled")
	}
	if sw.cli == nil {
		return fmt.Errorf("status writer: missing client for endpoint %s", sw.plan.Endpoint)
	}

	baseAddr := sw.baseAddr()
	unitID := sw.plan.UnitID

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if sw.needFull {
		regs := status.Encode(s, sw.nameRegs)

		if err := sw.cli.WriteRegisters(areaHoldingRegisters, unitID, baseAddr, regs); err != nil {
			return fmt.Errorf("status writer: full block write failed: %w", err)
		}

		sw.needFull = false
		sw.last = s
		return nil
	}

	slots := []struct {
		name string
		slot uint16
		last *uint16
		next uint16
	}{
		{"health", status.SlotHealthCode, &sw.last.Health, s.Health},
		{"last_error", status.SlotLastErrorCode, &sw.last.LastErrorCode, s.LastErrorCode},
		{"seconds_in_error", status.SlotSecondsInError, &sw.last.SecondsInError, s.SecondsInError},
		{"who_am_i", status.SlotWhoAmI, &sw.last.WhoAmI, s.WhoAmI},
	}

	var errs []string
	for _, sl := range slots {
		if *sl.last == sl.next {
			continue
		}
		if err := sw.cli.WriteRegisters(areaHoldingRegisters, unitID, baseAddr+sl.slot, []uint16{sl.next}); err != nil {
			errs = append(errs, fmt.Sprintf("slot%d %s write failed: %v", sl.slot, sl.name, err))
			continue
		}
		*sl.last = sl.next
	}

	if len(errs) > 0 {
		// partial failure: re-assert on next success
		sw.needFull = true
		return errors.New("status writer: " + strings.Join(errs, " | "))
	}
	return nil
}

func (sw *deviceStatusWriter) baseAddr() uint16 {
	// Each device owns a fixed SlotsPerDevice block.
	return sw.plan.BaseSlot * status.SlotsPerDevice
}
