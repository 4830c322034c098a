// internal/writer/device_status_writer_test.go
package writer

import (
	"errors"
	"testing"

	cfg "github.com/tamzrod/harp-replicator/internal/config"
	"github.com/tamzrod/harp-replicator/internal/status"
	"github.com/tamzrod/harp-replicator/internal/tsgen3"
)

func newStatusWriter(t *testing.T, cli *fakeEndpointClient, baseSlot uint16) *deviceStatusWriter {
	t.Helper()
	sp := StatusPlan{
		Endpoint:   "status-endpoint",
		UnitID:     1,
		BaseSlot:   baseSlot,
		DeviceName: "DEV-01",
	}
	return NewDeviceStatusWriter(sp, map[string]endpointClient{
		clientKey(cfg.ProtocolModbus, "status-endpoint"): cli,
	})
}

func TestDeviceNameWrittenOnFullAssertOnly(t *testing.T) {
	cli := &fakeEndpointClient{}
	sw := newStatusWriter(t, cli, 0)

	// ---- first write: FULL ASSERT ----
	first := status.Snapshot{Health: status.HealthOK, WhoAmI: tsgen3.WhoAmI}
	if err := sw.WriteStatus(first); err != nil {
		t.Fatalf("initial full assert failed: %v", err)
	}

	if len(cli.lastRegs) != status.SlotsPerDevice {
		t.Fatalf("expected full block write (%d regs), got %d", status.SlotsPerDevice, len(cli.lastRegs))
	}
	if cli.lastRegs[status.SlotWhoAmI] != tsgen3.WhoAmI {
		t.Fatalf("who_am_i slot: got=%d want=%d", cli.lastRegs[status.SlotWhoAmI], tsgen3.WhoAmI)
	}

	expectedNameRegs := status.EncodeDeviceName("DEV-01")
	for i := 0; i < status.SlotDeviceNameSlots; i++ {
		slot := status.SlotDeviceNameStart + i
		if cli.lastRegs[slot] != expectedNameRegs[i] {
			t.Fatalf("device name slot %d mismatch: got=%d want=%d", slot, cli.lastRegs[slot], expectedNameRegs[i])
		}
	}

	// ---- second write: INCREMENTAL ONLY ----
	second := status.Snapshot{
		Health:         status.HealthError,
		LastErrorCode:  status.CodeTimeout,
		SecondsInError: 1,
		WhoAmI:         tsgen3.WhoAmI,
	}
	before := len(cli.writes)
	if err := sw.WriteStatus(second); err != nil {
		t.Fatalf("incremental write failed: %v", err)
	}

	for _, wc := range cli.writes[before:] {
		if len(wc.regs) != 1 {
			t.Fatalf("incremental update must write single slots, got %d regs", len(wc.regs))
		}
	}
	if n := len(cli.writes) - before; n != 3 {
		t.Fatalf("expected 3 slot writes, got %d", n)
	}
}

func TestSecondsInErrorResetOnRecovery(t *testing.T) {
	cli := &fakeEndpointClient{}
	sw := newStatusWriter(t, cli, 1)

	errSnap := status.Snapshot{Health: status.HealthError, LastErrorCode: 42, SecondsInError: 3}
	if err := sw.WriteStatus(errSnap); err != nil {
		t.Fatalf("error snapshot write failed: %v", err)
	}

	// recovery keeps the last error code, only health and seconds move
	okSnap := status.Snapshot{Health: status.HealthOK, LastErrorCode: 42, SecondsInError: 0}
	if err := sw.WriteStatus(okSnap); err != nil {
		t.Fatalf("recovery snapshot write failed: %v", err)
	}

	expectedAddr := uint16(1*status.SlotsPerDevice + status.SlotSecondsInError)
	if cli.lastRegsAddr != expectedAddr {
		t.Fatalf("unexpected write addr: got=%d want=%d", cli.lastRegsAddr, expectedAddr)
	}
	if len(cli.lastRegs) != 1 || cli.lastRegs[0] != 0 {
		t.Fatalf("seconds_in_error not reset: got=%v", cli.lastRegs)
	}
}

func TestFailedWriteForcesFullAssert(t *testing.T) {
	cli := &fakeEndpointClient{}
	sw := newStatusWriter(t, cli, 0)

	if err := sw.WriteStatus(status.Snapshot{Health: status.HealthOK}); err != nil {
		t.Fatalf("full assert failed: %v", err)
	}

	cli.err = errors.New("broken pipe")
	if err := sw.WriteStatus(status.Snapshot{Health: status.HealthError}); err == nil {
		t.Fatalf("expected write error")
	}

	cli.err = nil
	if err := sw.WriteStatus(status.Snapshot{Health: status.HealthError}); err != nil {
		t.Fatalf("write after recovery failed: %v", err)
	}
	if len(cli.lastRegs) != status.SlotsPerDevice {
		t.Fatalf("expected full re-assert, got %d regs", len(cli.lastRegs))
	}
}

func TestMissingStatusClient(t *testing.T) {
	sw := NewDeviceStatusWriter(StatusPlan{Endpoint: "nowhere"}, map[string]endpointClient{})
	if err := sw.WriteStatus(status.Snapshot{}); err == nil {
		t.Fatalf("expected missing client error")
	}
}
