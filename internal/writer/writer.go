// internal/writer/writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/harp-replicator/internal/metrics"
	"github.com/tamzrod/harp-replicator/internal/poller"
)

// areaHoldingRegisters is the only memory area mirrored into.
const areaHoldingRegisters byte = 3

// endpointClient is the exact contract the writer uses.
// IMPORTANT: There must be NO other version of this interface anywhere.
type endpointClient interface {
	WriteRegisters(area byte, unitID uint8, addr uint16, regs []uint16) error
}

type writerImpl struct {
	plan    Plan
	clients map[string]endpointClient
}

func New(plan Plan, clients map[string]endpointClient) Writer {
	return &writerImpl{
		plan:    plan,
		clients: clients,
	}
}

// Write mirrors the register image of a successful cycle into every target.
// Failed cycles write nothing; the status block reports them.
func (w *writerImpl) Write(res poller.PollResult) error {
	if res.Err != nil {
		return nil
	}

	regs := res.Words()
	if len(regs) == 0 {
		return nil
	}

	var errs []string
	for _, tgt := range w.plan.Targets {
		cli := w.clients[clientKey(tgt.Protocol, tgt.Endpoint)]
		if cli == nil {
			errs = append(errs, fmt.Sprintf(
				"writer: missing client for endpoint %s",
				tgt.Endpoint,
			))
			continue
		}

		if tgt.TargetID > 255 {
			errs = append(errs, fmt.Sprintf(
				"writer: target unit id %d out of range",
				tgt.TargetID,
			))
			continue
		}
		unitID := uint8(tgt.TargetID)

		err := cli.WriteRegisters(areaHoldingRegisters, unitID, tgt.Offset, regs)
		metrics.RecordTargetWrite(w.plan.UnitID, tgt.Endpoint, err == nil)
		if err != nil {
			errs = append(errs, fmt.Sprintf(
				"writer: ep=%s unit=%d addr=%d qty=%d err=%v",
				tgt.Endpoint, unitID, tgt.Offset, len(regs), err,
			))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, " | "))
	}
	return nil
}

func clientKey(protocol, endpoint string) string {
	return protocol + "://" + endpoint
}
