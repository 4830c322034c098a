// internal/device/group.go
package device

import (
	"context"

	"github.com/tamzrod/harp-replicator/internal/harp"
	"github.com/tamzrod/harp-replicator/internal/register"
)

// Group is the message stream of one register.
type Group struct {
	Register register.Descriptor
	Messages <-chan harp.Message
}

// GroupByRegister splits in into one stream per register, announcing each
// group on the returned channel when its first message arrives. Messages for
// addresses outside the catalog are dropped. All channels close when in
// closes or ctx is done. Consumers must drain every group they receive.
func (d *Device) GroupByRegister(ctx context.Context, in <-chan harp.Message, buffer int) <-chan Group {
	groups := make(chan Group)
	go func() {
		streams := make(map[uint8]chan harp.Message)
		defer func() {
			for _, ch := range streams {
				close(ch)
			}
			close(groups)
		}()

		for {
			var m harp.Message
			var ok bool
			select {
			case <-ctx.Done():
				return
			case m, ok = <-in:
				if !ok {
					return
				}
			}

			ch, exists := streams[m.Address]
			if !exists {
				desc, known := d.catalog.Lookup(m.Address)
				if !known {
					continue
				}
				ch = make(chan harp.Message, buffer)
				streams[m.Address] = ch
				select {
				case groups <- Group{Register: desc, Messages: ch}:
				case <-ctx.Done():
					return
				}
			}

			select {
			case ch <- m:
			case <-ctx.Done():
				return
			}
		}
	}()
	return groups
}
