// internal/command/pending.go
package command

import (
	"fmt"

	"github.com/tamzrod/harp-replicator/internal/harp"
)

// pending is one in-flight command. It is resolved exactly once, by whoever
// removes it from the table.
type pending struct {
	address uint8
	kind    harp.MessageType
	result  chan result
}

type result struct {
	msg harp.Message
	err error
}

func (p *pending) resolve(m harp.Message, err error) {
	p.result <- result{msg: m, err: err}
}

func (e *Engine) register(address uint8, kind harp.MessageType) (*pending, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, fmt.Errorf("%w: %v", ErrClosed, e.closeErr)
	}
	p := &pending{
		address: address,
		kind:    kind,
		result:  make(chan result, 1),
	}
	e.pending[address] = append(e.pending[address], p)
	return p, nil
}

// take removes and returns the oldest command on address waiting for kind.
func (e *Engine) take(address uint8, kind harp.MessageType) *pending {
	e.mu.Lock()
	defer e.mu.Unlock()
	q := e.pending[address]
	for i, p := range q {
		if p.kind == kind {
			e.pending[address] = append(q[:i:i], q[i+1:]...)
			if len(e.pending[address]) == 0 {
				delete(e.pending, address)
			}
			return p
		}
	}
	return nil
}

// remove drops p from the table. It reports false if p was already taken,
// in which case its result is (or will be) on p.result.
func (e *Engine) remove(p *pending) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	q := e.pending[p.address]
	for i, cur := range q {
		if cur == p {
			e.pending[p.address] = append(q[:i:i], q[i+1:]...)
			if len(e.pending[p.address]) == 0 {
				delete(e.pending, p.address)
			}
			return true
		}
	}
	return false
}
