package chain

import (
	"context"
	"fmt"
	"sync"
)

// Dispatcher executes instructions synchronously against the collaborators.
type Dispatcher struct {
	tokens  TokenLedger
	custody Custody
}

var _ Executor = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher.
func NewDispatcher(tokens TokenLedger, custody Custody) *Dispatcher {
	return &Dispatcher{tokens: tokens, custody: custody}
}

// Execute implements Executor.
func (d *Dispatcher) Execute(ctx context.Context, ins Instruction) error {
	switch v := ins.(type) {
	case *TokenTransfer:
		if err := d.tokens.TransferFrom(ctx, v.Token, v.Owner, v.Recipient, v.Amount); err != nil {
			return fmt.Errorf("chain: token transfer %s: %w", v.ID, err)
		}
	case *CoinSend:
		if err := d.custody.Send(ctx, v.From, v.To, v.Coins); err != nil {
			return fmt.Errorf("chain: coin send %s: %w", v.ID, err)
		}
	default:
		return fmt.Errorf("chain: unsupported instruction %T", ins)
	}
	return nil
}

// Outbox queues instructions for a host that submits them itself, such as a
// chain runtime that applies the messages returned by a contract.
type Outbox struct {
	mu      sync.Mutex
	pending []Instruction
}

var _ Executor = (*Outbox)(nil)

// NewOutbox creates an empty Outbox.
func NewOutbox() *Outbox {
	return &Outbox{}
}

// Execute implements Executor by queueing ins.
func (o *Outbox) Execute(_ context.Context, ins Instruction) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = append(o.pending, ins)
	return nil
}

// Drain returns and clears the queued instructions.
func (o *Outbox) Drain() []Instruction {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.pending
	o.pending = nil
	return out
}
