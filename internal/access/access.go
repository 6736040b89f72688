package access

import "errors"

var (
	// ErrUnauthorized occurs when the caller does not hold the owner capability
	// required by the operation.
	ErrUnauthorized = errors.New("caller is not the owner")

	// ErrPaused indicates a gated operation was attempted while the gate is closed.
	ErrPaused = errors.New("paused")

	// ErrAlreadyPaused indicates a pause transition on an already paused gate.
	ErrAlreadyPaused = errors.New("already paused")

	// ErrNotPaused indicates an unpause transition on an active gate.
	ErrNotPaused = errors.New("not paused")

	// ErrReentrantCall indicates a guarded operation re-entered itself before completing.
	ErrReentrantCall = errors.New("reentrant call")
)

// Ownable models the single-holder owner capability shared by the token and
// the factory. The capability is held by exactly one account at a time and is
// transferable by the current holder. Callers are identified by opaque
// address strings so the check stays reusable across components.
type Ownable struct {
	owner string
}

// NewOwnable grants the capability to the provided account.
func NewOwnable(owner string) *Ownable {
	return &Ownable{owner: owner}
}

// Owner returns the current capability holder.
func (o *Ownable) Owner() string {
	return o.owner
}

// Require verifies the caller holds the capability.
func (o *Ownable) Require(caller string) error {
	if caller == "" || caller != o.owner {
		return ErrUnauthorized
	}
	return nil
}

// Transfer hands the capability to a new holder. Only the current holder may
// transfer it, and the new holder must be a real account.
func (o *Ownable) Transfer(caller, newOwner string) error {
	if err := o.Require(caller); err != nil {
		return err
	}
	if newOwner == "" {
		return errors.New("new owner must not be empty")
	}
	o.owner = newOwner
	return nil
}

// Gate is the two-state pause machine used by the factory. It is not
// goroutine-safe on its own; the owning component serializes access.
type Gate struct {
	paused bool
}

// NewGate builds a gate in the requested initial state.
func NewGate(paused bool) *Gate {
	return &Gate{paused: paused}
}

// Paused reports the current state.
func (g *Gate) Paused() bool {
	return g.paused
}

// Require fails when the gate is closed.
func (g *Gate) Require() error {
	if g.paused {
		return ErrPaused
	}
	return nil
}

// Pause closes the gate.
func (g *Gate) Pause() error {
	if g.paused {
		return ErrAlreadyPaused
	}
	g.paused = true
	return nil
}

// Unpause opens the gate.
func (g *Gate) Unpause() error {
	if !g.paused {
		return ErrNotPaused
	}
	g.paused = false
	return nil
}
