package tree

import (
	"errors"

	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/ipfs/go-cid"
)

// ErrActorNotFound is returned when an actor is missing from the tree.
var ErrActorNotFound = errors.New("actor not found")

// Actor is the on-chain record of one actor, keyed by its ID in the tree.
type Actor struct {
	// Code is the id of the code the actor runs.
	Code cid.Cid
	// Head is the root of the actor's own state.
	Head cid.Cid
	// Nonce counts the messages sent by the actor.
	Nonce uint64
	// Balance is the amount of tokens held by the actor.
	Balance abi.TokenAmount
}

// NewActor creates an actor with an empty balance.
func NewActor(code cid.Cid, head cid.Cid) *Actor {
	return &Actor{
		Code:    code,
		Head:    head,
		Nonce:   0,
		Balance: big.Zero(),
	}
}

// IncrementSeqNum increments the nonce.
func (a *Actor) IncrementSeqNum() {
	a.Nonce++
}

// Copy returns a copy of the actor record. Token amounts are never mutated in
// place so the balance can be shared.
func (a *Actor) Copy() *Actor {
	out := *a
	return &out
}
