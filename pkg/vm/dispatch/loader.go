package dispatch

import (
	"fmt"

	"github.com/ipfs/go-cid"
)

// CodeLoader allows you to load an actor's code based on its id.
type CodeLoader struct {
	actors map[cid.Cid]Dispatcher
}

// GetActorImpl returns the dispatcher for the given code, if it is native.
func (cl CodeLoader) GetActorImpl(code cid.Cid) (Dispatcher, bool) {
	d, ok := cl.actors[code]
	return d, ok
}

// Codes lists the native code ids.
func (cl CodeLoader) Codes() []cid.Cid {
	out := make([]cid.Cid, 0, len(cl.actors))
	for code := range cl.actors {
		out = append(out, code)
	}
	return out
}

// CodeLoaderBuilder helps you build a CodeLoader.
type CodeLoaderBuilder struct {
	actors map[cid.Cid]Dispatcher
	err    error
}

// NewBuilder creates a builder to generate a CodeLoader.
func NewBuilder() *CodeLoaderBuilder {
	return &CodeLoaderBuilder{
		actors: map[cid.Cid]Dispatcher{},
	}
}

// Add lets you add an actor dispatch table.
func (b *CodeLoaderBuilder) Add(actor Actor) *CodeLoaderBuilder {
	if b.err != nil {
		return b
	}
	if _, ok := b.actors[actor.Code()]; ok {
		b.err = fmt.Errorf("duplicate native actor %s", actor.Code())
		return b
	}
	d, err := NewDispatcher(actor)
	if err != nil {
		b.err = err
		return b
	}
	b.actors[actor.Code()] = d
	return b
}

// AddMany adds many actors to the builder.
func (b *CodeLoaderBuilder) AddMany(actors ...Actor) *CodeLoaderBuilder {
	for _, actor := range actors {
		b.Add(actor)
	}
	return b
}

// Build builds the code loader.
func (b *CodeLoaderBuilder) Build() (CodeLoader, error) {
	if b.err != nil {
		return CodeLoader{}, b.err
	}
	return CodeLoader{actors: b.actors}, nil
}
