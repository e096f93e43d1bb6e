// Package dispatch routes method numbers to the exported methods of native
// actors.
package dispatch

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/cbor"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/ipfs/go-cid"

	"github.com/filecoin-project/venus-fvm/pkg/vm/aerrors"
)

// Actor is the interface all native actors have to implement.
type Actor interface {
	// Exports has a list of method available on the actor, indexed by method
	// number. Each entry is either nil or a function
	//
	//	func(rt R, params *P) (Ret, error)
	//
	// where P implements cbor.Unmarshaler and Ret implements cbor.Marshaler.
	Exports() []interface{}
	// Code returns the code ID for this actor.
	Code() cid.Cid
}

// Dispatcher allows for dynamic method dispatching on an actor.
type Dispatcher interface {
	// Dispatch will call the given method on the actor and pass the arguments.
	//
	// - The `rt` argument will be coerced to the type the method expects in its first argument.
	// - `params` is decoded into the type of the second argument.
	Dispatch(method abi.MethodNum, rt interface{}, params []byte) ([]byte, error)
	// Signature is a helper function that returns the signature for a given method.
	Signature(method abi.MethodNum) (MethodSignature, error)
}

// MethodSignature wraps a specific method and allows you to encode/decodes input/output bytes into concrete types.
type MethodSignature interface {
	ArgNil() reflect.Value
	ArgInterface(argBytes []byte) (interface{}, error)
}

type actorDispatcher struct {
	code  cid.Cid
	actor Actor
}

type methodSignature struct {
	method reflect.Value
}

var _ Dispatcher = (*actorDispatcher)(nil)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// NewDispatcher builds a dispatcher over the exports of actor.
func NewDispatcher(actor Actor) (Dispatcher, error) {
	for i, entry := range actor.Exports() {
		if entry == nil {
			continue
		}
		if err := checkMethod(reflect.TypeOf(entry)); err != nil {
			return nil, fmt.Errorf("actor %s method %d: %w", actor.Code(), i, err)
		}
	}
	return &actorDispatcher{code: actor.Code(), actor: actor}, nil
}

func checkMethod(t reflect.Type) error {
	if t.Kind() != reflect.Func {
		return fmt.Errorf("export is not a function")
	}
	if t.NumIn() != 2 {
		return fmt.Errorf("wrong number of inputs should be: (rt, params)")
	}
	if t.In(1).Kind() != reflect.Ptr || !t.In(1).Implements(reflect.TypeOf((*cbor.Unmarshaler)(nil)).Elem()) {
		return fmt.Errorf("params must be a pointer to a cbor.Unmarshaler")
	}
	if t.NumOut() != 2 {
		return fmt.Errorf("wrong number of outputs should be: (ret, error)")
	}
	if !t.Out(0).Implements(reflect.TypeOf((*cbor.Marshaler)(nil)).Elem()) {
		return fmt.Errorf("return value must implement cbor.Marshaler")
	}
	if !t.Out(1).Implements(errorType) {
		return fmt.Errorf("second return value must be an error")
	}
	return nil
}

// Dispatch implements `Dispatcher`.
func (d *actorDispatcher) Dispatch(methodNum abi.MethodNum, rt interface{}, params []byte) ([]byte, error) {
	// get method signature
	m, err := d.signature(methodNum)
	if err != nil {
		return nil, err
	}

	// build args to pass to the method
	args := []reflect.Value{
		// the rt will be automatically coerced
		reflect.ValueOf(rt),
	}

	if len(params) == 0 {
		args = append(args, m.ArgNil())
	} else {
		obj, err := m.ArgInterface(params)
		if err != nil {
			return nil, aerrors.Absorb(err, exitcode.ErrSerialization, "failed to decode params")
		}
		args = append(args, reflect.ValueOf(obj))
	}

	// invoke the method
	out := m.method.Call(args)

	if errOut := out[1].Interface(); errOut != nil {
		return nil, errOut.(error)
	}

	// Note: we need to check for `IsNil()` here because Go doesnt work if you do `== nil` on the interface
	if out[0].Kind() == reflect.Ptr && out[0].IsNil() {
		return nil, nil
	}

	switch ret := out[0].Interface().(type) {
	case *abi.EmptyValue:
		return nil, nil
	case cbor.Marshaler:
		buf := new(bytes.Buffer)
		if err := ret.MarshalCBOR(buf); err != nil {
			return nil, aerrors.Absorb(err, exitcode.ErrSerialization, "failed to marshal return value")
		}
		return buf.Bytes(), nil
	default:
		return nil, aerrors.New(exitcode.SysErrInvalidMethod, "could not determine type for response from call")
	}
}

func (d *actorDispatcher) signature(methodID abi.MethodNum) (*methodSignature, error) {
	exports := d.actor.Exports()

	// get method entry
	methodIdx := (uint64)(methodID)
	if uint64(len(exports)) <= methodIdx {
		return nil, aerrors.Newf(exitcode.SysErrInvalidMethod, "Method undefined. method: %d, code: %s", methodID, d.code)
	}
	entry := exports[methodIdx]
	if entry == nil {
		return nil, aerrors.Newf(exitcode.SysErrInvalidMethod, "Method undefined. method: %d, code: %s", methodID, d.code)
	}

	return &methodSignature{method: reflect.ValueOf(entry)}, nil
}

// Signature implements `Dispatcher`.
func (d *actorDispatcher) Signature(methodNum abi.MethodNum) (MethodSignature, error) {
	return d.signature(methodNum)
}

// ArgNil returns a nil value of the params type.
func (ms *methodSignature) ArgNil() reflect.Value {
	t := ms.method.Type().In(1)
	return reflect.New(t.Elem())
}

// ArgInterface decodes argBytes into a fresh value of the params type.
func (ms *methodSignature) ArgInterface(argBytes []byte) (interface{}, error) {
	t := ms.method.Type().In(1)
	v := reflect.New(t.Elem())
	obj := v.Interface()

	if err := obj.(cbor.Unmarshaler).UnmarshalCBOR(bytes.NewReader(argBytes)); err != nil {
		return nil, err
	}
	return obj, nil
}
