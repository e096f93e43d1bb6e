package sandbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/crypto"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/ipfs/go-cid"
	"github.com/tetratelabs/wazero/api"

	"github.com/filecoin-project/venus-fvm/pkg/vm/aerrors"
	"github.com/filecoin-project/venus-fvm/pkg/vm/syscalls"
)

// Host functions return 0 on success and an exit code otherwise. Running out
// of gas and fatal errors trap the instance instead: they panic and wazero
// turns the panic into the error returned from the guest call. Any other panic
// is carried out as a hostPanic and raised again once the guest call returns.

// hostPanic wraps a panic value that is not an actor error so that it
// survives wazero's recovery of host function panics.
type hostPanic struct {
	value interface{}
}

func (p hostPanic) Error() string {
	return fmt.Sprintf("host function panicked: %v", p.value)
}

// escalatePanics must be deferred by every host function.
func escalatePanics() {
	if r := recover(); r != nil {
		if _, ok := r.(aerrors.ActorError); ok {
			panic(r)
		}
		panic(hostPanic{value: r})
	}
}

func currentSyscalls(ctx context.Context) *syscalls.Syscalls {
	sc, ok := syscalls.FromContext(ctx)
	if !ok {
		panic(aerrors.Fatal("host function called outside of an invocation"))
	}
	return sc
}

func status(err error) uint32 {
	if err == nil {
		return 0
	}
	if aerrors.IsFatal(err) || aerrors.Is(err, exitcode.SysErrOutOfGas) {
		trap(err)
	}
	return uint32(aerrors.RetCode(err))
}

func trap(err error) {
	if err == nil {
		return
	}
	var ae aerrors.ActorError
	if !errors.As(err, &ae) {
		ae = aerrors.Escalate(err, "host call failed")
	}
	panic(ae)
}

func hostModules() map[string]map[string]interface{} {
	return map[string]map[string]interface{}{
		"gas": {
			"charge":    gasCharge,
			"available": gasAvailable,
		},
		"ipld": {
			"block_create": ipldBlockCreate,
			"block_open":   ipldBlockOpen,
			"block_stat":   ipldBlockStat,
			"block_read":   ipldBlockRead,
			"block_link":   ipldBlockLink,
		},
		"self": {
			"root":     selfRoot,
			"set_root": selfSetRoot,
		},
		"message": {
			"caller":         messageCaller,
			"receiver":       messageReceiver,
			"method_number":  messageMethodNumber,
			"value_received": messageValueReceived,
		},
		"send": {
			"send": sendSend,
		},
		"rand": {
			"get_chain_randomness": randGetChainRandomness,
		},
		"vm": {
			"abort": vmAbort,
		},
	}
}

// gas.charge(name_off, name_len, compute)
func gasCharge(ctx context.Context, m api.Module, nameOff, nameLen uint32, compute int64) {
	defer escalatePanics()
	sc := currentSyscalls(ctx)
	name, err := readMemory(m, nameOff, nameLen)
	trap(err)
	trap(sc.ChargeGas(string(name), compute))
}

// gas.available() -> gas
func gasAvailable(ctx context.Context, m api.Module) int64 {
	defer escalatePanics()
	return currentSyscalls(ctx).GasAvailable()
}

// ipld.block_create(codec, data_off, data_len, ret_off) -> status; ret: u32 id
func ipldBlockCreate(ctx context.Context, m api.Module, codec uint64, dataOff, dataLen, retOff uint32) uint32 {
	defer escalatePanics()
	sc := currentSyscalls(ctx)
	data, err := readMemory(m, dataOff, dataLen)
	if err != nil {
		return status(err)
	}
	id, err := sc.BlockCreate(codec, data)
	if err != nil {
		return status(err)
	}
	return status(writeUint32(m, retOff, id))
}

// ipld.block_open(cid_off, cid_len, ret_off) -> status; ret: u32 id
func ipldBlockOpen(ctx context.Context, m api.Module, cidOff, cidLen, retOff uint32) uint32 {
	defer escalatePanics()
	sc := currentSyscalls(ctx)
	c, err := readCid(m, cidOff, cidLen)
	if err != nil {
		return status(err)
	}
	id, err := sc.BlockOpen(ctx, c)
	if err != nil {
		return status(err)
	}
	return status(writeUint32(m, retOff, id))
}

// ipld.block_stat(id, ret_off) -> status; ret: u64 codec, u32 size
func ipldBlockStat(ctx context.Context, m api.Module, id, retOff uint32) uint32 {
	defer escalatePanics()
	sc := currentSyscalls(ctx)
	stat, err := sc.BlockStat(id)
	if err != nil {
		return status(err)
	}
	if err := writeUint64(m, retOff, stat.Codec); err != nil {
		return status(err)
	}
	return status(writeUint32(m, retOff+8, stat.Size))
}

// ipld.block_read(id, offset, buf_off, buf_len, ret_off) -> status; ret: u32 bytes read
func ipldBlockRead(ctx context.Context, m api.Module, id, offset, bufOff, bufLen, retOff uint32) uint32 {
	defer escalatePanics()
	sc := currentSyscalls(ctx)
	buf, err := memoryView(m, bufOff, bufLen)
	if err != nil {
		return status(err)
	}
	n, err := sc.BlockRead(id, offset, buf)
	if err != nil {
		return status(err)
	}
	return status(writeUint32(m, retOff, uint32(n)))
}

// ipld.block_link(id, cid_off, cid_max_len, ret_off) -> status; ret: u32 cid length
func ipldBlockLink(ctx context.Context, m api.Module, id, cidOff, cidMaxLen, retOff uint32) uint32 {
	defer escalatePanics()
	sc := currentSyscalls(ctx)
	c, err := sc.BlockLink(ctx, id)
	if err != nil {
		return status(err)
	}
	return status(writeCid(m, c, cidOff, cidMaxLen, retOff))
}

// self.root(cid_off, cid_max_len, ret_off) -> status; ret: u32 cid length
func selfRoot(ctx context.Context, m api.Module, cidOff, cidMaxLen, retOff uint32) uint32 {
	defer escalatePanics()
	sc := currentSyscalls(ctx)
	c, err := sc.Root(ctx)
	if err != nil {
		return status(err)
	}
	return status(writeCid(m, c, cidOff, cidMaxLen, retOff))
}

// self.set_root(cid_off, cid_len) -> status
func selfSetRoot(ctx context.Context, m api.Module, cidOff, cidLen uint32) uint32 {
	defer escalatePanics()
	sc := currentSyscalls(ctx)
	c, err := readCid(m, cidOff, cidLen)
	if err != nil {
		return status(err)
	}
	return status(sc.SetRoot(ctx, c))
}

// message.caller() -> actor id
func messageCaller(ctx context.Context, m api.Module) uint64 {
	defer escalatePanics()
	return uint64(currentSyscalls(ctx).Caller())
}

// message.receiver() -> actor id
func messageReceiver(ctx context.Context, m api.Module) uint64 {
	defer escalatePanics()
	return uint64(currentSyscalls(ctx).Receiver())
}

// message.method_number() -> method
func messageMethodNumber(ctx context.Context, m api.Module) uint64 {
	defer escalatePanics()
	return uint64(currentSyscalls(ctx).MethodNumber())
}

// message.value_received(ret_off) -> status; ret: u64 hi, u64 lo
func messageValueReceived(ctx context.Context, m api.Module, retOff uint32) uint32 {
	defer escalatePanics()
	hi, lo, err := syscalls.SplitTokenAmount(currentSyscalls(ctx).ValueReceived())
	if err != nil {
		return status(err)
	}
	if err := writeUint64(m, retOff, hi); err != nil {
		return status(err)
	}
	return status(writeUint64(m, retOff+8, lo))
}

// send.send(to_off, to_len, method, params_id, value_hi, value_lo, ret_off) -> status; ret: u32 exit code, u32 return id
func sendSend(ctx context.Context, m api.Module, toOff, toLen uint32, method uint64, paramsID uint32, valueHi, valueLo uint64, retOff uint32) uint32 {
	defer escalatePanics()
	sc := currentSyscalls(ctx)
	raw, err := readMemory(m, toOff, toLen)
	if err != nil {
		return status(err)
	}
	to, err := address.NewFromBytes(raw)
	if err != nil {
		return status(aerrors.Absorb(err, exitcode.SysErrorIllegalArgument, "invalid send target"))
	}
	// the receipt must be writable before the send commits
	if _, err := memoryView(m, retOff, 8); err != nil {
		return status(err)
	}
	receipt, err := sc.Send(ctx, to, abi.MethodNum(method), paramsID, syscalls.JoinTokenAmount(valueHi, valueLo))
	if err != nil {
		return status(err)
	}
	if err := writeUint32(m, retOff, uint32(receipt.ExitCode)); err != nil {
		return status(err)
	}
	return status(writeUint32(m, retOff+4, receipt.ReturnID))
}

// rand.get_chain_randomness(tag, epoch, entropy_off, entropy_len, ret_off) -> status; ret: 32 bytes
func randGetChainRandomness(ctx context.Context, m api.Module, tag, epoch uint64, entropyOff, entropyLen, retOff uint32) uint32 {
	defer escalatePanics()
	sc := currentSyscalls(ctx)
	entropy, err := readMemory(m, entropyOff, entropyLen)
	if err != nil {
		return status(err)
	}
	rand, err := sc.GetChainRandomness(ctx, crypto.DomainSeparationTag(tag), abi.ChainEpoch(int64(epoch)), entropy)
	if err != nil {
		return status(err)
	}
	return status(writeMemory(m, retOff, rand))
}

// vm.abort(code, msg_off, msg_len) never returns.
func vmAbort(ctx context.Context, m api.Module, code, msgOff, msgLen uint32) {
	defer escalatePanics()
	msg, err := readMemory(m, msgOff, msgLen)
	if err != nil {
		msg = []byte("abort message unreadable")
	}
	if code == 0 {
		panic(aerrors.Newf(exitcode.SysErrorIllegalActor, "actor aborted with exit code 0: %s", msg))
	}
	panic(aerrors.New(exitcode.ExitCode(code), string(msg)))
}

func readCid(m api.Module, off, length uint32) (cid.Cid, error) {
	raw, err := readMemory(m, off, length)
	if err != nil {
		return cid.Undef, err
	}
	c, err := cid.Cast(raw)
	if err != nil {
		return cid.Undef, aerrors.Absorb(err, exitcode.SysErrorIllegalArgument, "invalid cid")
	}
	return c, nil
}

func writeCid(m api.Module, c cid.Cid, off, maxLen, retOff uint32) error {
	raw := c.Bytes()
	if uint32(len(raw)) > maxLen {
		return aerrors.Newf(exitcode.SysErrorIllegalArgument, "cid of %d bytes does not fit in %d", len(raw), maxLen)
	}
	if err := writeMemory(m, off, raw); err != nil {
		return err
	}
	return writeUint32(m, retOff, uint32(len(raw)))
}
