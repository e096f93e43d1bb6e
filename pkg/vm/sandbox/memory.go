package sandbox

import (
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/tetratelabs/wazero/api"

	"github.com/filecoin-project/venus-fvm/pkg/vm/aerrors"
)

func readMemory(m api.Module, offset, length uint32) ([]byte, error) {
	mem := m.Memory()
	if mem == nil {
		return nil, aerrors.New(exitcode.SysErrorIllegalArgument, "actor exports no memory")
	}
	buf, ok := mem.Read(offset, length)
	if !ok {
		return nil, aerrors.Newf(exitcode.SysErrorIllegalArgument, "read of %d bytes at %d out of bounds", length, offset)
	}
	// the view aliases guest memory
	return append([]byte(nil), buf...), nil
}

// memoryView returns the guest range itself; writes to it land in guest memory.
func memoryView(m api.Module, offset, length uint32) ([]byte, error) {
	mem := m.Memory()
	if mem == nil {
		return nil, aerrors.New(exitcode.SysErrorIllegalArgument, "actor exports no memory")
	}
	buf, ok := mem.Read(offset, length)
	if !ok {
		return nil, aerrors.Newf(exitcode.SysErrorIllegalArgument, "buffer of %d bytes at %d out of bounds", length, offset)
	}
	return buf, nil
}

func writeMemory(m api.Module, offset uint32, data []byte) error {
	mem := m.Memory()
	if mem == nil {
		return aerrors.New(exitcode.SysErrorIllegalArgument, "actor exports no memory")
	}
	if !mem.Write(offset, data) {
		return aerrors.Newf(exitcode.SysErrorIllegalArgument, "write of %d bytes at %d out of bounds", len(data), offset)
	}
	return nil
}

func writeUint32(m api.Module, offset uint32, v uint32) error {
	mem := m.Memory()
	if mem == nil {
		return aerrors.New(exitcode.SysErrorIllegalArgument, "actor exports no memory")
	}
	if !mem.WriteUint32Le(offset, v) {
		return aerrors.Newf(exitcode.SysErrorIllegalArgument, "write at %d out of bounds", offset)
	}
	return nil
}

func writeUint64(m api.Module, offset uint32, v uint64) error {
	mem := m.Memory()
	if mem == nil {
		return aerrors.New(exitcode.SysErrorIllegalArgument, "actor exports no memory")
	}
	if !mem.WriteUint64Le(offset, v) {
		return aerrors.Newf(exitcode.SysErrorIllegalArgument, "write at %d out of bounds", offset)
	}
	return nil
}
