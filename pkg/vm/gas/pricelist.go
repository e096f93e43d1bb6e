package gas

import (
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/filecoin-project/go-state-types/builtin"
)

//go:generate mockgen -source pricelist.go -destination pricelist_mock.go -package gas

// Pricelist provides prices for the operations the execution core meters.
type Pricelist interface {
	// OnChainMessage returns the gas used for storing a message of a given size in the chain.
	OnChainMessage(msgSize int) GasCharge
	// OnChainReturnValue returns the gas used for storing the response of a message in the chain.
	OnChainReturnValue(dataSize int) GasCharge

	// OnMethodInvocation returns the gas used when invoking a method.
	OnMethodInvocation(value abi.TokenAmount, methodNum abi.MethodNum) GasCharge

	// OnIpldGet returns the gas used for loading an object from the store.
	OnIpldGet() GasCharge
	// OnIpldPut returns the gas used for storing an object.
	OnIpldPut(dataSize int) GasCharge

	// OnCreateActor returns the gas used for creating an actor.
	OnCreateActor() GasCharge

	OnBlockOpen() GasCharge
	OnBlockRead(dataSize int) GasCharge
	OnBlockCreate(dataSize int) GasCharge
	OnBlockLink(dataSize int) GasCharge
	OnBlockStat() GasCharge
}

type pricelistV0 struct {
	computeGasMulti int64
	storageGasMulti int64

	onChainMessageComputeBase    int64
	onChainMessageStorageBase    int64
	onChainMessageStoragePerByte int64

	onChainReturnValuePerByte int64

	sendBase                int64
	sendTransferFunds       int64
	sendTransferOnlyPremium int64
	sendInvokeMethod        int64

	ipldGetBase    int64
	ipldPutBase    int64
	ipldPutPerByte int64

	createActorCompute int64
	createActorStorage int64

	blockOpenBase   int64
	blockCreateBase int64
	blockStatBase   int64
}

var _ Pricelist = (*pricelistV0)(nil)

func (pl *pricelistV0) OnChainMessage(msgSize int) GasCharge {
	return NewGasCharge("OnChainMessage", pl.onChainMessageComputeBase,
		(pl.onChainMessageStorageBase+pl.onChainMessageStoragePerByte*int64(msgSize))*pl.storageGasMulti)
}

func (pl *pricelistV0) OnChainReturnValue(dataSize int) GasCharge {
	return NewGasCharge("OnChainReturnValue", 0, int64(dataSize)*pl.onChainReturnValuePerByte*pl.storageGasMulti)
}

func (pl *pricelistV0) OnMethodInvocation(value abi.TokenAmount, methodNum abi.MethodNum) GasCharge {
	ret := pl.sendBase
	extra := ""

	if big.Cmp(value, abi.NewTokenAmount(0)) != 0 {
		ret += pl.sendTransferFunds
		if methodNum == builtin.MethodSend {
			// transfer only
			ret += pl.sendTransferOnlyPremium
		}
		extra += "t"
	}

	if methodNum != builtin.MethodSend {
		extra += "i"
		// running actors is cheaper because we hand over to actors
		ret += pl.sendInvokeMethod
	}
	return NewGasCharge("OnMethodInvocation", ret, 0).WithExtra(extra)
}

func (pl *pricelistV0) OnIpldGet() GasCharge {
	return NewGasCharge("OnIpldGet", pl.ipldGetBase, 0)
}

func (pl *pricelistV0) OnIpldPut(dataSize int) GasCharge {
	return NewGasCharge("OnIpldPut", pl.ipldPutBase, int64(dataSize)*pl.ipldPutPerByte*pl.storageGasMulti).
		WithExtra(dataSize)
}

func (pl *pricelistV0) OnCreateActor() GasCharge {
	return NewGasCharge("OnCreateActor", pl.createActorCompute, pl.createActorStorage*pl.storageGasMulti)
}

func (pl *pricelistV0) OnBlockOpen() GasCharge {
	return NewGasCharge("OnBlockOpen", pl.blockOpenBase, 0)
}

func (pl *pricelistV0) OnBlockRead(dataSize int) GasCharge {
	return NewGasCharge("OnBlockRead", 0, 0).WithExtra(dataSize)
}

func (pl *pricelistV0) OnBlockCreate(dataSize int) GasCharge {
	return NewGasCharge("OnBlockCreate", pl.blockCreateBase, 0).WithExtra(dataSize)
}

func (pl *pricelistV0) OnBlockLink(dataSize int) GasCharge {
	return NewGasCharge("OnBlockLink", pl.ipldPutBase, int64(dataSize)*pl.ipldPutPerByte*pl.storageGasMulti).
		WithExtra(dataSize)
}

func (pl *pricelistV0) OnBlockStat() GasCharge {
	return NewGasCharge("OnBlockStat", pl.blockStatBase, 0)
}
