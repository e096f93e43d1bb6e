package vmtest

import (
	"github.com/filecoin-project/go-state-types/abi"

	"github.com/filecoin-project/venus-fvm/pkg/vm/gas"
)

// Prices charged by FlatPricelist.
const (
	ChainMessageCost = 5
	InvokeCost       = 10
	CreateActorCost  = 100
	BlockCreateCost  = 1
	BlockOpenCost    = 2
	BlockLinkCost    = 3
	BlockStatCost    = 1
	IpldCost         = 1
)

// FlatPricelist charges small fixed prices so tests can reason about exact
// gas totals.
type FlatPricelist struct{}

var _ gas.Pricelist = FlatPricelist{}

func (FlatPricelist) OnChainMessage(int) gas.GasCharge {
	return gas.NewGasCharge("OnChainMessage", ChainMessageCost, 0)
}

func (FlatPricelist) OnChainReturnValue(dataSize int) gas.GasCharge {
	return gas.NewGasCharge("OnChainReturnValue", 0, int64(dataSize))
}

func (FlatPricelist) OnMethodInvocation(abi.TokenAmount, abi.MethodNum) gas.GasCharge {
	return gas.NewGasCharge("OnMethodInvocation", InvokeCost, 0)
}

func (FlatPricelist) OnIpldGet() gas.GasCharge {
	return gas.NewGasCharge("OnIpldGet", IpldCost, 0)
}

func (FlatPricelist) OnIpldPut(int) gas.GasCharge {
	return gas.NewGasCharge("OnIpldPut", IpldCost, 0)
}

func (FlatPricelist) OnCreateActor() gas.GasCharge {
	return gas.NewGasCharge("OnCreateActor", CreateActorCost, 0)
}

func (FlatPricelist) OnBlockOpen() gas.GasCharge {
	return gas.NewGasCharge("OnBlockOpen", BlockOpenCost, 0)
}

func (FlatPricelist) OnBlockRead(int) gas.GasCharge {
	return gas.NewGasCharge("OnBlockRead", 0, 0)
}

func (FlatPricelist) OnBlockCreate(int) gas.GasCharge {
	return gas.NewGasCharge("OnBlockCreate", BlockCreateCost, 0)
}

func (FlatPricelist) OnBlockLink(int) gas.GasCharge {
	return gas.NewGasCharge("OnBlockLink", BlockLinkCost, 0)
}

func (FlatPricelist) OnBlockStat() gas.GasCharge {
	return gas.NewGasCharge("OnBlockStat", BlockStatCost, 0)
}
