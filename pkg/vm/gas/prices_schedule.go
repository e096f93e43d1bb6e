package gas

import (
	"sort"

	"github.com/filecoin-project/go-state-types/network"
)

// genesisPricelist is the price table in force from network version 0.
var genesisPricelist = &pricelistV0{
	computeGasMulti: 1,
	storageGasMulti: 1000,

	onChainMessageComputeBase:    38863,
	onChainMessageStorageBase:    36,
	onChainMessageStoragePerByte: 1,

	onChainReturnValuePerByte: 1,

	sendBase:                29233,
	sendTransferFunds:       27500,
	sendTransferOnlyPremium: 159672,
	sendInvokeMethod:        -5377,

	ipldGetBase:    75242,
	ipldPutBase:    84070,
	ipldPutPerByte: 1,

	createActorCompute: 1108454,
	createActorStorage: 36 + 40,

	blockOpenBase:   75242,
	blockCreateBase: 0,
	blockStatBase:   0,
}

// calicoPricelist is the price table in force from network version 7.
var calicoPricelist = &pricelistV0{
	computeGasMulti: 1,
	storageGasMulti: 1300,

	onChainMessageComputeBase:    38863,
	onChainMessageStorageBase:    36,
	onChainMessageStoragePerByte: 1,

	onChainReturnValuePerByte: 1,

	sendBase:                29233,
	sendTransferFunds:       27500,
	sendTransferOnlyPremium: 159672,
	sendInvokeMethod:        -5377,

	ipldGetBase:    114617,
	ipldPutBase:    353640,
	ipldPutPerByte: 1,

	createActorCompute: 1108454,
	createActorStorage: 36 + 40,

	blockOpenBase:   114617,
	blockCreateBase: 0,
	blockStatBase:   0,
}

// PricesSchedule selects the price table for a network version.
type PricesSchedule struct {
	versions []network.Version
	prices   map[network.Version]Pricelist
}

// NewPricesSchedule returns the default schedule.
func NewPricesSchedule() *PricesSchedule {
	return NewPricesScheduleFrom(map[network.Version]Pricelist{
		network.Version0: genesisPricelist,
		network.Version7: calicoPricelist,
	})
}

// NewPricesScheduleFrom builds a schedule from explicit tables. The table for
// the lowest version also serves every version below it.
func NewPricesScheduleFrom(prices map[network.Version]Pricelist) *PricesSchedule {
	versions := make([]network.Version, 0, len(prices))
	for nv := range prices {
		versions = append(versions, nv)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return &PricesSchedule{versions: versions, prices: prices}
}

// PricelistByVersion finds the latest prices for the given network version.
func (schedule *PricesSchedule) PricelistByVersion(nv network.Version) Pricelist {
	if len(schedule.versions) == 0 {
		panic("empty prices schedule")
	}
	for i := len(schedule.versions) - 1; i >= 0; i-- {
		if schedule.versions[i] <= nv {
			return schedule.prices[schedule.versions[i]]
		}
	}
	return schedule.prices[schedule.versions[0]]
}
