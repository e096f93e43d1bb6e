package gas_test

import (
	"testing"

	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/builtin"
	"github.com/filecoin-project/go-state-types/network"
	"github.com/stretchr/testify/assert"

	tf "github.com/filecoin-project/venus-fvm/pkg/testhelpers/testflags"
	"github.com/filecoin-project/venus-fvm/pkg/vm/gas"
)

func TestMethodInvocationPrices(t *testing.T) {
	tf.UnitTest(t)
	pl := gas.NewPricesSchedule().PricelistByVersion(network.Version0)

	plainSend := pl.OnMethodInvocation(abi.NewTokenAmount(0), builtin.MethodSend)
	assert.Equal(t, int64(29233), plainSend.Total())
	assert.Equal(t, "", plainSend.Extra)

	transfer := pl.OnMethodInvocation(abi.NewTokenAmount(10), builtin.MethodSend)
	assert.Equal(t, int64(29233+27500+159672), transfer.Total())
	assert.Equal(t, "t", transfer.Extra)

	invoke := pl.OnMethodInvocation(abi.NewTokenAmount(0), 2)
	assert.Equal(t, int64(29233-5377), invoke.Total())
	assert.Equal(t, "i", invoke.Extra)

	both := pl.OnMethodInvocation(abi.NewTokenAmount(10), 2)
	assert.Equal(t, int64(29233+27500-5377), both.Total())
	assert.Equal(t, "ti", both.Extra)
}

func TestCreateActorPrice(t *testing.T) {
	tf.UnitTest(t)
	schedule := gas.NewPricesSchedule()

	v0 := schedule.PricelistByVersion(network.Version0).OnCreateActor()
	assert.Equal(t, int64(1108454), v0.ComputeGas)
	assert.Equal(t, int64(76*1000), v0.StorageGas)

	v7 := schedule.PricelistByVersion(network.Version7).OnCreateActor()
	assert.Equal(t, int64(76*1300), v7.StorageGas)
}

func TestScheduleSelectsLatestTable(t *testing.T) {
	tf.UnitTest(t)
	schedule := gas.NewPricesSchedule()

	assert.Equal(t, int64(75242), schedule.PricelistByVersion(network.Version6).OnIpldGet().Total())
	assert.Equal(t, int64(114617), schedule.PricelistByVersion(network.Version7).OnIpldGet().Total())
	assert.Equal(t, int64(114617), schedule.PricelistByVersion(network.Version16).OnIpldGet().Total())
}

func TestScheduleFromExplicitTables(t *testing.T) {
	tf.UnitTest(t)
	base := gas.NewPricesSchedule().PricelistByVersion(network.Version0)
	later := gas.NewPricesSchedule().PricelistByVersion(network.Version7)
	schedule := gas.NewPricesScheduleFrom(map[network.Version]gas.Pricelist{
		network.Version4: base,
		network.Version9: later,
	})

	assert.Equal(t, base, schedule.PricelistByVersion(network.Version0))
	assert.Equal(t, base, schedule.PricelistByVersion(network.Version8))
	assert.Equal(t, later, schedule.PricelistByVersion(network.Version9))
}

func TestBlockPrices(t *testing.T) {
	tf.UnitTest(t)
	pl := gas.NewPricesSchedule().PricelistByVersion(network.Version0)

	assert.Equal(t, int64(84070+10*1000), pl.OnBlockLink(10).Total())
	assert.Equal(t, int64(84070+10*1000), pl.OnIpldPut(10).Total())
	assert.Equal(t, int64(75242), pl.OnBlockOpen().Total())
	assert.Equal(t, int64(0), pl.OnBlockRead(100).Total())
	assert.Equal(t, int64(0), pl.OnBlockCreate(100).Total())
}
