package executor

import (
	"bytes"
	"testing"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tf "github.com/filecoin-project/venus-fvm/pkg/testhelpers/testflags"
)

func testMessage(t *testing.T) *Message {
	from, err := address.NewIDAddress(100)
	require.NoError(t, err)
	to, err := address.NewIDAddress(101)
	require.NoError(t, err)
	return NewMessage(from, to, 3, abi.NewTokenAmount(9), 2, []byte{0x01, 0x02}, 1000)
}

func TestMessageEncoding(t *testing.T) {
	tf.UnitTest(t)
	msg := testMessage(t)
	msg.GasFeeCap = abi.NewTokenAmount(7)

	buf := new(bytes.Buffer)
	require.NoError(t, msg.MarshalCBOR(buf))
	assert.Equal(t, buf.Len(), msg.ChainLength())

	var out Message
	require.NoError(t, out.UnmarshalCBOR(bytes.NewReader(buf.Bytes())))
	assert.Equal(t, msg.To, out.To)
	assert.Equal(t, msg.From, out.From)
	assert.Equal(t, msg.Nonce, out.Nonce)
	assert.Equal(t, "9", out.Value.String())
	assert.Equal(t, "7", out.GasFeeCap.String())
	assert.Equal(t, msg.GasLimit, out.GasLimit)
	assert.Equal(t, msg.Method, out.Method)
	assert.Equal(t, msg.Params, out.Params)
}

func TestValidForExecution(t *testing.T) {
	tf.UnitTest(t)
	require.NoError(t, testMessage(t).ValidForExecution())

	cases := map[string]func(*Message){
		"version":        func(m *Message) { m.Version = 1 },
		"empty to":       func(m *Message) { m.To = address.Undef },
		"empty from":     func(m *Message) { m.From = address.Undef },
		"nil value":      func(m *Message) { m.Value = big.Int{} },
		"negative value": func(m *Message) { m.Value = abi.NewTokenAmount(-1) },
		"negative gas":   func(m *Message) { m.GasLimit = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			msg := testMessage(t)
			mutate(msg)
			assert.Error(t, msg.ValidForExecution())
		})
	}
}

func TestFailureReceipt(t *testing.T) {
	tf.UnitTest(t)
	r := Failure(16, 42)
	assert.Equal(t, int64(42), r.GasUsed)
	assert.NotNil(t, r.Return)
	assert.Empty(t, r.Return)
}

func TestMessageCid(t *testing.T) {
	tf.UnitTest(t)
	msg := testMessage(t)

	c1, err := msg.Cid()
	require.NoError(t, err)
	c2, err := testMessage(t).Cid()
	require.NoError(t, err)
	assert.Equal(t, c1, c2)

	msg.Nonce++
	c3, err := msg.Cid()
	require.NoError(t, err)
	assert.NotEqual(t, c1, c3)
}
