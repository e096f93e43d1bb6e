package executor

import (
	"bytes"
	"fmt"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/ipfs/go-cid"

	"github.com/filecoin-project/venus-fvm/pkg/util"
)

// MessageVersion is the only message version accepted.
const MessageVersion = 0

// Message is a top-level message from an account to an actor.
type Message struct {
	Version uint64

	To   address.Address
	From address.Address
	// When receiving a message from a user account the nonce in
	// the message must match the expected nonce in the from actor.
	Nonce uint64

	Value abi.TokenAmount

	GasLimit   int64
	GasFeeCap  abi.TokenAmount
	GasPremium abi.TokenAmount

	Method abi.MethodNum
	Params []byte
}

// NewMessage creates a message with zero fee fields.
func NewMessage(from, to address.Address, nonce uint64, value abi.TokenAmount, method abi.MethodNum, params []byte, gasLimit int64) *Message {
	return &Message{
		Version:    MessageVersion,
		To:         to,
		From:       from,
		Nonce:      nonce,
		Value:      value,
		GasLimit:   gasLimit,
		GasFeeCap:  big.Zero(),
		GasPremium: big.Zero(),
		Method:     method,
		Params:     params,
	}
}

// ChainLength is the size of the serialized message.
func (m *Message) ChainLength() int {
	buf := new(bytes.Buffer)
	if err := m.MarshalCBOR(buf); err != nil {
		panic(err)
	}
	return buf.Len()
}

// Cid returns the content id of the serialized message.
func (m *Message) Cid() (cid.Cid, error) {
	return util.MakeCid(m)
}

// Receipt is the outcome of a top-level message.
type Receipt struct {
	ExitCode exitcode.ExitCode
	Return   []byte
	GasUsed  int64
}

// Failure returns a receipt with a non-zero exit code.
func Failure(exitCode exitcode.ExitCode, gasAmount int64) Receipt {
	return Receipt{
		ExitCode: exitCode,
		Return:   []byte{},
		GasUsed:  gasAmount,
	}
}

func (m *Message) String() string {
	return fmt.Sprintf("%s -> %s (nonce %d, method %d, value %s)", m.From, m.To, m.Nonce, m.Method, m.Value)
}

// ValidForExecution rejects messages that cannot be applied at all.
func (m *Message) ValidForExecution() error {
	if m.Version != MessageVersion {
		return fmt.Errorf("'Version' unsupported")
	}
	if m.To == address.Undef {
		return fmt.Errorf("'To' address cannot be empty")
	}
	if m.From == address.Undef {
		return fmt.Errorf("'From' address cannot be empty")
	}
	if m.Value.Int == nil {
		return fmt.Errorf("'Value' cannot be nil")
	}
	if m.Value.LessThan(big.Zero()) {
		return fmt.Errorf("'Value' field cannot be negative")
	}
	if m.GasLimit < 0 {
		return fmt.Errorf("'GasLimit' field cannot be negative")
	}
	return nil
}
