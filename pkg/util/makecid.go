// Package util holds small helpers shared by the state and message code.
package util

import (
	"bytes"

	"github.com/ipfs/go-cid"
	cbg "github.com/whyrusleeping/cbor-gen"

	"github.com/filecoin-project/venus-fvm/pkg/constants"
)

// MakeCid returns the dag-cbor cid v would be stored under.
func MakeCid(v cbg.CBORMarshaler) (cid.Cid, error) {
	buf := new(bytes.Buffer)
	if err := v.MarshalCBOR(buf); err != nil {
		return cid.Undef, err
	}
	return constants.DefaultCidBuilder.Sum(buf.Bytes())
}
