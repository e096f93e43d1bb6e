package vmcontext

import (
	"context"

	"github.com/filecoin-project/go-state-types/exitcode"
	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"github.com/filecoin-project/venus-fvm/pkg/util/blockstoreutil"
	"github.com/filecoin-project/venus-fvm/pkg/vm/aerrors"
	"github.com/filecoin-project/venus-fvm/pkg/vm/gas"
)

type gasCharger interface {
	ChargeGas(gas.GasCharge) error
}

// gasChargeBlockstore meters the block store traffic of actor code.
type gasChargeBlockstore struct {
	inner     blockstoreutil.Blockstore
	pricelist gas.Pricelist
	gasTank   gasCharger
}

func (s *gasChargeBlockstore) Get(ctx context.Context, c cid.Cid) (blocks.Block, error) {
	// gas charge must check first
	if err := s.gasTank.ChargeGas(s.pricelist.OnBlockOpen()); err != nil {
		return nil, err
	}

	if c.Prefix().MhType == multihash.IDENTITY {
		dmh, err := multihash.Decode(c.Hash())
		if err != nil {
			return nil, aerrors.Absorb(err, exitcode.SysErrorIllegalArgument, "decoding identity cid")
		}
		return blocks.NewBlockWithCid(dmh.Digest, c)
	}

	has, err := s.inner.Has(ctx, c)
	if err != nil {
		return nil, aerrors.Escalate(err, "block store lookup")
	}
	if !has {
		return nil, aerrors.Newf(exitcode.ErrNotFound, "block %s not found", c)
	}
	blk, err := s.inner.Get(ctx, c)
	if err != nil {
		return nil, aerrors.Escalate(err, "block store get")
	}
	return blk, nil
}

func (s *gasChargeBlockstore) Put(ctx context.Context, blk blocks.Block) error {
	if err := s.gasTank.ChargeGas(s.pricelist.OnBlockLink(len(blk.RawData()))); err != nil {
		return err
	}
	if blk.Cid().Prefix().MhType == multihash.IDENTITY {
		return nil
	}
	if err := s.inner.Put(ctx, blk); err != nil {
		return aerrors.Escalate(err, "block store put")
	}
	return nil
}

func (s *gasChargeBlockstore) Has(ctx context.Context, c cid.Cid) (bool, error) {
	if c.Prefix().MhType == multihash.IDENTITY {
		return true, nil
	}
	has, err := s.inner.Has(ctx, c)
	if err != nil {
		return false, aerrors.Escalate(err, "block store lookup")
	}
	return has, nil
}
