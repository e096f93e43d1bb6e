package gas

// GasCharge is a single metered cost.
type GasCharge struct { //nolint
	Name  string
	Extra interface{}

	ComputeGas int64
	StorageGas int64

	VirtualCompute int64
	VirtualStorage int64
}

// Total returns the gas actually charged for g.
func (g GasCharge) Total() int64 {
	return g.ComputeGas + g.StorageGas
}

// WithVirtual attaches virtual costs, recorded in traces but never charged.
func (g GasCharge) WithVirtual(compute, storage int64) GasCharge {
	out := g
	out.VirtualCompute = compute
	out.VirtualStorage = storage
	return out
}

// WithExtra attaches trace data to the charge.
func (g GasCharge) WithExtra(extra interface{}) GasCharge {
	out := g
	out.Extra = extra
	return out
}

// NewGasCharge creates a charge with the given compute and storage costs.
func NewGasCharge(name string, computeGas int64, storageGas int64) GasCharge {
	return GasCharge{
		Name:       name,
		ComputeGas: computeGas,
		StorageGas: storageGas,
	}
}
