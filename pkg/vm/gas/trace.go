package gas

import "time"

// GasTrace records a single charge when detailed tracing is enabled.
type GasTrace struct { //nolint
	Name  string
	Extra interface{} `json:",omitempty"`

	TotalGas   int64 `json:"tg"`
	ComputeGas int64 `json:"cg"`
	StorageGas int64 `json:"sg"`

	TotalVirtualGas   int64 `json:"vtg"`
	VirtualComputeGas int64 `json:"vcg"`
	VirtualStorageGas int64 `json:"vsg"`

	TimeTaken time.Duration `json:"tt"`
}

// ExecutionTrace collects the gas charges of one top-level message.
type ExecutionTrace struct {
	GasCharges []*GasTrace
}
