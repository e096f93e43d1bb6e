package metrics

import (
	"context"

	logging "github.com/ipfs/go-log/v2"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
)

var log = logging.Logger("metrics")

// Int64Counter wraps an opencensus int64 measure that is used as a counter.
type Int64Counter struct {
	measureCt *stats.Int64Measure
	view      *view.View
}

// NewInt64Counter creates a new Int64Counter with dimensionless units and
// registers its view. The view aggregates the sum of recorded values.
func NewInt64Counter(name, desc string) *Int64Counter {
	log.Debugf("registering int64 counter: %s - %s", name, desc)
	iMeasure := stats.Int64(name, desc, stats.UnitDimensionless)
	iView := &view.View{
		Name:        name,
		Measure:     iMeasure,
		Description: desc,
		Aggregation: view.Sum(),
	}
	if err := view.Register(iView); err != nil {
		// a panic here indicates a developer error when creating a view.
		// Since this method is called from package vars, the program fails
		// immediately.
		panic(err)
	}

	return &Int64Counter{
		measureCt: iMeasure,
		view:      iView,
	}
}

// Inc increments the counter by value `v`.
func (c *Int64Counter) Inc(ctx context.Context, v int64) {
	stats.Record(ctx, c.measureCt.M(v))
}

// Name returns the name of the counter's view.
func (c *Int64Counter) Name() string {
	return c.view.Name
}

// Value reads the current total of the counter.
func (c *Int64Counter) Value() (int64, error) {
	rows, err := view.RetrieveData(c.view.Name)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, row := range rows {
		if data, ok := row.Data.(*view.SumData); ok {
			total += int64(data.Value)
		}
	}
	return total, nil
}
