// Package insights computes per-column running statistics over a drained
// reader: row counts, missing values, numeric range and mean, and string
// length bounds. Distinct-value estimation is pluggable; callers may attach a
// cardinality estimator such as a HyperLogLog.
package insights

import (
	"math"
	"strconv"

	"github.com/Doomsbay/FeedKit/feedkit/reader"
	"github.com/Doomsbay/FeedKit/feedkit/tensor"
)

// CardinalityEstimator approximates the number of distinct values in a
// column.
type CardinalityEstimator interface {
	Add(value []byte)
	Estimate() uint64
}

// Options tune the analysis.
type Options struct {
	// NullLikeValues count as missing in addition to empty strings.
	NullLikeValues []string
	// NewEstimator, when set, attaches a distinct-value estimator per
	// column.
	NewEstimator func() CardinalityEstimator
	// MaxExampleLen caps the captured example value; zero keeps it whole.
	MaxExampleLen int
}

// ColumnStatistics accumulate over one column. The mean and variance use
// Welford's algorithm, so they stay stable on long streams and never divide
// by zero on empty columns.
type ColumnStatistics struct {
	Name string

	Rows         uint64
	Missing      uint64
	NumericCount uint64

	NumericMin  float64
	NumericMax  float64
	numericMean float64
	numericM2   float64

	StrMinLen uint64
	StrMaxLen uint64

	ExampleValue string

	estimator CardinalityEstimator
}

// Mean returns the running numeric mean, or NaN without numeric values.
func (s *ColumnStatistics) Mean() float64 {
	if s.NumericCount == 0 {
		return math.NaN()
	}
	return s.numericMean
}

// Variance returns the sample variance, or NaN with fewer than two numeric
// values.
func (s *ColumnStatistics) Variance() float64 {
	if s.NumericCount < 2 {
		return math.NaN()
	}
	return s.numericM2 / float64(s.NumericCount-1)
}

// EstimatedDistinct returns the estimator's cardinality, or zero without an
// estimator.
func (s *ColumnStatistics) EstimatedDistinct() uint64 {
	if s.estimator == nil {
		return 0
	}
	return s.estimator.Estimate()
}

func (s *ColumnStatistics) observe(value string, nullLike map[string]bool, opts *Options) {
	s.Rows++

	if value == "" || nullLike[value] {
		s.Missing++
		return
	}

	if s.estimator != nil {
		s.estimator.Add([]byte(value))
	}

	n := uint64(len(value))
	if s.StrMinLen == 0 || n < s.StrMinLen {
		s.StrMinLen = n
	}
	if n > s.StrMaxLen {
		s.StrMaxLen = n
	}
	if s.ExampleValue == "" {
		example := value
		if opts.MaxExampleLen > 0 && len(example) > opts.MaxExampleLen {
			example = example[:opts.MaxExampleLen]
		}
		s.ExampleValue = example
	}

	if v, err := strconv.ParseFloat(value, 64); err == nil {
		s.observeNumeric(v)
	}
}

func (s *ColumnStatistics) observeNumeric(v float64) {
	if s.NumericCount == 0 {
		s.NumericMin = v
		s.NumericMax = v
	} else {
		if v < s.NumericMin {
			s.NumericMin = v
		}
		if v > s.NumericMax {
			s.NumericMax = v
		}
	}
	s.NumericCount++

	delta := v - s.numericMean
	s.numericMean += delta / float64(s.NumericCount)
	s.numericM2 += delta * (v - s.numericMean)
}

// Analyze drains the reader and returns statistics for every schema
// attribute. Padding rows are excluded.
func Analyze(r *reader.Reader, opts Options) ([]*ColumnStatistics, error) {
	schema, err := r.ReadSchema()
	if err != nil {
		return nil, err
	}

	nullLike := make(map[string]bool, len(opts.NullLikeValues))
	for _, v := range opts.NullLikeValues {
		nullLike[v] = true
	}

	stats := make([]*ColumnStatistics, len(schema.Attributes()))
	for i, attr := range schema.Attributes() {
		stats[i] = &ColumnStatistics{Name: attr.Name}
		if opts.NewEstimator != nil {
			stats[i].estimator = opts.NewEstimator()
		}
	}

	for {
		ex, err := r.ReadExample()
		if err != nil {
			return nil, err
		}
		if ex == nil {
			return stats, nil
		}

		for i, t := range ex.Features {
			dense, ok := t.(*tensor.Dense)
			if !ok {
				continue
			}
			rows := int(dense.Shape()[0]) - int(ex.Padding)
			observeColumn(stats[i], dense, rows, nullLike, &opts)
		}
	}
}

func observeColumn(s *ColumnStatistics, dense *tensor.Dense, rows int, nullLike map[string]bool, opts *Options) {
	data := dense.Data()
	perRow := data.Len() / int(dense.Shape()[0])

	for row := 0; row < rows; row++ {
		for j := 0; j < perRow; j++ {
			i := row*perRow + j
			switch data.DataType() {
			case tensor.String:
				s.observe(data.Strings()[i], nullLike, opts)
			case tensor.Float32:
				s.Rows++
				s.observeNumeric(float64(data.Float32s()[i]))
			case tensor.Float64:
				s.Rows++
				s.observeNumeric(data.Float64s()[i])
			case tensor.Int32:
				s.Rows++
				s.observeNumeric(float64(data.Int32s()[i]))
			case tensor.Int64:
				s.Rows++
				s.observeNumeric(float64(data.Int64s()[i]))
			}
		}
	}
}
