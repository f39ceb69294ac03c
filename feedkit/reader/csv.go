package reader

import (
	"fmt"
	"math"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/Doomsbay/FeedKit/feedkit/records"
	"github.com/Doomsbay/FeedKit/feedkit/store"
	"github.com/Doomsbay/FeedKit/feedkit/streams"
	"github.com/Doomsbay/FeedKit/feedkit/tensor"
)

// CSVParams configure CSV datasets.
type CSVParams struct {
	// ColumnNames overrides the header row; ignored when empty.
	ColumnNames []string
	// NamePrefix prefixes generated column names when neither a header
	// row nor explicit names are available.
	NamePrefix string
	// UseColumns restricts decoding to the named columns.
	UseColumns []string
	// UseColumnsByIndex restricts decoding to the given column indices.
	UseColumnsByIndex []int
	// DefaultDataType, when set, applies to all columns without an
	// explicit type; otherwise types are inferred from the first data
	// row.
	DefaultDataType *tensor.DataType
	// ColumnTypes overrides the type of the named columns.
	ColumnTypes map[string]tensor.DataType
	// ColumnTypesByIndex overrides the type of columns by index.
	ColumnTypesByIndex map[int]tensor.DataType
	// HeaderRowIndex, when set, names the row holding the column names.
	// That row and everything before it are skipped in every data store.
	HeaderRowIndex *uint64
	// Delimiter defaults to ','.
	Delimiter byte
	// Quote defaults to '"'.
	Quote byte
	// Comment, when non-zero, skips lines starting with it.
	Comment byte
	// AllowQuotedNewLines lets quoted fields contain literal newlines.
	AllowQuotedNewLines bool
	// SkipBlankLines drops blank lines instead of decoding them.
	SkipBlankLines bool
	// MaxLineLength bounds one record; zero means unbounded.
	MaxLineLength int
	// NaNValues are additional tokens parsed as NaN in float columns.
	NaNValues []string
	// Base is the integer parsing base; zero means 10.
	Base int
}

// DefaultCSVParams mirror the common CSV shape: a header in row zero and
// blank lines skipped.
func DefaultCSVParams() CSVParams {
	return CSVParams{
		HeaderRowIndex: Uint64(0),
		SkipBlankLines: true,
	}
}

func (p CSVParams) withDefaults() CSVParams {
	if p.Delimiter == 0 {
		p.Delimiter = ','
	}
	if p.Quote == 0 {
		p.Quote = '"'
	}
	if p.Base == 0 {
		p.Base = 10
	}
	return p
}

func (p CSVParams) recordConfig() records.CSVConfig {
	return records.CSVConfig{
		Delimiter:           p.Delimiter,
		Quote:               p.Quote,
		Comment:             p.Comment,
		AllowQuotedNewLines: p.AllowQuotedNewLines,
		SkipBlankLines:      p.SkipBlankLines,
		MaxLineLength:       p.MaxLineLength,
	}
}

type csvFormat struct {
	params    Params
	csvParams CSVParams
	nan       map[string]bool
	schema    *tensor.Schema

	// Decode metadata, fixed after schema inference.
	names []string
	types []tensor.DataType
	keep  []bool
}

// NewCSVReader creates a reader over CSV datasets.
func NewCSVReader(params Params, csvParams CSVParams) (*Reader, error) {
	f := &csvFormat{params: params, csvParams: csvParams.withDefaults()}
	f.nan = make(map[string]bool, len(f.csvParams.NaNValues))
	for _, v := range f.csvParams.NaNValues {
		f.nan[v] = true
	}
	return NewReader(params, f)
}

func (f *csvFormat) MakeRecordReader(s store.Store) (records.Reader, error) {
	raw, err := s.OpenRead()
	if err != nil {
		return nil, err
	}
	stream, err := streams.NewUTF8Stream(raw)
	if err != nil {
		_ = raw.Close()
		return nil, err
	}
	reader := records.NewCSVReader(stream, f.csvParams.recordConfig())
	if f.csvParams.HeaderRowIndex != nil {
		return &skipRecords{inner: reader, n: int(*f.csvParams.HeaderRowIndex) + 1}, nil
	}
	return reader, nil
}

func (f *csvFormat) InferSchema(ins *Instance) (*tensor.Schema, error) {
	var fields []string
	if ins != nil {
		fields = records.TokenizeCSV(nil, ins.Bits.Bytes(), f.csvParams.recordConfig())
	}

	names, err := f.columnNames(len(fields))
	if err != nil {
		return nil, err
	}
	f.names = names

	f.types = make([]tensor.DataType, len(names))
	for i := range names {
		f.types[i] = f.columnType(i, fields)
	}

	f.keep = f.keepColumns(names)

	attrs := make([]tensor.Attribute, 0, len(names))
	for i, name := range names {
		if !f.keep[i] {
			continue
		}
		attrs = append(attrs, tensor.Attribute{
			Name:     name,
			DataType: f.types[i],
			Shape:    []uint64{uint64(f.params.BatchSize), 1},
		})
	}
	schema, err := tensor.NewSchema(attrs)
	if err != nil {
		return nil, err
	}
	f.schema = schema
	return schema, nil
}

// columnNames resolves names from the explicit list, the header row, or
// generated indices, in that order of preference.
func (f *csvFormat) columnNames(numFields int) ([]string, error) {
	if len(f.csvParams.ColumnNames) > 0 {
		return f.csvParams.ColumnNames, nil
	}
	if f.csvParams.HeaderRowIndex != nil && len(f.params.Dataset) > 0 {
		return f.readHeaderRow()
	}
	names := make([]string, numFields)
	for i := range names {
		names[i] = f.csvParams.NamePrefix + strconv.Itoa(i)
	}
	return names, nil
}

// readHeaderRow opens the first store again and tokenizes the header row.
func (f *csvFormat) readHeaderRow() ([]string, error) {
	raw, err := f.params.Dataset[0].OpenRead()
	if err != nil {
		return nil, err
	}
	stream, err := streams.NewUTF8Stream(raw)
	if err != nil {
		_ = raw.Close()
		return nil, err
	}
	reader := records.NewCSVReader(stream, f.csvParams.recordConfig())
	defer func() {
		_ = reader.Close()
	}()

	for i := uint64(0); ; i++ {
		rec, err := reader.ReadRecord()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, fmt.Errorf("%w: %s has no header row at index %d",
				ErrInvalidArgument, f.params.Dataset[0], *f.csvParams.HeaderRowIndex)
		}
		if i == *f.csvParams.HeaderRowIndex {
			names := records.TokenizeCSV(nil, rec.Payload.Bytes(), f.csvParams.recordConfig())
			rec.Payload.Release()
			return names, nil
		}
		rec.Payload.Release()
	}
}

func (f *csvFormat) columnType(i int, firstRow []string) tensor.DataType {
	if dt, ok := f.csvParams.ColumnTypesByIndex[i]; ok {
		return dt
	}
	if dt, ok := f.csvParams.ColumnTypes[f.names[i]]; ok {
		return dt
	}
	if f.csvParams.DefaultDataType != nil {
		return *f.csvParams.DefaultDataType
	}
	if i < len(firstRow) {
		return inferFieldType(firstRow[i])
	}
	return tensor.String
}

func inferFieldType(field string) tensor.DataType {
	if _, err := strconv.ParseInt(field, 10, 64); err == nil {
		return tensor.Int64
	}
	if _, err := strconv.ParseFloat(field, 64); err == nil {
		return tensor.Float64
	}
	return tensor.String
}

func (f *csvFormat) keepColumns(names []string) []bool {
	keep := make([]bool, len(names))
	if len(f.csvParams.UseColumns) == 0 && len(f.csvParams.UseColumnsByIndex) == 0 {
		for i := range keep {
			keep[i] = true
		}
		return keep
	}
	byName := make(map[string]bool, len(f.csvParams.UseColumns))
	for _, n := range f.csvParams.UseColumns {
		byName[n] = true
	}
	for i, n := range names {
		keep[i] = byName[n]
	}
	for _, i := range f.csvParams.UseColumnsByIndex {
		if i >= 0 && i < len(keep) {
			keep[i] = true
		}
	}
	return keep
}

func (f *csvFormat) Decode(batch *InstanceBatch) (*tensor.Example, error) {
	builders := make([]*columnBuilder, 0, len(f.schema.Attributes()))
	for _, attr := range f.schema.Attributes() {
		builders = append(builders, &columnBuilder{dtype: attr.DataType})
	}

	rows := len(batch.Instances)
	real := batch.Instances[:rows-batch.Padding]

	good := 0
	var fields []string
	for i := range real {
		ins := &real[i]
		fields = records.TokenizeCSV(fields[:0], ins.Bits.Bytes(), f.csvParams.recordConfig())

		err := f.decodeRow(builders, fields)
		if err == nil {
			good++
			continue
		}

		if f.params.WarnBadInstances {
			logrus.Warnf("reader: instance %d of %s is bad: %v", ins.Index, ins.Store, err)
		}
		switch f.params.BadExampleHandling {
		case BadExampleError:
			return nil, err
		case BadExampleSkipWarn:
			logrus.Warnf("reader: skipping example %d: %v", batch.Index, err)
			fallthrough
		case BadExampleSkip:
			return nil, nil
		case BadExamplePadWarn:
			logrus.Warnf("reader: padding example %d past a bad instance: %v", batch.Index, err)
			fallthrough
		case BadExamplePad:
			// Keep collecting good rows; the tail is padded below.
		}
	}

	padding := rows - good
	for _, b := range builders {
		for n := good; n < rows; n++ {
			b.appendZero()
		}
	}

	features := make([]tensor.Tensor, 0, len(builders))
	for _, b := range builders {
		dense, err := tensor.NewDense([]uint64{uint64(rows), 1}, b.array())
		if err != nil {
			return nil, err
		}
		features = append(features, dense)
	}
	return &tensor.Example{
		Schema:   f.schema,
		Features: features,
		Padding:  uint64(padding),
	}, nil
}

// decodeRow appends one row to the kept columns' builders, undoing partial
// appends when a later field fails to parse.
func (f *csvFormat) decodeRow(builders []*columnBuilder, fields []string) error {
	if len(fields) != len(f.names) {
		return fmt.Errorf("%w: the row has %d field(s), the schema expects %d",
			ErrInvalidInstance, len(fields), len(f.names))
	}
	appended := 0
	col := 0
	for i, field := range fields {
		if !f.keep[i] {
			continue
		}
		if err := builders[col].append(field, f.nan, f.csvParams.Base); err != nil {
			for _, b := range builders[:appended] {
				b.undo()
			}
			return fmt.Errorf("%w: field %d ('%s') cannot be parsed as %v",
				ErrInvalidInstance, i, field, builders[col].dtype)
		}
		appended++
		col++
	}
	return nil
}

// columnBuilder accumulates one column's values across a batch.
type columnBuilder struct {
	dtype tensor.DataType
	strs  []string
	i32   []int32
	i64   []int64
	f32   []float32
	f64   []float64
}

func (b *columnBuilder) append(field string, nan map[string]bool, base int) error {
	switch b.dtype {
	case tensor.String:
		b.strs = append(b.strs, field)
	case tensor.Int32:
		v, err := strconv.ParseInt(field, base, 32)
		if err != nil {
			return err
		}
		b.i32 = append(b.i32, int32(v))
	case tensor.Int64:
		v, err := strconv.ParseInt(field, base, 64)
		if err != nil {
			return err
		}
		b.i64 = append(b.i64, v)
	case tensor.Float32:
		v, err := parseFloat(field, 32, nan)
		if err != nil {
			return err
		}
		b.f32 = append(b.f32, float32(v))
	case tensor.Float64:
		v, err := parseFloat(field, 64, nan)
		if err != nil {
			return err
		}
		b.f64 = append(b.f64, v)
	default:
		return fmt.Errorf("%w: CSV columns cannot have the data type %v", ErrNotSupported, b.dtype)
	}
	return nil
}

func parseFloat(field string, bits int, nan map[string]bool) (float64, error) {
	if nan[field] {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(field, bits)
}

func (b *columnBuilder) undo() {
	switch b.dtype {
	case tensor.String:
		b.strs = b.strs[:len(b.strs)-1]
	case tensor.Int32:
		b.i32 = b.i32[:len(b.i32)-1]
	case tensor.Int64:
		b.i64 = b.i64[:len(b.i64)-1]
	case tensor.Float32:
		b.f32 = b.f32[:len(b.f32)-1]
	case tensor.Float64:
		b.f64 = b.f64[:len(b.f64)-1]
	}
}

func (b *columnBuilder) appendZero() {
	switch b.dtype {
	case tensor.String:
		b.strs = append(b.strs, "")
	case tensor.Int32:
		b.i32 = append(b.i32, 0)
	case tensor.Int64:
		b.i64 = append(b.i64, 0)
	case tensor.Float32:
		b.f32 = append(b.f32, 0)
	case tensor.Float64:
		b.f64 = append(b.f64, 0)
	}
}

func (b *columnBuilder) array() tensor.Array {
	switch b.dtype {
	case tensor.String:
		return tensor.NewStringArray(b.strs)
	case tensor.Int32:
		return tensor.NewInt32Array(b.i32)
	case tensor.Int64:
		return tensor.NewInt64Array(b.i64)
	case tensor.Float32:
		return tensor.NewFloat32Array(b.f32)
	default:
		return tensor.NewFloat64Array(b.f64)
	}
}

// skipRecords drops the first n records of the inner reader, used to skip
// header rows.
type skipRecords struct {
	inner records.Reader
	n     int
}

func (r *skipRecords) ensureSkipped() error {
	for r.n > 0 {
		rec, err := r.inner.ReadRecord()
		if err != nil {
			return err
		}
		if rec == nil {
			r.n = 0
			return nil
		}
		rec.Payload.Release()
		r.n--
	}
	return nil
}

func (r *skipRecords) ReadRecord() (*records.Record, error) {
	if err := r.ensureSkipped(); err != nil {
		return nil, err
	}
	return r.inner.ReadRecord()
}

func (r *skipRecords) PeekRecord() (*records.Record, error) {
	if err := r.ensureSkipped(); err != nil {
		return nil, err
	}
	return r.inner.PeekRecord()
}

func (r *skipRecords) Close() error { return r.inner.Close() }
