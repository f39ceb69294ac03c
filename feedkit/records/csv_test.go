package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCSVPlainLines(t *testing.T) {
	r := NewCSVReader(memStream("a,b,c\nd,e,f\n"), CSVConfig{})
	assert.Equal(t, []string{"a,b,c", "d,e,f"}, drainRecords(t, r))
}

func TestCSVCommentLines(t *testing.T) {
	r := NewCSVReader(memStream("# header comment\na,b\n#tail\nc,d\n"), CSVConfig{Comment: '#'})
	assert.Equal(t, []string{"a,b", "c,d"}, drainRecords(t, r))
}

func TestCSVBlankLines(t *testing.T) {
	r := NewCSVReader(memStream("a\n\nb\n"), CSVConfig{SkipBlankLines: true})
	assert.Equal(t, []string{"a", "b"}, drainRecords(t, r))
}

func TestCSVQuotedNewLines(t *testing.T) {
	r := NewCSVReader(memStream("a,\"multi\nline\",c\nd,e,f\n"), CSVConfig{AllowQuotedNewLines: true})
	assert.Equal(t, []string{"a,\"multi\nline\",c", "d,e,f"}, drainRecords(t, r))
}

func TestCSVQuotedDelimiter(t *testing.T) {
	r := NewCSVReader(memStream("a,\"x,y\",c\n"), CSVConfig{AllowQuotedNewLines: true})
	assert.Equal(t, []string{"a,\"x,y\",c"}, drainRecords(t, r))
}

func TestCSVCRLF(t *testing.T) {
	r := NewCSVReader(memStream("a,b\r\nc,d\r\n"), CSVConfig{AllowQuotedNewLines: true})
	assert.Equal(t, []string{"a,b", "c,d"}, drainRecords(t, r))
}

func TestCSVUnterminatedQuote(t *testing.T) {
	r := NewCSVReader(memStream("a,\"unterminated"), CSVConfig{AllowQuotedNewLines: true})
	_, err := r.ReadRecord()
	assert.ErrorIs(t, err, ErrCorruptRecord)
}

func TestCSVBOMStripped(t *testing.T) {
	r := NewCSVReader(memStream("\xEF\xBB\xBFa,b\nc,d\n"), CSVConfig{})
	assert.Equal(t, []string{"a,b", "c,d"}, drainRecords(t, r))
}

func TestCSVTooLarge(t *testing.T) {
	r := NewCSVReader(memStream("0,1,2,3,4,5,6,7,8,9\n"), CSVConfig{MaxLineLength: 4, AllowQuotedNewLines: true})
	_, err := r.ReadRecord()
	assert.ErrorIs(t, err, ErrRecordTooLarge)
}

func TestTokenizeCSV(t *testing.T) {
	config := CSVConfig{}

	assert.Equal(t, []string{"a", "b", "c"}, TokenizeCSV(nil, []byte("a,b,c"), config))
	assert.Equal(t, []string{"", "", ""}, TokenizeCSV(nil, []byte(",,"), config))
	assert.Equal(t, []string{"x,y", "z"}, TokenizeCSV(nil, []byte(`"x,y",z`), config))

	// A doubled quote inside a quoted field is a literal quote.
	assert.Equal(t, []string{`say "hi"`, "b"}, TokenizeCSV(nil, []byte(`"say ""hi""",b`), config))

	// Trailing delimiter yields a final empty field.
	assert.Equal(t, []string{"a", ""}, TokenizeCSV(nil, []byte("a,"), config))

	// Custom delimiter.
	assert.Equal(t, []string{"a", "b"}, TokenizeCSV(nil, []byte("a\tb"), CSVConfig{Delimiter: '\t'}))
}
