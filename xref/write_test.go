package xref

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/pdfio/core"
)

func writeSection(t *testing.T, acc *Accountant, base int64, format Format, opts Options) (string, int64) {
	t.Helper()
	var buf bytes.Buffer
	out := core.NewOutput(&buf, base)
	startxref, err := acc.Write(out, format, opts)
	require.NoError(t, err)
	require.NoError(t, out.Flush())
	return buf.String(), startxref
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestWriteTableFull tests a complete table for a fresh document
func TestWriteTableFull(t *testing.T) {
	acc := NewAccountant()
	acc.AddInUse(ref(1, 0), 15)
	acc.AddInUse(ref(2, 0), 60)
	acc.AddInUse(ref(3, 0), 110)

	got, startxref := writeSection(t, acc, 200, FormatTable, Options{
		LastObjectNumber: 3,
		Trailer:          core.Dict{"Root": ref(1, 0)},
		Logger:           quietLogger(),
	})

	want := "xref\n" +
		"0 4\n" +
		"0000000000 65535 f \n" +
		"0000000015 00000 n \n" +
		"0000000060 00000 n \n" +
		"0000000110 00000 n \n" +
		"trailer\n" +
		"<</Root 1 0 R /Size 4>>\n" +
		"startxref\n" +
		"200\n" +
		"%%EOF\n"
	assert.Equal(t, want, got)
	assert.Equal(t, int64(200), startxref)
}

// TestWriteTableIncremental tests an update that only frees an object
func TestWriteTableIncremental(t *testing.T) {
	acc := NewAccountant()
	acc.AddFree(ref(2, 1))

	got, _ := writeSection(t, acc, 500, FormatTable, Options{
		Incremental:      true,
		LastObjectNumber: 3,
		Trailer:          core.Dict{"Root": ref(1, 0), "Prev": core.Int(116)},
		Logger:           quietLogger(),
	})

	assert.True(t, strings.HasPrefix(got, "xref\n0 1\n0000000002 65535 f \n2 1\n0000000000 00001 f \n"), got)
	assert.Contains(t, got, "trailer\n<</Prev 116 /Root 1 0 R /Size 4>>\n")
}

// TestWriteTableLines tests that every entry line is 20 bytes
func TestWriteTableLines(t *testing.T) {
	acc := NewAccountant()
	acc.AddInUse(ref(1, 0), 1234567890)
	acc.AddFree(ref(2, 7))
	acc.AddInUse(ref(5, 3), 42)

	got, _ := writeSection(t, acc, 0, FormatTable, Options{Incremental: true, LastObjectNumber: 5, Logger: quietLogger()})

	body := got[:strings.Index(got, "trailer\n")]
	for _, line := range strings.SplitAfter(body, "\n") {
		if len(line) > 0 && strings.Count(line, " ") == 3 {
			assert.Len(t, line, 20, "line %q", line)
		}
	}
	assert.Contains(t, got, "1234567890 00000 n \n")
	assert.Contains(t, got, "0000000000 00007 f \n")
	assert.Contains(t, got, "5 1\n0000000042 00003 n \n")
}

// TestWriteTableRejectsCompressed tests that a table cannot hold an entry
// stored in an object stream
func TestWriteTableRejectsCompressed(t *testing.T) {
	acc := NewAccountant()
	acc.AddCompressed(ref(4, 0), 3, 0)

	var buf bytes.Buffer
	_, err := acc.Write(core.NewOutput(&buf, 0), FormatTable, Options{LastObjectNumber: 4, Logger: quietLogger()})
	assert.ErrorIs(t, err, core.ErrInvalidDataType)
}

// TestWriteMagicOffset tests that offsets are relative to the header
func TestWriteMagicOffset(t *testing.T) {
	acc := NewAccountant()
	acc.AddInUse(ref(1, 0), 10)

	got, startxref := writeSection(t, acc, 150, FormatTable, Options{LastObjectNumber: 1, MagicOffset: 50, Logger: quietLogger()})
	assert.Equal(t, int64(100), startxref)
	assert.True(t, strings.HasSuffix(got, "startxref\n100\n%%EOF\n"))
}

// TestWriteUnknownFormat tests the format check
func TestWriteUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewAccountant().Write(core.NewOutput(&buf, 0), Format(9), Options{})
	assert.Error(t, err)
	assert.Equal(t, "Format(9)", Format(9).String())
}

func sampleAccountant() *Accountant {
	acc := NewAccountant()
	acc.AddInUse(ref(1, 0), 70000)
	acc.AddFree(ref(2, 1))
	acc.AddInUse(ref(3, 2), 300)
	return acc
}

// parseSection writes prefix and the section, then reads it back
func parseSection(t *testing.T, acc *Accountant, format Format, opts Options) (*core.XRefTable, int64) {
	t.Helper()
	var buf bytes.Buffer
	out := core.NewOutput(&buf, 0)
	_, err := io.WriteString(out, "%PDF-1.5\n")
	require.NoError(t, err)
	startxref, err := acc.Write(out, format, opts)
	require.NoError(t, err)
	require.NoError(t, out.Flush())

	parser := core.NewXRefParser(core.NewBytesInput(buf.Bytes()))
	found, err := parser.FindXRef()
	require.NoError(t, err)
	require.Equal(t, startxref, found)
	table, err := parser.ParseXRef(found)
	require.NoError(t, err)
	return table, startxref
}

// TestWriteStreamMatchesTable tests that a stream section decodes to the
// same entries a table section holds
func TestWriteStreamMatchesTable(t *testing.T) {
	for _, noCompress := range []bool{true, false} {
		name := "flate"
		if noCompress {
			name = "uncompressed"
		}
		t.Run(name, func(t *testing.T) {
			trailer := core.Dict{"Root": ref(1, 0)}
			table, _ := parseSection(t, sampleAccountant(), FormatTable, Options{
				LastObjectNumber: 3, Trailer: trailer, Logger: quietLogger(),
			})
			stream, selfOffset := parseSection(t, sampleAccountant(), FormatStream, Options{
				LastObjectNumber: 3, Trailer: trailer, StreamRef: ref(4, 0),
				NoCompress: noCompress, Logger: quietLogger(),
			})

			assert.Equal(t, int64(9), selfOffset)
			require.Len(t, table.Entries, 4)
			require.Len(t, stream.Entries, 5)
			for n := 0; n < 4; n++ {
				assert.Equal(t, *table.Entries[n], *stream.Entries[n], "entry %d", n)
			}
			assert.Equal(t, core.XRefEntry{Type: core.XRefInUse, Offset: selfOffset}, *stream.Entries[4])

			require.NotNil(t, stream.Stream)
			assert.Equal(t, ref(4, 0), *stream.Stream)
			w, _ := stream.Trailer.GetArray("W")
			assert.Equal(t, core.Array{core.Int(1), core.Int(3), core.Int(2)}, w)
			size, _ := stream.Trailer.GetInt("Size")
			assert.Equal(t, core.Int(5), size)
			root, _ := stream.Trailer.GetIndirectRef("Root")
			assert.Equal(t, ref(1, 0), root)
		})
	}
}

// TestWriteStreamIncremental tests /Index and compressed entries
func TestWriteStreamIncremental(t *testing.T) {
	acc := NewAccountant()
	acc.AddInUse(ref(3, 0), 40)
	acc.AddCompressed(ref(7, 0), 3, 1)

	table, selfOffset := parseSection(t, acc, FormatStream, Options{
		Incremental:      true,
		LastObjectNumber: 7,
		Trailer:          core.Dict{"Prev": core.Int(20)},
		StreamRef:        ref(8, 0),
		Logger:           quietLogger(),
	})

	index, _ := table.Trailer.GetArray("Index")
	assert.Equal(t, core.Array{core.Int(0), core.Int(1), core.Int(3), core.Int(1), core.Int(7), core.Int(2)}, index)
	assert.Equal(t, core.XRefEntry{Type: core.XRefFree, Generation: 65535}, *table.Entries[0])
	assert.Equal(t, core.XRefEntry{Type: core.XRefInUse, Offset: 40}, *table.Entries[3])
	assert.Equal(t, core.XRefEntry{Type: core.XRefCompressed, ObjStm: 3, Index: 1}, *table.Entries[7])
	assert.Equal(t, core.XRefEntry{Type: core.XRefInUse, Offset: selfOffset}, *table.Entries[8])

	r, ok := acc.Record(8)
	require.True(t, ok)
	assert.Equal(t, selfOffset, r.Offset)
}

// TestWriteStreamNeedsRef tests that the stream object must be numbered
func TestWriteStreamNeedsRef(t *testing.T) {
	var buf bytes.Buffer
	_, err := sampleAccountant().Write(core.NewOutput(&buf, 0), FormatStream, Options{LastObjectNumber: 3})
	assert.ErrorIs(t, err, core.ErrInvalidObject)
}

// TestByteWidth tests field width selection
func TestByteWidth(t *testing.T) {
	tests := []struct {
		v    int64
		want int
	}{
		{0, 1},
		{255, 1},
		{256, 2},
		{65535, 2},
		{65536, 3},
		{1 << 32, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, byteWidth(tt.v), "byteWidth(%d)", tt.v)
	}
}
