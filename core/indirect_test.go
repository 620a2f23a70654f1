package core

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// TestLazyObjectLoad tests that values are parsed on first access
func TestLazyObjectLoad(t *testing.T) {
	src := "%junk\n1 0 obj\n<</Type /Catalog /Pages 2 0 R>>\nendobj\n"
	obj := NewLazyObject(IndirectRef{Number: 1}, input(src), 6, LoadConfig{})

	assert.False(t, obj.IsLoaded())
	assert.False(t, obj.IsDirty())
	off, ok := obj.SourceOffset()
	assert.True(t, ok)
	assert.Equal(t, int64(6), off)

	d, err := obj.Dict()
	require.NoError(t, err)
	assert.True(t, obj.IsLoaded())
	want := Dict{"Type": Name("Catalog"), "Pages": IndirectRef{Number: 2}}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Errorf("value mismatch (-want +got):\n%s", diff)
	}

	hasStream, err := obj.HasStream()
	require.NoError(t, err)
	assert.False(t, hasStream)

	s, err := obj.Stream()
	require.NoError(t, err)
	assert.Nil(t, s)
}

// TestLazyObjectEmpty tests an object with no value before endobj
func TestLazyObjectEmpty(t *testing.T) {
	obj := NewLazyObject(IndirectRef{Number: 3}, input("3 0 obj endobj"), 0, LoadConfig{})
	v, err := obj.Value()
	require.NoError(t, err)
	assert.Equal(t, Null{}, v)
}

// TestLazyObjectStreamEOL tests the line endings accepted after stream
func TestLazyObjectStreamEOL(t *testing.T) {
	tests := []struct {
		name string
		eol  string
	}{
		{"LF", "\n"},
		{"CRLF", "\r\n"},
		{"CR", "\r"},
		{"spaces then LF", "  \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "5 0 obj <</Length 3>> stream" + tt.eol + "\tab\nendstream endobj"
			obj := NewLazyObject(IndirectRef{Number: 5}, input(src), 0, LoadConfig{})

			require.NoError(t, obj.EnsureLoaded())
			assert.True(t, obj.IsLoaded())
			assert.False(t, obj.IsStreamLoaded())

			data, err := obj.StreamData()
			require.NoError(t, err)
			assert.Equal(t, "\tab", string(data))
			assert.True(t, obj.IsStreamLoaded())
		})
	}
}

// TestLazyObjectIdentityMismatch tests that a mismatched header is logged
// and the object still loads
func TestLazyObjectIdentityMismatch(t *testing.T) {
	var logs bytes.Buffer
	obj := NewLazyObject(IndirectRef{Number: 3}, input("2 0 obj 42 endobj"), 0,
		LoadConfig{Logger: captureLogger(&logs)})

	v, err := obj.Value()
	require.NoError(t, err)
	assert.Equal(t, Int(42), v)
	assert.Equal(t, IndirectRef{Number: 3}, obj.Reference())
	assert.Contains(t, logs.String(), "object identity mismatch")
	assert.Contains(t, logs.String(), "2 0 R")
}

// TestLazyObjectErrors tests malformed object definitions
func TestLazyObjectErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"missing endobj", "1 0 obj 42", ErrUnexpectedEOF},
		{"wrong keyword", "1 0 obj 42 foo", ErrInvalidObject},
		{"stream after array", "1 0 obj [1] stream\nx\nendstream endobj", ErrInvalidObject},
		{"bad header", "1 0 foo 42 endobj", ErrInvalidObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := NewLazyObject(IndirectRef{Number: 1}, input(tt.src), 0, LoadConfig{})
			err := obj.EnsureLoaded()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.False(t, obj.IsLoaded())
		})
	}
}

// TestLazyObjectIndirectLength tests /Length resolved through the object
// list before the payload is read
func TestLazyObjectIndirectLength(t *testing.T) {
	src := "1 0 obj <</Length 2 0 R>> stream\nabc\nendstream endobj\n2 0 obj 3 endobj\n"
	list := NewObjectList()
	cfg := LoadConfig{Resolver: list}
	require.NoError(t, list.AddObject(NewLazyObject(IndirectRef{Number: 1}, input(src), 0, cfg)))
	require.NoError(t, list.AddObject(NewLazyObject(IndirectRef{Number: 2}, input(src), int64(strings.Index(src, "2 0 obj")), cfg)))

	obj, ok := list.GetObject(IndirectRef{Number: 1})
	require.True(t, ok)
	data, err := obj.StreamData()
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
}

// TestLazyObjectMissingLength tests that a stream without a usable /Length
// fails only when its data are read
func TestLazyObjectMissingLength(t *testing.T) {
	tests := []struct {
		name string
		dict string
		cfg  LoadConfig
	}{
		{"no length", "<<>>", LoadConfig{}},
		{"no resolver", "<</Length 9 0 R>>", LoadConfig{}},
		{"unresolved", "<</Length 9 0 R>>", LoadConfig{Resolver: NewObjectList()}},
		{"negative", "<</Length -1>>", LoadConfig{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "1 0 obj " + tt.dict + " stream\nabc\nendstream endobj"
			obj := NewLazyObject(IndirectRef{Number: 1}, input(src), 0, tt.cfg)
			require.NoError(t, obj.EnsureLoaded())
			_, err := obj.StreamData()
			assert.True(t, errors.Is(err, ErrInvalidStream), "got %v", err)
		})
	}
}

// TestLazyObjectMissingEndstream tests that data are kept when endstream
// is not where /Length says
func TestLazyObjectMissingEndstream(t *testing.T) {
	var logs bytes.Buffer
	src := "1 0 obj <</Length 2>> stream\nabcdef\nendstream endobj"
	obj := NewLazyObject(IndirectRef{Number: 1}, input(src), 0, LoadConfig{Logger: captureLogger(&logs)})

	data, err := obj.StreamData()
	require.NoError(t, err)
	assert.Equal(t, "ab", string(data))
	assert.Contains(t, logs.String(), "stream has no endstream keyword")
}

// TestLazyObjectDecryption tests stream and string decryption, and the
// streams left in clear text
func TestLazyObjectDecryption(t *testing.T) {
	payload := string(streamMarker) + string(xorBytes([]byte("abc")))
	tests := []struct {
		name    string
		dict    string
		data    string
		session *xorSession
		want    string
	}{
		{"encrypted", "<</Length 7>>", payload, &xorSession{}, "abc"},
		{"metadata exempt", "<</Type /Metadata /Length 3>>", "abc", &xorSession{}, "abc"},
		{"metadata encrypted", "<</Type /Metadata /Length 7>>", payload, &xorSession{metadata: true}, "abc"},
		{"xref stream", "<</Type /XRef /Length 3>>", "abc", &xorSession{}, "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "4 0 obj " + tt.dict + " stream\n" + tt.data + "\nendstream endobj"
			obj := NewLazyObject(IndirectRef{Number: 4}, input(src), 0, LoadConfig{Session: tt.session})
			data, err := obj.StreamData()
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}

	t.Run("strings", func(t *testing.T) {
		src := "4 0 obj (" + string(xorBytes([]byte("key"))) + ") endobj"
		obj := NewLazyObject(IndirectRef{Number: 4}, input(src), 0, LoadConfig{Session: &xorSession{}})
		v, err := obj.Value()
		require.NoError(t, err)
		assert.Equal(t, String("key"), v)
	})
}

// TestTryUnload tests which objects may release their data
func TestTryUnload(t *testing.T) {
	src := "1 0 obj <</Length 3>> stream\nabc\nendstream endobj"

	t.Run("clean object unloads", func(t *testing.T) {
		obj := NewLazyObject(IndirectRef{Number: 1}, input(src), 0, LoadConfig{})
		_, err := obj.StreamData()
		require.NoError(t, err)

		assert.True(t, obj.TryUnload())
		assert.False(t, obj.IsLoaded())
		assert.False(t, obj.IsStreamLoaded())

		data, err := obj.StreamData()
		require.NoError(t, err)
		assert.Equal(t, "abc", string(data))
	})

	t.Run("not loaded", func(t *testing.T) {
		obj := NewLazyObject(IndirectRef{Number: 1}, input(src), 0, LoadConfig{})
		assert.False(t, obj.TryUnload())
	})

	t.Run("revised object stays", func(t *testing.T) {
		obj := NewLazyObject(IndirectRef{Number: 1}, input(src), 0, LoadConfig{})
		require.NoError(t, obj.SetKey("Extra", Bool(true)))
		obj.SetDirty(false)
		assert.True(t, obj.IsRevised())
		assert.False(t, obj.TryUnload())
		d, err := obj.Dict()
		require.NoError(t, err)
		assert.True(t, d.Has("Extra"))
	})

	t.Run("object without source", func(t *testing.T) {
		obj := NewIndirectObject(IndirectRef{Number: 1}, Int(1))
		obj.SetDirty(false)
		assert.False(t, obj.TryUnload())
	})

	t.Run("closed source", func(t *testing.T) {
		in := NewClosableInput(input(src))
		obj := NewLazyObject(IndirectRef{Number: 1}, in, 0, LoadConfig{})
		_, err := obj.Value()
		require.NoError(t, err)

		in.Close()
		assert.False(t, obj.TryUnload())
		d, err := obj.Dict()
		require.NoError(t, err)
		assert.Equal(t, Int(3), d.Get("Length"))
	})
}

// TestClosedSource tests that loading fails with an error once the source
// is closed
func TestClosedSource(t *testing.T) {
	src := "1 0 obj <</Length 3>> stream\nabc\nendstream endobj"

	t.Run("value", func(t *testing.T) {
		in := NewClosableInput(input(src))
		obj := NewLazyObject(IndirectRef{Number: 1}, in, 0, LoadConfig{})
		in.Close()

		_, err := obj.Value()
		assert.True(t, errors.Is(err, ErrSourceClosed), "got %v", err)
		assert.False(t, obj.IsLoaded())
	})

	t.Run("stream", func(t *testing.T) {
		in := NewClosableInput(input(src))
		obj := NewLazyObject(IndirectRef{Number: 1}, in, 0, LoadConfig{})
		_, err := obj.Value()
		require.NoError(t, err)
		in.Close()

		_, err = obj.StreamData()
		assert.True(t, errors.Is(err, ErrSourceClosed), "got %v", err)
	})

	t.Run("device", func(t *testing.T) {
		in := NewClosableInput(input(src))
		in.Close()
		assert.True(t, in.Closed())
		assert.True(t, in.EOF())
		_, err := in.ReadByte()
		assert.True(t, errors.Is(err, ErrSourceClosed))
		_, err = in.Seek(0, io.SeekStart)
		assert.True(t, errors.Is(err, ErrSourceClosed))
	})
}

// TestSetStreamData tests payload replacement
func TestSetStreamData(t *testing.T) {
	obj := NewIndirectObject(IndirectRef{Number: 1}, Dict{"Filter": Name("FlateDecode")})
	require.NoError(t, obj.EncodeStreamData([]byte("plain"), ""))

	d, err := obj.Dict()
	require.NoError(t, err)
	assert.False(t, d.Has("Filter"))
	assert.Equal(t, Int(5), d["Length"])

	require.NoError(t, obj.EncodeStreamData(bytes.Repeat([]byte("z"), 100), "FlateDecode"))
	s, err := obj.Stream()
	require.NoError(t, err)
	decoded, err := s.Decode()
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte("z"), 100), decoded)
	assert.Equal(t, Int(len(s.Data)), d["Length"])

	notDict := NewIndirectObject(IndirectRef{Number: 2}, Int(1))
	assert.True(t, errors.Is(notDict.SetStreamData(nil), ErrInvalidDataType))
}

// TestBeginAppendBuffered tests appending without an observer
func TestBeginAppendBuffered(t *testing.T) {
	tests := []struct {
		name     string
		compress bool
	}{
		{"plain", false},
		{"compressed", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := NewIndirectObject(IndirectRef{Number: 1}, Dict{"DecodeParms": Dict{}})
			w, err := obj.BeginAppend(tt.compress)
			require.NoError(t, err)

			_, err = obj.BeginAppend(tt.compress)
			assert.True(t, errors.Is(err, ErrInvalidStream))

			io.WriteString(w, "hello ")
			io.WriteString(w, "world")
			require.NoError(t, w.Close())

			_, err = w.Write([]byte("late"))
			assert.Error(t, err)

			s, err := obj.Stream()
			require.NoError(t, err)
			require.NotNil(t, s)
			assert.False(t, s.Dict.Has("DecodeParms"))
			assert.Equal(t, Int(len(s.Data)), s.Dict["Length"])
			assert.Equal(t, tt.compress, s.Dict.Has("Filter"))

			decoded, err := s.Decode()
			require.NoError(t, err)
			assert.Equal(t, "hello world", string(decoded))
		})
	}
}

type recordingObserver struct {
	sink  bytes.Buffer
	begun []IndirectRef
	ended []IndirectRef
}

func (r *recordingObserver) BeginAppendStream(obj *IndirectObject) (io.Writer, error) {
	r.begun = append(r.begun, obj.Reference())
	return &r.sink, nil
}

func (r *recordingObserver) EndAppendStream(obj *IndirectObject) error {
	r.ended = append(r.ended, obj.Reference())
	return nil
}

// TestBeginAppendObserved tests that appended data go to the observer
func TestBeginAppendObserved(t *testing.T) {
	list := NewObjectList()
	obs := &recordingObserver{}
	list.SetObserver(obs)

	obj, err := list.CreateObject(Dict{})
	require.NoError(t, err)

	w, err := obj.BeginAppend(false)
	require.NoError(t, err)
	assert.Equal(t, []IndirectRef{{Number: 1}}, obs.begun)
	assert.Empty(t, obs.ended)

	io.WriteString(w, "direct")
	require.NoError(t, w.Close())
	assert.Equal(t, []IndirectRef{{Number: 1}}, obs.ended)
	assert.Equal(t, "direct", obs.sink.String())

	data, err := obj.StreamData()
	require.NoError(t, err)
	assert.Empty(t, data)
}

// TestWriteObject tests the written object definition
func TestWriteObject(t *testing.T) {
	enc := string(streamMarker) + string(xorBytes([]byte("abc")))
	tests := []struct {
		name    string
		value   Object
		session EncryptSession
		want    string
	}{
		{
			name:  "plain value",
			value: Array{Int(1), String("x")},
			want:  "4 0 obj\n[1 (x)]\nendobj\n",
		},
		{
			name:  "plain stream",
			value: &Stream{Dict: Dict{"Length": Int(99)}, Data: []byte("abc")},
			want:  "4 0 obj\n<</Length 3>>\nstream\nabc\nendstream\nendobj\n",
		},
		{
			name:    "encrypted string",
			value:   String("x"),
			session: &xorSession{},
			want:    "4 0 obj\n(" + string(xorBytes([]byte("x"))) + ")\nendobj\n",
		},
		{
			name:    "encrypted stream",
			value:   &Stream{Dict: Dict{}, Data: []byte("abc")},
			session: &xorSession{},
			want:    "4 0 obj\n<</Length 7>>\nstream\n" + enc + "\nendstream\nendobj\n",
		},
		{
			name:    "metadata exempt",
			value:   &Stream{Dict: Dict{"Type": Name("Metadata")}, Data: []byte("abc")},
			session: &xorSession{},
			want:    "4 0 obj\n<</Type /Metadata /Length 3>>\nstream\nabc\nendstream\nendobj\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := NewIndirectObject(IndirectRef{Number: 4}, tt.value)
			var buf bytes.Buffer
			require.NoError(t, obj.WriteObject(&buf, tt.session))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

// TestWriteObjectLeavesObject tests that writing with a session does not
// change the stored dictionary or payload
func TestWriteObjectLeavesObject(t *testing.T) {
	obj := NewIndirectObject(IndirectRef{Number: 4}, &Stream{Dict: Dict{"Length": Int(3)}, Data: []byte("abc")})
	require.NoError(t, obj.WriteObject(io.Discard, &xorSession{}))

	s, err := obj.Stream()
	require.NoError(t, err)
	assert.Equal(t, Int(3), s.Dict["Length"])
	assert.Equal(t, "abc", string(s.Data))
}
