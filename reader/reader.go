package reader

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"

	"github.com/tsawler/pdfio/core"
	"github.com/tsawler/pdfio/resolver"
)

// headerWindow is how far from the start the %PDF- header is searched
const headerWindow = 1024

// DefaultMaxRecursionDepth bounds the length of the /Prev chain
const DefaultMaxRecursionDepth = 1000

// Reader loads a PDF file into an object list of lazily parsed objects
type Reader struct {
	in   *core.ClosableInput
	file *os.File
	mm   mmap.MMap
	size int64

	version     core.Version
	magicOffset int64
	startXRef   int64
	xrefTable   *core.XRefTable
	trailer     core.Dict
	objects     *core.ObjectList
	encrypt     *core.IndirectObject
	excluded    map[int]bool
	reserved    map[int]bool
	xrefStreams map[int64]int // section offset -> stream object number

	maxRecursion   int
	maxObjectCount int
	maxDepth       int
	session        core.EncryptSession
	logger         *slog.Logger
}

// Option configures a Reader
type Option func(*Reader)

// WithMaxRecursionDepth bounds the number of cross-reference sections
// followed through /Prev (default: DefaultMaxRecursionDepth)
func WithMaxRecursionDepth(depth int) Option {
	return func(r *Reader) {
		r.maxRecursion = depth
	}
}

// WithMaxObjectCount sets the highest object number accepted
func WithMaxObjectCount(n int) Option {
	return func(r *Reader) {
		r.maxObjectCount = n
	}
}

// WithMaxDepth bounds the nesting of parsed values
func WithMaxDepth(depth int) Option {
	return func(r *Reader) {
		r.maxDepth = depth
	}
}

// WithSession decrypts strings and streams of an encrypted file
func WithSession(session core.EncryptSession) Option {
	return func(r *Reader) {
		r.session = session
	}
}

// WithLogger sets the logger (default: slog.Default())
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) {
		r.logger = logger
	}
}

// Open memory maps the named file and reads its structure
func Open(filename string, opts ...Option) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, "failed to get file info")
	}
	if info.Size() == 0 {
		file.Close()
		return nil, core.NewError(core.CodeBrokenFile, "%s is empty", filename)
	}

	mm, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, "failed to map file")
	}

	r := newReader(core.NewBytesInput(mm), int64(len(mm)), opts)
	r.file = file
	r.mm = mm
	if err := r.load(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// New reads the structure of the file in rs
func New(rs io.ReadSeeker, opts ...Option) (*Reader, error) {
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get size")
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	in, err := core.NewSeekerInput(rs)
	if err != nil {
		return nil, err
	}
	r := newReader(in, size, opts)
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

// FromBytes reads the structure of the file held in data
func FromBytes(data []byte, opts ...Option) (*Reader, error) {
	r := newReader(core.NewBytesInput(data), int64(len(data)), opts)
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func newReader(in core.InputDevice, size int64, opts []Option) *Reader {
	r := &Reader{
		in:             core.NewClosableInput(in),
		size:           size,
		excluded:       make(map[int]bool),
		reserved:       make(map[int]bool),
		xrefStreams:    make(map[int64]int),
		maxRecursion:   DefaultMaxRecursionDepth,
		maxObjectCount: core.DefaultMaxObjectCount,
		maxDepth:       core.DefaultMaxDepth,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.objects = core.NewObjectList()
	r.objects.SetMaxObjectCount(r.maxObjectCount)
	return r
}

// Close releases the mapping and the file. Objects not loaded yet cannot
// be read afterwards; loading them returns core.ErrSourceClosed.
func (r *Reader) Close() error {
	r.in.Close()
	var err error
	if r.mm != nil {
		err = r.mm.Unmap()
		r.mm = nil
	}
	if r.file != nil {
		if cerr := r.file.Close(); err == nil {
			err = cerr
		}
		r.file = nil
	}
	return err
}

func (r *Reader) load() error {
	if err := r.parseHeader(); err != nil {
		return errors.Wrap(err, "failed to parse header")
	}
	if err := r.loadXRef(); err != nil {
		return errors.Wrap(err, "failed to load xref")
	}
	if err := r.initSession(); err != nil {
		return err
	}
	return r.populate()
}

// parseHeader finds %PDF-M.m in the first bytes. Its position is the magic
// offset that file offsets are relative to.
func (r *Reader) parseHeader() error {
	if _, err := r.in.Seek(0, io.SeekStart); err != nil {
		return err
	}
	head := make([]byte, headerWindow)
	n, err := io.ReadFull(r.in, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return err
	}
	head = head[:n]

	idx := bytes.Index(head, []byte("%PDF-"))
	if idx < 0 || idx+8 > len(head) {
		return core.NewError(core.CodeBrokenFile, "no %%PDF- header in the first %d bytes", headerWindow)
	}
	v, err := core.ParseVersion(string(head[idx+5 : idx+8]))
	if err != nil {
		return err
	}
	r.version = v
	r.magicOffset = int64(idx)
	return nil
}

// loadXRef follows the chain of sections from startxref through /Prev,
// merging hybrid /XRefStm sections into the table that names them.
func (r *Reader) loadXRef() error {
	parser := core.NewXRefParser(r.in)
	parser.SetMaxDepth(r.maxDepth)

	start, err := parser.FindXRef()
	if err != nil {
		return err
	}
	r.startXRef = start

	var tables []*core.XRefTable
	visited := make(map[int64]bool)
	for offset, depth := start, 0; ; depth++ {
		if depth >= r.maxRecursion {
			return core.NewError(core.CodeMaxRecursionReached, "more than %d cross-reference sections", r.maxRecursion)
		}
		if visited[offset] {
			return core.NewError(core.CodeBrokenFile, "cross-reference section at %d visited twice", offset)
		}
		visited[offset] = true

		table, err := r.parseSection(parser, offset)
		if err != nil {
			return err
		}
		tables = append(tables, table)

		prev, ok := table.Trailer.GetInt("Prev")
		if !ok {
			break
		}
		offset = int64(prev)
	}

	// oldest first, so newer entries override
	for i, j := 0, len(tables)-1; i < j; i, j = i+1, j-1 {
		tables[i], tables[j] = tables[j], tables[i]
	}
	r.xrefTable = core.MergeXRefTables(tables...)
	r.trailer = tables[len(tables)-1].Trailer

	if size, ok := r.trailer.GetInt("Size"); ok && int(size) > r.maxObjectCount+1 {
		return core.NewError(core.CodeValueOutOfRange, "/Size %d exceeds %d objects", size, r.maxObjectCount)
	}
	return nil
}

func (r *Reader) parseSection(parser *core.XRefParser, offset int64) (*core.XRefTable, error) {
	table, err := parser.ParseXRef(offset + r.magicOffset)
	if err != nil {
		return nil, err
	}
	if table.Stream != nil {
		r.xrefStreams[offset] = table.Stream.Number
	}

	stm, ok := table.Trailer.GetInt("XRefStm")
	if !ok {
		return table, nil
	}
	hidden, err := parser.ParseXRef(int64(stm) + r.magicOffset)
	if err != nil {
		return nil, errors.Wrap(err, "/XRefStm section")
	}
	if hidden.Stream != nil {
		r.xrefStreams[int64(stm)] = hidden.Stream.Number
	}
	for num, entry := range hidden.Entries {
		if cur, ok := table.Entries[num]; !ok || cur.Type == core.XRefFree {
			table.Set(num, entry)
		}
	}
	return table, nil
}

func (r *Reader) initSession() error {
	ref, ok := r.trailer.GetIndirectRef("Encrypt")
	if ok {
		r.excluded[ref.Number] = true
		r.reserved[ref.Number] = true
		if e, ok := r.xrefTable.Get(ref.Number); ok && e.Type == core.XRefInUse {
			r.encrypt = core.NewLazyObject(ref, r.in, e.Offset+r.magicOffset, r.loadConfig(nil))
		}
	}
	if r.session == nil {
		if r.trailer.Has("Encrypt") {
			r.logger.Warn("file is encrypted but no session was given, strings and streams stay encrypted")
		}
		return nil
	}

	var id []byte
	if arr, ok := r.trailer.GetArray("ID"); ok {
		id, _ = arr.GetBytes(0)
	}
	return errors.Wrap(r.session.EnsureInitialized(id), "initializing encryption")
}

func (r *Reader) loadConfig(session core.EncryptSession) core.LoadConfig {
	return core.LoadConfig{
		MaxDepth: r.maxDepth,
		Session:  session,
		Resolver: r.objects,
		Logger:   r.logger,
	}
}

// populate adds lazy objects for in-use entries, loads compressed objects
// from their object streams and registers free numbers. Cross-reference
// streams, object streams and the /Encrypt dictionary are not kept. The
// numbers of cross-reference streams become free; object streams and the
// /Encrypt dictionary stay reserved, since unchanged objects and the
// trailer of an incremental update still point at them.
func (r *Reader) populate() error {
	cfg := r.loadConfig(r.session)

	nums := make([]int, 0, len(r.xrefTable.Entries))
	for num := range r.xrefTable.Entries {
		nums = append(nums, num)
	}
	sort.Ints(nums)

	var compressed []int
	for _, num := range nums {
		e := r.xrefTable.Entries[num]
		if num == 0 {
			continue
		}
		ref := core.IndirectRef{Number: num, Generation: e.Generation}
		switch e.Type {
		case core.XRefInUse:
			// a later update may reuse the number of an older xref stream
			if n, ok := r.xrefStreams[e.Offset]; ok && n == num {
				r.excluded[num] = true
			}
			if r.excluded[num] {
				continue
			}
			if err := r.objects.AddObject(core.NewLazyObject(ref, r.in, e.Offset+r.magicOffset, cfg)); err != nil {
				return err
			}
		case core.XRefCompressed:
			compressed = append(compressed, num)
		case core.XRefFree:
			r.objects.AddFreeObject(ref)
		}
	}

	containers, err := r.loadCompressed(compressed)
	if err != nil {
		return err
	}
	for num := range containers {
		r.excluded[num] = true
		r.reserved[num] = true
	}
	for num := range r.excluded {
		r.freeExcluded(num)
	}
	return nil
}

// loadCompressed loads the objects stored in object streams and returns
// the numbers of the containers.
func (r *Reader) loadCompressed(nums []int) (map[int]bool, error) {
	streams := make(map[int]*core.ObjectStream)
	for _, num := range nums {
		e := r.xrefTable.Entries[num]
		stm, ok := streams[e.ObjStm]
		if !ok {
			var err error
			stm, err = r.objectStream(e.ObjStm)
			if err != nil {
				return nil, errors.Wrapf(err, "object stream %d", e.ObjStm)
			}
			streams[e.ObjStm] = stm
		}

		value, got, err := stm.GetObjectByIndex(e.Index)
		if err == nil && got != num {
			value, _, err = stm.GetObjectByNumber(num)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "compressed object %d", num)
		}
		obj := core.NewIndirectObject(core.IndirectRef{Number: num}, value)
		obj.SetDirty(false)
		if err := r.objects.AddObject(obj); err != nil {
			return nil, err
		}
	}

	containers := make(map[int]bool, len(streams))
	for num := range streams {
		containers[num] = true
	}
	return containers, nil
}

func (r *Reader) objectStream(num int) (*core.ObjectStream, error) {
	container, ok := r.objects.GetObject(core.IndirectRef{Number: num})
	if !ok {
		return nil, core.NewError(core.CodeBrokenFile, "object stream %d is not in use", num)
	}
	stream, err := container.Stream()
	if err != nil {
		return nil, err
	}
	stm, err := core.NewObjectStream(stream)
	if err != nil {
		return nil, err
	}
	stm.SetMaxDepth(r.maxDepth)
	return stm, nil
}

// freeExcluded drops an object the reader does not hand out and either
// reserves its number or frees it for reuse.
func (r *Reader) freeExcluded(num int) {
	ref := core.IndirectRef{Number: num}
	obj, ok := r.objects.Detach(ref)
	if !ok && r.encrypt != nil && r.encrypt.Reference().Number == num {
		obj, ok = r.encrypt, true
	}
	if ok && r.reserved[num] {
		r.objects.Reserve(obj)
		return
	}

	if ok {
		ref.Generation = obj.Reference().Generation
	} else if e, found := r.xrefTable.Get(num); found {
		ref.Generation = e.Generation
	}
	ref.Generation++
	r.objects.AddFreeObject(ref)
}

// Objects returns the object list
func (r *Reader) Objects() *core.ObjectList {
	return r.objects
}

// Version returns the version from the header
func (r *Reader) Version() core.Version {
	return r.version
}

// MagicOffset returns the position of the header; offsets in the file are
// relative to it.
func (r *Reader) MagicOffset() int64 {
	return r.magicOffset
}

// StartXRef returns the offset of the newest cross-reference section, the
// /Prev value of an incremental update.
func (r *Reader) StartXRef() int64 {
	return r.startXRef
}

// Trailer returns the trailer dictionary of the newest section
func (r *Reader) Trailer() core.Dict {
	return r.trailer
}

// XRefTable returns the merged cross-reference table
// Exposed for debugging/inspection
func (r *Reader) XRefTable() *core.XRefTable {
	return r.xrefTable
}

// FileSize returns the size of the PDF file in bytes
func (r *Reader) FileSize() int64 {
	return r.size
}

// NumObjects returns the /Size of the newest trailer
func (r *Reader) NumObjects() int {
	size, _ := r.trailer.GetInt("Size")
	return int(size)
}

// Encrypt returns the /Encrypt dictionary in clear text, or nil when the
// file is not encrypted.
func (r *Reader) Encrypt() (core.Dict, error) {
	switch v := r.trailer.Get("Encrypt").(type) {
	case nil:
		return nil, nil
	case core.Dict:
		return v, nil
	}
	if r.encrypt == nil {
		return nil, core.NewError(core.CodeInvalidObject, "/Encrypt object not found")
	}
	return r.encrypt.Dict()
}

// GetObject returns the value of an object by number. A missing object is
// null.
func (r *Reader) GetObject(objNum int) (core.Object, error) {
	return r.objects.ResolveReference(core.IndirectRef{Number: objNum})
}

// ResolveReference resolves an indirect reference
func (r *Reader) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return r.objects.ResolveReference(ref)
}

// Resolve resolves an object if it's an indirect reference, otherwise returns it as-is
func (r *Reader) Resolve(obj core.Object) (core.Object, error) {
	return resolver.NewResolver(r.objects, resolver.WithMaxDepth(r.maxDepth)).Resolve(obj)
}

// ResolveDeep recursively resolves all indirect references in an object
func (r *Reader) ResolveDeep(obj core.Object) (core.Object, error) {
	return resolver.NewResolver(r.objects, resolver.WithMaxDepth(r.maxDepth)).ResolveDeep(obj)
}

// GetCatalog returns the document catalog (root object)
func (r *Reader) GetCatalog() (core.Dict, error) {
	ref, ok := r.trailer.GetIndirectRef("Root")
	if !ok {
		return nil, core.NewError(core.CodeInvalidDataType, "trailer has no /Root reference")
	}
	obj, err := r.ResolveReference(ref)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve catalog")
	}
	catalog, ok := obj.(core.Dict)
	if !ok {
		return nil, core.NewError(core.CodeInvalidDataType, "catalog is %s, not a dictionary", obj.Type())
	}
	return catalog, nil
}

// GetInfo returns the document info dictionary, or nil when there is none
func (r *Reader) GetInfo() (core.Dict, error) {
	obj, err := r.Resolve(r.trailer.Get("Info"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve info")
	}
	switch info := obj.(type) {
	case nil, core.Null:
		return nil, nil
	case core.Dict:
		return info, nil
	default:
		return nil, core.NewError(core.CodeInvalidDataType, "info is %s, not a dictionary", obj.Type())
	}
}
