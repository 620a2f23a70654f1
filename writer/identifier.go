package writer

import (
	"crypto/md5"

	"github.com/pkg/errors"

	"github.com/tsawler/pdfio/core"
)

// identifierLocation is added to the info dictionary before hashing it
const identifierLocation = "pdfio"

// fileID is the /ID pair: the identifier of the original file and the one
// computed for this save.
type fileID struct {
	original []byte
	current  []byte
}

// first returns the first /ID element. Incremental updates keep the
// original identifier.
func (id fileID) first(incremental bool) []byte {
	if incremental && len(id.original) > 0 {
		return id.original
	}
	return id.current
}

func (id fileID) array(incremental bool) core.Array {
	return core.Array{core.HexString(id.first(incremental)), core.HexString(id.current)}
}

// fileIdentifier hashes the info dictionary, or a synthesized one when the
// trailer has none, and reads the original identifier from the trailer.
func (w *Writer) fileIdentifier() (fileID, error) {
	var id fileID
	if arr, ok := w.trailer.GetArray("ID"); ok {
		if b, ok := arr.GetBytes(0); ok && len(b) > 0 {
			id.original = append([]byte{}, b...)
		}
	}

	info, err := w.infoDict()
	if err != nil {
		return id, err
	}
	info = info.Clone()
	info["Location"] = core.String(identifierLocation)
	data, err := core.Serialize(info)
	if err != nil {
		return id, errors.Wrap(err, "serializing info dictionary")
	}
	sum := md5.Sum(data)
	id.current = sum[:]
	if id.original == nil {
		id.original = id.current
	}
	return id, nil
}

func (w *Writer) infoDict() (core.Dict, error) {
	switch info := w.trailer.Get("Info").(type) {
	case nil:
		producer := core.TextString(w.producer)
		return core.Dict{
			"CreationDate": core.String(FormatDate(w.now())),
			"Creator":      producer,
			"Producer":     producer,
		}, nil
	case core.Dict:
		return info, nil
	case core.IndirectRef:
		obj, ok := w.objects.GetObject(info)
		if !ok {
			return nil, core.NewError(core.CodeInvalidObject, "info dictionary %s not found", info)
		}
		return obj.Dict()
	default:
		return nil, core.NewError(core.CodeInvalidDataType, "trailer /Info is %s", info.Type())
	}
}
