// Package filters implements the PDF stream filters.
//
// Filters are looked up by name, with the inline image abbreviations
// accepted as well:
//
//	data, err := filters.Decode("FlateDecode", raw, filters.Params{"Predictor": 12, "Columns": 4})
//	raw, err = filters.Encode("FlateDecode", data, nil)
//
// FlateDecode, ASCIIHexDecode, ASCII85Decode and RunLengthDecode work in
// both directions. CCITTFaxDecode only decodes. DCTDecode, JPXDecode and
// JBIG2Decode pass data through unchanged.
//
// NewFlateWriter gives a streaming compressor for writers that produce
// stream data incrementally.
package filters
