// Package contentstream tokenizes and parses PDF content streams.
//
// A content stream is a sequence of operands followed by an operator. The
// data of a page may be split over several streams, so both the [Tokenizer]
// and the [Parser] accept several byte ranges and read them as one:
//
//	parser := contentstream.NewParser(first, second)
//	ops, err := parser.Parse()
//	for _, op := range ops {
//	    fmt.Printf("Operator: %s, Operands: %v\n", op.Operator, op.Operands)
//	}
//
// # Inline Images
//
// An inline image is written as BI, its dictionary entries, ID, the raw
// image bytes and EI. The raw bytes are captured verbatim up to the first
// EI that is followed by whitespace or the end of input, so an EI inside
// the data does not end the image. The parser returns the whole image as
// one BI [Operation] with ImageDict and ImageData set.
//
// # Operands
//
// Operands are read with the core parser and can be any direct object.
// Indirect references are not allowed in content streams and are rejected
// with core.ErrInvalidDataType.
package contentstream
