// Package core provides the PDF object model and the low-level machinery to
// read and write it.
//
// # Object Types
//
// Every value satisfies the [Object] interface: [Null], [Bool], [Int],
// [Real], [String], [HexString], [Name], [Array], [Dict], [IndirectRef],
// [Operator] for content stream keywords, and [*Stream] for a dictionary
// with a payload.
//
// # Parsing
//
// A [Lexer] splits an [InputDevice] into tokens using a fixed byte class
// table. A [Parser] builds values by recursive descent; nesting depth is
// passed down explicitly and capped by [DefaultMaxDepth], and exceeding it
// returns [ErrMaxRecursionReached] instead of exhausting the stack.
//
// # Indirect Objects
//
// An [IndirectObject] created by [NewLazyObject] is bound to an offset in
// its source and parses itself on first access. The stream payload is read
// separately by [IndirectObject.EnsureStreamLoaded], so large streams are
// only read when needed. [IndirectObject.TryUnload] releases an unmodified
// object again.
//
// An [ObjectList] holds the objects of a document together with its free
// and unavailable object numbers. An [ObjectObserver] attached to the list
// receives stream data written through [IndirectObject.BeginAppend].
//
// # Cross-Reference Sections
//
// [XRefParser] reads cross-reference tables and streams. [ObjectStream]
// reads objects compressed into object streams.
//
// # Errors
//
// Errors carry an [ErrorCode] and match the sentinels with errors.Is:
//
//	if errors.Is(err, core.ErrInvalidStream) {
//	    // missing or bad /Length
//	}
package core
