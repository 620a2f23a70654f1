// Package resolver follows indirect references through an object list.
//
// PDF documents use indirect references (e.g., "5 0 R") to refer to objects
// stored elsewhere in the file. This package resolves these references,
// following chains of references and detecting circular dependencies.
//
// # Basic Usage
//
// Create a resolver over an object list and resolve references:
//
//	r := resolver.NewResolver(objects)
//	obj, err := r.Resolve(ref)
//
// # Deep Resolution
//
// For complete expansion of nested references in dictionaries and arrays:
//
//	resolved, err := r.ResolveDeep(obj)
//
// # Depth and Cycles
//
// The depth of a resolution is passed down each call rather than kept in
// the resolver, so a resolver can be reused and shared between calls. A
// reference back to an object already on the current path is a
// [core.ErrBrokenFile] error; exceeding the maximum depth is
// [core.ErrMaxRecursionReached]:
//
//	r := resolver.NewResolver(objects, resolver.WithMaxDepth(50))
package resolver
