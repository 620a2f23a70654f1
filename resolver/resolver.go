package resolver

import (
	"github.com/pkg/errors"

	"github.com/tsawler/pdfio/core"
)

// DefaultMaxDepth is the default bound on nested resolution
const DefaultMaxDepth = 100

// ObjectResolver resolves indirect references in PDF objects
// It can recursively resolve references in dictionaries and arrays
type ObjectResolver struct {
	source   core.ReferenceResolver
	maxDepth int
}

// Option configures the resolver
type Option func(*ObjectResolver)

// WithMaxDepth sets the maximum recursion depth (default: DefaultMaxDepth)
func WithMaxDepth(depth int) Option {
	return func(r *ObjectResolver) {
		r.maxDepth = depth
	}
}

// NewResolver creates a resolver reading objects from source, usually a
// *core.ObjectList.
func NewResolver(source core.ReferenceResolver, opts ...Option) *ObjectResolver {
	r := &ObjectResolver{
		source:   source,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.maxDepth < 1 {
		r.maxDepth = DefaultMaxDepth
	}
	return r
}

// Resolve follows obj while it is an indirect reference and returns the
// first direct value.
func (r *ObjectResolver) Resolve(obj core.Object) (core.Object, error) {
	return r.resolve(obj, false, 0, make(map[int]bool))
}

// ResolveDeep recursively resolves all indirect references in dictionaries and arrays
// This will fully expand the object tree
func (r *ObjectResolver) ResolveDeep(obj core.Object) (core.Object, error) {
	return r.resolve(obj, true, 0, make(map[int]bool))
}

// resolve carries the depth and the numbers on the current path. A number
// may appear in several branches but not twice on one path.
func (r *ObjectResolver) resolve(obj core.Object, deep bool, depth int, path map[int]bool) (core.Object, error) {
	if depth >= r.maxDepth {
		return nil, core.NewError(core.CodeMaxRecursionReached, "resolution deeper than %d", r.maxDepth)
	}

	switch v := obj.(type) {
	case core.IndirectRef:
		if path[v.Number] {
			return nil, core.NewError(core.CodeBrokenFile, "circular reference through object %d", v.Number)
		}
		path[v.Number] = true
		defer delete(path, v.Number)

		resolved, err := r.source.ResolveReference(v)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to resolve reference %s", v)
		}
		if _, ok := resolved.(core.IndirectRef); !ok && !deep {
			return resolved, nil
		}
		return r.resolve(resolved, deep, depth+1, path)

	case core.Dict:
		if !deep {
			return v, nil
		}
		resolved := make(core.Dict, len(v))
		for key, value := range v {
			rv, err := r.resolve(value, deep, depth+1, path)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to resolve dict key %s", key)
			}
			resolved[key] = rv
		}
		return resolved, nil

	case core.Array:
		if !deep {
			return v, nil
		}
		resolved := make(core.Array, len(v))
		for i, elem := range v {
			re, err := r.resolve(elem, deep, depth+1, path)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to resolve array element %d", i)
			}
			resolved[i] = re
		}
		return resolved, nil

	case *core.Stream:
		if !deep {
			return v, nil
		}
		dict, err := r.resolve(v.Dict, deep, depth+1, path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to resolve stream dict")
		}
		return &core.Stream{Dict: dict.(core.Dict), Data: v.Data}, nil

	default:
		return obj, nil
	}
}

// ResolveDict resolves the dictionary and all its values
func (r *ObjectResolver) ResolveDict(dict core.Dict) (core.Dict, error) {
	resolved, err := r.ResolveDeep(dict)
	if err != nil {
		return nil, err
	}
	return resolved.(core.Dict), nil
}

// ResolveArray resolves all elements in the array
func (r *ObjectResolver) ResolveArray(arr core.Array) (core.Array, error) {
	resolved, err := r.ResolveDeep(arr)
	if err != nil {
		return nil, err
	}
	return resolved.(core.Array), nil
}

// ResolveReference resolves a single indirect reference
// This is a shallow resolution - it returns the referenced object but doesn't recurse
func (r *ObjectResolver) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return r.Resolve(ref)
}

// ResolveReferenceDeep resolves a reference and all nested references
func (r *ObjectResolver) ResolveReferenceDeep(ref core.IndirectRef) (core.Object, error) {
	return r.ResolveDeep(ref)
}
