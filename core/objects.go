package core

import (
	"io"
	"sort"
)

// MaxGeneration is the generation number of object 0, and marks a number
// that can no longer be reused.
const MaxGeneration = 65535

// DefaultMaxObjectCount is the highest object number a list accepts.
const DefaultMaxObjectCount = 8388607

// ObjectObserver is notified when an object's stream is written through
// BeginAppend. A streaming writer uses it to send stream data straight to
// its output.
type ObjectObserver interface {
	// BeginAppendStream returns the sink for obj's stream data.
	BeginAppendStream(obj *IndirectObject) (io.Writer, error)
	// EndAppendStream is called when the data are complete.
	EndAppendStream(obj *IndirectObject) error
}

// ObjectList is the set of indirect objects of a document together with
// its free and unavailable object numbers.
type ObjectList struct {
	objects     map[int]*IndirectObject
	free        map[int]int // number -> generation for reuse
	unavailable map[int]bool
	reserved    map[int]*IndirectObject
	lastNumber  int
	maxCount    int
	observer    ObjectObserver

	freeInvalidated bool
}

// NewObjectList creates an empty list
func NewObjectList() *ObjectList {
	return &ObjectList{
		objects:     make(map[int]*IndirectObject),
		free:        make(map[int]int),
		unavailable: make(map[int]bool),
		reserved:    make(map[int]*IndirectObject),
		maxCount:    DefaultMaxObjectCount,
	}
}

// SetMaxObjectCount sets the highest accepted object number
func (l *ObjectList) SetMaxObjectCount(n int) {
	if n < 1 {
		n = DefaultMaxObjectCount
	}
	l.maxCount = n
}

// MaxObjectCount returns the highest accepted object number
func (l *ObjectList) MaxObjectCount() int {
	return l.maxCount
}

// SetObserver attaches o; nil detaches the current observer.
func (l *ObjectList) SetObserver(o ObjectObserver) {
	l.observer = o
}

// Len returns the number of objects in the list
func (l *ObjectList) Len() int {
	return len(l.objects)
}

// LastObjectNumber returns the highest object number ever seen by the list,
// whether in use, free, unavailable or detached.
func (l *ObjectList) LastObjectNumber() int {
	return l.lastNumber
}

func (l *ObjectList) seen(num int) {
	if num > l.lastNumber {
		l.lastNumber = num
	}
}

func (l *ObjectList) checkNumber(num int) error {
	if num < 1 || num > l.maxCount {
		return NewError(CodeValueOutOfRange, "object number %d outside 1..%d", num, l.maxCount)
	}
	return nil
}

// AddObject adds obj, replacing any object with the same number.
func (l *ObjectList) AddObject(obj *IndirectObject) error {
	num := obj.ref.Number
	if err := l.checkNumber(num); err != nil {
		return err
	}
	if _, ok := l.reserved[num]; ok {
		return NewError(CodeInvalidObject, "object number %d is reserved", num)
	}
	delete(l.free, num)
	delete(l.unavailable, num)
	obj.list = l
	l.objects[num] = obj
	l.seen(num)
	return nil
}

// CreateObject adds a new object holding value. The lowest free number is
// reused with its stored generation; otherwise the number after
// LastObjectNumber is taken.
func (l *ObjectList) CreateObject(value Object) (*IndirectObject, error) {
	ref := IndirectRef{Number: l.lastNumber + 1}
	if nums := l.freeNumbers(); len(nums) > 0 {
		ref = IndirectRef{Number: nums[0], Generation: l.free[nums[0]]}
		l.freeInvalidated = true
	}
	if err := l.checkNumber(ref.Number); err != nil {
		return nil, err
	}
	obj := NewIndirectObject(ref, value)
	if err := l.AddObject(obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// RemoveObject removes the object and frees its number with the next
// generation, or marks it unavailable when the generation is exhausted.
func (l *ObjectList) RemoveObject(ref IndirectRef) (*IndirectObject, bool) {
	obj, ok := l.objects[ref.Number]
	if !ok {
		return nil, false
	}
	delete(l.objects, ref.Number)
	obj.list = nil
	l.AddFreeObject(IndirectRef{Number: ref.Number, Generation: obj.ref.Generation + 1})
	l.freeInvalidated = true
	return obj, true
}

// Detach removes the object without freeing its number, as done once a
// streaming writer has written it.
func (l *ObjectList) Detach(ref IndirectRef) (*IndirectObject, bool) {
	obj, ok := l.objects[ref.Number]
	if !ok {
		return nil, false
	}
	delete(l.objects, ref.Number)
	obj.list = nil
	return obj, true
}

// AddFreeObject records a free number. ref.Generation is the generation
// the number gets when reused; at MaxGeneration the number becomes
// unavailable instead.
func (l *ObjectList) AddFreeObject(ref IndirectRef) {
	if ref.Number <= 0 || l.IsReserved(ref.Number) {
		return
	}
	l.seen(ref.Number)
	if ref.Generation >= MaxGeneration {
		l.AddUnavailable(ref.Number)
		return
	}
	if _, used := l.objects[ref.Number]; used {
		return
	}
	l.free[ref.Number] = ref.Generation
}

// AddUnavailable records a number that exists but must not be reused.
func (l *ObjectList) AddUnavailable(num int) {
	if num <= 0 || l.IsReserved(num) {
		return
	}
	l.seen(num)
	delete(l.free, num)
	l.unavailable[num] = true
}

// Reserve keeps the number of an object that stays in use in the source
// file but is not held in the list, such as an object stream whose objects
// were loaded from it. A reserved number is never freed or handed out by
// CreateObject.
func (l *ObjectList) Reserve(obj *IndirectObject) {
	num := obj.ref.Number
	if num <= 0 {
		return
	}
	l.seen(num)
	delete(l.free, num)
	delete(l.unavailable, num)
	l.reserved[num] = obj
}

// IsReserved reports whether num was reserved
func (l *ObjectList) IsReserved(num int) bool {
	_, ok := l.reserved[num]
	return ok
}

// ReservedObjects returns the reserved objects ordered by number
func (l *ObjectList) ReservedObjects() []*IndirectObject {
	objs := make([]*IndirectObject, 0, len(l.reserved))
	for _, o := range l.reserved {
		objs = append(objs, o)
	}
	sort.Slice(objs, func(i, j int) bool {
		return objs[i].ref.Less(objs[j].ref)
	})
	return objs
}

func (l *ObjectList) freeNumbers() []int {
	nums := make([]int, 0, len(l.free))
	for n := range l.free {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// FreeObjects returns the free numbers in order, with their reuse
// generations.
func (l *ObjectList) FreeObjects() []IndirectRef {
	nums := l.freeNumbers()
	refs := make([]IndirectRef, len(nums))
	for i, n := range nums {
		refs[i] = IndirectRef{Number: n, Generation: l.free[n]}
	}
	return refs
}

// UnavailableObjects returns the unavailable numbers in order
func (l *ObjectList) UnavailableObjects() []int {
	nums := make([]int, 0, len(l.unavailable))
	for n := range l.unavailable {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// Objects returns the objects ordered by number
func (l *ObjectList) Objects() []*IndirectObject {
	objs := make([]*IndirectObject, 0, len(l.objects))
	for _, o := range l.objects {
		objs = append(objs, o)
	}
	sort.Slice(objs, func(i, j int) bool {
		return objs[i].ref.Less(objs[j].ref)
	})
	return objs
}

// GetObject looks an object up by number. The generation of ref is not
// compared, so stale references still resolve.
func (l *ObjectList) GetObject(ref IndirectRef) (*IndirectObject, bool) {
	obj, ok := l.objects[ref.Number]
	return obj, ok
}

// ResolveReference returns the value of the referenced object. A missing
// object resolves to null.
func (l *ObjectList) ResolveReference(ref IndirectRef) (Object, error) {
	obj, ok := l.objects[ref.Number]
	if !ok {
		return Null{}, nil
	}
	return obj.Value()
}

// FreeObjectsInvalidated reports whether an object was removed or a free
// number reused since the flag was last reset.
func (l *ObjectList) FreeObjectsInvalidated() bool {
	return l.freeInvalidated
}

// ResetFreeObjectsInvalidated clears the flag, as done after a save.
func (l *ObjectList) ResetFreeObjectsInvalidated() {
	l.freeInvalidated = false
}
