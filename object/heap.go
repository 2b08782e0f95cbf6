package object

// Heap owns the intrusive all_objects list and the allocation counters
// that the Memory/Leak builtins and the CLI's --mem-summary report
// read. Each VM instance owns exactly one Heap (spec.md's Design Notes:
// "attach these to the VM instance so that multiple VMs can coexist").
type Heap struct {
	head           Object
	count          int
	nextID         uint64
	bytesAllocated int64
	peakBytes      int64
}

// NewHeap returns an empty heap.
func NewHeap() *Heap {
	return &Heap{}
}

// Track links o onto the head of all_objects and stamps it with a
// unique identity, satisfying invariant 1 (every live object appears
// exactly once).
func (h *Heap) Track(o Object, size int64) {
	hdr := o.header()
	h.nextID++
	hdr.id = h.nextID
	hdr.next = h.head
	h.head = o
	h.count++
	h.bytesAllocated += size
	if h.bytesAllocated > h.peakBytes {
		h.peakBytes = h.bytesAllocated
	}
}

// Head returns the current head of all_objects, used by the VM to
// snapshot scope_alloc_markers[depth] on ENTER_SCOPE.
func (h *Heap) Head() Object { return h.head }

// Count returns the number of currently-tracked live objects.
func (h *Heap) Count() int { return h.count }

// BytesAllocated returns the VM's running allocation counter, backing
// the getVmMemory builtin.
func (h *Heap) BytesAllocated() int64 { return h.bytesAllocated }

// PeakBytes returns the high-water allocation mark, backing the
// getVmPeakMemory builtin.
func (h *Heap) PeakBytes() int64 { return h.peakBytes }

// Unlink removes target from all_objects. Because the list is singly
// linked (matching the original source's cost profile per DESIGN NOTES),
// unlink is O(n): walk from head until the predecessor of target is
// found. size is subtracted from the running allocation counter.
func (h *Heap) Unlink(target Object, size int64) {
	if h.head == target {
		h.head = Next(target)
		SetNext(target, nil)
		h.count--
		h.bytesAllocated -= size
		return
	}
	prev := h.head
	for prev != nil {
		next := Next(prev)
		if next == target {
			SetNext(prev, Next(target))
			SetNext(target, nil)
			h.count--
			h.bytesAllocated -= size
			return
		}
		prev = next
	}
}

// WalkToMarker calls visit for every object from the current head down
// to (but not including) marker, in list order. Used by the scope
// reaper to scan only the objects created since the scope was entered.
func (h *Heap) WalkToMarker(marker Object, visit func(Object) bool) {
	cur := h.head
	for cur != nil && cur != marker {
		next := Next(cur)
		if !visit(cur) {
			return
		}
		cur = next
	}
}

// TeardownAll releases every remaining tracked object unconditionally,
// implementing the bulk-teardown release path (lifecycle rule c). It
// returns the number of objects released.
func (h *Heap) TeardownAll() int {
	released := 0
	cur := h.head
	for cur != nil {
		next := Next(cur)
		SetNext(cur, nil)
		released++
		cur = next
	}
	h.head = nil
	h.count = 0
	h.bytesAllocated = 0
	return released
}

// identityOf returns the stable per-object id stamped by Track, used
// for pointer-identity hashing in place of unsafe address arithmetic.
func identityOf(o Object) uint64 {
	if o == nil {
		return 0
	}
	return o.header().id
}
