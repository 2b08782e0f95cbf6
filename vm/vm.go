// Package vm implements the Tantrums stack machine: a flat operand
// stack shared across call frames, a globals table, a per-VM object
// heap, and the scope reaper and exception-handler machinery spec.md
// §4.D describes. Grounded on the teacher's vm/vm.go dispatch-loop
// shape (a big switch over opcodes, one frame struct per call),
// generalized from Risor's upvalue-carrying closures to Tantrums' flat
// first-class functions and extended with the heap lifecycle Risor
// does not need.
package vm

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/tantrums-lang/tantrums/bytecode"
	"github.com/tantrums-lang/tantrums/internal/report"
	"github.com/tantrums-lang/tantrums/object"
	"github.com/tantrums-lang/tantrums/op"
)

const maxFrames = 256

// VM executes a compiled Tantrums program. One VM owns exactly one
// Heap, so multiple VMs (e.g. in a test binary running many programs
// concurrently) never share allocation state.
type VM struct {
	stack     []object.Value
	frames    []*frame
	globals   map[string]object.Value
	heap      *object.Heap
	logger    zerolog.Logger
	Trace     bool
	reclaimed []report.Record
}

// New constructs a VM whose globals table starts as globals (already
// populated with any natives the caller installed — package vm does
// not import package builtins, to avoid a cycle through NativeFunc's
// ctx parameter).
func New(globals map[string]object.Value, logger zerolog.Logger) *VM {
	if globals == nil {
		globals = map[string]object.Value{}
	}
	return &VM{globals: globals, heap: object.NewHeap(), logger: logger}
}

// Heap exposes the VM's object heap, read by the memory builtins and
// the CLI's --mem-summary report.
func (vm *VM) Heap() *object.Heap { return vm.heap }

// AutoFreedRecords returns one record per allocation the scope reaper
// has reclaimed over the VM's lifetime, for the CLI's --mem-summary
// (line, function, type) aggregation.
func (vm *VM) AutoFreedRecords() []report.Record { return vm.reclaimed }

// Global reads a global by name. Used internally by Run to fetch `main`
// after the top-level script returns, and exposed for callers that want
// to inspect a function's other globals after a run.
func (vm *VM) Global(name string) (object.Value, bool) {
	v, ok := vm.globals[name]
	return v, ok
}

func (vm *VM) push(v object.Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() object.Value {
	n := len(vm.stack)
	v := vm.stack[n-1]
	vm.stack = vm.stack[:n-1]
	return v
}

func (vm *VM) peek(fromTop int) object.Value {
	return vm.stack[len(vm.stack)-1-fromTop]
}

// Run executes fn (the top-level script FunctionObj the compiler
// returns) with no arguments, then — per spec.md §2 — looks up `main`
// in globals once the top-level frame returns and invokes it if
// present, returning main's result instead of the top-level script's
// own return value (the value of its final expression statement, or
// null).
func (vm *VM) Run(fn *object.FunctionObj) (object.Value, error) {
	topResult, err := vm.runTopLevel(fn)
	if err != nil {
		return object.Null, err
	}
	main, ok := vm.Global("main")
	if !ok {
		return topResult, nil
	}
	mainFn, ok := main.Obj.(*object.FunctionObj)
	if !ok {
		return object.Null, &RuntimeError{Message: fmt.Sprintf("global %q is not callable", "main")}
	}
	if mainFn.Arity() != 0 {
		return object.Null, &RuntimeError{Message: fmt.Sprintf("function %q expects %d argument(s), got 0", mainFn.Name(), mainFn.Arity())}
	}
	chunk, ok := mainFn.Chunk().(*bytecode.Chunk)
	if !ok {
		return object.Null, fmt.Errorf("internal: function %q has no compiled chunk", mainFn.Name())
	}
	calleePos := len(vm.stack)
	vm.push(object.FromObject(mainFn))
	for len(vm.stack) < calleePos+chunk.LocalCount {
		vm.push(object.Null)
	}
	vm.frames = append(vm.frames, &frame{fn: mainFn, chunk: chunk, base: calleePos})
	return vm.run()
}

func (vm *VM) runTopLevel(fn *object.FunctionObj) (object.Value, error) {
	chunk, ok := fn.Chunk().(*bytecode.Chunk)
	if !ok {
		return object.Null, fmt.Errorf("internal: function %q has no compiled chunk", fn.Name())
	}
	vm.push(object.FromObject(fn))
	if err := vm.padLocals(chunk); err != nil {
		return object.Null, err
	}
	vm.frames = append(vm.frames, &frame{fn: fn, chunk: chunk, base: 0})
	return vm.run()
}

func (vm *VM) padLocals(chunk *bytecode.Chunk) error {
	for len(vm.stack) < chunk.LocalCount {
		vm.push(object.Null)
	}
	return nil
}

func (vm *VM) currentFrame() *frame { return vm.frames[len(vm.frames)-1] }

// run is the main dispatch loop. It returns when the outermost frame
// executes RETURN (exhausting vm.frames) or when an error propagates
// out uncaught.
func (vm *VM) run() (object.Value, error) {
	for len(vm.frames) > 0 {
		fr := vm.currentFrame()
		if fr.ip >= len(fr.chunk.Code) {
			return object.Null, &RuntimeError{Message: fmt.Sprintf("fell off the end of %q without RETURN", fr.chunk.Name)}
		}
		code := op.Code(fr.chunk.Code[fr.ip])
		line := fr.chunk.LineAt(fr.ip)
		fr.ip++

		if vm.Trace {
			vm.logger.Trace().Str("op", code.String()).Int("ip", fr.ip-1).Int("line", line).Msg("exec")
		}

		switch code {
		case op.Nop:

		case op.Constant:
			idx := fr.chunk.ReadUint16(fr.ip)
			fr.ip += 2
			vm.push(fr.chunk.Constants[idx])

		case op.Null:
			vm.push(object.Null)
		case op.True:
			vm.push(object.Bool(true))
		case op.False:
			vm.push(object.Bool(false))

		case op.Add, op.Sub, op.Mul, op.Div, op.Mod:
			if err := vm.execArith(code, line); err != nil {
				return object.Null, err
			}
		case op.Negate:
			v := vm.pop()
			if !v.IsNumber() {
				if err := vm.runtimeError(line, "cannot negate a %s", v.TypeName()); err != nil {
					return object.Null, err
				}
				continue
			}
			if v.Tag == object.IntType {
				vm.push(object.Int(-v.AsInt()))
			} else {
				vm.push(object.Float(-v.AsFloat()))
			}

		case op.Equal:
			b, a := vm.pop(), vm.pop()
			vm.push(object.Bool(object.Equal(a, b)))
		case op.NotEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(object.Bool(!object.Equal(a, b)))
		case op.Less, op.Greater, op.LessEqual, op.GreaterEqual:
			if err := vm.execCompare(code, line); err != nil {
				return object.Null, err
			}
		case op.Not:
			v := vm.pop()
			if v.Tag != object.BoolType {
				if err := vm.runtimeError(line, "'!' requires a bool, got %s", v.TypeName()); err != nil {
					return object.Null, err
				}
				continue
			}
			vm.push(object.Bool(!v.AsBool()))

		case op.Pop:
			vm.pop()

		case op.GetLocal:
			slot := int(fr.chunk.Code[fr.ip])
			fr.ip++
			vm.push(vm.stack[fr.base+slot])
		case op.SetLocal:
			slot := int(fr.chunk.Code[fr.ip])
			fr.ip++
			v := vm.pop()
			if len(fr.scopeBases) > 0 && slot < fr.scopeBases[len(fr.scopeBases)-1] {
				// Storing into a local declared in an enclosing scope:
				// the static escape walker can't see across the block
				// boundary, so the runtime bit is this value's only
				// protection from the reaper.
				object.MarkEscaped(v.Obj)
			}
			vm.stack[fr.base+slot] = v
			vm.push(v)

		case op.GetGlobal:
			idx := fr.chunk.ReadUint16(fr.ip)
			fr.ip += 2
			name := constString(fr.chunk, idx)
			v, ok := vm.globals[name]
			if !ok {
				if err := vm.runtimeError(line, "undefined global %q", name); err != nil {
					return object.Null, err
				}
				continue
			}
			vm.push(v)
		case op.SetGlobal:
			idx := fr.chunk.ReadUint16(fr.ip)
			fr.ip += 2
			name := constString(fr.chunk, idx)
			v := vm.pop()
			object.MarkEscaped(v.Obj)
			vm.globals[name] = v
			vm.push(v)
		case op.DefineGlobal:
			idx := fr.chunk.ReadUint16(fr.ip)
			fr.ip += 2
			name := constString(fr.chunk, idx)
			v := vm.pop()
			object.MarkEscaped(v.Obj)
			vm.globals[name] = v

		case op.Jump:
			target := fr.chunk.ReadUint16(fr.ip)
			fr.ip = int(target)
		case op.JumpIfFalse:
			target := fr.chunk.ReadUint16(fr.ip)
			fr.ip += 2
			cond := vm.pop()
			if cond.Tag != object.BoolType {
				if err := vm.runtimeError(line, "condition must be bool, got %s", cond.TypeName()); err != nil {
					return object.Null, err
				}
				continue
			}
			if !cond.AsBool() {
				fr.ip = int(target)
			}
		case op.Loop:
			target := fr.chunk.ReadUint16(fr.ip)
			fr.ip = int(target)

		case op.Call:
			argc := int(fr.chunk.Code[fr.ip])
			fr.ip++
			if err := vm.execCall(argc, line); err != nil {
				return object.Null, err
			}
		case op.Return:
			result := vm.pop()
			object.MarkEscaped(result.Obj)
			vm.stack = vm.stack[:fr.base]
			vm.frames = vm.frames[:len(vm.frames)-1]
			vm.push(result)

		case op.ListNew:
			n := int(fr.chunk.ReadUint16(fr.ip))
			fr.ip += 2
			items := make([]object.Value, n)
			for i := n - 1; i >= 0; i-- {
				items[i] = vm.pop()
			}
			l := object.NewList(items)
			vm.track(l, fr)
			vm.push(object.FromObject(l))
		case op.MapNew:
			n := int(fr.chunk.ReadUint16(fr.ip))
			fr.ip += 2
			pairs := make([][2]object.Value, n)
			for i := n - 1; i >= 0; i-- {
				val := vm.pop()
				key := vm.pop()
				pairs[i] = [2]object.Value{key, val}
			}
			m := object.NewMap()
			for _, p := range pairs {
				m.Set(p[0], p[1])
			}
			vm.track(m, fr)
			vm.push(object.FromObject(m))
		case op.IndexGet:
			idx := vm.pop()
			recv := vm.pop()
			v, err := vm.indexGet(recv, idx, line)
			if err != nil {
				return object.Null, err
			}
			vm.push(v)
		case op.IndexSet:
			val := vm.pop()
			idx := vm.pop()
			recv := vm.pop()
			object.MarkEscaped(val.Obj)
			if err := vm.indexSet(recv, idx, val, line); err != nil {
				return object.Null, err
			}
			vm.push(val)
		case op.Length:
			v := vm.pop()
			n, err := vm.lengthOf(v, line)
			if err != nil {
				return object.Null, err
			}
			vm.push(object.Int(n))

		case op.Alloc:
			nameIdx := fr.chunk.ReadUint16(fr.ip)
			fr.ip += 2
			autoManage := fr.chunk.Code[fr.ip] != 0
			fr.ip++
			typeName := constString(fr.chunk, nameIdx)
			init := vm.pop()
			ptr := object.NewPointer(init, 8, line, typeName, fr.chunk.Name)
			vm.trackAlloc(ptr, fr, autoManage)
			vm.push(object.FromObject(ptr))
		case op.Free:
			v := vm.pop()
			ptr, ok := v.Obj.(*object.PointerObj)
			if !ok {
				if err := vm.runtimeError(line, "free requires a pointer, got %s", v.TypeName()); err != nil {
					return object.Null, err
				}
				continue
			}
			if !ptr.IsValid() {
				if err := vm.runtimeError(line, "double free"); err != nil {
					return object.Null, err
				}
				continue
			}
			ptr.Free()
			vm.heap.Unlink(ptr, 0)
		case op.PtrRef:
			slot := int(fr.chunk.Code[fr.ip])
			fr.ip++
			init := vm.stack[fr.base+slot]
			ptr := object.NewPointer(init, 8, line, "unknown", fr.chunk.Name)
			vm.track(ptr, fr)
			vm.push(object.FromObject(ptr))
		case op.PtrDeref:
			v := vm.pop()
			ptr, ok := v.Obj.(*object.PointerObj)
			if !ok {
				if err := vm.runtimeError(line, "'*' requires a pointer, got %s", v.TypeName()); err != nil {
					return object.Null, err
				}
				continue
			}
			if !ptr.IsValid() {
				if err := vm.runtimeError(line, "dereference of a freed pointer"); err != nil {
					return object.Null, err
				}
				continue
			}
			vm.push(ptr.Deref())
		case op.PtrSet:
			val := vm.pop()
			target := vm.pop()
			ptr, ok := target.Obj.(*object.PointerObj)
			if !ok {
				if err := vm.runtimeError(line, "'*...=' requires a pointer, got %s", target.TypeName()); err != nil {
					return object.Null, err
				}
				continue
			}
			if !ptr.IsValid() {
				if err := vm.runtimeError(line, "write through a freed pointer"); err != nil {
					return object.Null, err
				}
				continue
			}
			ptr.Store(val)
			vm.push(val)

		case op.Cast:
			tag := op.CastTag(fr.chunk.Code[fr.ip])
			fr.ip++
			v := vm.pop()
			result, err := castValue(tag, v)
			if err != nil {
				if verr := vm.runtimeError(line, "%s", err.Error()); verr != nil {
					return object.Null, verr
				}
				vm.push(object.Null)
				continue
			}
			vm.push(result)

		case op.Throw:
			val := vm.pop()
			if err := vm.throwValue(val); err != nil {
				return object.Null, err
			}
		case op.TryBegin:
			target := fr.chunk.ReadUint16(fr.ip)
			fr.ip += 2
			fr.handlers = append(fr.handlers, tryHandler{
				catchIP: int(target), depth: fr.depth, stackFloor: len(vm.stack),
			})
		case op.TryEnd:
			if len(fr.handlers) > 0 {
				fr.handlers = fr.handlers[:len(fr.handlers)-1]
			}

		case op.EnterScope:
			base := int(fr.chunk.Code[fr.ip])
			fr.ip++
			fr.markers = append(fr.markers, vm.heap.Head())
			fr.scopeBases = append(fr.scopeBases, base)
			fr.depth++
		case op.ExitScope:
			newDepth := fr.depth - 1
			marker := fr.markers[len(fr.markers)-1]
			fr.markers = fr.markers[:len(fr.markers)-1]
			fr.scopeBases = fr.scopeBases[:len(fr.scopeBases)-1]
			vm.reapScope(marker, newDepth)
			fr.depth = newDepth

		case op.ForInStep:
			iterSlot := int(fr.chunk.Code[fr.ip])
			lenSlot := int(fr.chunk.Code[fr.ip+1])
			counterSlot := int(fr.chunk.Code[fr.ip+2])
			fr.ip += 3
			counter := vm.stack[fr.base+counterSlot].AsInt()
			length := vm.stack[fr.base+lenSlot].AsInt()
			if counter >= length {
				vm.push(object.Bool(false))
				continue
			}
			iterable := vm.stack[fr.base+iterSlot]
			v, err := vm.nthElement(iterable, counter, line)
			if err != nil {
				return object.Null, err
			}
			vm.push(v)
			vm.push(object.Bool(true))

		case op.Halt:
			return vm.pop(), nil

		default:
			return object.Null, &RuntimeError{Message: fmt.Sprintf("unknown opcode %d", code), Line: line}
		}
	}
	if len(vm.stack) == 0 {
		return object.Null, nil
	}
	return vm.pop(), nil
}

func constString(chunk *bytecode.Chunk, idx uint16) string {
	s, _ := chunk.Constants[idx].Obj.(*object.StringObj)
	if s == nil {
		return ""
	}
	return s.Value()
}

// track stamps o with the current frame's scope depth, opts it into the
// scope reaper, and registers it with the heap so the reaper and bulk
// teardown can find it. LIST_NEW, MAP_NEW, PTR_REF, list concatenation
// and string concatenation's clone path funnel through here; ALLOC uses
// trackAlloc.
func (vm *VM) track(o object.Object, fr *frame) {
	object.SetScopeDepth(o, fr.depth)
	object.SetAutoManage(o, true)
	vm.heap.Track(o, 0)
}

// trackAlloc is ALLOC's variant of track: it honors the compiler's
// per-allocation auto-manage decision (the escape-analysis disposition
// computed for a directly-assigned `let p = alloc T(...)`) instead of
// forcing auto-manage on unconditionally.
func (vm *VM) trackAlloc(o object.Object, fr *frame, autoManage bool) {
	object.SetScopeDepth(o, fr.depth)
	object.SetAutoManage(o, autoManage)
	vm.heap.Track(o, 0)
}

func (vm *VM) reapScope(marker object.Object, newDepth int) {
	var toFree []object.Object
	vm.heap.WalkToMarker(marker, func(o object.Object) bool {
		if object.ReclaimableByReaper(o, newDepth) {
			toFree = append(toFree, o)
		}
		return true
	})
	for _, o := range toFree {
		if ptr, ok := o.(*object.PointerObj); ok {
			vm.reclaimed = append(vm.reclaimed, report.Record{
				Line: ptr.AllocLine(), Function: ptr.AllocFunc(), Type: ptr.AllocType() + "*", Bytes: int64(ptr.AllocSize()),
			})
			ptr.Free()
		} else {
			vm.reclaimed = append(vm.reclaimed, report.Record{Type: o.Type().String()})
		}
		vm.heap.Unlink(o, 0)
	}
}

func (vm *VM) runtimeError(line int, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	val := object.FromObject(object.NewString(msg))
	return vm.throwValue(val)
}

// throwValue implements THROW's propagation: search outward from the
// innermost active frame for a handler; unwind frames with none until
// one is found or the stack is exhausted, in which case the exception
// is fatal. Returns nil iff the exception was caught (execution resumes
// at the handler's catch IP).
func (vm *VM) throwValue(val object.Value) error {
	for len(vm.frames) > 0 {
		fr := vm.currentFrame()
		if len(fr.handlers) > 0 {
			h := fr.handlers[len(fr.handlers)-1]
			fr.handlers = fr.handlers[:len(fr.handlers)-1]
			vm.stack = vm.stack[:h.stackFloor]
			fr.depth = h.depth
			fr.ip = h.catchIP
			vm.push(val)
			return nil
		}
		vm.frames = vm.frames[:len(vm.frames)-1]
		if len(vm.stack) > fr.base {
			vm.stack = vm.stack[:fr.base]
		}
	}
	return &RuntimeError{Message: "uncaught exception: " + val.Inspect()}
}

func (vm *VM) execCall(argc int, line int) error {
	calleePos := len(vm.stack) - 1 - argc
	for _, v := range vm.stack[calleePos+1:] {
		switch v.Tag {
		case object.PointerType, object.ListType, object.MapType:
			object.MarkEscaped(v.Obj)
		}
	}
	callee := vm.stack[calleePos]
	switch fnObj := callee.Obj.(type) {
	case *object.NativeObj:
		args := make([]object.Value, argc)
		copy(args, vm.stack[calleePos+1:])
		vm.stack = vm.stack[:calleePos]
		result, err := fnObj.Call(vm, args)
		if err != nil {
			if verr := vm.runtimeError(line, "%s", err.Error()); verr != nil {
				return verr
			}
			vm.push(object.Null)
			return nil
		}
		vm.push(result)
		return nil
	case *object.FunctionObj:
		if fnObj.Arity() != argc {
			return vm.runtimeError(line, "function %q expects %d argument(s), got %d", fnObj.Name(), fnObj.Arity(), argc)
		}
		chunk, ok := fnObj.Chunk().(*bytecode.Chunk)
		if !ok {
			return &RuntimeError{Message: fmt.Sprintf("function %q has no compiled chunk", fnObj.Name()), Line: line}
		}
		if len(vm.frames) >= maxFrames {
			return vm.runtimeError(line, "stack overflow calling %q", fnObj.Name())
		}
		for len(vm.stack) < calleePos+chunk.LocalCount {
			vm.push(object.Null)
		}
		vm.frames = append(vm.frames, &frame{fn: fnObj, chunk: chunk, base: calleePos})
		return nil
	default:
		return vm.runtimeError(line, "value of type %s is not callable", callee.TypeName())
	}
}

func (vm *VM) execArith(code op.Code, line int) error {
	b := vm.pop()
	a := vm.pop()

	if code == op.Add {
		if as, aok := a.Obj.(*object.StringObj); aok {
			return vm.concatString(as, a, b, line)
		}
		if bs, bok := b.Obj.(*object.StringObj); bok {
			return vm.concatString(bs, a, b, line)
		}
		al, aok := a.Obj.(*object.ListObj)
		bl, bok := b.Obj.(*object.ListObj)
		if ar, ok := a.Obj.(*object.RangeObj); ok {
			al, aok = ar.ToList(), true
		}
		if br, ok := b.Obj.(*object.RangeObj); ok {
			bl, bok = br.ToList(), true
		}
		if aok && bok {
			combined := al.Concat(bl)
			vm.track(combined, vm.currentFrame())
			vm.push(object.FromObject(combined))
			return nil
		}
	}

	if !a.IsNumber() || !b.IsNumber() {
		return vm.runtimeError(line, "operator requires numeric operands, got %s and %s", a.TypeName(), b.TypeName())
	}
	if a.Tag == object.IntType && b.Tag == object.IntType {
		ai, bi := a.AsInt(), b.AsInt()
		switch code {
		case op.Add:
			vm.push(object.Int(ai + bi))
		case op.Sub:
			vm.push(object.Int(ai - bi))
		case op.Mul:
			vm.push(object.Int(ai * bi))
		case op.Div:
			if bi == 0 {
				return vm.runtimeError(line, "division by zero")
			}
			vm.push(object.Int(ai / bi))
		case op.Mod:
			if bi == 0 {
				return vm.runtimeError(line, "modulo by zero")
			}
			vm.push(object.Int(ai % bi))
		}
		return nil
	}
	af, bf := a.AsFloat64(), b.AsFloat64()
	switch code {
	case op.Add:
		vm.push(object.Float(af + bf))
	case op.Sub:
		vm.push(object.Float(af - bf))
	case op.Mul:
		vm.push(object.Float(af * bf))
	case op.Div:
		if bf == 0 {
			return vm.runtimeError(line, "division by zero")
		}
		vm.push(object.Float(af / bf))
	case op.Mod:
		if bf == 0 {
			return vm.runtimeError(line, "modulo by zero")
		}
		vm.push(object.Float(math.Mod(af, bf)))
	}
	return nil
}

// concatString implements ADD's string auto-convert rule: whichever
// side already holds a StringObj anchors the result; the other side is
// stringified via Inspect. When the anchoring string is mutable and
// exclusively owned (Refcount == 1), it is extended in place rather
// than cloned, per spec invariant 3.
func (vm *VM) concatString(anchor *object.StringObj, a, b object.Value, line int) error {
	var other object.Value
	if a.Obj == anchor {
		other = b
	} else {
		other = a
	}
	extra := object.Stringify(other)
	if a.Obj == anchor && anchor.IsMutable() && object.Refcount(anchor) == 1 {
		anchor.AppendInPlace(extra)
		vm.push(object.FromObject(anchor))
		return nil
	}
	var base, suffix string
	if a.Obj == anchor {
		base, suffix = anchor.Value(), extra
	} else {
		base, suffix = extra, anchor.Value()
	}
	clone := object.NewMutableString(base, len(base)+len(suffix))
	clone.AppendInPlace(suffix)
	vm.track(clone, vm.currentFrame())
	vm.push(object.FromObject(clone))
	return nil
}

func (vm *VM) execCompare(code op.Code, line int) error {
	b := vm.pop()
	a := vm.pop()
	if !a.IsNumber() || !b.IsNumber() {
		return vm.runtimeError(line, "comparison requires numeric operands, got %s and %s", a.TypeName(), b.TypeName())
	}
	af, bf := a.AsFloat64(), b.AsFloat64()
	var result bool
	switch code {
	case op.Less:
		result = af < bf
	case op.Greater:
		result = af > bf
	case op.LessEqual:
		result = af <= bf
	case op.GreaterEqual:
		result = af >= bf
	}
	vm.push(object.Bool(result))
	return nil
}

func (vm *VM) indexGet(recv, idx object.Value, line int) (object.Value, error) {
	switch o := recv.Obj.(type) {
	case *object.ListObj:
		if idx.Tag != object.IntType {
			return object.Null, vm.runtimeError(line, "list index must be int, got %s", idx.TypeName())
		}
		return o.At(int(idx.AsInt())), nil
	case *object.MapObj:
		v, _ := o.Get(idx)
		return v, nil
	case *object.RangeObj:
		if idx.Tag != object.IntType {
			return object.Null, vm.runtimeError(line, "range index must be int, got %s", idx.TypeName())
		}
		n, ok := o.At(idx.AsInt())
		if !ok {
			return object.Null, nil
		}
		return object.Int(n), nil
	case *object.StringObj:
		if idx.Tag != object.IntType {
			return object.Null, vm.runtimeError(line, "string index must be int, got %s", idx.TypeName())
		}
		i := idx.AsInt()
		s := o.Value()
		if i < 0 || int(i) >= len(s) {
			return object.Null, nil
		}
		return object.FromObject(object.NewString(string(s[i]))), nil
	default:
		return object.Null, vm.runtimeError(line, "cannot index into a %s", recv.TypeName())
	}
}

func (vm *VM) indexSet(recv, idx, val object.Value, line int) error {
	switch o := recv.Obj.(type) {
	case *object.ListObj:
		if idx.Tag != object.IntType {
			return vm.runtimeError(line, "list index must be int, got %s", idx.TypeName())
		}
		if !o.Set(int(idx.AsInt()), val) {
			return vm.runtimeError(line, "list index %d out of range", idx.AsInt())
		}
		return nil
	case *object.MapObj:
		o.Set(idx, val)
		return nil
	default:
		return vm.runtimeError(line, "cannot assign into a %s", recv.TypeName())
	}
}

func (vm *VM) lengthOf(v object.Value, line int) (int64, error) {
	switch o := v.Obj.(type) {
	case *object.ListObj:
		return int64(o.Len()), nil
	case *object.MapObj:
		return int64(o.Len()), nil
	case *object.RangeObj:
		return o.Len(), nil
	case *object.StringObj:
		return int64(o.Len()), nil
	default:
		return 0, vm.runtimeError(line, "value of type %s has no length", v.TypeName())
	}
}

func (vm *VM) nthElement(iterable object.Value, n int64, line int) (object.Value, error) {
	switch o := iterable.Obj.(type) {
	case *object.ListObj:
		return o.At(int(n)), nil
	case *object.RangeObj:
		val, _ := o.At(n)
		return object.Int(val), nil
	case *object.StringObj:
		s := o.Value()
		if n < 0 || int(n) >= len(s) {
			return object.Null, nil
		}
		return object.FromObject(object.NewString(string(s[n]))), nil
	case *object.MapObj:
		_, val, _ := o.NthOccupied(int(n))
		return val, nil
	default:
		return object.Null, vm.runtimeError(line, "value of type %s is not iterable", iterable.TypeName())
	}
}

func castValue(tag op.CastTag, v object.Value) (object.Value, error) {
	switch tag {
	case op.CastInt:
		switch v.Tag {
		case object.IntType:
			return v, nil
		case object.FloatType:
			return object.Int(int64(v.AsFloat())), nil
		case object.BoolType:
			if v.AsBool() {
				return object.Int(1), nil
			}
			return object.Int(0), nil
		case object.StringType:
			s, _ := v.Obj.(*object.StringObj)
			var n int64
			fmt.Sscanf(s.Value(), "%d", &n)
			return object.Int(n), nil
		}
	case op.CastFloat:
		switch v.Tag {
		case object.FloatType:
			return v, nil
		case object.IntType:
			return object.Float(float64(v.AsInt())), nil
		case object.StringType:
			s, _ := v.Obj.(*object.StringObj)
			var f float64
			fmt.Sscanf(s.Value(), "%g", &f)
			return object.Float(f), nil
		}
	case op.CastString:
		return object.FromObject(object.NewString(object.Stringify(v))), nil
	case op.CastBool:
		switch v.Tag {
		case object.BoolType:
			return v, nil
		case object.StringType:
			s, _ := v.Obj.(*object.StringObj)
			return object.Bool(object.TrimForBoolCast(s.Value())), nil
		case object.IntType:
			return object.Bool(v.AsInt() != 0), nil
		case object.FloatType:
			return object.Bool(v.AsFloat() != 0), nil
		case object.NullType:
			return object.Bool(false), nil
		}
	}
	return object.Null, fmt.Errorf("cannot cast %s to that type", v.TypeName())
}
