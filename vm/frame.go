package vm

import (
	"github.com/tantrums-lang/tantrums/bytecode"
	"github.com/tantrums-lang/tantrums/object"
)

// frame is one active call's bookkeeping: its chunk and instruction
// pointer, the stack index its local slots begin at, the lexical scope
// depth it is currently nested at, the heap markers saved by ENTER_SCOPE
// (consulted by the scope reaper on EXIT_SCOPE), the base local slot of
// each nested scope (consulted by SET_LOCAL to detect an assignment
// reaching into an enclosing scope), and the exception handler stack
// installed by TRY_BEGIN. Grounded on the teacher's vm/frame.go
// CallFrame shape, generalized with the scope/try state Tantrums needs
// that a closure-free Risor frame does not.
type frame struct {
	fn         *object.FunctionObj
	chunk      *bytecode.Chunk
	ip         int
	base       int
	depth      int
	markers    []object.Object // heap marker saved at each nested ENTER_SCOPE
	scopeBases []int           // lowest local slot owned by each nested scope
	handlers   []tryHandler
}

// tryHandler records one active TRY_BEGIN's catch target and the
// scope depth / stack height to unwind to if a THROW reaches it.
type tryHandler struct {
	catchIP    int
	depth      int
	stackFloor int
}
