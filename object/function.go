package object

// Param describes one declared parameter: its name and, in static/both
// mode, its declared type name ("" means untyped/dynamic).
type Param struct {
	Name string
	Type string
}

// FunctionObj is the heap Function variant: an optional name (empty for
// the top-level script), its parameter list, declared return type
// ("" / "void" if none), and its owned Chunk. Chunk is declared as
// `any` here (holding a *bytecode.Chunk) to avoid an import cycle
// between object and bytecode — bytecode.Code constants reference
// object.Value, and object.FunctionObj must reference a Chunk, so one
// side has to use an indirection; the VM and compiler both know the
// concrete type and unwrap it via the Chunk() accessor's type-asserting
// callers in those packages.
type FunctionObj struct {
	Header
	name       string
	params     []Param
	returnType string
	chunk      any
}

// NewFunction constructs an immutable function object.
func NewFunction(name string, params []Param, returnType string, chunk any) *FunctionObj {
	copied := make([]Param, len(params))
	copy(copied, params)
	obj := &FunctionObj{name: name, params: copied, returnType: returnType, chunk: chunk}
	obj.Tag = FunctionType
	return obj
}

func (f *FunctionObj) Type() Type { return FunctionType }

func (f *FunctionObj) Inspect() string {
	if f.name == "" {
		return "<script>"
	}
	return "<tantrum " + f.name + ">"
}

func (f *FunctionObj) Name() string         { return f.name }
func (f *FunctionObj) Arity() int           { return len(f.params) }
func (f *FunctionObj) Param(i int) Param    { return f.params[i] }
func (f *FunctionObj) Params() []Param      { return f.params }
func (f *FunctionObj) ReturnType() string   { return f.returnType }
func (f *FunctionObj) Chunk() any           { return f.chunk }
