package builtins

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tantrums-lang/tantrums/object"
	"github.com/tantrums-lang/tantrums/vm"
)

func newGlobalsWithStreams(out *bytes.Buffer, in string) map[string]object.Value {
	globals := map[string]object.Value{}
	Install(globals, Streams{Out: out, In: strings.NewReader(in)})
	return globals
}

func call(t *testing.T, globals map[string]object.Value, ctx any, name string, args ...object.Value) (object.Value, error) {
	t.Helper()
	fn, ok := globals[name]
	require.True(t, ok, "builtin %q not installed", name)
	native, ok := fn.Obj.(*object.NativeObj)
	require.True(t, ok)
	return native.Call(ctx, args)
}

func TestPrintWritesSpaceJoinedInspectedArgs(t *testing.T) {
	var out bytes.Buffer
	globals := newGlobalsWithStreams(&out, "")
	_, err := call(t, globals, nil, "print", object.Int(1), object.Bool(true))
	require.NoError(t, err)
	require.Equal(t, "1 true\n", out.String())
}

func TestInputReturnsLineWithoutTerminator(t *testing.T) {
	var out bytes.Buffer
	globals := newGlobalsWithStreams(&out, "hello\n")
	v, err := call(t, globals, nil, "input")
	require.NoError(t, err)
	str, ok := v.Obj.(*object.StringObj)
	require.True(t, ok)
	require.Equal(t, "hello", str.Value())
}

func TestInputPrintsPromptFirst(t *testing.T) {
	var out bytes.Buffer
	globals := newGlobalsWithStreams(&out, "x\n")
	_, err := call(t, globals, nil, "input", object.FromObject(object.NewString("name? ")))
	require.NoError(t, err)
	require.Equal(t, "name? ", out.String())
}

func TestLenOverListMapStringRange(t *testing.T) {
	var out bytes.Buffer
	globals := newGlobalsWithStreams(&out, "")

	v, err := call(t, globals, nil, "len", object.FromObject(object.NewList([]object.Value{object.Int(1), object.Int(2)})))
	require.NoError(t, err)
	require.Equal(t, int64(2), v.AsInt())

	v, err = call(t, globals, nil, "len", object.FromObject(object.NewString("hi")))
	require.NoError(t, err)
	require.Equal(t, int64(2), v.AsInt())
}

func TestLenRejectsUnsupportedType(t *testing.T) {
	var out bytes.Buffer
	globals := newGlobalsWithStreams(&out, "")
	_, err := call(t, globals, nil, "len", object.Int(5))
	require.Error(t, err)
}

func TestRangeProducesExpectedBounds(t *testing.T) {
	var out bytes.Buffer
	globals := newGlobalsWithStreams(&out, "")
	v, err := call(t, globals, nil, "range", object.Int(3))
	require.NoError(t, err)
	r, ok := v.Obj.(*object.RangeObj)
	require.True(t, ok)
	require.Equal(t, int64(3), r.Len())
}

func TestRangeRejectsZeroStep(t *testing.T) {
	var out bytes.Buffer
	globals := newGlobalsWithStreams(&out, "")
	_, err := call(t, globals, nil, "range", object.Int(0), object.Int(10), object.Int(0))
	require.Error(t, err)
}

func TestTypeReturnsDynamicTypeName(t *testing.T) {
	var out bytes.Buffer
	globals := newGlobalsWithStreams(&out, "")
	v, err := call(t, globals, nil, "type", object.Int(1))
	require.NoError(t, err)
	str, ok := v.Obj.(*object.StringObj)
	require.True(t, ok)
	require.Equal(t, "int", str.Value())
}

func TestAppendGrowsListInPlaceAndReturnsIt(t *testing.T) {
	var out bytes.Buffer
	globals := newGlobalsWithStreams(&out, "")
	l := object.NewList([]object.Value{object.Int(1)})
	v, err := call(t, globals, nil, "append", object.FromObject(l), object.Int(2))
	require.NoError(t, err)
	require.Equal(t, 2, l.Len())
	lst, ok := v.Obj.(*object.ListObj)
	require.True(t, ok)
	require.Same(t, l, lst)
}

func TestAppendRejectsNonListFirstArg(t *testing.T) {
	var out bytes.Buffer
	globals := newGlobalsWithStreams(&out, "")
	_, err := call(t, globals, nil, "append", object.Int(1), object.Int(2))
	require.Error(t, err)
}

func TestTimeConversionHelpers(t *testing.T) {
	var out bytes.Buffer
	globals := newGlobalsWithStreams(&out, "")

	v, err := call(t, globals, nil, "toMilliseconds", object.Float(1.5))
	require.NoError(t, err)
	require.InDelta(t, 1500.0, v.AsFloat(), 1e-9)

	v, err = call(t, globals, nil, "toMinutes", object.Float(120))
	require.NoError(t, err)
	require.InDelta(t, 2.0, v.AsFloat(), 1e-9)

	v, err = call(t, globals, nil, "toHours", object.Float(7200))
	require.NoError(t, err)
	require.InDelta(t, 2.0, v.AsFloat(), 1e-9)
}

func TestGetVmMemoryReflectsHeapAllocations(t *testing.T) {
	var out bytes.Buffer
	globals := newGlobalsWithStreams(&out, "")
	machine := vm.New(globals, zerolog.Nop())

	before, err := call(t, globals, machine, "getVmMemory")
	require.NoError(t, err)

	l := object.NewList([]object.Value{object.Int(1), object.Int(2), object.Int(3)})
	object.SetAutoManage(l, true)
	machine.Heap().Track(l, 64)

	after, err := call(t, globals, machine, "getVmMemory")
	require.NoError(t, err)
	require.Greater(t, after.AsInt(), before.AsInt())
}

func TestGetVmMemoryWithoutVMContextReturnsZero(t *testing.T) {
	var out bytes.Buffer
	globals := newGlobalsWithStreams(&out, "")
	v, err := call(t, globals, nil, "getVmMemory")
	require.NoError(t, err)
	require.Equal(t, int64(0), v.AsInt())
}

func TestBytesScalingHelpers(t *testing.T) {
	var out bytes.Buffer
	globals := newGlobalsWithStreams(&out, "")

	v, err := call(t, globals, nil, "bytesToKB", object.Float(2048))
	require.NoError(t, err)
	require.InDelta(t, 2.0, v.AsFloat(), 1e-9)

	v, err = call(t, globals, nil, "bytesToMB", object.Float(1<<21))
	require.NoError(t, err)
	require.InDelta(t, 2.0, v.AsFloat(), 1e-9)
}

func TestHumanizeBytes(t *testing.T) {
	require.Equal(t, "1.0 kB", HumanizeBytes(1000))
}
