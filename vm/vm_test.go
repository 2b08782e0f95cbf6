package vm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tantrums-lang/tantrums/builtins"
	"github.com/tantrums-lang/tantrums/compiler"
	"github.com/tantrums-lang/tantrums/object"
	"github.com/tantrums-lang/tantrums/parser"
	"github.com/tantrums-lang/tantrums/vm"
)

func run(t *testing.T, src string) (object.Value, error) {
	t.Helper()
	prog, errs := parser.ParseProgram(src)
	require.Empty(t, errs)
	fn, err := compiler.Compile(prog, compiler.Config{Mode: compiler.Both, Logger: zerolog.Nop()})
	require.NoError(t, err)
	globals := map[string]object.Value{}
	builtins.Install(globals, builtins.DefaultStreams())
	machine := vm.New(globals, zerolog.Nop())
	return machine.Run(fn)
}

func TestArithmetic(t *testing.T) {
	v, err := run(t, `let x = 1 + 2 * 3; x;`)
	require.NoError(t, err)
	require.Equal(t, int64(7), v.AsInt())
}

func TestIntFloatPromotion(t *testing.T) {
	v, err := run(t, `let x = 1 + 2.5; x;`)
	require.NoError(t, err)
	require.Equal(t, object.FloatType, v.Tag)
	require.InDelta(t, 3.5, v.AsFloat(), 1e-9)
}

func TestDivisionByZeroIsRuntimeError(t *testing.T) {
	_, err := run(t, `let x = 1 / 0; x;`)
	require.Error(t, err)
}

func TestStringConcatenation(t *testing.T) {
	v, err := run(t, `let s = "foo" + "bar"; s;`)
	require.NoError(t, err)
	str, ok := v.Obj.(*object.StringObj)
	require.True(t, ok)
	require.Equal(t, "foobar", str.Value())
}

func TestStringAutoStringifiesNonStringOperand(t *testing.T) {
	v, err := run(t, `let s = "n=" + 3; s;`)
	require.NoError(t, err)
	str, ok := v.Obj.(*object.StringObj)
	require.True(t, ok)
	require.Equal(t, "n=3", str.Value())
}

func TestListConcatenation(t *testing.T) {
	v, err := run(t, `let l = [1, 2] + [3]; l;`)
	require.NoError(t, err)
	lst, ok := v.Obj.(*object.ListObj)
	require.True(t, ok)
	require.Equal(t, 3, lst.Len())
	require.Equal(t, int64(3), lst.At(2).AsInt())
}

func TestIfElse(t *testing.T) {
	v, err := run(t, `
		let x = 5;
		let y = 0;
		if (x > 3) { y = 1; } else { y = 2; }
		y;
	`)
	require.NoError(t, err)
	require.Equal(t, int64(1), v.AsInt())
}

func TestWhileLoopAndBreak(t *testing.T) {
	v, err := run(t, `
		let i = 0;
		let sum = 0;
		while (true) {
			if (i >= 5) { break; }
			sum = sum + i;
			i = i + 1;
		}
		sum;
	`)
	require.NoError(t, err)
	require.Equal(t, int64(10), v.AsInt())
}

func TestForInOverList(t *testing.T) {
	v, err := run(t, `
		let total = 0;
		for x in [1, 2, 3, 4] {
			total = total + x;
		}
		total;
	`)
	require.NoError(t, err)
	require.Equal(t, int64(10), v.AsInt())
}

func TestForInOverRange(t *testing.T) {
	v, err := run(t, `
		let total = 0;
		for x in range(5) {
			total = total + x;
		}
		total;
	`)
	require.NoError(t, err)
	require.Equal(t, int64(10), v.AsInt())
}

func TestFunctionCallAndReturn(t *testing.T) {
	v, err := run(t, `
		tantrum int add(int a, int b) { return a + b; }
		add(2, 3);
	`)
	require.NoError(t, err)
	require.Equal(t, int64(5), v.AsInt())
}

func TestRecursiveFunctionCall(t *testing.T) {
	v, err := run(t, `
		tantrum int fact(int n) {
			if (n <= 1) { return 1; }
			return n * fact(n - 1);
		}
		fact(5);
	`)
	require.NoError(t, err)
	require.Equal(t, int64(120), v.AsInt())
}

func TestPointerAllocDerefFree(t *testing.T) {
	v, err := run(t, `
		tantrum int f() {
			int* p = alloc int(42);
			let result = *p;
			free(p);
			return result;
		}
		f();
	`)
	require.NoError(t, err)
	require.Equal(t, int64(42), v.AsInt())
}

func TestPointerEscapeAcrossReturn(t *testing.T) {
	v, err := run(t, `
		tantrum int* mk() {
			int* p = alloc int(3);
			return p;
		}
		tantrum int main() {
			int* q = mk();
			let r = *q;
			free(q);
			return r;
		}
	`)
	require.NoError(t, err)
	require.Equal(t, int64(3), v.AsInt())
}

// TestMainAutoInvokedWithoutExplicitCall exercises spec.md §2's rule
// directly: a script that only declares `main`, with no explicit call
// anywhere, must still run it after top-level execution finishes.
func TestMainAutoInvokedWithoutExplicitCall(t *testing.T) {
	prog, errs := parser.ParseProgram(`tantrum main() { print(1 + 2 * 3); }`)
	require.Empty(t, errs)
	fn, err := compiler.Compile(prog, compiler.Config{Mode: compiler.Both, Logger: zerolog.Nop()})
	require.NoError(t, err)
	var out bytes.Buffer
	globals := map[string]object.Value{}
	builtins.Install(globals, builtins.Streams{Out: &out, In: strings.NewReader("")})
	machine := vm.New(globals, zerolog.Nop())
	_, err = machine.Run(fn)
	require.NoError(t, err)
	require.Equal(t, "7\n", out.String())
}

// TestNoMainGlobalRunsOnlyTopLevel confirms a script with no `main`
// global runs its top-level statements once and returns normally,
// without erroring over the absent lookup.
func TestNoMainGlobalRunsOnlyTopLevel(t *testing.T) {
	v, err := run(t, `let x = 41; x + 1;`)
	require.NoError(t, err)
	require.Equal(t, int64(42), v.AsInt())
}

func TestDoubleFreeIsRuntimeError(t *testing.T) {
	_, err := run(t, `
		tantrum f() {
			int* p = alloc int(1);
			free(p);
			free(p);
		}
		f();
	`)
	require.Error(t, err)
}

func TestDerefAfterFreeIsRuntimeError(t *testing.T) {
	_, err := run(t, `
		tantrum int f() {
			int* p = alloc int(1);
			free(p);
			return *p;
		}
		f();
	`)
	require.Error(t, err)
}

func TestTryCatchHandlesThrow(t *testing.T) {
	v, err := run(t, `
		let caught = "";
		try {
			throw "boom";
		} catch (e) {
			caught = e;
		}
		caught;
	`)
	require.NoError(t, err)
	str, ok := v.Obj.(*object.StringObj)
	require.True(t, ok)
	require.Equal(t, "boom", str.Value())
}

func TestTryCatchAcrossFunctionCall(t *testing.T) {
	v, err := run(t, `
		tantrum boom() { throw "nope"; }
		let caught = "";
		try {
			boom();
		} catch (e) {
			caught = e;
		}
		caught;
	`)
	require.NoError(t, err)
	str, ok := v.Obj.(*object.StringObj)
	require.True(t, ok)
	require.Equal(t, "nope", str.Value())
}

func TestUncaughtThrowIsFatal(t *testing.T) {
	_, err := run(t, `throw "fatal";`)
	require.Error(t, err)
}

func TestCastOperators(t *testing.T) {
	v, err := run(t, `int(3.9);`)
	require.NoError(t, err)
	require.Equal(t, int64(3), v.AsInt())

	v, err = run(t, `string(42);`)
	require.NoError(t, err)
	str, ok := v.Obj.(*object.StringObj)
	require.True(t, ok)
	require.Equal(t, "42", str.Value())

	v, err = run(t, `bool("");`)
	require.NoError(t, err)
	require.False(t, v.AsBool())
}

func TestMapIndexGetSet(t *testing.T) {
	v, err := run(t, `
		let m = {"a": 1, "b": 2};
		m["c"] = 3;
		m["c"];
	`)
	require.NoError(t, err)
	require.Equal(t, int64(3), v.AsInt())
}

func TestScopeReaperFreesAutoLocalOnScopeExit(t *testing.T) {
	prog, errs := parser.ParseProgram(`
		tantrum f() {
			int* p = alloc int(1);
			print(*p);
		}
		f();
	`)
	require.Empty(t, errs)
	fn, err := compiler.Compile(prog, compiler.Config{Mode: compiler.Both, Logger: zerolog.Nop()})
	require.NoError(t, err)
	globals := map[string]object.Value{}
	builtins.Install(globals, builtins.DefaultStreams())
	machine := vm.New(globals, zerolog.Nop())
	_, err = machine.Run(fn)
	require.NoError(t, err)
	require.Equal(t, 0, machine.Heap().Count())
}

func TestBuiltinLenAndAppend(t *testing.T) {
	v, err := run(t, `
		let l = [1, 2, 3];
		append(l, 4);
		len(l);
	`)
	require.NoError(t, err)
	require.Equal(t, int64(4), v.AsInt())
}

func TestUndefinedGlobalIsRuntimeError(t *testing.T) {
	_, err := run(t, `doesNotExist();`)
	require.Error(t, err)
}

func TestArityMismatchIsRuntimeError(t *testing.T) {
	_, err := run(t, `
		tantrum f(int a) { return; }
		f(1, 2);
	`)
	require.Error(t, err)
}
