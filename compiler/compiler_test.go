package compiler

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tantrums-lang/tantrums/bytecode"
	"github.com/tantrums-lang/tantrums/parser"
)

func compileSrc(t *testing.T, src string, cfg Config) (*bytecode.Chunk, error) {
	t.Helper()
	prog, errs := parser.ParseProgram(src)
	require.Empty(t, errs)
	cfg.Logger = zerolog.Nop()
	fn, err := Compile(prog, cfg)
	if err != nil {
		return nil, err
	}
	chunk, ok := fn.Chunk().(*bytecode.Chunk)
	require.True(t, ok)
	return chunk, nil
}

func TestCompileSimpleScript(t *testing.T) {
	chunk, err := compileSrc(t, `let x = 1 + 2; print(x);`, Config{Mode: Both})
	require.NoError(t, err)
	require.NotEmpty(t, chunk.Code)
}

func TestCompileFunctionDeclBecomesGlobal(t *testing.T) {
	chunk, err := compileSrc(t, `
		tantrum int add(int a, int b) { return a + b; }
		print(add(1, 2));
	`, Config{Mode: Both})
	require.NoError(t, err)
	require.NotEmpty(t, chunk.Constants)
}

func TestCompileDuplicateFunctionIsError(t *testing.T) {
	_, err := compileSrc(t, `
		tantrum f() { return; }
		tantrum f() { return; }
	`, Config{Mode: Both})
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate function name")
}

func TestCompileStaticModeRequiresReturnType(t *testing.T) {
	_, err := compileSrc(t, `tantrum f() { return; }`, Config{Mode: Static})
	require.Error(t, err)
	require.Contains(t, err.Error(), "must declare a return type")
}

func TestCompileStaticModeRequiresAllPathsReturn(t *testing.T) {
	_, err := compileSrc(t, `
		tantrum int f() {
			if (true) {
				return 1;
			}
		}
	`, Config{Mode: Static})
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not return on all paths")
}

func TestCompileStaticModeAllPathsReturnViaElse(t *testing.T) {
	_, err := compileSrc(t, `
		tantrum int f() {
			if (true) {
				return 1;
			} else {
				return 2;
			}
		}
	`, Config{Mode: Static})
	require.NoError(t, err)
}

func TestCompileNestedFunctionDeclIsRejected(t *testing.T) {
	_, err := compileSrc(t, `
		tantrum outer() {
			tantrum inner() { return; }
		}
	`, Config{Mode: Both})
	require.Error(t, err)
	require.Contains(t, err.Error(), "must appear at the top level")
}

func TestCompileBreakOutsideLoopIsError(t *testing.T) {
	_, err := compileSrc(t, `break;`, Config{Mode: Both})
	require.Error(t, err)
	require.Contains(t, err.Error(), "'break' outside a loop")
}

func TestCompileContinueOutsideLoopIsError(t *testing.T) {
	_, err := compileSrc(t, `continue;`, Config{Mode: Both})
	require.Error(t, err)
	require.Contains(t, err.Error(), "'continue' outside a loop")
}

func TestCompileTypeMismatchInStaticMode(t *testing.T) {
	_, err := compileSrc(t, `string s = 1;`, Config{Mode: Static})
	require.Error(t, err)
}

func TestCompileIntPromotesToFloat(t *testing.T) {
	_, err := compileSrc(t, `float f = 1;`, Config{Mode: Static})
	require.NoError(t, err)
}

func TestCompilePointerStoredInListIsNotLeak(t *testing.T) {
	_, err := compileSrc(t, `
		tantrum f() {
			int* p = alloc int(1);
			let stash = [p];
		}
	`, Config{Mode: Both})
	require.NoError(t, err)
}

func TestCompileNeverReferencedPointerIsLeakError(t *testing.T) {
	_, err := compileSrc(t, `
		tantrum f() {
			int* p = alloc int(1);
		}
	`, Config{Mode: Both})
	require.Error(t, err)
	require.Contains(t, err.Error(), "memory leak")
}

func TestCompileNeverReferencedPointerAllowedWithFlag(t *testing.T) {
	_, err := compileSrc(t, `
		tantrum f() {
			int* p = alloc int(1);
		}
	`, Config{Mode: Both, AllowMemoryLeaks: true})
	require.NoError(t, err)
}

func TestCompileSoleReadIsAutoFreed(t *testing.T) {
	chunk, err := compileSrc(t, `
		tantrum f() {
			int* p = alloc int(1);
			print(*p);
		}
	`, Config{Mode: Both})
	require.NoError(t, err)
	require.NotEmpty(t, chunk.Constants)
}

func TestCompileManualFreeAvoidsLeakError(t *testing.T) {
	_, err := compileSrc(t, `
		tantrum f() {
			int* p = alloc int(1);
			print(*p);
			free(p);
		}
	`, Config{Mode: Both})
	require.NoError(t, err)
}

func TestParseMode(t *testing.T) {
	require.Equal(t, Static, ParseMode("static"))
	require.Equal(t, Dynamic, ParseMode("dynamic"))
	require.Equal(t, Both, ParseMode("both"))
	require.Equal(t, Both, ParseMode("nonsense"))
}
