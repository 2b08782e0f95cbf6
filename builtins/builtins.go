// Package builtins implements Tantrums' native function library:
// print/input, len/range/type/append, the time-conversion helpers, and
// the VM-memory introspection functions spec.md §6 and §4.H describe.
// Grounded on original_source/src/builtins.cpp for the function list
// and semantics; rendered as object.NativeFunc closures the way the
// teacher's builtins package installs natives into a globals table.
package builtins

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/tantrums-lang/tantrums/object"
	"github.com/tantrums-lang/tantrums/vm"
)

// Streams bundles the I/O the print/input builtins read and write,
// defaulting to the process's own stdio but swappable by tests.
type Streams struct {
	Out io.Writer
	In  io.Reader
}

// DefaultStreams wires the builtins to the process's real stdio.
func DefaultStreams() Streams {
	return Streams{Out: os.Stdout, In: os.Stdin}
}

// Install populates globals with every native function, ready to be
// passed to vm.New. It does not import package vm for the function
// bodies themselves (only for the ctx type assertion below), so there
// is no cycle: vm never imports builtins.
func Install(globals map[string]object.Value, streams Streams) {
	reader := bufio.NewReader(streams.In)
	add := func(name string, fn object.NativeFunc) {
		globals[name] = object.FromObject(object.NewNative(name, fn))
	}

	add("print", func(ctx any, args []object.Value) (object.Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.Inspect()
		}
		for i, p := range parts {
			if i > 0 {
				fmt.Fprint(streams.Out, " ")
			}
			fmt.Fprint(streams.Out, p)
		}
		fmt.Fprintln(streams.Out)
		return object.Null, nil
	})

	add("input", func(ctx any, args []object.Value) (object.Value, error) {
		if len(args) == 1 {
			fmt.Fprint(streams.Out, args[0].Inspect())
		}
		line, err := reader.ReadString('\n')
		if err != nil && len(line) == 0 {
			return object.FromObject(object.NewString("")), nil
		}
		for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
			line = line[:len(line)-1]
		}
		return object.FromObject(object.NewString(line)), nil
	})

	add("len", func(ctx any, args []object.Value) (object.Value, error) {
		if len(args) != 1 {
			return object.Null, fmt.Errorf("len expects 1 argument, got %d", len(args))
		}
		switch o := args[0].Obj.(type) {
		case *object.ListObj:
			return object.Int(int64(o.Len())), nil
		case *object.MapObj:
			return object.Int(int64(o.Len())), nil
		case *object.StringObj:
			return object.Int(int64(o.Len())), nil
		case *object.RangeObj:
			return object.Int(o.Len()), nil
		default:
			return object.Null, fmt.Errorf("len is not defined for type %s", args[0].TypeName())
		}
	})

	add("range", func(ctx any, args []object.Value) (object.Value, error) {
		var start, end, step int64 = 0, 0, 1
		switch len(args) {
		case 1:
			end = args[0].AsInt()
		case 2:
			start, end = args[0].AsInt(), args[1].AsInt()
		case 3:
			start, end, step = args[0].AsInt(), args[1].AsInt(), args[2].AsInt()
		default:
			return object.Null, fmt.Errorf("range expects 1 to 3 arguments, got %d", len(args))
		}
		if step == 0 {
			return object.Null, fmt.Errorf("range step must not be zero")
		}
		r := object.NewRange(start, end, step)
		if v, ok := ctx.(*vm.VM); ok {
			object.SetAutoManage(r, true)
			v.Heap().Track(r, 0)
		}
		return object.FromObject(r), nil
	})

	add("type", func(ctx any, args []object.Value) (object.Value, error) {
		if len(args) != 1 {
			return object.Null, fmt.Errorf("type expects 1 argument, got %d", len(args))
		}
		return object.FromObject(object.NewString(args[0].TypeName())), nil
	})

	add("append", func(ctx any, args []object.Value) (object.Value, error) {
		if len(args) != 2 {
			return object.Null, fmt.Errorf("append expects 2 arguments, got %d", len(args))
		}
		l, ok := args[0].Obj.(*object.ListObj)
		if !ok {
			return object.Null, fmt.Errorf("append expects a list as its first argument, got %s", args[0].TypeName())
		}
		l.Append(args[1])
		return args[0], nil
	})

	add("getCurrentTime", func(ctx any, args []object.Value) (object.Value, error) {
		return object.Float(float64(time.Now().UnixNano()) / 1e9), nil
	})
	add("toSeconds", func(ctx any, args []object.Value) (object.Value, error) {
		return scaleTime(args, 1.0)
	})
	add("toMilliseconds", func(ctx any, args []object.Value) (object.Value, error) {
		return scaleTime(args, 1000.0)
	})
	add("toMinutes", func(ctx any, args []object.Value) (object.Value, error) {
		return scaleTime(args, 1.0/60.0)
	})
	add("toHours", func(ctx any, args []object.Value) (object.Value, error) {
		return scaleTime(args, 1.0/3600.0)
	})

	add("getProcessMemory", func(ctx any, args []object.Value) (object.Value, error) {
		var stats runtime.MemStats
		runtime.ReadMemStats(&stats)
		return object.Int(int64(stats.Sys)), nil
	})
	add("getVmMemory", func(ctx any, args []object.Value) (object.Value, error) {
		v, ok := ctx.(*vm.VM)
		if !ok {
			return object.Int(0), nil
		}
		return object.Int(v.Heap().BytesAllocated()), nil
	})
	add("getVmPeakMemory", func(ctx any, args []object.Value) (object.Value, error) {
		v, ok := ctx.(*vm.VM)
		if !ok {
			return object.Int(0), nil
		}
		return object.Int(v.Heap().PeakBytes()), nil
	})

	add("bytesToKB", func(ctx any, args []object.Value) (object.Value, error) { return scaleBytes(args, 1<<10) })
	add("bytesToMB", func(ctx any, args []object.Value) (object.Value, error) { return scaleBytes(args, 1<<20) })
	add("bytesToGB", func(ctx any, args []object.Value) (object.Value, error) { return scaleBytes(args, 1<<30) })
}

func scaleTime(args []object.Value, factor float64) (object.Value, error) {
	if len(args) != 1 {
		return object.Null, fmt.Errorf("expects 1 argument, got %d", len(args))
	}
	return object.Float(args[0].AsFloat64() * factor), nil
}

func scaleBytes(args []object.Value, divisor float64) (object.Value, error) {
	if len(args) != 1 {
		return object.Null, fmt.Errorf("expects 1 argument, got %d", len(args))
	}
	return object.Float(args[0].AsFloat64() / divisor), nil
}

// HumanizeBytes renders n bytes the way the CLI's --mem-summary report
// does, delegating to go-humanize rather than hand-rolling unit scaling.
func HumanizeBytes(n int64) string {
	return humanize.Bytes(uint64(n))
}
