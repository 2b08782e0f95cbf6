// Command tantrums is the batch-mode driver for the Tantrums toolchain:
// it parses, type-checks/compiles, and runs a script in one step (run),
// or splits compiling and executing across two invocations (compile /
// exec) so a bytecode file can be shipped and run without its source.
// Grounded on vovakirdan-surge's cmd/surge tree for the cobra command
// layout and colored diagnostic rendering.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tantrums-lang/tantrums/builtins"
	"github.com/tantrums-lang/tantrums/bytecode"
	"github.com/tantrums-lang/tantrums/compiler"
	"github.com/tantrums-lang/tantrums/internal/disasm"
	"github.com/tantrums-lang/tantrums/internal/report"
	"github.com/tantrums-lang/tantrums/object"
	"github.com/tantrums-lang/tantrums/parser"
	"github.com/tantrums-lang/tantrums/vm"
)

// Exit codes follow the sysexits.h convention the teacher's CLI uses:
// 65 = bad input data (compile/parse errors), 70 = internal/runtime
// software error, 1 = usage error, 0 = success.
const (
	exitOK         = 0
	exitDataErr    = 65
	exitSoftware   = 70
	exitUsageError = 1
)

var (
	flagMode             string
	flagAllowMemoryLeaks bool
	flagNoAutoFreeNotes  bool
	flagDis              bool
	flagTrace            bool
	flagMemSummary       bool
	flagLogLevel         string
)

func main() {
	root := &cobra.Command{
		Use:   "tantrums",
		Short: "Compile and run Tantrums scripts",
	}
	root.PersistentFlags().StringVar(&flagMode, "mode", "", "compile mode: static, dynamic, or both (overrides #mode directive)")
	root.PersistentFlags().BoolVar(&flagAllowMemoryLeaks, "allow-memory-leaks", false, "demote unfreed-allocation errors to warnings")
	root.PersistentFlags().BoolVar(&flagNoAutoFreeNotes, "no-autofree-notes", false, "suppress per-variable auto-free debug notes")
	root.PersistentFlags().BoolVar(&flagDis, "dis", false, "print a disassembly of the compiled chunk before running")
	root.PersistentFlags().BoolVar(&flagTrace, "trace", false, "trace every executed instruction")
	root.PersistentFlags().BoolVar(&flagMemSummary, "mem-summary", false, "print a memory/leak summary after the run")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "zerolog level: trace, debug, info, warn, error")

	root.AddCommand(runCmd(), compileCmd(), execCmd())

	if err := root.Execute(); err != nil {
		os.Exit(exitUsageError)
	}
}

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(flagLogLevel)
	if err != nil {
		level = zerolog.WarnLevel
	}
	if flagNoAutoFreeNotes && level < zerolog.InfoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <script.tantrum>",
		Short: "Parse, compile, and execute a script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			os.Exit(runScript(args[0]))
			return nil
		},
	}
}

func compileCmd() *cobra.Command {
	var out string
	c := &cobra.Command{
		Use:   "compile <script.tantrum>",
		Short: "Compile a script to a .tbc bytecode file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = args[0] + ".tbc"
			}
			os.Exit(compileScript(args[0], out))
			return nil
		},
	}
	c.Flags().StringVarP(&out, "out", "o", "", "output path (default: <script>.tbc)")
	return c
}

func execCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exec <script.tbc>",
		Short: "Run a previously compiled bytecode file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			os.Exit(execBytecode(args[0]))
			return nil
		},
	}
}

func readSource(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		return "", false
	}
	return string(data), true
}

func compileProgram(path string, logger zerolog.Logger) (*object.FunctionObj, int) {
	src, ok := readSource(path)
	if !ok {
		return nil, exitUsageError
	}
	prog, directives, perrs := parser.ParseProgramWithDirectives(src)
	if len(perrs) > 0 {
		for _, e := range perrs {
			fmt.Fprintln(os.Stderr, color.RedString("syntax error:"), e.Error())
		}
		return nil, exitDataErr
	}

	mode := compiler.ParseMode(directives.Mode)
	if flagMode != "" {
		mode = compiler.ParseMode(flagMode)
	}
	autoFree := true
	if directives.AutoFree != nil {
		autoFree = *directives.AutoFree
	}
	allowLeaks := flagAllowMemoryLeaks
	if directives.AllowMemoryLeaks != nil {
		allowLeaks = allowLeaks || *directives.AllowMemoryLeaks
	}

	cfg := compiler.Config{
		Mode:             mode,
		AutoFreeDefault:  autoFree,
		AllowMemoryLeaks: allowLeaks,
		Filename:         path,
		Logger:           logger,
	}
	fn, err := compiler.Compile(prog, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("compile error:"))
		fmt.Fprintln(os.Stderr, err)
		return nil, exitDataErr
	}
	return fn, exitOK
}

func runScript(path string) int {
	logger := newLogger()
	fn, code := compileProgram(path, logger)
	if fn == nil {
		return code
	}
	return execute(fn, logger)
}

func compileScript(path, out string) int {
	logger := newLogger()
	fn, code := compileProgram(path, logger)
	if fn == nil {
		return code
	}
	f, err := os.Create(out)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		return exitUsageError
	}
	defer f.Close()
	if err := bytecode.Save(f, fn); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		return exitUsageError
	}
	return exitOK
}

func execBytecode(path string) int {
	logger := newLogger()
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		return exitUsageError
	}
	defer f.Close()
	fn, err := bytecode.Load(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		return exitDataErr
	}
	return execute(fn, logger)
}

func execute(fn *object.FunctionObj, logger zerolog.Logger) int {
	if flagDis {
		if chunk, ok := fn.Chunk().(*bytecode.Chunk); ok {
			disasm.Chunk(os.Stdout, chunk)
		}
	}

	globals := map[string]object.Value{}
	builtins.Install(globals, builtins.DefaultStreams())
	machine := vm.New(globals, logger)
	machine.Trace = flagTrace

	_, err := machine.Run(fn)
	exitCode := exitOK
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("runtime error:"), err)
		exitCode = exitSoftware
	}

	if flagMemSummary {
		heap := machine.Heap()
		autoFreed := machine.AutoFreedRecords()
		summary := report.Summary{
			AutoFreed:       len(autoFreed),
			BytesAllocated:  heap.BytesAllocated(),
			PeakBytes:       heap.PeakBytes(),
			ObjectsLive:     heap.Count(),
			AutoFreeRecords: autoFreed,
		}
		if chunk, ok := fn.Chunk().(*bytecode.Chunk); ok {
			summary.LeaksAllowed = chunk.LeaksAllowed
			summary.LeakRecords = chunk.LeakRecords
		}
		report.Write(os.Stderr, summary, logger)
	}
	return exitCode
}
