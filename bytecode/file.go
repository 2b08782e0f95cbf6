package bytecode

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/tantrums-lang/tantrums/object"
)

// Magic and Version identify the on-disk bytecode file format, per
// spec.md §4.E. An unrecognized magic or version is a load-time error.
var Magic = [4]byte{'4', '2', 'A', 'S'}

const Version byte = 1

// Constant tags, exactly as spec.md §4.E enumerates them.
const (
	tagInt      = 0
	tagFloat    = 1
	tagString   = 2
	tagTrue     = 3
	tagFalse    = 4
	tagNull     = 5
	tagFunction = 6
)

// Save writes fn (and, transitively, any nested function constants in
// its chunk) to w in the versioned binary format.
func Save(w io.Writer, fn *object.FunctionObj) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(Magic[:]); err != nil {
		return err
	}
	if err := bw.WriteByte(Version); err != nil {
		return err
	}
	if err := writeFunction(bw, fn); err != nil {
		return err
	}
	return bw.Flush()
}

// Load reads a function (and its nested function constants) from r.
func Load(r io.Reader) (*object.FunctionObj, error) {
	br := bufio.NewReader(r)
	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, fmt.Errorf("bytecode: read magic: %w", err)
	}
	if magic != Magic {
		return nil, fmt.Errorf("bytecode: bad magic %q, expected %q", magic, Magic)
	}
	version, err := br.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("bytecode: read version: %w", err)
	}
	if version != Version {
		return nil, fmt.Errorf("bytecode: unsupported version %d, expected %d", version, Version)
	}
	return readFunction(br)
}

func writeU32(w *bufio.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readU32(r *bufio.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func writeString(w *bufio.Writer, s string) error {
	if err := writeU32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.WriteString(s)
	return err
}

func readString(r *bufio.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeFunction(w *bufio.Writer, fn *object.FunctionObj) error {
	if err := writeString(w, fn.Name()); err != nil {
		return err
	}
	if err := writeU32(w, uint32(fn.Arity())); err != nil {
		return err
	}
	chunk, ok := fn.Chunk().(*Chunk)
	if !ok || chunk == nil {
		return fmt.Errorf("bytecode: function %q has no chunk", fn.Name())
	}
	if err := writeU32(w, uint32(len(chunk.Constants))); err != nil {
		return err
	}
	for _, c := range chunk.Constants {
		if err := writeConstant(w, c); err != nil {
			return err
		}
	}
	if err := writeU32(w, uint32(len(chunk.Code))); err != nil {
		return err
	}
	if _, err := w.Write(chunk.Code); err != nil {
		return err
	}
	if err := writeU32(w, uint32(len(chunk.Lines))); err != nil {
		return err
	}
	for _, line := range chunk.Lines {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(int32(line)))
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	return writeU32(w, uint32(chunk.LocalCount))
}

func readFunction(r *bufio.Reader) (*object.FunctionObj, error) {
	name, err := readString(r)
	if err != nil {
		return nil, err
	}
	arity, err := readU32(r)
	if err != nil {
		return nil, err
	}
	constCount, err := readU32(r)
	if err != nil {
		return nil, err
	}
	constants := make([]object.Value, constCount)
	for i := range constants {
		v, err := readConstant(r)
		if err != nil {
			return nil, err
		}
		constants[i] = v
	}
	codeLen, err := readU32(r)
	if err != nil {
		return nil, err
	}
	code := make([]byte, codeLen)
	if _, err := io.ReadFull(r, code); err != nil {
		return nil, err
	}
	lineCount, err := readU32(r)
	if err != nil {
		return nil, err
	}
	lines := make([]int, lineCount)
	for i := range lines {
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		lines[i] = int(int32(binary.LittleEndian.Uint32(buf[:])))
	}
	localCount, err := readU32(r)
	if err != nil {
		return nil, err
	}
	chunk := &Chunk{Code: code, Lines: lines, Constants: constants, Name: name, LocalCount: int(localCount)}
	params := make([]object.Param, arity)
	for i := range params {
		params[i] = object.Param{Name: fmt.Sprintf("arg%d", i)}
	}
	return object.NewFunction(name, params, "", chunk), nil
}

func writeConstant(w *bufio.Writer, v object.Value) error {
	switch v.Tag {
	case object.IntType:
		if err := w.WriteByte(tagInt); err != nil {
			return err
		}
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(v.AsInt()))
		_, err := w.Write(buf[:])
		return err
	case object.FloatType:
		if err := w.WriteByte(tagFloat); err != nil {
			return err
		}
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], v.Bits)
		_, err := w.Write(buf[:])
		return err
	case object.StringType:
		if err := w.WriteByte(tagString); err != nil {
			return err
		}
		s, _ := v.Obj.(*object.StringObj)
		return writeString(w, s.Value())
	case object.BoolType:
		if v.AsBool() {
			return w.WriteByte(tagTrue)
		}
		return w.WriteByte(tagFalse)
	case object.NullType:
		return w.WriteByte(tagNull)
	case object.FunctionType:
		if err := w.WriteByte(tagFunction); err != nil {
			return err
		}
		fn, _ := v.Obj.(*object.FunctionObj)
		return writeFunction(w, fn)
	default:
		return fmt.Errorf("bytecode: cannot serialize constant of type %s", v.Tag)
	}
}

func readConstant(r *bufio.Reader) (object.Value, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return object.Null, err
	}
	switch tag {
	case tagInt:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return object.Null, err
		}
		return object.Int(int64(binary.LittleEndian.Uint64(buf[:]))), nil
	case tagFloat:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return object.Null, err
		}
		bits := binary.LittleEndian.Uint64(buf[:])
		return object.Value{Tag: object.FloatType, Bits: bits}, nil
	case tagString:
		s, err := readString(r)
		if err != nil {
			return object.Null, err
		}
		return object.FromObject(object.NewString(s)), nil
	case tagTrue:
		return object.Bool(true), nil
	case tagFalse:
		return object.Bool(false), nil
	case tagNull:
		return object.Null, nil
	case tagFunction:
		fn, err := readFunction(r)
		if err != nil {
			return object.Null, err
		}
		return object.FromObject(fn), nil
	default:
		return object.Null, fmt.Errorf("bytecode: unknown constant tag %d", tag)
	}
}
