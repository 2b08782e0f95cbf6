package bytecode

import (
	"bytes"
	"testing"

	"github.com/tantrums-lang/tantrums/object"
	"github.com/tantrums-lang/tantrums/op"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	chunk := NewChunk("main")
	idx := chunk.AddConstant(object.Int(7))
	chunk.EmitOpUint16(op.Constant, idx, 1)
	chunk.EmitOp(op.Return, 1)

	fn := object.NewFunction("main", nil, "", chunk)

	var buf bytes.Buffer
	if err := Save(&buf, fn); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(&buf)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.Name() != fn.Name() {
		t.Fatalf("name mismatch: %q vs %q", loaded.Name(), fn.Name())
	}
	loadedChunk := loaded.Chunk().(*Chunk)
	if !bytes.Equal(loadedChunk.Code, chunk.Code) {
		t.Fatal("code mismatch")
	}
	if len(loadedChunk.Constants) != 1 || loadedChunk.Constants[0].AsInt() != 7 {
		t.Fatal("constant mismatch")
	}
	for i := range chunk.Lines {
		if loadedChunk.Lines[i] != chunk.Lines[i] {
			t.Fatalf("line sidecar mismatch at %d", i)
		}
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBufferString("bogus data that is not a bytecode file")
	if _, err := Load(buf); err == nil {
		t.Fatal("expected an error for bad magic")
	}
}
