package ase

import (
	"testing"

	"github.com/google/uuid"
)

func TestByteReaderWriterRoundtrip(t *testing.T) {
	w := newByteWriter()
	w.writeByte(0x7F)
	w.writeWord(0xBEEF)
	w.writeShort(-100)
	w.writeDWord(0xDEADBEEF)
	w.writeLong(-12345)
	w.writeQWord(0x0102030405060708)
	w.writeFixed(3.5)
	w.writeFloat32(1.5)
	w.writeFloat64(2.25)
	w.writeString("hello")
	id := uuid.New()
	w.writeUUID(id)

	r := newByteReader(w.bytes())

	if v, err := r.readByte(); err != nil || v != 0x7F {
		t.Fatalf("readByte: %v, %v", v, err)
	}
	if v, err := r.readWord(); err != nil || v != 0xBEEF {
		t.Fatalf("readWord: %v, %v", v, err)
	}
	if v, err := r.readShort(); err != nil || v != -100 {
		t.Fatalf("readShort: %v, %v", v, err)
	}
	if v, err := r.readDWord(); err != nil || v != 0xDEADBEEF {
		t.Fatalf("readDWord: %v, %v", v, err)
	}
	if v, err := r.readLong(); err != nil || v != -12345 {
		t.Fatalf("readLong: %v, %v", v, err)
	}
	if v, err := r.readQWord(); err != nil || v != 0x0102030405060708 {
		t.Fatalf("readQWord: %v, %v", v, err)
	}
	if v, err := r.readFixed(); err != nil || v != 3.5 {
		t.Fatalf("readFixed: %v, %v", v, err)
	}
	if v, err := r.readFloat32(); err != nil || v != 1.5 {
		t.Fatalf("readFloat32: %v, %v", v, err)
	}
	if v, err := r.readFloat64(); err != nil || v != 2.25 {
		t.Fatalf("readFloat64: %v, %v", v, err)
	}
	if v, err := r.readString(); err != nil || v != "hello" {
		t.Fatalf("readString: %q, %v", v, err)
	}
	if v, err := r.readUUID(); err != nil || v != id {
		t.Fatalf("readUUID: %v, %v", v, err)
	}
	if r.pos() != r.len() {
		t.Fatalf("pos = %d, want %d (all bytes consumed)", r.pos(), r.len())
	}
}

func TestByteReaderTakePastEndFails(t *testing.T) {
	r := newByteReader([]byte{1, 2, 3})
	if _, err := r.take(4); err == nil {
		t.Fatal("take(4) on a 3-byte buffer succeeded, want an error")
	}
}

func TestByteReaderSeekAndSkip(t *testing.T) {
	r := newByteReader([]byte{10, 20, 30, 40, 50})
	r.seek(2)
	b, err := r.readByte()
	if err != nil || b != 30 {
		t.Fatalf("after seek(2), readByte = %d, %v; want 30, nil", b, err)
	}
	r.skip(1)
	b, err = r.readByte()
	if err != nil || b != 50 {
		t.Fatalf("after skip(1), readByte = %d, %v; want 50, nil", b, err)
	}
}

func TestByteWriterWriteAt(t *testing.T) {
	w := newByteWriter()
	w.writeZeros(4)
	w.writeByte(0xAA)
	w.writeAt(0, []byte{1, 2, 3, 4})
	want := []byte{1, 2, 3, 4, 0xAA}
	got := w.bytes()
	if len(got) != len(want) {
		t.Fatalf("bytes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bytes = %v, want %v", got, want)
		}
	}
}

func TestReadStringRejectsInvalidUTF8(t *testing.T) {
	buf := []byte{2, 0, 0xFF, 0xFE}
	r := newByteReader(buf)
	if _, err := r.readString(); err == nil {
		t.Fatal("readString accepted invalid UTF-8")
	}
}
