package heapdb

import (
	"bytes"
	"testing"

	"github.com/d4l3k/messagediff"
)

func intDesc(names ...string) *TupleDesc {
	fields := make([]FieldType, len(names))
	for i, n := range names {
		fields[i] = FieldType{Fname: n, Ftype: IntType}
	}
	return &TupleDesc{Fields: fields}
}

func intTuple(desc *TupleDesc, vals ...int32) *Tuple {
	fields := make([]DBValue, len(vals))
	for i, v := range vals {
		fields[i] = IntField{Value: v}
	}
	return &Tuple{Desc: *desc, Fields: fields}
}

func TestTupleWriteReadRoundTrip(t *testing.T) {
	desc := &TupleDesc{Fields: []FieldType{
		{Fname: "a", Ftype: IntType},
		{Fname: "b", Ftype: StringType},
	}}
	orig := &Tuple{Desc: *desc, Fields: []DBValue{
		IntField{Value: -42},
		StringField{Value: "hello"},
	}}

	var buf bytes.Buffer
	if err := orig.writeTo(&buf); err != nil {
		t.Fatalf("writeTo: %v", err)
	}
	got, err := readTupleFrom(bytes.NewReader(buf.Bytes()), desc)
	if err != nil {
		t.Fatalf("readTupleFrom: %v", err)
	}
	if diff, equal := messagediff.PrettyDiff(orig.Fields, got.Fields); !equal {
		t.Fatalf("round-trip mismatch: %s", diff)
	}
}

func TestTupleEquals(t *testing.T) {
	desc := intDesc("a", "b")
	t1 := intTuple(desc, 1, 2)
	t2 := intTuple(desc, 1, 2)
	t3 := intTuple(desc, 1, 3)
	if !t1.Equals(t2) {
		t.Fatalf("expected equal tuples to compare equal")
	}
	if t1.Equals(t3) {
		t.Fatalf("expected differing tuples to compare unequal")
	}
}

func TestJoinTuples(t *testing.T) {
	rd := intDesc("x")
	sd := &TupleDesc{Fields: []FieldType{{Fname: "y", Ftype: IntType}, {Fname: "z", Ftype: IntType}}}
	r := intTuple(rd, 2)
	s := intTuple(sd, 2, 200)
	joined := joinTuples(r, s)
	if len(joined.Fields) != 3 {
		t.Fatalf("expected 3 fields in joined tuple, got %d", len(joined.Fields))
	}
}
