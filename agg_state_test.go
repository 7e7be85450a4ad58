package heapdb

import "testing"

func TestIntegerAggregatorUngrouped(t *testing.T) {
	desc := intDesc("v")
	vExpr := NewFieldExpr(0, FieldType{Fname: "v", Ftype: IntType})
	rows := []*Tuple{intTuple(desc, 5), intTuple(desc, 1), intTuple(desc, 9), intTuple(desc, 3)}

	cases := []struct {
		op   AggOp
		want int32
	}{
		{AggMin, 1},
		{AggMax, 9},
		{AggSum, 18},
		{AggCount, 4},
		{AggAvg, 18 / 4},
	}
	for _, c := range cases {
		agg := NewIntegerAggregator(vExpr, nil, c.op)
		for _, r := range rows {
			if err := agg.AddTuple(r); err != nil {
				t.Fatalf("AddTuple: %v", err)
			}
		}
		it := agg.Iterator()
		tup, err := it()
		if err != nil {
			t.Fatalf("Iterator: %v", err)
		}
		if tup == nil {
			t.Fatalf("expected a result tuple for op %d", c.op)
		}
		got := tup.Fields[0].(IntField).Value
		if got != c.want {
			t.Fatalf("op %d: expected %d, got %d", c.op, c.want, got)
		}
		if next, _ := it(); next != nil {
			t.Fatalf("expected exactly one ungrouped result")
		}
	}
}

func TestStringAggregatorCountOnly(t *testing.T) {
	if _, err := NewStringAggregator(nil, nil, AggSum); err == nil {
		t.Fatalf("expected UnsupportedOperator for non-COUNT string aggregator")
	} else if ge, ok := err.(GoDBError); !ok || ge.Code() != UnsupportedOperator {
		t.Fatalf("expected UnsupportedOperator, got %v", err)
	}

	desc := &TupleDesc{Fields: []FieldType{{Fname: "s", Ftype: StringType}}}
	sExpr := NewFieldExpr(0, FieldType{Fname: "s", Ftype: StringType})
	agg, err := NewStringAggregator(sExpr, nil, AggCount)
	if err != nil {
		t.Fatalf("NewStringAggregator: %v", err)
	}
	for _, v := range []string{"a", "b", "c"} {
		if err := agg.AddTuple(&Tuple{Desc: *desc, Fields: []DBValue{StringField{Value: v}}}); err != nil {
			t.Fatalf("AddTuple: %v", err)
		}
	}
	it := agg.Iterator()
	tup, err := it()
	if err != nil {
		t.Fatalf("Iterator: %v", err)
	}
	if tup.Fields[0].(IntField).Value != 3 {
		t.Fatalf("expected count 3, got %d", tup.Fields[0].(IntField).Value)
	}
}
