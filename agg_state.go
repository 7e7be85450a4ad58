package heapdb

// AggOp is an aggregation function (spec.md §4.6).
type AggOp int

const (
	AggMin AggOp = iota
	AggMax
	AggSum
	AggAvg
	AggCount
)

// groupKey is the comparable key used to index a grouping aggregator's
// per-group state: either nil (ungrouped, a single implicit group) or the
// group field's value.
type groupKey any

func keyOf(v DBValue) groupKey {
	if v == nil {
		return nil
	}
	switch f := v.(type) {
	case IntField:
		return f.Value
	case StringField:
		return f.Value
	}
	return nil
}

type intAcc struct {
	min, max    int32
	sum         int64
	count       int64
	initialized bool
}

func (a *intAcc) add(v int32) {
	if !a.initialized {
		a.min, a.max = v, v
		a.initialized = true
	} else {
		if v < a.min {
			a.min = v
		}
		if v > a.max {
			a.max = v
		}
	}
	a.sum += int64(v)
	a.count++
}

func (a *intAcc) result(op AggOp) int32 {
	switch op {
	case AggMin:
		return a.min
	case AggMax:
		return a.max
	case AggSum:
		return int32(a.sum)
	case AggCount:
		return int32(a.count)
	case AggAvg:
		if a.count == 0 {
			return 0
		}
		return int32(a.sum / a.count)
	}
	return 0
}

// IntegerAggregator computes one of MIN/MAX/SUM/COUNT/AVG over an integer
// expression, per group key (or ungrouped, under the nil key), maintaining
// a running accumulator as tuples arrive (spec.md §4.6).
type IntegerAggregator struct {
	aggField   Expr
	groupField Expr
	op         AggOp

	groups map[groupKey]*intAcc
	order  []groupKey
}

// NewIntegerAggregator constructs an aggregator over aggField, optionally
// grouped by groupField (pass nil for no grouping).
func NewIntegerAggregator(aggField Expr, groupField Expr, op AggOp) *IntegerAggregator {
	return &IntegerAggregator{
		aggField:   aggField,
		groupField: groupField,
		op:         op,
		groups:     make(map[groupKey]*intAcc),
	}
}

func (a *IntegerAggregator) AddTuple(t *Tuple) error {
	v, err := a.aggField.EvalExpr(t)
	if err != nil {
		return err
	}
	iv, ok := v.(IntField)
	if !ok {
		return NewGoDBError(TypeMismatchError, "IntegerAggregator requires an int field")
	}
	var key groupKey
	if a.groupField != nil {
		gv, err := a.groupField.EvalExpr(t)
		if err != nil {
			return err
		}
		key = keyOf(gv)
	}
	acc, ok := a.groups[key]
	if !ok {
		acc = &intAcc{}
		a.groups[key] = acc
		a.order = append(a.order, key)
	}
	acc.add(iv.Value)
	return nil
}

// GetTupleDesc returns (groupFieldType, INT) when grouping, else (INT).
func (a *IntegerAggregator) GetTupleDesc() *TupleDesc {
	aggField := FieldType{Fname: "aggregate", Ftype: IntType}
	if a.groupField == nil {
		return &TupleDesc{Fields: []FieldType{aggField}}
	}
	return &TupleDesc{Fields: []FieldType{a.groupField.GetExprType(), aggField}}
}

// Iterator produces one tuple per group, in first-seen order. It is finite
// and restartable: each call starts a fresh traversal over the stored map.
func (a *IntegerAggregator) Iterator() func() (*Tuple, error) {
	desc := a.GetTupleDesc()
	i := 0
	return func() (*Tuple, error) {
		if i >= len(a.order) {
			return nil, nil
		}
		key := a.order[i]
		i++
		acc := a.groups[key]
		result := IntField{Value: acc.result(a.op)}
		if a.groupField == nil {
			return &Tuple{Desc: *desc, Fields: []DBValue{result}}, nil
		}
		return &Tuple{Desc: *desc, Fields: []DBValue{groupValue(key), result}}, nil
	}
}

func groupValue(key groupKey) DBValue {
	switch v := key.(type) {
	case int32:
		return IntField{Value: v}
	case string:
		return StringField{Value: v}
	}
	return nil
}

// StringAggregator supports only COUNT (spec.md §4.6); constructing it with
// any other op fails with UnsupportedOperator.
type StringAggregator struct {
	aggField   Expr
	groupField Expr

	counts map[groupKey]int64
	order  []groupKey
}

// NewStringAggregator constructs a COUNT aggregator over aggField,
// optionally grouped by groupField.
func NewStringAggregator(aggField Expr, groupField Expr, op AggOp) (*StringAggregator, error) {
	if op != AggCount {
		return nil, NewGoDBError(UnsupportedOperator, "StringAggregator supports only COUNT")
	}
	return &StringAggregator{
		aggField:   aggField,
		groupField: groupField,
		counts:     make(map[groupKey]int64),
	}, nil
}

func (a *StringAggregator) AddTuple(t *Tuple) error {
	if _, err := a.aggField.EvalExpr(t); err != nil {
		return err
	}
	var key groupKey
	if a.groupField != nil {
		gv, err := a.groupField.EvalExpr(t)
		if err != nil {
			return err
		}
		key = keyOf(gv)
	}
	if _, ok := a.counts[key]; !ok {
		a.order = append(a.order, key)
	}
	a.counts[key]++
	return nil
}

func (a *StringAggregator) GetTupleDesc() *TupleDesc {
	aggField := FieldType{Fname: "aggregate", Ftype: IntType}
	if a.groupField == nil {
		return &TupleDesc{Fields: []FieldType{aggField}}
	}
	return &TupleDesc{Fields: []FieldType{a.groupField.GetExprType(), aggField}}
}

func (a *StringAggregator) Iterator() func() (*Tuple, error) {
	desc := a.GetTupleDesc()
	i := 0
	return func() (*Tuple, error) {
		if i >= len(a.order) {
			return nil, nil
		}
		key := a.order[i]
		i++
		result := IntField{Value: int32(a.counts[key])}
		if a.groupField == nil {
			return &Tuple{Desc: *desc, Fields: []DBValue{result}}, nil
		}
		return &Tuple{Desc: *desc, Fields: []DBValue{groupValue(key), result}}, nil
	}
}
