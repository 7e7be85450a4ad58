package heapdb

// aggState is the common interface the two aggregator kinds (Integer,
// String) satisfy, letting Aggregate stay agnostic to which one it drives.
type aggState interface {
	AddTuple(t *Tuple) error
	GetTupleDesc() *TupleDesc
	Iterator() func() (*Tuple, error)
}

// Aggregate computes one aggregate function over aggField, optionally
// grouped by groupField, materializing the result at Open (spec.md §4.5).
// The underlying aggregator is an IntegerAggregator or StringAggregator
// depending on aggField's type.
type Aggregate struct {
	child      Operator
	aggField   Expr
	groupField Expr
	op         AggOp

	state   aggState
	next    func() (*Tuple, error)
	desc    *TupleDesc
	pending *Tuple
}

// NewAggregate constructs an aggregate operator over child. groupField may
// be nil for no grouping. Fails with UnsupportedOperator if aggField is a
// STRING and op is not COUNT.
func NewAggregate(child Operator, aggField Expr, groupField Expr, op AggOp) (*Aggregate, error) {
	var state aggState
	switch aggField.GetExprType().Ftype {
	case IntType:
		state = NewIntegerAggregator(aggField, groupField, op)
	case StringType:
		sa, err := NewStringAggregator(aggField, groupField, op)
		if err != nil {
			return nil, err
		}
		state = sa
	default:
		return nil, NewGoDBError(TypeMismatchError, "unsupported aggregate field type")
	}
	return &Aggregate{
		child:      child,
		aggField:   aggField,
		groupField: groupField,
		op:         op,
		state:      state,
		desc:       state.GetTupleDesc(),
	}, nil
}

func (a *Aggregate) Open(tid TransactionID) error {
	if a.next != nil {
		return NewGoDBError(NoSuchElement, "aggregate is already open")
	}
	if err := a.child.Open(tid); err != nil {
		return err
	}
	for {
		ok, err := a.child.HasNext()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		t, err := a.child.Next()
		if err != nil {
			return err
		}
		if err := a.state.AddTuple(t); err != nil {
			return err
		}
	}
	a.next = a.state.Iterator()
	return nil
}

func (a *Aggregate) peek() (*Tuple, error) {
	if a.pending != nil {
		return a.pending, nil
	}
	t, err := a.next()
	if err != nil {
		return nil, err
	}
	a.pending = t
	return t, nil
}

func (a *Aggregate) HasNext() (bool, error) {
	if a.next == nil {
		return false, NewGoDBError(NoSuchElement, "aggregate is not open")
	}
	t, err := a.peek()
	return t != nil, err
}

func (a *Aggregate) Next() (*Tuple, error) {
	if a.next == nil {
		return nil, NewGoDBError(NoSuchElement, "aggregate is not open")
	}
	t, err := a.peek()
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, NewGoDBError(NoSuchElement, "no more tuples")
	}
	a.pending = nil
	return t, nil
}

func (a *Aggregate) Rewind() error {
	if a.next == nil {
		return NewGoDBError(NoSuchElement, "aggregate is not open")
	}
	a.pending = nil
	a.next = a.state.Iterator()
	return nil
}

func (a *Aggregate) Close() error {
	a.next = nil
	a.pending = nil
	return a.child.Close()
}

func (a *Aggregate) GetTupleDesc() *TupleDesc {
	return a.desc
}

func (a *Aggregate) GetChildren() []Operator {
	return []Operator{a.child}
}

func (a *Aggregate) SetChildren(children []Operator) {
	if len(children) != 1 {
		panic("Aggregate takes exactly one child")
	}
	a.child = children[0]
}
