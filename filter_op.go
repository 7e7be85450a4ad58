package heapdb

// Filter forwards child tuples for which left op right holds (spec.md
// §4.5). left and right are typically a FieldExpr and a ConstExpr, but any
// Expr pair is accepted.
type Filter struct {
	op    BoolOp
	left  Expr
	right Expr
	child Operator

	pending *Tuple
	opened  bool
}

// NewFilter constructs a filter evaluating left op right over each tuple
// child produces.
func NewFilter(left Expr, op BoolOp, right Expr, child Operator) (*Filter, error) {
	return &Filter{left: left, op: op, right: right, child: child}, nil
}

func (f *Filter) Open(tid TransactionID) error {
	if f.opened {
		return NewGoDBError(NoSuchElement, "filter is already open")
	}
	if err := f.child.Open(tid); err != nil {
		return err
	}
	f.opened = true
	return nil
}

func (f *Filter) fill() (*Tuple, error) {
	if f.pending != nil {
		return f.pending, nil
	}
	for {
		ok, err := f.child.HasNext()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		t, err := f.child.Next()
		if err != nil {
			return nil, err
		}
		leftVal, err := f.left.EvalExpr(t)
		if err != nil {
			return nil, err
		}
		rightVal, err := f.right.EvalExpr(t)
		if err != nil {
			return nil, err
		}
		if leftVal.EvalPred(rightVal, f.op) {
			f.pending = t
			return t, nil
		}
	}
}

func (f *Filter) HasNext() (bool, error) {
	if !f.opened {
		return false, NewGoDBError(NoSuchElement, "filter is not open")
	}
	t, err := f.fill()
	return t != nil, err
}

func (f *Filter) Next() (*Tuple, error) {
	t, err := f.fill()
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, NewGoDBError(NoSuchElement, "no more tuples")
	}
	f.pending = nil
	return t, nil
}

func (f *Filter) Rewind() error {
	if !f.opened {
		return NewGoDBError(NoSuchElement, "filter is not open")
	}
	f.pending = nil
	return f.child.Rewind()
}

func (f *Filter) Close() error {
	f.opened = false
	f.pending = nil
	return f.child.Close()
}

func (f *Filter) GetTupleDesc() *TupleDesc {
	return f.child.GetTupleDesc()
}

func (f *Filter) GetChildren() []Operator {
	return []Operator{f.child}
}

func (f *Filter) SetChildren(children []Operator) {
	if len(children) != 1 {
		panic("Filter takes exactly one child")
	}
	f.child = children[0]
}
