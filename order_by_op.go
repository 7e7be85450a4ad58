package heapdb

// OrderBy materializes all of its child's tuples at Open, sorts them stably
// by the given expressions, and serves them in order (spec.md §4.5). Each
// entry in asc controls the sort direction of the matching entry in by.
type OrderBy struct {
	by    []Expr
	asc   []bool
	child Operator

	rows   []*Tuple
	pos    int
	opened bool
}

// NewOrderBy constructs an order-by over child, sorted by the expressions
// in by (ascending where the matching entry of asc is true).
func NewOrderBy(by []Expr, child Operator, asc []bool) (*OrderBy, error) {
	return &OrderBy{by: by, asc: asc, child: child}, nil
}

func (o *OrderBy) Open(tid TransactionID) error {
	if o.opened {
		return NewGoDBError(NoSuchElement, "order by is already open")
	}
	if err := o.child.Open(tid); err != nil {
		return err
	}
	rows := make([]*Tuple, 0)
	for {
		ok, err := o.child.HasNext()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		t, err := o.child.Next()
		if err != nil {
			return err
		}
		rows = append(rows, t)
	}
	sortTupleSlice(rows, o.by, o.asc)
	o.rows = rows
	o.pos = 0
	o.opened = true
	return nil
}

func (o *OrderBy) HasNext() (bool, error) {
	if !o.opened {
		return false, NewGoDBError(NoSuchElement, "order by is not open")
	}
	return o.pos < len(o.rows), nil
}

func (o *OrderBy) Next() (*Tuple, error) {
	ok, err := o.HasNext()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewGoDBError(NoSuchElement, "no more tuples")
	}
	t := o.rows[o.pos]
	o.pos++
	return t, nil
}

func (o *OrderBy) Rewind() error {
	if !o.opened {
		return NewGoDBError(NoSuchElement, "order by is not open")
	}
	o.pos = 0
	return nil
}

func (o *OrderBy) Close() error {
	o.opened = false
	o.rows = nil
	return o.child.Close()
}

func (o *OrderBy) GetTupleDesc() *TupleDesc {
	return o.child.GetTupleDesc()
}

func (o *OrderBy) GetChildren() []Operator {
	return []Operator{o.child}
}

func (o *OrderBy) SetChildren(children []Operator) {
	if len(children) != 1 {
		panic("OrderBy takes exactly one child")
	}
	o.child = children[0]
}
