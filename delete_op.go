package heapdb

// Delete pulls child to exhaustion at Open, deleting each tuple via the
// BufferPool, then serves a single one-field "count" tuple once (spec.md
// §4.5), symmetric to Insert.
type Delete struct {
	tid   TransactionID
	bp    *BufferPool
	child Operator

	count  int64
	desc   *TupleDesc
	served bool
	opened bool
}

// NewDelete constructs a delete of child's tuples, on tid's behalf, via bp.
func NewDelete(tid TransactionID, child Operator, bp *BufferPool) *Delete {
	return &Delete{
		tid:   tid,
		bp:    bp,
		child: child,
		desc:  &TupleDesc{Fields: []FieldType{{Fname: "count", Ftype: IntType}}},
	}
}

func (d *Delete) Open(tid TransactionID) error {
	if d.opened {
		return NewGoDBError(NoSuchElement, "delete is already open")
	}
	if err := d.child.Open(tid); err != nil {
		return err
	}
	d.count = 0
	for {
		ok, err := d.child.HasNext()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		t, err := d.child.Next()
		if err != nil {
			return err
		}
		if err := d.bp.DeleteTuple(d.tid, t); err != nil {
			return err
		}
		d.count++
	}
	d.opened = true
	d.served = false
	return nil
}

func (d *Delete) HasNext() (bool, error) {
	if !d.opened {
		return false, NewGoDBError(NoSuchElement, "delete is not open")
	}
	return !d.served, nil
}

func (d *Delete) Next() (*Tuple, error) {
	if !d.opened {
		return nil, NewGoDBError(NoSuchElement, "delete is not open")
	}
	if d.served {
		return nil, NewGoDBError(NoSuchElement, "no more tuples")
	}
	d.served = true
	return &Tuple{Desc: *d.desc, Fields: []DBValue{IntField{Value: int32(d.count)}}}, nil
}

func (d *Delete) Rewind() error {
	if !d.opened {
		return NewGoDBError(NoSuchElement, "delete is not open")
	}
	d.served = false
	return nil
}

func (d *Delete) Close() error {
	d.opened = false
	return d.child.Close()
}

func (d *Delete) GetTupleDesc() *TupleDesc {
	return d.desc
}

func (d *Delete) GetChildren() []Operator {
	return []Operator{d.child}
}

func (d *Delete) SetChildren(children []Operator) {
	if len(children) != 1 {
		panic("Delete takes exactly one child")
	}
	d.child = children[0]
}
