package heapdb

// Insert pulls child to exhaustion at Open, inserting each tuple into file
// via the BufferPool, then serves a single one-field "count" tuple once
// (spec.md §4.5). Fails with SchemaMismatch at construction if child's
// schema does not match file's.
type Insert struct {
	tid   TransactionID
	file  *HeapFile
	child Operator

	count   int64
	desc    *TupleDesc
	served  bool
	opened  bool
}

// NewInsert constructs an insert of child's tuples into file, on tid's
// behalf.
func NewInsert(tid TransactionID, child Operator, file *HeapFile) (*Insert, error) {
	if !child.GetTupleDesc().Equals(file.Descriptor()) {
		return nil, NewGoDBError(SchemaMismatch, "insert child schema does not match table schema")
	}
	return &Insert{
		tid:   tid,
		file:  file,
		child: child,
		desc:  &TupleDesc{Fields: []FieldType{{Fname: "count", Ftype: IntType}}},
	}, nil
}

func (i *Insert) Open(tid TransactionID) error {
	if i.opened {
		return NewGoDBError(NoSuchElement, "insert is already open")
	}
	if err := i.child.Open(tid); err != nil {
		return err
	}
	i.count = 0
	for {
		ok, err := i.child.HasNext()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		t, err := i.child.Next()
		if err != nil {
			return err
		}
		if err := i.file.bp.InsertTuple(i.tid, i.file, t); err != nil {
			return err
		}
		i.count++
	}
	i.opened = true
	i.served = false
	return nil
}

func (i *Insert) HasNext() (bool, error) {
	if !i.opened {
		return false, NewGoDBError(NoSuchElement, "insert is not open")
	}
	return !i.served, nil
}

func (i *Insert) Next() (*Tuple, error) {
	if !i.opened {
		return nil, NewGoDBError(NoSuchElement, "insert is not open")
	}
	if i.served {
		return nil, NewGoDBError(NoSuchElement, "no more tuples")
	}
	i.served = true
	return &Tuple{Desc: *i.desc, Fields: []DBValue{IntField{Value: int32(i.count)}}}, nil
}

func (i *Insert) Rewind() error {
	if !i.opened {
		return NewGoDBError(NoSuchElement, "insert is not open")
	}
	i.served = false
	return nil
}

func (i *Insert) Close() error {
	i.opened = false
	return i.child.Close()
}

func (i *Insert) GetTupleDesc() *TupleDesc {
	return i.desc
}

func (i *Insert) GetChildren() []Operator {
	return []Operator{i.child}
}

func (i *Insert) SetChildren(children []Operator) {
	if len(children) != 1 {
		panic("Insert takes exactly one child")
	}
	i.child = children[0]
}
