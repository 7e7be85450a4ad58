package heapdb

// SeqScan yields every tuple in a HeapFile, in page-then-slot order,
// through the BufferPool's read-locked iterator (spec.md §4.5). Each output
// field's TableQualifier is set to alias, so a Join of two scans over the
// same table can still disambiguate fields by alias.
type SeqScan struct {
	file  *HeapFile
	alias string
	tid   TransactionID

	desc    *TupleDesc
	next    func() (*Tuple, error)
	pending *Tuple
}

// NewSeqScan constructs a scan over file, tagging every output field with
// alias.
func NewSeqScan(file *HeapFile, alias string) *SeqScan {
	return &SeqScan{
		file:  file,
		alias: alias,
		desc:  file.Descriptor().WithAlias(alias),
	}
}

func (s *SeqScan) Open(tid TransactionID) error {
	if s.next != nil {
		return NewGoDBError(NoSuchElement, "seq scan is already open")
	}
	s.tid = tid
	s.next = s.file.iterator(tid)
	return nil
}

func (s *SeqScan) HasNext() (bool, error) {
	if s.next == nil {
		return false, NewGoDBError(NoSuchElement, "seq scan is not open")
	}
	t, err := s.peek()
	return t != nil, err
}

// peek buffers the next tuple so HasNext can be queried repeatedly without
// consuming it.
func (s *SeqScan) peek() (*Tuple, error) {
	if s.pending != nil {
		return s.pending, nil
	}
	t, err := s.next()
	if err != nil {
		return nil, err
	}
	s.pending = t
	return t, nil
}

func (s *SeqScan) Next() (*Tuple, error) {
	if s.next == nil {
		return nil, NewGoDBError(NoSuchElement, "seq scan is not open")
	}
	t, err := s.peek()
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, NewGoDBError(NoSuchElement, "no more tuples")
	}
	s.pending = nil
	return s.withAlias(t), nil
}

func (s *SeqScan) withAlias(t *Tuple) *Tuple {
	return &Tuple{Desc: *s.desc, Fields: t.Fields, Rid: t.Rid}
}

func (s *SeqScan) Rewind() error {
	if s.next == nil {
		return NewGoDBError(NoSuchElement, "seq scan is not open")
	}
	s.pending = nil
	s.next = s.file.iterator(s.tid)
	return nil
}

func (s *SeqScan) Close() error {
	s.next = nil
	s.pending = nil
	return nil
}

func (s *SeqScan) GetTupleDesc() *TupleDesc {
	return s.desc
}

func (s *SeqScan) GetChildren() []Operator {
	return nil
}

func (s *SeqScan) SetChildren(children []Operator) {
	if len(children) != 0 {
		panic("SeqScan takes no children")
	}
}
