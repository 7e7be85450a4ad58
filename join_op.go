package heapdb

import (
	"encoding/binary"

	boom "github.com/tylertreat/BoomFilters"
)

// Join is a nested-loop join: for each left tuple, it rewinds the right
// child and yields concatenated tuples wherever leftField(l) op rightField(r)
// holds (spec.md §4.5).
//
// When op is OpEq, Open first drains the right child once to build a Bloom
// filter over its join-key bytes. Because a Bloom filter never gives a false
// negative, a left tuple whose key the filter reports absent cannot match
// any right tuple, so the inner rewind-and-scan can be skipped for it. This
// changes only how many right scans are performed, never which pairs the
// join reports. For any other op the filter gives no sound pruning (e.g. a
// right side containing only small keys says nothing about whether a left
// key is "less than" something present), so it is skipped and every left
// tuple is matched against the full right side.
type Join struct {
	left, right           Operator
	leftField, rightField Expr
	op                    BoolOp

	probe *boom.BloomFilter

	opened   bool
	leftDone bool
	curLeft  *Tuple
	pending  *Tuple
}

// NewJoin constructs a join of left and right keyed by leftField op
// rightField. leftField and rightField must be the same DBType.
func NewJoin(left Operator, leftField Expr, op BoolOp, right Operator, rightField Expr) (*Join, error) {
	if leftField.GetExprType().Ftype != rightField.GetExprType().Ftype {
		return nil, NewGoDBError(TypeMismatchError, "join fields must have the same type")
	}
	return &Join{left: left, leftField: leftField, op: op, right: right, rightField: rightField}, nil
}

func joinKeyBytes(v DBValue) []byte {
	switch f := v.(type) {
	case IntField:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(f.Value))
		return b[:]
	case StringField:
		return []byte(f.Value)
	}
	return nil
}

func (j *Join) Open(tid TransactionID) error {
	if j.opened {
		return NewGoDBError(NoSuchElement, "join is already open")
	}
	if err := j.left.Open(tid); err != nil {
		return err
	}
	if err := j.right.Open(tid); err != nil {
		return err
	}
	if j.op == OpEq {
		if err := j.buildProbeFilter(); err != nil {
			return err
		}
	}
	j.opened = true
	j.leftDone = false
	return j.advanceLeft()
}

// buildProbeFilter scans the right child once to populate a Bloom filter
// over its join-key bytes, then rewinds it back to the top. Only sound for
// equality joins; callers must not invoke this for any other op.
func (j *Join) buildProbeFilter() error {
	count := uint(1)
	for {
		ok, err := j.right.HasNext()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		t, err := j.right.Next()
		if err != nil {
			return err
		}
		count++
		if j.probe == nil {
			j.probe = boom.NewBloomFilter(count*4+16, 0.01)
		}
		key, err := j.rightField.EvalExpr(t)
		if err != nil {
			return err
		}
		j.probe.Add(joinKeyBytes(key))
	}
	if j.probe == nil {
		j.probe = boom.NewBloomFilter(16, 0.01)
	}
	return j.right.Rewind()
}

// advanceLeft pulls the next left tuple, skipping ones the equality probe
// filter proves can't match (when one is in use), and rewinds the right
// child for it. Sets leftDone once the left side is exhausted.
func (j *Join) advanceLeft() error {
	for {
		ok, err := j.left.HasNext()
		if err != nil {
			return err
		}
		if !ok {
			j.leftDone = true
			j.curLeft = nil
			return nil
		}
		t, err := j.left.Next()
		if err != nil {
			return err
		}
		if j.probe != nil {
			key, err := j.leftField.EvalExpr(t)
			if err != nil {
				return err
			}
			if !j.probe.Test(joinKeyBytes(key)) {
				continue
			}
		}
		j.curLeft = t
		if err := j.right.Rewind(); err != nil {
			return err
		}
		return nil
	}
}

func (j *Join) fill() (*Tuple, error) {
	if j.pending != nil {
		return j.pending, nil
	}
	for !j.leftDone {
		ok, err := j.right.HasNext()
		if err != nil {
			return nil, err
		}
		if !ok {
			if err := j.advanceLeft(); err != nil {
				return nil, err
			}
			continue
		}
		r, err := j.right.Next()
		if err != nil {
			return nil, err
		}
		lv, err := j.leftField.EvalExpr(j.curLeft)
		if err != nil {
			return nil, err
		}
		rv, err := j.rightField.EvalExpr(r)
		if err != nil {
			return nil, err
		}
		if lv.EvalPred(rv, j.op) {
			j.pending = joinTuples(j.curLeft, r)
			return j.pending, nil
		}
	}
	return nil, nil
}

func (j *Join) HasNext() (bool, error) {
	if !j.opened {
		return false, NewGoDBError(NoSuchElement, "join is not open")
	}
	t, err := j.fill()
	return t != nil, err
}

func (j *Join) Next() (*Tuple, error) {
	t, err := j.fill()
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, NewGoDBError(NoSuchElement, "no more tuples")
	}
	j.pending = nil
	return t, nil
}

func (j *Join) Rewind() error {
	if !j.opened {
		return NewGoDBError(NoSuchElement, "join is not open")
	}
	j.pending = nil
	j.leftDone = false
	if err := j.left.Rewind(); err != nil {
		return err
	}
	return j.advanceLeft()
}

func (j *Join) Close() error {
	j.opened = false
	j.pending = nil
	j.curLeft = nil
	if err := j.left.Close(); err != nil {
		return err
	}
	return j.right.Close()
}

func (j *Join) GetTupleDesc() *TupleDesc {
	return Merge(j.left.GetTupleDesc(), j.right.GetTupleDesc())
}

func (j *Join) GetChildren() []Operator {
	return []Operator{j.left, j.right}
}

func (j *Join) SetChildren(children []Operator) {
	if len(children) != 2 {
		panic("Join takes exactly two children")
	}
	j.left, j.right = children[0], children[1]
}
