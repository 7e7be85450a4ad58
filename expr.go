package heapdb

import "strings"

// BoolOp is a comparison operator usable in a Filter or Join predicate.
type BoolOp int

const (
	OpEq BoolOp = iota
	OpNeq
	OpLt
	OpLe
	OpGt
	OpGe
	OpLike
)

// EvalPred compares an IntField against another DBValue using op. Comparing
// against a value of a different underlying type always reports false.
func (f IntField) EvalPred(other DBValue, op BoolOp) bool {
	o, ok := other.(IntField)
	if !ok {
		return false
	}
	switch op {
	case OpEq:
		return f.Value == o.Value
	case OpNeq:
		return f.Value != o.Value
	case OpLt:
		return f.Value < o.Value
	case OpLe:
		return f.Value <= o.Value
	case OpGt:
		return f.Value > o.Value
	case OpGe:
		return f.Value >= o.Value
	}
	return false
}

// EvalPred compares a StringField against another DBValue using op. OpLike is
// a substring match, per spec.md §4.5.
func (f StringField) EvalPred(other DBValue, op BoolOp) bool {
	o, ok := other.(StringField)
	if !ok {
		return false
	}
	switch op {
	case OpEq:
		return f.Value == o.Value
	case OpNeq:
		return f.Value != o.Value
	case OpLt:
		return f.Value < o.Value
	case OpLe:
		return f.Value <= o.Value
	case OpGt:
		return f.Value > o.Value
	case OpGe:
		return f.Value >= o.Value
	case OpLike:
		return strings.Contains(f.Value, o.Value)
	}
	return false
}

// Expr evaluates to a DBValue when applied to a Tuple. In most cases it is a
// FieldExpr (extract a named field) or a ConstExpr (a literal).
type Expr interface {
	EvalExpr(t *Tuple) (DBValue, error)
	GetExprType() FieldType
}

// FieldExpr extracts the field at a fixed index from a tuple.
type FieldExpr struct {
	Index int
	Field FieldType
}

func NewFieldExpr(index int, field FieldType) *FieldExpr {
	return &FieldExpr{Index: index, Field: field}
}

func (e *FieldExpr) EvalExpr(t *Tuple) (DBValue, error) {
	if t == nil || e.Index < 0 || e.Index >= len(t.Fields) {
		return nil, NewGoDBError(IncompatibleTypesError, "field index out of range")
	}
	return t.Fields[e.Index], nil
}

func (e *FieldExpr) GetExprType() FieldType {
	return e.Field
}

// ConstExpr evaluates to a fixed literal value regardless of the tuple.
type ConstExpr struct {
	Value DBValue
	Ftype DBType
}

func NewConstExpr(v DBValue, ftype DBType) *ConstExpr {
	return &ConstExpr{Value: v, Ftype: ftype}
}

func (e *ConstExpr) EvalExpr(t *Tuple) (DBValue, error) {
	return e.Value, nil
}

func (e *ConstExpr) GetExprType() FieldType {
	return FieldType{Ftype: e.Ftype}
}
