package heapdb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
)

// Tuple is a row: a schema plus one value per field, plus the RecordId it was
// read from (nil until the tuple has been inserted into a HeapPage).
type Tuple struct {
	Desc   TupleDesc
	Fields []DBValue
	Rid    *RecordId
}

// writeTo serializes the tuple's fields, in schema order, using the exact
// on-disk widths spec.md §6 describes: 4-byte big-endian ints, and
// 4-byte-length-prefixed, zero-padded StringLength-byte strings.
func (t *Tuple) writeTo(b *bytes.Buffer) error {
	for i, field := range t.Fields {
		ftype := t.Desc.Fields[i].Ftype
		switch v := field.(type) {
		case IntField:
			if ftype != IntType {
				return NewGoDBError(SchemaMismatch, "int field in non-int column")
			}
			if err := binary.Write(b, binary.BigEndian, v.Value); err != nil {
				return err
			}
		case StringField:
			if ftype != StringType {
				return NewGoDBError(SchemaMismatch, "string field in non-string column")
			}
			if len(v.Value) > StringLength {
				return NewGoDBError(MalformedDataError, "string value exceeds field width")
			}
			if err := binary.Write(b, binary.BigEndian, uint32(len(v.Value))); err != nil {
				return err
			}
			content := make([]byte, StringLength)
			copy(content, v.Value)
			if _, err := b.Write(content); err != nil {
				return err
			}
		default:
			return NewGoDBError(SchemaMismatch, fmt.Sprintf("unsupported field type %T", field))
		}
	}
	return nil
}

// readTupleFrom deserializes a tuple with the given schema from buf.
func readTupleFrom(buf *bytes.Reader, desc *TupleDesc) (*Tuple, error) {
	t := &Tuple{Desc: *desc, Fields: make([]DBValue, len(desc.Fields))}
	for i, fd := range desc.Fields {
		width := fd.Ftype.Size()
		raw := make([]byte, width)
		if _, err := readFull(buf, raw); err != nil {
			return nil, err
		}
		v, err := fd.Ftype.Parse(raw)
		if err != nil {
			return nil, err
		}
		t.Fields[i] = v
	}
	return t, nil
}

func readFull(r *bytes.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
		if m == 0 {
			return n, NewGoDBError(MalformedDataError, "unexpected end of buffer")
		}
	}
	return n, nil
}

// Equals compares two tuples: descriptor-equal, pairwise field-equal, and
// RecordId-equal (spec.md §3).
func (t *Tuple) Equals(other *Tuple) bool {
	if t == nil || other == nil {
		return t == other
	}
	if !t.Desc.Equals(&other.Desc) {
		return false
	}
	if len(t.Fields) != len(other.Fields) {
		return false
	}
	for i := range t.Fields {
		if t.Fields[i] != other.Fields[i] {
			return false
		}
	}
	if (t.Rid == nil) != (other.Rid == nil) {
		return false
	}
	if t.Rid != nil && *t.Rid != *other.Rid {
		return false
	}
	return true
}

// joinTuples concatenates two tuples into a new tuple whose descriptor is the
// merge of the two inputs. The result has no RecordId: it did not come from a
// single page slot.
func joinTuples(t1, t2 *Tuple) *Tuple {
	return &Tuple{
		Desc:   *Merge(&t1.Desc, &t2.Desc),
		Fields: append(append([]DBValue{}, t1.Fields...), t2.Fields...),
	}
}

// project returns a new tuple containing only the fields named in fields, in
// the provided order. A field whose TableQualifier matches is preferred over
// one that only matches by name.
func (t *Tuple) project(fields []FieldType) (*Tuple, error) {
	out := &Tuple{Desc: TupleDesc{}, Fields: make([]DBValue, 0, len(fields))}
	for _, want := range fields {
		idx, err := findFieldInTd(want, &t.Desc)
		if err != nil {
			return nil, err
		}
		out.Desc.Fields = append(out.Desc.Fields, t.Desc.Fields[idx])
		out.Fields = append(out.Fields, t.Fields[idx])
	}
	return out, nil
}

// findFieldInTd locates the best matching field for `field` within desc: a
// name match, preferring one whose TableQualifier also matches when `field`
// names one.
func findFieldInTd(field FieldType, desc *TupleDesc) (int, error) {
	best := -1
	for i, f := range desc.Fields {
		if f.Fname != field.Fname {
			continue
		}
		if field.TableQualifier == "" && best != -1 {
			return 0, NewGoDBError(AmbiguousNameError, fmt.Sprintf("field name %s is ambiguous", f.Fname))
		}
		if f.TableQualifier == field.TableQualifier || best == -1 {
			best = i
		}
	}
	if best != -1 {
		return best, nil
	}
	return -1, NewGoDBError(IncompatibleTypesError, fmt.Sprintf("field %s.%s not found", field.TableQualifier, field.Fname))
}

// orderByState is the result of comparing two tuples along one expression.
type orderByState int

const (
	orderedLessThan orderByState = iota
	orderedEqual
	orderedGreaterThan
)

// compareField evaluates expr on t and t2 and compares the results.
func (t *Tuple) compareField(t2 *Tuple, expr Expr) (orderByState, error) {
	v1, err := expr.EvalExpr(t)
	if err != nil {
		return orderedEqual, err
	}
	v2, err := expr.EvalExpr(t2)
	if err != nil {
		return orderedEqual, err
	}
	switch {
	case v1.EvalPred(v2, OpEq):
		return orderedEqual, nil
	case v1.EvalPred(v2, OpLt):
		return orderedLessThan, nil
	default:
		return orderedGreaterThan, nil
	}
}

// PrettyPrintString renders the tuple's values, comma-separated or
// space-aligned into fixed-width columns.
func (t *Tuple) PrettyPrintString(aligned bool) string {
	cols := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		switch v := f.(type) {
		case IntField:
			cols[i] = strconv.FormatInt(int64(v.Value), 10)
		case StringField:
			cols[i] = v.Value
		}
	}
	if aligned {
		return alignedRow(cols)
	}
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ","
		}
		out += c
	}
	return out
}

// sortTuples implements sort.Interface over a tuple slice ordered by a list of
// expressions, each ascending or descending per the matching entry in asc.
type sortTuples struct {
	by  []Expr
	asc []bool
	all []*Tuple
}

func (s sortTuples) Len() int      { return len(s.all) }
func (s sortTuples) Swap(i, j int) { s.all[i], s.all[j] = s.all[j], s.all[i] }
func (s sortTuples) Less(i, j int) bool {
	a, b := s.all[i], s.all[j]
	for k, expr := range s.by {
		order, err := a.compareField(b, expr)
		if err != nil || order == orderedEqual {
			continue
		}
		if s.asc[k] {
			return order == orderedLessThan
		}
		return order == orderedGreaterThan
	}
	return false
}

func sortTupleSlice(tuples []*Tuple, by []Expr, asc []bool) {
	sort.Stable(sortTuples{by: by, asc: asc, all: tuples})
}
