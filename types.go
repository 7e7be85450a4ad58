package heapdb

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// PageSize is the process-global, fixed-for-the-run size of every page on
// disk and in the BufferPool. Changing it after pages have been written is
// undefined behavior (spec.md §5).
var PageSize = 4096

// StringLength is the fixed content width, in bytes, of a STRING field. On
// the wire a STRING field is a 4-byte big-endian length prefix followed by
// exactly StringLength content bytes (spec.md §6), for a total field width of
// StringLength+4.
var StringLength = 128

// DBType is the type of a tuple field.
type DBType int

const (
	IntType DBType = iota
	StringType
)

func (t DBType) String() string {
	switch t {
	case IntType:
		return "int"
	case StringType:
		return "string"
	}
	return "unknown"
}

// Size returns the on-disk byte width of a field of this type.
func (t DBType) Size() int {
	switch t {
	case IntType:
		return 4
	case StringType:
		return 4 + StringLength
	}
	return 0
}

// Parse decodes one field of this type from the front of b, returning the
// decoded value. b must contain at least Size() bytes.
func (t DBType) Parse(b []byte) (DBValue, error) {
	switch t {
	case IntType:
		if len(b) < 4 {
			return nil, NewGoDBError(MalformedDataError, "short buffer for int field")
		}
		return IntField{Value: int32(binary.BigEndian.Uint32(b))}, nil
	case StringType:
		if len(b) < 4+StringLength {
			return nil, NewGoDBError(MalformedDataError, "short buffer for string field")
		}
		length := binary.BigEndian.Uint32(b[0:4])
		if int(length) > StringLength {
			return nil, NewGoDBError(MalformedDataError, "string field length exceeds width")
		}
		content := b[4 : 4+int(length)]
		return StringField{Value: string(content)}, nil
	}
	return nil, NewGoDBError(MalformedDataError, fmt.Sprintf("unknown DBType %d", t))
}

// FieldType names and types one column of a TupleDesc. TableQualifier is
// informational: it carries the alias a SeqScan prefixed onto a field name,
// but does not affect TupleDesc equality.
type FieldType struct {
	Fname          string
	TableQualifier string
	Ftype          DBType
}

// qualifiedName returns "alias.name", or just "name" if there is no alias.
func (f FieldType) qualifiedName() string {
	if f.TableQualifier == "" {
		return f.Fname
	}
	return f.TableQualifier + "." + f.Fname
}

// TupleDesc is the schema of a Tuple: an ordered, non-empty list of typed,
// optionally-named fields.
type TupleDesc struct {
	Fields []FieldType
}

// Size returns the total on-disk byte width of a tuple with this schema.
func (d *TupleDesc) Size() int {
	total := 0
	for _, f := range d.Fields {
		total += f.Ftype.Size()
	}
	return total
}

// Equals compares two descriptors by field type, in order. Names are
// informational and do not affect equality (spec.md §3).
func (d *TupleDesc) Equals(other *TupleDesc) bool {
	if d == nil || other == nil {
		return d == other
	}
	if len(d.Fields) != len(other.Fields) {
		return false
	}
	for i := range d.Fields {
		if d.Fields[i].Ftype != other.Fields[i].Ftype {
			return false
		}
	}
	return true
}

// Copy returns a deep copy of the descriptor's field slice.
func (d *TupleDesc) Copy() *TupleDesc {
	fields := make([]FieldType, len(d.Fields))
	copy(fields, d.Fields)
	return &TupleDesc{Fields: fields}
}

// WithAlias returns a copy of the descriptor with every field's
// TableQualifier set to alias.
func (d *TupleDesc) WithAlias(alias string) *TupleDesc {
	cp := d.Copy()
	for i := range cp.Fields {
		cp.Fields[i].TableQualifier = alias
	}
	return cp
}

// Merge concatenates the fields of d and other into a new descriptor.
func Merge(d, other *TupleDesc) *TupleDesc {
	fields := make([]FieldType, 0, len(d.Fields)+len(other.Fields))
	fields = append(fields, d.Fields...)
	fields = append(fields, other.Fields...)
	return &TupleDesc{Fields: fields}
}

// HeaderString renders the descriptor as a column header, either comma
// separated or space-aligned into fixed-width columns.
func (d *TupleDesc) HeaderString(aligned bool) string {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.qualifiedName()
	}
	if aligned {
		return alignedRow(names)
	}
	return strings.Join(names, ",")
}

func alignedRow(cols []string) string {
	const winWidth = 120
	if len(cols) == 0 {
		return ""
	}
	colWidth := winWidth / len(cols)
	var b strings.Builder
	for _, c := range cols {
		b.WriteString(fmtCol(c, colWidth))
	}
	return b.String()
}

func fmtCol(v string, colWidth int) string {
	pad := colWidth - len(v) - 3
	if pad <= 0 {
		if len(v) > colWidth-4 && colWidth > 4 {
			v = v[:colWidth-4]
		}
		return " " + v + " |"
	}
	left := pad / 2
	right := pad - left
	return strings.Repeat(" ", left) + v + strings.Repeat(" ", right) + " |"
}

// DBValue is the interface every field value (IntField, StringField)
// implements: comparison against another value of the same underlying type.
type DBValue interface {
	EvalPred(other DBValue, op BoolOp) bool
}

// IntField is the value of an INT field.
type IntField struct {
	Value int32
}

// StringField is the value of a STRING field.
type StringField struct {
	Value string
}
