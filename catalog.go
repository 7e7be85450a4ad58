package heapdb

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/exp/maps"
)

// catalogEntry is one registered table.
type catalogEntry struct {
	tableId    int64
	name       string
	file       *HeapFile
	primaryKey string
}

// Catalog maps tableId ↔ (name, file, primaryKeyName) (spec.md §4.3). Name
// collisions: the last addTable call for a given name wins for name-based
// lookup, but the evicted entry's tableId remains addressable by id.
type Catalog struct {
	byId   map[int64]*catalogEntry
	byName map[string]int64
}

// NewCatalog creates an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		byId:   make(map[int64]*catalogEntry),
		byName: make(map[string]int64),
	}
}

// addTable registers file under name, with the given primary key field name
// (empty string if the table has none).
func (c *Catalog) addTable(name string, file *HeapFile, primaryKey string) {
	id := file.id()
	c.byId[id] = &catalogEntry{tableId: id, name: name, file: file, primaryKey: primaryKey}
	c.byName[name] = id
}

func (c *Catalog) getTableId(name string) (int64, error) {
	id, ok := c.byName[name]
	if !ok {
		return 0, NewGoDBError(NoSuchTable, fmt.Sprintf("no table named %s", name))
	}
	return id, nil
}

func (c *Catalog) getDatabaseFile(tableId int64) (*HeapFile, error) {
	e, ok := c.byId[tableId]
	if !ok {
		return nil, NewGoDBError(NoSuchTable, fmt.Sprintf("no table with id %d", tableId))
	}
	return e.file, nil
}

func (c *Catalog) getTupleDesc(tableId int64) (*TupleDesc, error) {
	f, err := c.getDatabaseFile(tableId)
	if err != nil {
		return nil, err
	}
	return f.Descriptor(), nil
}

func (c *Catalog) getPrimaryKey(tableId int64) (string, error) {
	e, ok := c.byId[tableId]
	if !ok {
		return "", NewGoDBError(NoSuchTable, fmt.Sprintf("no table with id %d", tableId))
	}
	return e.primaryKey, nil
}

func (c *Catalog) getTableName(tableId int64) (string, error) {
	e, ok := c.byId[tableId]
	if !ok {
		return "", NewGoDBError(NoSuchTable, fmt.Sprintf("no table with id %d", tableId))
	}
	return e.name, nil
}

// tableIds returns every registered tableId, in no particular order.
func (c *Catalog) tableIds() []int64 {
	return maps.Keys(c.byId)
}

// clear removes every registered table.
func (c *Catalog) clear() {
	maps.Clear(c.byId)
	maps.Clear(c.byName)
}

// LoadCatalog opens the schema file at path and loads every table it
// describes into a fresh Catalog, rooting each table's backing HeapFile in
// path's directory and routing its pages through bp.
func LoadCatalog(path string, bp *BufferPool) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewGoDBError(PageReadError, fmt.Sprintf("cannot open catalog file %s: %v", path, err))
	}
	defer f.Close()
	cat := NewCatalog()
	if err := ParseCatalogFile(f, filepath.Dir(path), bp, cat); err != nil {
		return nil, err
	}
	return cat, nil
}

// ParseCatalogFile parses a schema-description file: one table per line,
// `name ( field1 type1 [pk], field2 type2, ... )`. types are "int" (or
// "integer") or "string", case-insensitive; at most one field per table
// carries the trailing `pk` marker.
// Each named table is opened as a HeapFile rooted at dir, using
// "<dir>/<name>.dat" as its backing file, and registered into cat.
func ParseCatalogFile(r io.Reader, dir string, bp *BufferPool, cat *Catalog) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, desc, primaryKey, err := parseCatalogLine(line)
		if err != nil {
			return err
		}
		path := dir + "/" + name + ".dat"
		file, err := NewHeapFile(path, desc, bp)
		if err != nil {
			return err
		}
		cat.addTable(name, file, primaryKey)
	}
	return scanner.Err()
}

// parseCatalogLine parses one schema-file line: `name ( field type [pk], ...
// )`. Each field may carry one optional trailing `pk` annotation; at most
// one field in the table may be marked `pk`, and any other trailing token is
// a fatal configuration error (spec.md §6).
func parseCatalogLine(line string) (string, *TupleDesc, string, error) {
	open := strings.Index(line, "(")
	shut := strings.LastIndex(line, ")")
	if open < 0 || shut < 0 || shut < open {
		return "", nil, "", NewGoDBError(MalformedDataError, fmt.Sprintf("malformed catalog line: %s", line))
	}
	name := strings.TrimSpace(line[:open])
	body := line[open+1 : shut]

	fieldSpecs := strings.Split(body, ",")
	fields := make([]FieldType, 0, len(fieldSpecs))
	primaryKey := ""
	for _, spec := range fieldSpecs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		parts := strings.Fields(spec)
		if len(parts) < 2 || len(parts) > 3 {
			return "", nil, "", NewGoDBError(MalformedDataError, fmt.Sprintf("malformed field spec: %s", spec))
		}
		fname, ftypeName := parts[0], strings.ToLower(parts[1])
		var ftype DBType
		switch ftypeName {
		case "int", "integer":
			ftype = IntType
		case "string":
			ftype = StringType
		default:
			return "", nil, "", NewGoDBError(MalformedDataError, fmt.Sprintf("unknown field type: %s", ftypeName))
		}
		if len(parts) == 3 {
			if strings.ToLower(parts[2]) != "pk" {
				return "", nil, "", NewGoDBError(MalformedDataError, fmt.Sprintf("unknown field annotation: %s", parts[2]))
			}
			if primaryKey != "" {
				return "", nil, "", NewGoDBError(MalformedDataError, fmt.Sprintf("table %s names more than one primary key", name))
			}
			primaryKey = fname
		}
		fields = append(fields, FieldType{Fname: fname, TableQualifier: name, Ftype: ftype})
	}
	if len(fields) == 0 {
		return "", nil, "", NewGoDBError(MalformedDataError, fmt.Sprintf("table %s has no fields", name))
	}
	return name, &TupleDesc{Fields: fields}, primaryKey, nil
}
