package heapdb

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCatalogAddAndLookup(t *testing.T) {
	bp := NewBufferPool(10)
	desc := intDesc("a", "b")
	f := newTestHeapFile(t, bp, desc)
	cat := NewCatalog()
	cat.addTable("widgets", f, "a")

	id, err := cat.getTableId("widgets")
	if err != nil {
		t.Fatalf("getTableId: %v", err)
	}
	if id != f.id() {
		t.Fatalf("expected tableId %d, got %d", f.id(), id)
	}
	pk, err := cat.getPrimaryKey(id)
	if err != nil || pk != "a" {
		t.Fatalf("getPrimaryKey: %v, %q", err, pk)
	}
	name, err := cat.getTableName(id)
	if err != nil || name != "widgets" {
		t.Fatalf("getTableName: %v, %q", err, name)
	}
}

func TestCatalogNoSuchTable(t *testing.T) {
	cat := NewCatalog()
	if _, err := cat.getTableId("missing"); err == nil {
		t.Fatalf("expected NoSuchTable error")
	} else if ge, ok := err.(GoDBError); !ok || ge.Code() != NoSuchTable {
		t.Fatalf("expected NoSuchTable, got %v", err)
	}
}

func TestParseCatalogFile(t *testing.T) {
	bp := NewBufferPool(10)
	cat := NewCatalog()
	dir := t.TempDir()
	schema := "widgets ( id int pk, name string )\n"

	if err := ParseCatalogFile(strings.NewReader(schema), dir, bp, cat); err != nil {
		t.Fatalf("ParseCatalogFile: %v", err)
	}
	id, err := cat.getTableId("widgets")
	if err != nil {
		t.Fatalf("getTableId: %v", err)
	}
	td, err := cat.getTupleDesc(id)
	if err != nil {
		t.Fatalf("getTupleDesc: %v", err)
	}
	if len(td.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(td.Fields))
	}
	pk, _ := cat.getPrimaryKey(id)
	if pk != "id" {
		t.Fatalf("expected primary key 'id', got %q", pk)
	}
}

func TestCatalogTableIdsAndClear(t *testing.T) {
	bp := NewBufferPool(10)
	cat := NewCatalog()
	a := newTestHeapFile(t, bp, intDesc("x"))
	b := newTestHeapFile(t, bp, intDesc("y"))
	cat.addTable("a", a, "")
	cat.addTable("b", b, "")

	ids := cat.tableIds()
	if len(ids) != 2 {
		t.Fatalf("expected 2 registered tables, got %d", len(ids))
	}
	seen := map[int64]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	if !seen[a.id()] || !seen[b.id()] {
		t.Fatalf("tableIds missing a registered table: %v", ids)
	}

	cat.clear()
	if len(cat.tableIds()) != 0 {
		t.Fatalf("expected no tables after clear, got %d", len(cat.tableIds()))
	}
	if _, err := cat.getTableId("a"); err == nil {
		t.Fatalf("expected lookup to fail after clear")
	}
}

func TestLoadCatalog(t *testing.T) {
	bp := NewBufferPool(10)
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.txt")
	schema := "gadgets ( id int pk, label string )\n"
	if err := os.WriteFile(path, []byte(schema), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cat, err := LoadCatalog(path, bp)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	id, err := cat.getTableId("gadgets")
	if err != nil {
		t.Fatalf("getTableId: %v", err)
	}
	pk, err := cat.getPrimaryKey(id)
	if err != nil || pk != "id" {
		t.Fatalf("getPrimaryKey: %v, %q", err, pk)
	}
}
