package schema

import "testing"

func testTables() []Table {
	return []Table{
		{Name: "products", Columns: []Column{
			{Name: "id", DataType: "integer"},
			{Name: "price", DataType: "double precision"},
		}},
		{Name: "customers", Columns: []Column{
			{Name: "id", DataType: "integer"},
			{Name: "name", DataType: "character varying"},
		}},
	}
}

func TestNewDescriptor_SortsTables(t *testing.T) {
	d := NewDescriptor(testTables())

	tables := d.Tables()
	if len(tables) != 2 {
		t.Fatalf("table count = %d, want 2", len(tables))
	}
	if tables[0].Name != "customers" || tables[1].Name != "products" {
		t.Fatalf("tables not in name order: %s, %s", tables[0].Name, tables[1].Name)
	}
}

func TestDescriptor_Lookups(t *testing.T) {
	d := NewDescriptor(testTables())

	if !d.HasTable("customers") {
		t.Error("HasTable(customers) = false")
	}
	if !d.HasTable("CUSTOMERS") {
		t.Error("HasTable should fold case")
	}
	if d.HasTable("orders") {
		t.Error("HasTable(orders) = true for unknown table")
	}

	if !d.Contains("products", "price") {
		t.Error("Contains(products, price) = false")
	}
	if !d.Contains("Products", "PRICE") {
		t.Error("Contains should fold case")
	}
	if d.Contains("products", "name") {
		t.Error("Contains matched a column from another table")
	}
	if d.Contains("ghost", "id") {
		t.Error("Contains matched an unknown table")
	}

	if !d.HasColumn("name") {
		t.Error("HasColumn(name) = false")
	}
	if !d.HasColumn("id") {
		t.Error("HasColumn(id) = false")
	}
	if d.HasColumn("salary") {
		t.Error("HasColumn(salary) = true for unknown column")
	}
}

func TestDescriptor_IsEmpty(t *testing.T) {
	if !NewDescriptor(nil).IsEmpty() {
		t.Error("empty descriptor not reported empty")
	}
	if NewDescriptor(testTables()).IsEmpty() {
		t.Error("populated descriptor reported empty")
	}
}
