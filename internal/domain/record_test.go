package domain

import (
	"bytes"
	"encoding/json"
	"testing"
)

func decodeRecord(t *testing.T, raw string) Record {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var r Record
	if err := dec.Decode(&r); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	return r
}

func TestParseKind(t *testing.T) {
	for _, in := range []string{"users", "Users", " products "} {
		if _, err := ParseKind(in); err != nil {
			t.Errorf("ParseKind(%q) error: %v", in, err)
		}
	}
	if _, err := ParseKind("orders"); !IsNotFound(err) {
		t.Errorf("ParseKind(orders) error = %v; want not found", err)
	}
}

func TestRecord_ID(t *testing.T) {
	r := decodeRecord(t, `{"id": 42, "title": "x"}`)
	if got := r.ID(); got != 42 {
		t.Errorf("ID() = %d; want 42", got)
	}
	if got := (Record{"title": "no id"}).ID(); got != 0 {
		t.Errorf("ID() without id = %d; want 0", got)
	}
	if got := (Record{"id": float64(7)}).ID(); got != 7 {
		t.Errorf("ID() float = %d; want 7", got)
	}
}

func TestRecord_Lookup(t *testing.T) {
	r := decodeRecord(t, `{"firstName":"Emily","address":{"city":"Phoenix","geo":null},"tags":["a"]}`)

	tests := []struct {
		name   string
		path   string
		want   any
		wantOK bool
	}{
		{"top level", "firstName", "Emily", true},
		{"nested", "address.city", "Phoenix", true},
		{"nested null", "address.geo", nil, true},
		{"missing leaf", "address.state", nil, false},
		{"missing parent", "company.name", nil, false},
		{"through non-object", "firstName.length", nil, false},
		{"through array", "tags.0", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Lookup(tt.path)
			if ok != tt.wantOK {
				t.Fatalf("Lookup(%q) ok = %v; want %v", tt.path, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Lookup(%q) = %v; want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestRecord_Text(t *testing.T) {
	r := decodeRecord(t, `{"price":9.99,"stock":0,"brand":null,"company":{"name":"Acme"}}`)

	if got, ok := r.Text("price"); !ok || got != "9.99" {
		t.Errorf("Text(price) = %q, %v", got, ok)
	}
	if got, ok := r.Text("stock"); !ok || got != "0" {
		t.Errorf("Text(stock) = %q, %v", got, ok)
	}
	if _, ok := r.Text("brand"); ok {
		t.Error("Text(brand) should report false for null")
	}
	if got, ok := r.Text("company.name"); !ok || got != "Acme" {
		t.Errorf("Text(company.name) = %q, %v", got, ok)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "N/A"},
		{"string", "Laptop", "Laptop"},
		{"json number", json.Number("1899.99"), "1899.99"},
		{"float", float64(3), "3"},
		{"bool", true, "true"},
		{"object", map[string]any{"city": "Phoenix"}, `{"city":"Phoenix"}`},
		{"array", []any{"a", "b"}, `["a","b"]`},
		{"int", 12, "12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatValue(tt.in); got != tt.want {
				t.Errorf("FormatValue() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestContainsFold(t *testing.T) {
	if !ContainsFold("SSD Drive", "ssd") {
		t.Error("expected case-insensitive match")
	}
	if ContainsFold("Keyboard", "ssd") {
		t.Error("unexpected match")
	}
	if !ContainsFold("anything", "") {
		t.Error("empty needle should match")
	}
}
