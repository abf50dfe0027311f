package pipeline

import (
	"sort"

	"github.com/rnwood/Fake4Dataverse-sub003/id"
)

// Record is a single business record: an identity, a logical entity type,
// and a bag of named attributes. The pipeline never interprets attribute
// values; handlers mutate the target record freely and the storage engine
// observes the result.
type Record struct {
	ID          id.RecordID    `json:"id"`
	LogicalName string         `json:"logical_name"`
	Attributes  map[string]any `json:"attributes"`
}

// NewRecord creates an empty record of the given entity type with a fresh ID.
func NewRecord(logicalName string) *Record {
	return &Record{
		ID:          id.NewRecordID(),
		LogicalName: logicalName,
		Attributes:  make(map[string]any),
	}
}

// Get returns the named attribute and whether it is present.
func (r *Record) Get(name string) (any, bool) {
	if r == nil || r.Attributes == nil {
		return nil, false
	}
	v, ok := r.Attributes[name]
	return v, ok
}

// Set stores the named attribute, allocating the attribute map if needed.
func (r *Record) Set(name string, value any) {
	if r.Attributes == nil {
		r.Attributes = make(map[string]any)
	}
	r.Attributes[name] = value
}

// Has reports whether the named attribute is present.
func (r *Record) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// AttributeNames returns the record's attribute names in sorted order.
func (r *Record) AttributeNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.Attributes))
	for name := range r.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a copy of the record with its own attribute map.
// Attribute values are copied shallowly.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := &Record{
		ID:          r.ID,
		LogicalName: r.LogicalName,
		Attributes:  make(map[string]any, len(r.Attributes)),
	}
	for k, v := range r.Attributes {
		cp.Attributes[k] = v
	}
	return cp
}

// Filter returns a copy containing only the named attributes. Identity and
// logical name are always retained. An empty or nil name list keeps every
// attribute. Names absent from the record are ignored.
func (r *Record) Filter(names []string) *Record {
	if r == nil {
		return nil
	}
	if len(names) == 0 {
		return r.Clone()
	}
	cp := &Record{
		ID:          r.ID,
		LogicalName: r.LogicalName,
		Attributes:  make(map[string]any, len(names)),
	}
	for _, name := range names {
		if v, ok := r.Attributes[name]; ok {
			cp.Attributes[name] = v
		}
	}
	return cp
}
