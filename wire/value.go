package wire

// Identifier names a template or data type.
type Identifier struct {
	PackageID  string `cbor:"package_id"`
	ModuleName string `cbor:"module_name"`
	EntityName string `cbor:"entity_name"`
}

// Value is the wire form of one ledger value. Exactly one field is set.
type Value struct {
	Unit       *Unit     `cbor:"unit,omitempty"`
	Bool       *bool     `cbor:"bool,omitempty"`
	Int64      *int64    `cbor:"int64,omitempty"`
	Numeric    *string   `cbor:"numeric,omitempty"`
	Text       *string   `cbor:"text,omitempty"`
	Timestamp  *int64    `cbor:"timestamp,omitempty"`
	Date       *int32    `cbor:"date,omitempty"`
	Party      *string   `cbor:"party,omitempty"`
	ContractID *string   `cbor:"contract_id,omitempty"`
	List       *List     `cbor:"list,omitempty"`
	Optional   *Optional `cbor:"optional,omitempty"`
	TextMap    *TextMap  `cbor:"text_map,omitempty"`
	GenMap     *GenMap   `cbor:"gen_map,omitempty"`
	Record     *Record   `cbor:"record,omitempty"`
	Variant    *Variant  `cbor:"variant,omitempty"`
	Enum       *Enum     `cbor:"enum,omitempty"`
}

// Unit carries no data.
type Unit struct{}

// List is an ordered sequence of values.
type List struct {
	Elements []Value `cbor:"elements,omitempty"`
}

// Optional wraps an optional value; a nil Value means empty.
type Optional struct {
	Value *Value `cbor:"value,omitempty"`
}

// TextMap is a string-keyed map serialized as an entry list. Entry order
// is preserved.
type TextMap struct {
	Entries []TextMapEntry `cbor:"entries,omitempty"`
}

// TextMapEntry is one TextMap pair.
type TextMapEntry struct {
	Key   string `cbor:"key"`
	Value *Value `cbor:"value"`
}

// GenMap is a map keyed by arbitrary values, serialized as an ordered
// entry list.
type GenMap struct {
	Entries []GenMapEntry `cbor:"entries,omitempty"`
}

// GenMapEntry is one GenMap pair.
type GenMapEntry struct {
	Key   *Value `cbor:"key"`
	Value *Value `cbor:"value"`
}

// Record is an ordered field sequence, optionally tagged with its type.
type Record struct {
	RecordID *Identifier   `cbor:"record_id,omitempty"`
	Fields   []RecordField `cbor:"fields,omitempty"`
}

// RecordField is one record field. An empty label means positional.
type RecordField struct {
	Label string `cbor:"label,omitempty"`
	Value *Value `cbor:"value"`
}

// Variant is a constructor application of a sum type.
type Variant struct {
	VariantID   *Identifier `cbor:"variant_id,omitempty"`
	Constructor string      `cbor:"constructor"`
	Value       *Value      `cbor:"value"`
}

// Enum is a constructor of an enumeration type.
type Enum struct {
	EnumID      *Identifier `cbor:"enum_id,omitempty"`
	Constructor string      `cbor:"constructor"`
}
