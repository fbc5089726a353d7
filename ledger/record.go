package ledger

// NewRecord builds an untagged record from fields in order.
func NewRecord(fields ...RecordField) Record {
	return Record{Fields: fields}
}

// NewTaggedRecord builds a record tagged with the given identifier.
func NewTaggedRecord(id Identifier, fields ...RecordField) Record {
	return Record{ID: &id, Fields: fields}
}

// Field builds one labeled record field.
func Field(label string, value Value) RecordField {
	return RecordField{Label: label, Value: value}
}

// Get returns the value of the first field with the given label.
func (r Record) Get(label string) (Value, bool) {
	for _, f := range r.Fields {
		if f.Label == label {
			return f.Value, true
		}
	}
	return nil, false
}

// Labels returns the field labels in declaration order. Positional fields
// contribute empty strings.
func (r Record) Labels() []string {
	labels := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		labels[i] = f.Label
	}
	return labels
}

// Some wraps a value in a present Optional.
func Some(v Value) Optional {
	return Optional{Value: v}
}

// None is the empty Optional.
func None() Optional {
	return Optional{}
}
