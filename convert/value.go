package convert

import (
	"github.com/vellumledger/go-vellum/ledger"
	"github.com/vellumledger/go-vellum/wire"
)

// ValueToWire encodes a domain value. Identifiers inside the value must
// already be resolved to concrete package IDs.
func ValueToWire(v ledger.Value) (*wire.Value, error) {
	return valueToWire(v, "value")
}

// ValueFromWire decodes a wire value, strictly. An empty or unrecognized
// oneof yields UnsupportedVariantError; a message with several branches
// set is malformed.
func ValueFromWire(v *wire.Value) (ledger.Value, error) {
	return valueFromWire(v, "value")
}

// RecordToWire encodes a record, preserving field order.
func RecordToWire(r ledger.Record) (*wire.Record, error) {
	return recordToWire(r, "record")
}

// RecordFromWire decodes a record, preserving field order.
func RecordFromWire(r *wire.Record) (ledger.Record, error) {
	return recordFromWire(r, "record")
}

// IdentifierToWire encodes an identifier. The package must be resolved;
// encoding an alias is an error, not a silent passthrough.
func IdentifierToWire(id ledger.Identifier) (*wire.Identifier, error) {
	return identifierToWire(id, "identifier")
}

// IdentifierFromWire decodes an identifier.
func IdentifierFromWire(id *wire.Identifier) (ledger.Identifier, error) {
	return identifierFromWire(id, "identifier")
}

func valueToWire(v ledger.Value, path string) (*wire.Value, error) {
	switch x := v.(type) {
	case nil:
		return nil, errAt(path, "value required")
	case ledger.Unit:
		return &wire.Value{Unit: &wire.Unit{}}, nil
	case ledger.Bool:
		b := bool(x)
		return &wire.Value{Bool: &b}, nil
	case ledger.Int64:
		n := int64(x)
		return &wire.Value{Int64: &n}, nil
	case ledger.Numeric:
		s := x.String()
		return &wire.Value{Numeric: &s}, nil
	case ledger.Text:
		s := string(x)
		return &wire.Value{Text: &s}, nil
	case ledger.Timestamp:
		us := x.Micros()
		return &wire.Value{Timestamp: &us}, nil
	case ledger.Date:
		days := x.Days()
		return &wire.Value{Date: &days}, nil
	case ledger.Party:
		s := string(x)
		return &wire.Value{Party: &s}, nil
	case ledger.ContractID:
		s := string(x)
		return &wire.Value{ContractID: &s}, nil
	case ledger.List:
		elements := make([]wire.Value, len(x))
		for i, elem := range x {
			enc, err := valueToWire(elem, index(path, "list.elements", i))
			if err != nil {
				return nil, err
			}
			elements[i] = *enc
		}
		return &wire.Value{List: &wire.List{Elements: elements}}, nil
	case ledger.Optional:
		if x.Value == nil {
			return &wire.Value{Optional: &wire.Optional{}}, nil
		}
		inner, err := valueToWire(x.Value, child(path, "optional.value"))
		if err != nil {
			return nil, err
		}
		return &wire.Value{Optional: &wire.Optional{Value: inner}}, nil
	case ledger.TextMap:
		entries := make([]wire.TextMapEntry, len(x))
		seen := make(map[string]struct{}, len(x))
		for i, entry := range x {
			entryPath := index(path, "text_map.entries", i)
			if _, dup := seen[entry.Key]; dup {
				return nil, errAt(entryPath, "duplicate key %q", entry.Key)
			}
			seen[entry.Key] = struct{}{}
			enc, err := valueToWire(entry.Value, child(entryPath, "value"))
			if err != nil {
				return nil, err
			}
			entries[i] = wire.TextMapEntry{Key: entry.Key, Value: enc}
		}
		return &wire.Value{TextMap: &wire.TextMap{Entries: entries}}, nil
	case ledger.GenMap:
		entries := make([]wire.GenMapEntry, len(x))
		for i, entry := range x {
			entryPath := index(path, "gen_map.entries", i)
			key, err := valueToWire(entry.Key, child(entryPath, "key"))
			if err != nil {
				return nil, err
			}
			val, err := valueToWire(entry.Value, child(entryPath, "value"))
			if err != nil {
				return nil, err
			}
			entries[i] = wire.GenMapEntry{Key: key, Value: val}
		}
		return &wire.Value{GenMap: &wire.GenMap{Entries: entries}}, nil
	case ledger.Record:
		rec, err := recordToWire(x, child(path, "record"))
		if err != nil {
			return nil, err
		}
		return &wire.Value{Record: rec}, nil
	case ledger.Variant:
		if x.Constructor == "" {
			return nil, errAt(child(path, "variant.constructor"), "constructor required")
		}
		variant := &wire.Variant{Constructor: x.Constructor}
		if x.ID != nil {
			id, err := identifierToWire(*x.ID, child(path, "variant.variant_id"))
			if err != nil {
				return nil, err
			}
			variant.VariantID = id
		}
		inner, err := valueToWire(x.Value, child(path, "variant.value"))
		if err != nil {
			return nil, err
		}
		variant.Value = inner
		return &wire.Value{Variant: variant}, nil
	case ledger.Enum:
		if x.Constructor == "" {
			return nil, errAt(child(path, "enum.constructor"), "constructor required")
		}
		enum := &wire.Enum{Constructor: x.Constructor}
		if x.ID != nil {
			id, err := identifierToWire(*x.ID, child(path, "enum.enum_id"))
			if err != nil {
				return nil, err
			}
			enum.EnumID = id
		}
		return &wire.Value{Enum: enum}, nil
	default:
		return nil, errAt(path, "unsupported value type %T", v)
	}
}

func valueFromWire(v *wire.Value, path string) (ledger.Value, error) {
	if v == nil {
		return nil, errAt(path, "value required")
	}
	if n := setBranches(v); n > 1 {
		return nil, errAt(path, "%d oneof branches set, want exactly one", n)
	}
	switch {
	case v.Unit != nil:
		return ledger.Unit{}, nil
	case v.Bool != nil:
		return ledger.Bool(*v.Bool), nil
	case v.Int64 != nil:
		return ledger.Int64(*v.Int64), nil
	case v.Numeric != nil:
		n, err := ledger.ParseNumeric(*v.Numeric)
		if err != nil {
			return nil, wrapAt(child(path, "numeric"), err)
		}
		return n, nil
	case v.Text != nil:
		return ledger.Text(*v.Text), nil
	case v.Timestamp != nil:
		return ledger.TimestampFromMicros(*v.Timestamp), nil
	case v.Date != nil:
		return ledger.DateFromDays(*v.Date), nil
	case v.Party != nil:
		return ledger.Party(*v.Party), nil
	case v.ContractID != nil:
		return ledger.ContractID(*v.ContractID), nil
	case v.List != nil:
		elements := make(ledger.List, len(v.List.Elements))
		for i := range v.List.Elements {
			dec, err := valueFromWire(&v.List.Elements[i], index(path, "list.elements", i))
			if err != nil {
				return nil, err
			}
			elements[i] = dec
		}
		return elements, nil
	case v.Optional != nil:
		if v.Optional.Value == nil {
			return ledger.None(), nil
		}
		inner, err := valueFromWire(v.Optional.Value, child(path, "optional.value"))
		if err != nil {
			return nil, err
		}
		return ledger.Some(inner), nil
	case v.TextMap != nil:
		entries := make(ledger.TextMap, len(v.TextMap.Entries))
		seen := make(map[string]struct{}, len(v.TextMap.Entries))
		for i, entry := range v.TextMap.Entries {
			entryPath := index(path, "text_map.entries", i)
			if _, dup := seen[entry.Key]; dup {
				return nil, errAt(entryPath, "duplicate key %q", entry.Key)
			}
			seen[entry.Key] = struct{}{}
			dec, err := valueFromWire(entry.Value, child(entryPath, "value"))
			if err != nil {
				return nil, err
			}
			entries[i] = ledger.TextMapEntry{Key: entry.Key, Value: dec}
		}
		return entries, nil
	case v.GenMap != nil:
		entries := make(ledger.GenMap, len(v.GenMap.Entries))
		for i, entry := range v.GenMap.Entries {
			entryPath := index(path, "gen_map.entries", i)
			key, err := valueFromWire(entry.Key, child(entryPath, "key"))
			if err != nil {
				return nil, err
			}
			val, err := valueFromWire(entry.Value, child(entryPath, "value"))
			if err != nil {
				return nil, err
			}
			entries[i] = ledger.GenMapEntry{Key: key, Value: val}
		}
		return entries, nil
	case v.Record != nil:
		return recordFromWire(v.Record, child(path, "record"))
	case v.Variant != nil:
		if v.Variant.Constructor == "" {
			return nil, errAt(child(path, "variant.constructor"), "constructor required")
		}
		variant := ledger.Variant{Constructor: v.Variant.Constructor}
		if v.Variant.VariantID != nil {
			id, err := identifierFromWire(v.Variant.VariantID, child(path, "variant.variant_id"))
			if err != nil {
				return nil, err
			}
			variant.ID = &id
		}
		inner, err := valueFromWire(v.Variant.Value, child(path, "variant.value"))
		if err != nil {
			return nil, err
		}
		variant.Value = inner
		return variant, nil
	case v.Enum != nil:
		if v.Enum.Constructor == "" {
			return nil, errAt(child(path, "enum.constructor"), "constructor required")
		}
		enum := ledger.Enum{Constructor: v.Enum.Constructor}
		if v.Enum.EnumID != nil {
			id, err := identifierFromWire(v.Enum.EnumID, child(path, "enum.enum_id"))
			if err != nil {
				return nil, err
			}
			enum.ID = &id
		}
		return enum, nil
	default:
		return nil, &UnsupportedVariantError{Path: path}
	}
}

func setBranches(v *wire.Value) int {
	n := 0
	for _, set := range []bool{
		v.Unit != nil, v.Bool != nil, v.Int64 != nil, v.Numeric != nil,
		v.Text != nil, v.Timestamp != nil, v.Date != nil, v.Party != nil,
		v.ContractID != nil, v.List != nil, v.Optional != nil,
		v.TextMap != nil, v.GenMap != nil, v.Record != nil,
		v.Variant != nil, v.Enum != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

func recordToWire(r ledger.Record, path string) (*wire.Record, error) {
	rec := &wire.Record{}
	if r.ID != nil {
		id, err := identifierToWire(*r.ID, child(path, "record_id"))
		if err != nil {
			return nil, err
		}
		rec.RecordID = id
	}
	if len(r.Fields) > 0 {
		rec.Fields = make([]wire.RecordField, len(r.Fields))
	}
	for i, field := range r.Fields {
		fieldPath := index(path, "fields", i)
		value, err := valueToWire(field.Value, child(fieldPath, "value"))
		if err != nil {
			return nil, err
		}
		rec.Fields[i] = wire.RecordField{Label: field.Label, Value: value}
	}
	return rec, nil
}

func recordFromWire(r *wire.Record, path string) (ledger.Record, error) {
	if r == nil {
		return ledger.Record{}, errAt(path, "record required")
	}
	rec := ledger.Record{}
	if r.RecordID != nil {
		id, err := identifierFromWire(r.RecordID, child(path, "record_id"))
		if err != nil {
			return ledger.Record{}, err
		}
		rec.ID = &id
	}
	if len(r.Fields) > 0 {
		rec.Fields = make([]ledger.RecordField, len(r.Fields))
	}
	for i, field := range r.Fields {
		fieldPath := index(path, "fields", i)
		value, err := valueFromWire(field.Value, child(fieldPath, "value"))
		if err != nil {
			return ledger.Record{}, err
		}
		rec.Fields[i] = ledger.RecordField{Label: field.Label, Value: value}
	}
	return rec, nil
}

func identifierToWire(id ledger.Identifier, path string) (*wire.Identifier, error) {
	if id.Package.Alias != "" && id.Package.ID == "" {
		return nil, errAt(child(path, "package_id"), "package alias %q not resolved", id.Package.Alias)
	}
	if id.Package.ID == "" {
		return nil, errAt(child(path, "package_id"), "package id required")
	}
	if id.Module == "" {
		return nil, errAt(child(path, "module_name"), "module name required")
	}
	if id.Entity == "" {
		return nil, errAt(child(path, "entity_name"), "entity name required")
	}
	return &wire.Identifier{PackageID: id.Package.ID, ModuleName: id.Module, EntityName: id.Entity}, nil
}

func identifierFromWire(id *wire.Identifier, path string) (ledger.Identifier, error) {
	if id == nil {
		return ledger.Identifier{}, errAt(path, "identifier required")
	}
	if id.PackageID == "" {
		return ledger.Identifier{}, errAt(child(path, "package_id"), "package id required")
	}
	if id.ModuleName == "" {
		return ledger.Identifier{}, errAt(child(path, "module_name"), "module name required")
	}
	if id.EntityName == "" {
		return ledger.Identifier{}, errAt(child(path, "entity_name"), "entity name required")
	}
	return ledger.NewIdentifier(id.PackageID, id.ModuleName, id.EntityName), nil
}
