package ledger

import "time"

// Value is one member of the ledger's value algebra. The union is closed:
// the concrete types in this package are the only implementations, and the
// conversion layer rejects anything else rather than coercing it.
type Value interface {
	isValue()
}

// Unit is the zero-information value.
type Unit struct{}

// Bool is a boolean value.
type Bool bool

// Int64 is a signed 64-bit integer value.
type Int64 int64

// Text is a UTF-8 string value.
type Text string

// Party identifies a ledger party. The identifier is opaque to clients.
type Party string

// ContractID identifies a contract instance. The identifier is opaque to
// clients and only meaningful to the ledger node that issued it.
type ContractID string

// Timestamp is an instant in UTC with microsecond resolution. Construction
// truncates finer resolutions; two timestamps are equal when their
// microsecond counts are equal.
type Timestamp struct {
	micros int64
}

// NewTimestamp builds a Timestamp from t, truncated to microseconds in UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{micros: t.UTC().UnixMicro()}
}

// TimestampFromMicros builds a Timestamp from microseconds since the Unix
// epoch.
func TimestampFromMicros(micros int64) Timestamp {
	return Timestamp{micros: micros}
}

// Time returns the instant in UTC.
func (t Timestamp) Time() time.Time {
	return time.UnixMicro(t.micros).UTC()
}

// Micros returns microseconds since the Unix epoch.
func (t Timestamp) Micros() int64 {
	return t.micros
}

// Date is a calendar date, stored as days since the Unix epoch.
type Date struct {
	days int32
}

// NewDate builds a Date from the calendar day of t in UTC.
func NewDate(t time.Time) Date {
	u := t.UTC()
	midnight := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return Date{days: int32(midnight.Unix() / 86400)}
}

// DateFromDays builds a Date from days since the Unix epoch.
func DateFromDays(days int32) Date {
	return Date{days: days}
}

// Days returns days since the Unix epoch.
func (d Date) Days() int32 {
	return d.days
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Unix(int64(d.days)*86400, 0).UTC()
}

// List is an ordered sequence of values.
type List []Value

// Optional wraps a value that may be absent. A nil Value means empty.
type Optional struct {
	Value Value
}

// TextMapEntry is one key/value pair of a TextMap.
type TextMapEntry struct {
	Key   string
	Value Value
}

// TextMap is a string-keyed map. Keys are unique; entry order is preserved
// on the wire, but equality ignores it.
type TextMap []TextMapEntry

// GenMapEntry is one key/value pair of a GenMap.
type GenMapEntry struct {
	Key   Value
	Value Value
}

// GenMap is an ordered sequence of key/value pairs keyed by arbitrary
// values. Unlike TextMap, pair order is significant for equality.
type GenMap []GenMapEntry

// RecordField is one field of a Record. An empty Label means the field is
// positional.
type RecordField struct {
	Label string
	Value Value
}

// Record is an ordered sequence of fields, optionally tagged with the
// identifier of its template or data type. Field order is significant and
// preserved end-to-end.
type Record struct {
	ID     *Identifier
	Fields []RecordField
}

// Variant is a constructor application of a sum type.
type Variant struct {
	ID          *Identifier
	Constructor string
	Value       Value
}

// Enum is a constructor of an enumeration type.
type Enum struct {
	ID          *Identifier
	Constructor string
}

func (Unit) isValue()       {}
func (Bool) isValue()       {}
func (Int64) isValue()      {}
func (Numeric) isValue()    {}
func (Text) isValue()       {}
func (Timestamp) isValue()  {}
func (Date) isValue()       {}
func (Party) isValue()      {}
func (ContractID) isValue() {}
func (List) isValue()       {}
func (Optional) isValue()   {}
func (TextMap) isValue()    {}
func (GenMap) isValue()     {}
func (Record) isValue()     {}
func (Variant) isValue()    {}
func (Enum) isValue()       {}

// Equal reports structural equality of two values. TextMap comparison is
// key-based and ignores entry order; all other collections compare in
// order. Numeric values compare by numeric value.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case Unit:
		_, ok := b.(Unit)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Int64:
		bv, ok := b.(Int64)
		return ok && av == bv
	case Numeric:
		bv, ok := b.(Numeric)
		return ok && av.Equal(bv)
	case Text:
		bv, ok := b.(Text)
		return ok && av == bv
	case Timestamp:
		bv, ok := b.(Timestamp)
		return ok && av.micros == bv.micros
	case Date:
		bv, ok := b.(Date)
		return ok && av.days == bv.days
	case Party:
		bv, ok := b.(Party)
		return ok && av == bv
	case ContractID:
		bv, ok := b.(ContractID)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Optional:
		bv, ok := b.(Optional)
		if !ok {
			return false
		}
		if av.Value == nil || bv.Value == nil {
			return av.Value == nil && bv.Value == nil
		}
		return Equal(av.Value, bv.Value)
	case TextMap:
		bv, ok := b.(TextMap)
		if !ok || len(av) != len(bv) {
			return false
		}
		index := make(map[string]Value, len(bv))
		for _, entry := range bv {
			index[entry.Key] = entry.Value
		}
		if len(index) != len(av) {
			return false
		}
		for _, entry := range av {
			other, found := index[entry.Key]
			if !found || !Equal(entry.Value, other) {
				return false
			}
		}
		return true
	case GenMap:
		bv, ok := b.(GenMap)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i].Key, bv[i].Key) || !Equal(av[i].Value, bv[i].Value) {
				return false
			}
		}
		return true
	case Record:
		bv, ok := b.(Record)
		return ok && recordsEqual(av, bv)
	case Variant:
		bv, ok := b.(Variant)
		if !ok || av.Constructor != bv.Constructor {
			return false
		}
		if !identifiersEqual(av.ID, bv.ID) {
			return false
		}
		return Equal(av.Value, bv.Value)
	case Enum:
		bv, ok := b.(Enum)
		return ok && av.Constructor == bv.Constructor && identifiersEqual(av.ID, bv.ID)
	default:
		return false
	}
}

func recordsEqual(a, b Record) bool {
	if !identifiersEqual(a.ID, b.ID) {
		return false
	}
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	for i := range a.Fields {
		if a.Fields[i].Label != b.Fields[i].Label {
			return false
		}
		if !Equal(a.Fields[i].Value, b.Fields[i].Value) {
			return false
		}
	}
	return true
}

func identifiersEqual(a, b *Identifier) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
