package ledger

import (
	"testing"
	"time"
)

func TestEqual(t *testing.T) {
	template := NewIdentifier("pkg-1", "Iou", "Transfer")
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"unit", Unit{}, Unit{}, true},
		{"bool equal", Bool(true), Bool(true), true},
		{"bool different", Bool(true), Bool(false), false},
		{"int64", Int64(42), Int64(42), true},
		{"text", Text("hello"), Text("hello"), true},
		{"party", Party("alice"), Party("alice"), true},
		{"party vs text", Party("alice"), Text("alice"), false},
		{"contract id", ContractID("c-1"), ContractID("c-1"), true},
		{"numeric same scale", MustParseNumeric("1.25"), MustParseNumeric("1.25"), true},
		{"numeric different scale", MustParseNumeric("1.10"), MustParseNumeric("1.1"), true},
		{"numeric different value", MustParseNumeric("1.25"), MustParseNumeric("1.26"), false},
		{"timestamp", NewTimestamp(time.Unix(100, 2000)), TimestampFromMicros(100000002), true},
		{"date", NewDate(time.Date(1970, 1, 3, 15, 0, 0, 0, time.UTC)), DateFromDays(2), true},
		{"list equal", List{Int64(1), Int64(2)}, List{Int64(1), Int64(2)}, true},
		{"list order matters", List{Int64(1), Int64(2)}, List{Int64(2), Int64(1)}, false},
		{"list length", List{Int64(1)}, List{Int64(1), Int64(2)}, false},
		{"optional none", None(), None(), true},
		{"optional some", Some(Int64(1)), Some(Int64(1)), true},
		{"optional some vs none", Some(Int64(1)), None(), false},
		{
			"text map ignores order",
			TextMap{{Key: "a", Value: Int64(1)}, {Key: "b", Value: Int64(2)}},
			TextMap{{Key: "b", Value: Int64(2)}, {Key: "a", Value: Int64(1)}},
			true,
		},
		{
			"text map different value",
			TextMap{{Key: "a", Value: Int64(1)}},
			TextMap{{Key: "a", Value: Int64(2)}},
			false,
		},
		{
			"gen map respects order",
			GenMap{{Key: Int64(1), Value: Text("a")}, {Key: Int64(2), Value: Text("b")}},
			GenMap{{Key: Int64(2), Value: Text("b")}, {Key: Int64(1), Value: Text("a")}},
			false,
		},
		{
			"gen map equal",
			GenMap{{Key: Int64(1), Value: Text("a")}},
			GenMap{{Key: Int64(1), Value: Text("a")}},
			true,
		},
		{
			"record",
			NewTaggedRecord(template, Field("amount", MustParseNumeric("10.00")), Field("to", Party("bob"))),
			NewTaggedRecord(template, Field("amount", MustParseNumeric("10.00")), Field("to", Party("bob"))),
			true,
		},
		{
			"record field order matters",
			NewRecord(Field("a", Int64(1)), Field("b", Int64(2))),
			NewRecord(Field("b", Int64(2)), Field("a", Int64(1))),
			false,
		},
		{
			"record id matters",
			NewTaggedRecord(template, Field("a", Int64(1))),
			NewRecord(Field("a", Int64(1))),
			false,
		},
		{
			"variant",
			Variant{ID: &template, Constructor: "Left", Value: Int64(1)},
			Variant{ID: &template, Constructor: "Left", Value: Int64(1)},
			true,
		},
		{
			"variant constructor matters",
			Variant{Constructor: "Left", Value: Int64(1)},
			Variant{Constructor: "Right", Value: Int64(1)},
			false,
		},
		{"enum", Enum{Constructor: "Red"}, Enum{Constructor: "Red"}, true},
		{"enum different", Enum{Constructor: "Red"}, Enum{Constructor: "Blue"}, false},
		{
			"nested",
			List{Some(NewRecord(Field("x", List{Int64(1)})))},
			List{Some(NewRecord(Field("x", List{Int64(1)})))},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := Equal(tt.b, tt.a); got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v (symmetry)", tt.b, tt.a, got, tt.want)
			}
		})
	}
}

func TestTimestampTruncatesToMicros(t *testing.T) {
	instant := time.Date(2026, 3, 14, 9, 26, 53, 589793238, time.UTC)
	ts := NewTimestamp(instant)
	if got, want := ts.Time().Nanosecond(), 589793000; got != want {
		t.Fatalf("nanoseconds = %d, want %d", got, want)
	}
	if !ts.Time().Equal(instant.Truncate(time.Microsecond)) {
		t.Fatalf("Time() = %v, want %v", ts.Time(), instant.Truncate(time.Microsecond))
	}
}

func TestTimestampNormalizesZone(t *testing.T) {
	zone := time.FixedZone("UTC+5", 5*3600)
	local := time.Date(2026, 3, 14, 14, 0, 0, 0, zone)
	if got, want := NewTimestamp(local), NewTimestamp(local.UTC()); got != want {
		t.Fatalf("NewTimestamp in zone = %v, want %v", got, want)
	}
}

func TestDateDays(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want int32
	}{
		{"epoch", time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), 0},
		{"epoch evening", time.Date(1970, 1, 1, 23, 59, 59, 0, time.UTC), 0},
		{"next day", time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC), 1},
		{"before epoch", time.Date(1969, 12, 31, 12, 0, 0, 0, time.UTC), -1},
		{"modern", time.Date(2026, 8, 23, 10, 30, 0, 0, time.UTC), 20688},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewDate(tt.at).Days(); got != tt.want {
				t.Errorf("NewDate(%v).Days() = %d, want %d", tt.at, got, tt.want)
			}
		})
	}
}

func TestRecordGet(t *testing.T) {
	rec := NewRecord(Field("amount", Int64(5)), Field("to", Party("bob")))
	v, ok := rec.Get("to")
	if !ok {
		t.Fatal("Get(to) not found")
	}
	if !Equal(v, Party("bob")) {
		t.Fatalf("Get(to) = %v, want bob", v)
	}
	if _, ok := rec.Get("missing"); ok {
		t.Fatal("Get(missing) found a value")
	}
}
