package convert

import "fmt"

// Error reports a failed translation at a specific field path.
type Error struct {
	Path   string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("convert %s: %s", e.Path, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UnsupportedVariantError reports a wire oneof whose set branch, if any,
// is not one this client understands. It marks schema drift between
// client and node.
type UnsupportedVariantError struct {
	Path string
}

func (e *UnsupportedVariantError) Error() string {
	return fmt.Sprintf("convert %s: unsupported wire variant", e.Path)
}

func errAt(path, format string, args ...any) error {
	return &Error{Path: path, Reason: fmt.Sprintf(format, args...)}
}

func wrapAt(path string, err error) error {
	return &Error{Path: path, Reason: err.Error(), Err: err}
}

func child(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}

func index(path, field string, i int) string {
	return fmt.Sprintf("%s[%d]", child(path, field), i)
}
