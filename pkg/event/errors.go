package event

import "errors"

// Errors returned by Decode. Every rejection wraps exactly one of these.
var (
	// ErrMalformedJSON is returned when a line is not valid JSON.
	ErrMalformedJSON = errors.New("malformed JSON line")

	// ErrNotObject is returned when a line decodes to an array, a
	// primitive or null instead of an object.
	ErrNotObject = errors.New("record is not a JSON object")

	// ErrMissingField is returned when a required field is absent or empty.
	ErrMissingField = errors.New("required field missing")

	// ErrInvalidField is returned when a field is present with the wrong type.
	ErrInvalidField = errors.New("field has invalid type")

	// ErrUnsupportedSchema is returned when schemaVersion is not SchemaVersion.
	ErrUnsupportedSchema = errors.New("unsupported schema version")
)

// DecodeError provides context about a rejected line.
type DecodeError struct {
	Field string // Offending field, empty for whole-line failures
	Data  string // The rejected line, truncated
	Err   error  // One of the sentinel errors above
}

const maxErrorData = 100

func newDecodeError(field string, line []byte, err error) *DecodeError {
	data := string(line)
	if len(data) > maxErrorData {
		data = data[:maxErrorData] + "..."
	}
	return &DecodeError{Field: field, Data: data, Err: err}
}

func (e *DecodeError) Error() string {
	if e.Field != "" {
		return "decode error: " + e.Field + ": " + e.Err.Error()
	}
	return "decode error: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
