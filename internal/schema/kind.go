package schema

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/studydesk/storedoctor/pkg/jsonutil"
)

// Kind is the expected JSON shape of a known key.
type Kind int

const (
	KindArray Kind = iota
	KindObject
	KindString
	KindBoolean
)

func (k Kind) String() string {
	switch k {
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ErrUnparseable reports a value that is not valid JSON.
var ErrUnparseable = errors.New("value is not valid JSON")

// MismatchError reports valid JSON of the wrong shape.
type MismatchError struct {
	Expected Kind
	Actual   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("expected %s, found %s", e.Expected, e.Actual)
}

// String and boolean keys are accepted once they parse.
var kindSchemas = map[Kind]string{
	KindArray:   `{"type": "array"}`,
	KindObject:  `{"type": "object"}`,
	KindString:  `{}`,
	KindBoolean: `{}`,
}

var validators = compileValidators()

func compileValidators() map[Kind]*jsonschema.Schema {
	out := make(map[Kind]*jsonschema.Schema, len(kindSchemas))
	for k, src := range kindSchemas {
		out[k] = jsonschema.MustCompileString(fmt.Sprintf("kind-%s.json", k), src)
	}
	return out
}

// Check parses raw and validates its shape. It returns the JSON type
// actually found, ErrUnparseable, or a *MismatchError.
func (k Kind) Check(raw string) (string, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return "", ErrUnparseable
	}
	actual := jsonutil.TypeName(v)

	validator, ok := validators[k]
	if !ok {
		return actual, fmt.Errorf("unknown kind %d", int(k))
	}
	if err := validator.Validate(v); err != nil {
		return actual, &MismatchError{Expected: k, Actual: actual}
	}
	return actual, nil
}
