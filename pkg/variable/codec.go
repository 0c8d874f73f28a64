package variable

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rws-panel/rws-go/pkg/rapid"
	"github.com/rws-panel/rws-go/pkg/rws"
)

// Kind is the decode/encode strategy of a variable.
type Kind uint8

const (
	KindGeneric Kind = iota
	KindString
	KindBool
	KindNumeric
	KindRobTarget
	KindJointTarget
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindGeneric:
		return "GENERIC"
	case KindString:
		return "STRING"
	case KindBool:
		return "BOOL"
	case KindNumeric:
		return "NUMERIC"
	case KindRobTarget:
		return "ROBTARGET"
	case KindJointTarget:
		return "JOINTTARGET"
	default:
		return "UNKNOWN"
	}
}

// numericTypes are the RAPID data types decoded as numbers.
var numericTypes = []string{"num", "dnum", "byte", "intnum"}

// KindOf selects the kind for a symbol's declared properties. Arrays are
// only specialised for numeric element types.
func KindOf(props rws.Properties) Kind {
	dataType := strings.ToLower(props.DataType)
	if slices.Contains(numericTypes, dataType) {
		return KindNumeric
	}
	if props.IsArray() {
		return KindGeneric
	}
	switch dataType {
	case "string":
		return KindString
	case "bool":
		return KindBool
	case "robtarget":
		return KindRobTarget
	case "jointtarget":
		return KindJointTarget
	default:
		return KindGeneric
	}
}

// Codec converts between controller literals and Go values.
type Codec interface {
	Kind() Kind
	Decode(raw string) (any, error)
	Encode(v any) (string, error)
}

// NewCodec returns the codec for props.
func NewCodec(props rws.Properties) Codec {
	dataType := props.DataType
	switch KindOf(props) {
	case KindString:
		return stringCodec{dataType: dataType}
	case KindBool:
		return boolCodec{dataType: dataType}
	case KindNumeric:
		return numericCodec{dataType: dataType, dims: props.Dimensions}
	case KindRobTarget:
		return robTargetCodec{dataType: dataType}
	case KindJointTarget:
		return jointTargetCodec{dataType: dataType}
	default:
		return genericCodec{dataType: dataType}
	}
}

type stringCodec struct{ dataType string }

func (stringCodec) Kind() Kind { return KindString }

func (stringCodec) Decode(raw string) (any, error) {
	return rapid.ParseString(raw), nil
}

func (c stringCodec) Encode(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", mismatch(KindString, c.dataType, v, "expected string")
	}
	return rapid.FormatString(s), nil
}

type boolCodec struct{ dataType string }

func (boolCodec) Kind() Kind { return KindBool }

func (boolCodec) Decode(raw string) (any, error) {
	return rapid.ParseBool(raw), nil
}

func (c boolCodec) Encode(v any) (string, error) {
	b, ok := v.(bool)
	if !ok {
		return "", mismatch(KindBool, c.dataType, v, "expected bool")
	}
	return rapid.FormatBool(b), nil
}

type numericCodec struct {
	dataType string
	dims     []int
}

func (numericCodec) Kind() Kind { return KindNumeric }

func (numericCodec) Decode(raw string) (any, error) {
	return rapid.ParseNumeric(raw)
}

func (c numericCodec) Encode(v any) (string, error) {
	if _, isString := v.(string); isString {
		return "", mismatch(KindNumeric, c.dataType, v, "expected number")
	}
	lit, err := rapid.FormatNumeric(v)
	if err != nil {
		return "", mismatch(KindNumeric, c.dataType, v, err.Error())
	}
	if c.dims == nil {
		if strings.HasPrefix(lit, "[") {
			return "", mismatch(KindNumeric, c.dataType, v, "expected scalar")
		}
		return lit, nil
	}
	tree, err := rapid.ParseNumeric(lit)
	if err != nil {
		return "", err
	}
	if got := rapid.Dimensions(tree); !slices.Equal(got, c.dims) {
		return "", mismatch(KindNumeric, c.dataType, v, fmt.Sprintf("dimensions %v, declared %v", got, c.dims))
	}
	return lit, nil
}

type robTargetCodec struct{ dataType string }

func (robTargetCodec) Kind() Kind { return KindRobTarget }

func (robTargetCodec) Decode(raw string) (any, error) {
	return rapid.ParseRobTarget(raw)
}

func (c robTargetCodec) Encode(v any) (string, error) {
	switch x := v.(type) {
	case rapid.RobTarget:
		return x.String(), nil
	case *rapid.RobTarget:
		if x != nil {
			return x.String(), nil
		}
	case string:
		if _, err := rapid.ParseRobTarget(x); err != nil {
			return "", mismatch(KindRobTarget, c.dataType, v, err.Error())
		}
		return x, nil
	}
	return "", mismatch(KindRobTarget, c.dataType, v, "expected rapid.RobTarget")
}

type jointTargetCodec struct{ dataType string }

func (jointTargetCodec) Kind() Kind { return KindJointTarget }

func (jointTargetCodec) Decode(raw string) (any, error) {
	return rapid.ParseJointTarget(raw)
}

func (c jointTargetCodec) Encode(v any) (string, error) {
	switch x := v.(type) {
	case rapid.JointTarget:
		return x.String(), nil
	case *rapid.JointTarget:
		if x != nil {
			return x.String(), nil
		}
	case string:
		if _, err := rapid.ParseJointTarget(x); err != nil {
			return "", mismatch(KindJointTarget, c.dataType, v, err.Error())
		}
		return x, nil
	}
	return "", mismatch(KindJointTarget, c.dataType, v, "expected rapid.JointTarget")
}

// genericCodec passes literals through. Non-string values are formatted
// with rws.FormatValue.
type genericCodec struct{ dataType string }

func (genericCodec) Kind() Kind { return KindGeneric }

func (genericCodec) Decode(raw string) (any, error) {
	return raw, nil
}

func (c genericCodec) Encode(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	lit, err := rws.FormatValue(v)
	if err != nil {
		if errors.Is(err, rapid.ErrNotNumeric) {
			return "", mismatch(KindGeneric, c.dataType, v, "unsupported value")
		}
		return "", err
	}
	return lit, nil
}
