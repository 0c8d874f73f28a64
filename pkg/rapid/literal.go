package rapid

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Literal errors.
var (
	ErrSyntax       = errors.New("invalid RAPID literal")
	ErrNotNumeric   = errors.New("value is not numeric")
	ErrIndexRange   = errors.New("index out of range")
	ErrNotAggregate = errors.New("value is not an array")
)

// SyntaxError reports where a literal failed to parse.
type SyntaxError struct {
	Literal string
	Offset  int
	Msg     string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("rapid: %s at offset %d in %q", e.Msg, e.Offset, e.Literal)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// ParseString strips the wrapping quotes of a RAPID string literal and
// resolves the "" and \\ escapes. Input without wrapping quotes is returned
// unchanged.
func ParseString(lit string) string {
	if len(lit) < 2 || lit[0] != '"' || lit[len(lit)-1] != '"' {
		return lit
	}
	inner := lit[1 : len(lit)-1]
	if !strings.ContainsAny(inner, `"\`) {
		return inner
	}

	var sb strings.Builder
	sb.Grow(len(inner))
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if (c == '"' || c == '\\') && i+1 < len(inner) && inner[i+1] == c {
			i++
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// FormatString quotes s as a RAPID string literal.
func FormatString(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			sb.WriteByte(c)
		}
		sb.WriteByte(c)
	}
	sb.WriteByte('"')
	return sb.String()
}

// ParseBool reports whether lit denotes true. Only TRUE and 1 are true;
// everything else, lower-case true included, is false.
func ParseBool(lit string) bool {
	return lit == "TRUE" || lit == "1"
}

// FormatBool returns TRUE or FALSE.
func FormatBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// FormatNum formats a number the way the controller accepts it.
func FormatNum(f float64) string {
	return strconv.FormatFloat(f, 'G', -1, 64)
}

// ParseNumeric parses a scalar or (nested) array of numbers.
func ParseNumeric(lit string) (any, error) {
	p := &numParser{src: lit}
	p.skipSpace()
	v, err := p.value(0)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected trailing input")
	}
	return v, nil
}

// maxDepth bounds nesting; RAPID arrays have at most three dimensions and
// records add one or two more levels.
const maxDepth = 16

type numParser struct {
	src string
	pos int
}

func (p *numParser) errorf(format string, args ...any) error {
	return &SyntaxError{Literal: p.src, Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *numParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.pos++
		default:
			return
		}
	}
}

func (p *numParser) value(depth int) (any, error) {
	if p.pos >= len(p.src) {
		return nil, p.errorf("unexpected end of input")
	}
	if p.src[p.pos] == '[' {
		if depth >= maxDepth {
			return nil, p.errorf("nesting too deep")
		}
		return p.array(depth + 1)
	}
	return p.number()
}

func (p *numParser) array(depth int) (any, error) {
	p.pos++ // '['
	items := []any{}
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == ']' {
		p.pos++
		return items, nil
	}
	for {
		p.skipSpace()
		v, err := p.value(depth)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, p.errorf("unterminated array")
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return items, nil
		default:
			return nil, p.errorf("expected ',' or ']'")
		}
	}
}

func (p *numParser) number() (any, error) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E' {
			p.pos++
			continue
		}
		break
	}
	if start == p.pos {
		return nil, p.errorf("expected number")
	}
	text := p.src[start:p.pos]
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		p.pos = start
		return nil, p.errorf("invalid number %q", text)
	}
	return f, nil
}

// FormatNumeric formats a scalar or (nested) array of numbers as a RAPID
// literal. It accepts Go numeric kinds, slices and arrays of them, and the
// []any trees returned by ParseNumeric.
func FormatNumeric(v any) (string, error) {
	var sb strings.Builder
	if err := formatNumeric(&sb, reflect.ValueOf(v), 0); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func formatNumeric(sb *strings.Builder, rv reflect.Value, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("%w: nesting too deep", ErrNotNumeric)
	}
	if !rv.IsValid() {
		return fmt.Errorf("%w: nil", ErrNotNumeric)
	}
	switch rv.Kind() {
	case reflect.Interface, reflect.Pointer:
		if rv.IsNil() {
			return fmt.Errorf("%w: nil", ErrNotNumeric)
		}
		return formatNumeric(sb, rv.Elem(), depth)
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: %v", ErrNotNumeric, f)
		}
		sb.WriteString(FormatNum(f))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		sb.WriteString(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		sb.WriteString(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Slice, reflect.Array:
		sb.WriteByte('[')
		for i := 0; i < rv.Len(); i++ {
			if i > 0 {
				sb.WriteByte(',')
			}
			if err := formatNumeric(sb, rv.Index(i), depth+1); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
	default:
		return fmt.Errorf("%w: %T", ErrNotNumeric, rv.Interface())
	}
	return nil
}

// IsNumeric reports whether v can be formatted by FormatNumeric.
func IsNumeric(v any) bool {
	_, err := FormatNumeric(v)
	return err == nil
}

// Dimensions returns the array dimensions of a parsed numeric value. A scalar
// has no dimensions. The first element of each level determines the next.
func Dimensions(v any) []int {
	var dims []int
	for {
		arr, ok := v.([]any)
		if !ok {
			return dims
		}
		dims = append(dims, len(arr))
		if len(arr) == 0 {
			return dims
		}
		v = arr[0]
	}
}

// SetElement returns a copy of tree with the element at path replaced by
// value. Indices are zero-based. The input tree is not modified.
func SetElement(tree any, path []int, value any) (any, error) {
	if len(path) == 0 {
		return value, nil
	}
	arr, ok := tree.([]any)
	if !ok {
		return nil, fmt.Errorf("%w at depth %d", ErrNotAggregate, 0)
	}
	idx := path[0]
	if idx < 0 || idx >= len(arr) {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrIndexRange, idx, len(arr))
	}
	child, err := SetElement(arr[idx], path[1:], value)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(arr))
	copy(out, arr)
	out[idx] = child
	return out, nil
}

// Element returns the element of tree at path.
func Element(tree any, path []int) (any, error) {
	for _, idx := range path {
		arr, ok := tree.([]any)
		if !ok {
			return nil, ErrNotAggregate
		}
		if idx < 0 || idx >= len(arr) {
			return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrIndexRange, idx, len(arr))
		}
		tree = arr[idx]
	}
	return tree, nil
}
