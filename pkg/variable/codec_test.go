package variable

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rws-panel/rws-go/pkg/rapid"
	"github.com/rws-panel/rws-go/pkg/rws"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		props rws.Properties
		want  Kind
	}{
		{rws.Properties{DataType: "string"}, KindString},
		{rws.Properties{DataType: "bool"}, KindBool},
		{rws.Properties{DataType: "num"}, KindNumeric},
		{rws.Properties{DataType: "dnum"}, KindNumeric},
		{rws.Properties{DataType: "num", Dimensions: []int{2, 2}}, KindNumeric},
		{rws.Properties{DataType: "robtarget"}, KindRobTarget},
		{rws.Properties{DataType: "jointtarget"}, KindJointTarget},
		{rws.Properties{DataType: "string", Dimensions: []int{3}}, KindGeneric},
		{rws.Properties{DataType: "tooldata"}, KindGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.props.DataType+"/"+tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.props))
			assert.Equal(t, tt.want, NewCodec(tt.props).Kind())
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "NUMERIC", KindNumeric.String())
	assert.Equal(t, "UNKNOWN", Kind(99).String())
}

func TestBoolCodecRoundTrip(t *testing.T) {
	c := NewCodec(rws.Properties{DataType: "bool"})

	for _, b := range []bool{true, false} {
		lit, err := c.Encode(b)
		require.NoError(t, err)
		got, err := c.Decode(lit)
		require.NoError(t, err)
		assert.Equal(t, b, got)
	}

	for raw, want := range map[string]bool{"TRUE": true, "1": true, "FALSE": false, "0": false, "maybe": false} {
		got, err := c.Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got, "decode %q", raw)
	}

	_, err := c.Encode("TRUE")
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestNumericCodecNestedRoundTrip(t *testing.T) {
	c := NewCodec(rws.Properties{DataType: "num", Dimensions: []int{2, 2}})
	in := []any{[]any{1.0, 2.0}, []any{3.0, 4.0}}

	lit, err := c.Encode(in)
	require.NoError(t, err)
	out, err := c.Decode(lit)
	require.NoError(t, err)

	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	// Go slices are accepted too.
	lit, err = c.Encode([][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)
	assert.Equal(t, "[[1,2],[3,4]]", lit)
}

func TestNumericCodecRejectsShape(t *testing.T) {
	scalar := NewCodec(rws.Properties{DataType: "num"})
	matrix := NewCodec(rws.Properties{DataType: "num", Dimensions: []int{2, 2}})

	tests := []struct {
		name  string
		codec Codec
		value any
	}{
		{"StringToNum", scalar, "12"},
		{"BoolToNum", scalar, true},
		{"ArrayToScalar", scalar, []float64{1, 2}},
		{"ScalarToArray", matrix, 1.0},
		{"WrongDimensions", matrix, []float64{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.codec.Encode(tt.value)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrTypeMismatch))

			var tm *TypeMismatchError
			require.True(t, errors.As(err, &tm))
			assert.Equal(t, KindNumeric, tm.Kind)
			assert.Equal(t, "num", tm.DataType)
		})
	}
}

func TestStringCodec(t *testing.T) {
	c := NewCodec(rws.Properties{DataType: "string"})

	got, err := c.Decode(`"hello ""world"""`)
	require.NoError(t, err)
	assert.Equal(t, `hello "world"`, got)

	lit, err := c.Encode("abc")
	require.NoError(t, err)
	assert.Equal(t, `"abc"`, lit)

	_, err = c.Encode(42)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestTargetCodecs(t *testing.T) {
	rt := rapid.RobTarget{Trans: rapid.Position{X: 1, Y: 2, Z: 3}, Rot: rapid.Identity, ExtAx: rapid.NoExtAxes()}
	rc := NewCodec(rws.Properties{DataType: "robtarget"})

	lit, err := rc.Encode(rt)
	require.NoError(t, err)
	decoded, err := rc.Decode(lit)
	require.NoError(t, err)
	assert.Equal(t, rt, decoded)

	passthrough, err := rc.Encode(lit)
	require.NoError(t, err)
	assert.Equal(t, lit, passthrough)

	_, err = rc.Encode("[1,2]")
	assert.ErrorIs(t, err, ErrTypeMismatch)
	_, err = rc.Encode(rapid.JointTarget{})
	assert.ErrorIs(t, err, ErrTypeMismatch)

	jt := rapid.JointTarget{RobAx: [6]rapid.Degrees{1, 2, 3, 4, 5, 6}, ExtAx: rapid.NoExtAxes()}
	jc := NewCodec(rws.Properties{DataType: "jointtarget"})
	lit, err = jc.Encode(&jt)
	require.NoError(t, err)
	decodedJT, err := jc.Decode(lit)
	require.NoError(t, err)
	assert.Equal(t, jt, decodedJT)
}

func TestGenericCodec(t *testing.T) {
	c := NewCodec(rws.Properties{DataType: "tooldata"})

	raw := "[TRUE,[[0,0,100],[1,0,0,0]],[1,[0,0,1],[1,0,0,0],0,0,0]]"
	got, err := c.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	lit, err := c.Encode(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, lit, "strings pass through unquoted")

	lit, err = c.Encode(true)
	require.NoError(t, err)
	assert.Equal(t, "TRUE", lit)

	_, err = c.Encode(struct{}{})
	assert.ErrorIs(t, err, ErrTypeMismatch)
}
