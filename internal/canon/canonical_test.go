package canon

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeys(t *testing.T) {
	v := Object{"b": Int(2), "a": Int(1), "c": Int(3)}
	data, err := MarshalCanonical(v)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2,"c":3}`, string(data))
}

func TestMarshalCanonical_NoWhitespace(t *testing.T) {
	v := Array{Int(1), Object{"x": Bool(true)}, Null{}}
	data, err := MarshalCanonical(v)
	require.NoError(t, err)
	assert.Equal(t, `[1,{"x":true},null]`, string(data))
}

func TestMarshalCanonical_FloatFormatting(t *testing.T) {
	data, err := MarshalCanonical(Float(1.0))
	require.NoError(t, err)
	assert.Equal(t, "1.0", string(data))

	data, err = MarshalCanonical(Float(1.5))
	require.NoError(t, err)
	assert.Equal(t, "1.5", string(data))
}

func TestMarshalCanonical_DoesNotReNormalizeUnicode(t *testing.T) {
	// "e\u0301" (e + combining acute accent) must survive as decomposed
	// codepoints; the codec never folds it into precomposed "\u00e9".
	decomposed := String("e\u0301")
	data, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	assert.Equal(t, "\"e\u0301\"", string(data))
}

func TestMarshalCanonical_CollapsesNewlineVariants(t *testing.T) {
	crlf, err := MarshalCanonical(String("a\r\nb"))
	require.NoError(t, err)
	cr, err := MarshalCanonical(String("a\rb"))
	require.NoError(t, err)
	lf, err := MarshalCanonical(String("a\nb"))
	require.NoError(t, err)

	assert.Equal(t, string(lf), string(crlf))
	assert.Equal(t, string(lf), string(cr))
	assert.Equal(t, "\"a\\nb\"", string(lf))
}

func TestMarshalCanonical_RejectsNonFiniteFloat(t *testing.T) {
	_, err := MarshalCanonical(Float(math.NaN()))
	require.Error(t, err)
	assert.True(t, IsNonFiniteNumber(err))

	_, err = MarshalCanonical(Float(math.Inf(1)))
	require.Error(t, err)
	assert.True(t, IsNonFiniteNumber(err))
}

func TestMarshalCanonical_DetectsSelfReferencingObject(t *testing.T) {
	obj := Object{"a": Int(1)}
	obj["self"] = obj

	_, err := MarshalCanonical(obj)
	require.Error(t, err)
	assert.True(t, IsCycle(err))
}

func TestMarshalCanonical_DetectsSelfReferencingArray(t *testing.T) {
	arr := make(Array, 1)
	arr[0] = arr

	_, err := MarshalCanonical(arr)
	require.Error(t, err)
	assert.True(t, IsCycle(err))
}

func TestMarshalCanonical_Deterministic(t *testing.T) {
	v := O("z", String("last"), "a", String("first"), "nested", O("y", Int(2), "x", Int(1)))
	first, err := MarshalCanonical(v)
	require.NoError(t, err)
	second, err := MarshalCanonical(v)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestFromJSON_PreservesIntVsFloat(t *testing.T) {
	v, err := FromJSON([]byte(`{"i": 3, "f": 3.5}`))
	require.NoError(t, err)
	obj := v.(Object)
	assert.IsType(t, Int(0), obj["i"])
	assert.IsType(t, Float(0), obj["f"])
}

func TestFromJSON_RejectsDuplicateKeys(t *testing.T) {
	_, err := FromJSON([]byte(`{"a": 1, "b": 2, "a": 3}`))
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))
}

func TestFromJSON_RejectsNestedDuplicateKeys(t *testing.T) {
	_, err := FromJSON([]byte(`{"outer": {"x": 1, "x": 2}}`))
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))
}

func TestFromJSON_RejectsTrailingData(t *testing.T) {
	_, err := FromJSON([]byte(`{}{}`))
	assert.Error(t, err)
}

func TestHash_IsStable(t *testing.T) {
	v := O("a", Int(1), "b", String("x"))
	h1, err := Hash(v)
	require.NoError(t, err)
	h2, err := Hash(v)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Regexp(t, `^sha256:[0-9a-f]{64}$`, h1)
}

func TestHash_KeyOrderDoesNotAffectHash(t *testing.T) {
	v1 := O("a", Int(1), "b", Int(2))
	v2 := O("b", Int(2), "a", Int(1))
	h1, err := Hash(v1)
	require.NoError(t, err)
	h2, err := Hash(v2)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestStepHash_StripsVolatileFields(t *testing.T) {
	metadata1 := O("duration_ms", Int(100), "model", String("gpt"))
	metadata2 := O("duration_ms", Int(999), "model", String("gpt"))
	h1, err := StepHash("model.response", O(), O(), metadata1)
	require.NoError(t, err)
	h2, err := StepHash("model.response", O(), O(), metadata2)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestStepHash_PathNormalization(t *testing.T) {
	metadata1 := O("path", String(`C:\repo\file.go`))
	metadata2 := O("path", String("C:/repo/file.go"))
	h1, err := StepHash("tool.response", O(), O(), metadata1)
	require.NoError(t, err)
	h2, err := StepHash("tool.response", O(), O(), metadata2)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestStepHash_NonDenylistedTimestampsAreNotErased(t *testing.T) {
	metadata1 := O("started_at", String("2026-01-01T00:00:00Z"))
	metadata2 := O("started_at", String("2026-01-01T00:00:05Z"))
	h1, err := StepHash("model.response", O(), O(), metadata1)
	require.NoError(t, err)
	h2, err := StepHash("model.response", O(), O(), metadata2)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestStepHash_TimestampNormalizationIsOffsetInvariant(t *testing.T) {
	metadata1 := O("started_at", String("2026-01-01T00:00:00Z"))
	metadata2 := O("started_at", String("2026-01-01T01:00:00+01:00"))
	h1, err := StepHash("model.response", O(), O(), metadata1)
	require.NoError(t, err)
	h2, err := StepHash("model.response", O(), O(), metadata2)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestVerifyHMAC(t *testing.T) {
	key := []byte("secret")
	payload := []byte("hello world")
	sig := HMAC(key, payload)
	assert.True(t, VerifyHMAC(key, payload, sig))
	assert.False(t, VerifyHMAC(key, payload, sig+"0"))
	assert.False(t, VerifyHMAC([]byte("wrong"), payload, sig))
}
