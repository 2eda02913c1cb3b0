package explorer

import (
	"net/url"
	"testing"

	"mediafolders/internal/domain"
	models "mediafolders/internal/domain/models/explorer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) *widgetStateCodec {
	t.Helper()
	codec, err := NewWidgetStateCodec("test-secret")
	require.NoError(t, err)
	return codec.(*widgetStateCodec)
}

func encodeTestState(t *testing.T, codec *widgetStateCodec) *models.WidgetState {
	t.Helper()
	state, err := codec.Encode(
		"field_media",
		[]string{"image", "document", " image"},
		"image",
		3,
		map[string]string{"entity": "node/1", "note": "a&b=c d"},
	)
	require.NoError(t, err)
	return state
}

// =============================================================================
// Round trip
// =============================================================================

func TestWidgetState_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)
	state := encodeTestState(t, codec)

	assert.Equal(t, []string{"document", "image"}, state.AllowedTypes)
	assert.NotEmpty(t, state.Hash)

	decoded, err := codec.Decode(state.Values())
	require.NoError(t, err)
	assert.Equal(t, state, decoded)
	assert.False(t, decoded.Unlimited())
	assert.Equal(t, models.NewFilterSpec("image"), decoded.Filter())
}

func TestWidgetState_RoundTripThroughQueryString(t *testing.T) {
	codec := newTestCodec(t)
	state := encodeTestState(t, codec)

	params, err := url.ParseQuery(state.Values().Encode())
	require.NoError(t, err)

	decoded, err := codec.Decode(params)
	require.NoError(t, err)
	assert.Equal(t, state, decoded)
}

func TestWidgetState_CommaSeparatedAllowedTypes(t *testing.T) {
	codec := newTestCodec(t)
	state := encodeTestState(t, codec)

	params := state.Values()
	params.Del(models.ParamAllowedType)
	params.Set(models.ParamAllowedType, "image,document")

	decoded, err := codec.Decode(params)
	require.NoError(t, err)
	assert.Equal(t, []string{"document", "image"}, decoded.AllowedTypes)
}

func TestWidgetState_Unlimited(t *testing.T) {
	codec := newTestCodec(t)
	state, err := codec.Encode("opener", []string{"image"}, "image", models.UnlimitedSlots, nil)
	require.NoError(t, err)

	decoded, err := codec.Decode(state.Values())
	require.NoError(t, err)
	assert.True(t, decoded.Unlimited())
	assert.Nil(t, decoded.OpenerContext)
}

// =============================================================================
// Tampering
// =============================================================================

func TestWidgetState_TamperedFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(url.Values)
	}{
		{"opener id", func(v url.Values) { v.Set(models.ParamOpenerID, "other") }},
		{"extra allowed type", func(v url.Values) { v.Add(models.ParamAllowedType, "video") }},
		{"dropped allowed type", func(v url.Values) { v.Set(models.ParamAllowedType, "image") }},
		{"selected type", func(v url.Values) { v.Set(models.ParamSelectedType, "document") }},
		{"selected type outside allowed", func(v url.Values) { v.Set(models.ParamSelectedType, "video") }},
		{"remaining slots", func(v url.Values) { v.Set(models.ParamRemainingSlots, "99") }},
		{"unlimited slots", func(v url.Values) { v.Set(models.ParamRemainingSlots, "-1") }},
		{"context value", func(v url.Values) { v.Set(models.ParamContextPrefix+"entity", "node/2") }},
		{"extra context key", func(v url.Values) { v.Set(models.ParamContextPrefix+"admin", "1") }},
		{"dropped context key", func(v url.Values) { v.Del(models.ParamContextPrefix + "note") }},
		{"hash altered", func(v url.Values) {
			h := []byte(v.Get(models.ParamHash))
			if h[0] == 'a' {
				h[0] = 'b'
			} else {
				h[0] = 'a'
			}
			v.Set(models.ParamHash, string(h))
		}},
		{"hash missing", func(v url.Values) { v.Del(models.ParamHash) }},
		{"hash not hex", func(v url.Values) { v.Set(models.ParamHash, "zz") }},
	}

	codec := newTestCodec(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := encodeTestState(t, codec).Values()
			tt.mutate(params)

			_, err := codec.Decode(params)
			require.ErrorIs(t, err, domain.ErrTampered)
			assert.False(t, domain.IsRecoverable(err))
		})
	}
}

func TestWidgetState_DifferentSecret(t *testing.T) {
	state := encodeTestState(t, newTestCodec(t))

	other, err := NewWidgetStateCodec("another-secret")
	require.NoError(t, err)

	_, err = other.Decode(state.Values())
	assert.ErrorIs(t, err, domain.ErrTampered)
}

func TestWidgetState_SignedButInvalid(t *testing.T) {
	codec := newTestCodec(t)

	// A correctly signed parameter set still has to validate.
	unsigned := url.Values{}
	unsigned.Set(models.ParamOpenerID, "opener")
	unsigned.Add(models.ParamAllowedType, "image")
	unsigned.Set(models.ParamSelectedType, "image")
	unsigned.Set(models.ParamRemainingSlots, "many")
	unsigned.Set(models.ParamHash, codec.sign(unsigned))

	_, err := codec.Decode(unsigned)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

// =============================================================================
// Validation
// =============================================================================

func TestWidgetState_EncodeValidation(t *testing.T) {
	tests := []struct {
		name     string
		opener   string
		allowed  []string
		selected string
		slots    int
		context  map[string]string
	}{
		{"empty opener", " ", []string{"image"}, "image", 1, nil},
		{"no allowed types", "opener", nil, "image", 1, nil},
		{"blank allowed types", "opener", []string{" ", ""}, "image", 1, nil},
		{"selected not allowed", "opener", []string{"image"}, "document", 1, nil},
		{"empty selected", "opener", []string{"image"}, "", 1, nil},
		{"slots below unlimited", "opener", []string{"image"}, "image", -2, nil},
		{"uppercase type", "opener", []string{"Image"}, "Image", 1, nil},
		{"empty context key", "opener", []string{"image"}, "image", 1, map[string]string{" ": "x"}},
	}

	codec := newTestCodec(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Encode(tt.opener, tt.allowed, tt.selected, tt.slots, tt.context)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestWidgetState_ZeroSlotsIsValid(t *testing.T) {
	codec := newTestCodec(t)
	state, err := codec.Encode("opener", []string{"image"}, "image", 0, nil)
	require.NoError(t, err)
	assert.False(t, state.Unlimited())
}

func TestNewWidgetStateCodec_RequiresSecret(t *testing.T) {
	_, err := NewWidgetStateCodec("")
	assert.Error(t, err)
}
