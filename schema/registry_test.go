package schema_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianquant/docvault/schema"
)

const fxSpotSchema = `{
	"type": "object",
	"required": ["assetId", "price", "side"],
	"properties": {
		"assetId": {"type": "string", "minLength": 1},
		"price": {"type": "number", "exclusiveMinimum": 0},
		"side": {"enum": ["bid", "mid", "ask"]}
	}
}`

func compileFxSpot(t *testing.T) *schema.JSONSchema {
	t.Helper()
	v, err := schema.CompileJSONSchema("price.spot", "fx", "0.0.0", []byte(fxSpotSchema))
	require.NoError(t, err)
	return v
}

func TestRegistryLookup(t *testing.T) {
	r := schema.NewRegistry()
	r.Register("price.spot", "fx", "0.0.0", compileFxSpot(t))

	v, err := r.Lookup("price.spot", "fx", "0.0.0")
	require.NoError(t, err)
	assert.NotNil(t, v)

	// Tuple lookup is case-insensitive, like document identity.
	v, err = r.Lookup("Price.Spot", "FX", "0.0.0")
	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestRegistryUnknownTuple(t *testing.T) {
	r := schema.NewRegistry()
	r.Register("price.spot", "fx", "0.0.0", compileFxSpot(t))

	_, err := r.Lookup("price.spot", "fx", "9.9.9")
	assert.ErrorIs(t, err, schema.ErrValidatorNotFound)

	err = r.Validate("vol.surface", "fx", "0.0.0", []byte(`{}`))
	assert.ErrorIs(t, err, schema.ErrValidatorNotFound)

	// A missing validator must never be conflated with a bad payload.
	var payloadErr *schema.PayloadError
	assert.False(t, errors.As(err, &payloadErr))
}

func TestRegistryValidatePayload(t *testing.T) {
	r := schema.NewRegistry()
	r.Register("price.spot", "fx", "0.0.0", compileFxSpot(t))

	good := []byte(`{"assetId": "EURUSD", "price": 1.0843, "side": "mid"}`)
	assert.NoError(t, r.Validate("price.spot", "fx", "0.0.0", good))

	bad := []byte(`{"assetId": "", "price": -1, "side": "close"}`)
	err := r.Validate("price.spot", "fx", "0.0.0", bad)

	var payloadErr *schema.PayloadError
	require.ErrorAs(t, err, &payloadErr)
	assert.Equal(t, "price.spot", payloadErr.DataType)
	assert.GreaterOrEqual(t, len(payloadErr.Violations), 3,
		"every violated rule is listed, not just the first")
}

func TestJSONSchemaMalformedPayload(t *testing.T) {
	v := compileFxSpot(t)

	err := v.Validate([]byte(`{"assetId": `))
	var payloadErr *schema.PayloadError
	require.ErrorAs(t, err, &payloadErr)
	require.Len(t, payloadErr.Violations, 1)
	assert.Contains(t, payloadErr.Violations[0], "malformed JSON")
}

func TestCompileJSONSchemaRejectsGarbage(t *testing.T) {
	_, err := schema.CompileJSONSchema("price.spot", "fx", "0.0.0", []byte(`not json`))
	assert.Error(t, err)

	_, err = schema.CompileJSONSchema("price.spot", "fx", "0.0.0", []byte(`{"type": 42}`))
	assert.Error(t, err)
}
