package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSchema(t *testing.T) {
	t.Run("returns registered schemas", func(t *testing.T) {
		for _, st := range []SchemaType{SchemaNetwork, SchemaDealFlow, SchemaLPMainDashboard, SchemaVCFund} {
			s, err := GetSchema(st)
			require.NoError(t, err)
			assert.Equal(t, st, s.Type)
			assert.NotEmpty(t, s.DisplayName)
			assert.NotEmpty(t, s.Fields)
		}
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		_, err := GetSchema("crm")
		assert.ErrorContains(t, err, "unsupported schema_type")
	})
}

func TestAllSchemas(t *testing.T) {
	all := AllSchemas()
	require.Len(t, all, 4)

	var types []SchemaType
	for _, s := range all {
		types = append(types, s.Type)
	}
	assert.Equal(t, []SchemaType{SchemaDealFlow, SchemaLPMainDashboard, SchemaNetwork, SchemaVCFund}, types,
		"schemas must come back in stable order")
}

func TestFieldByAlias(t *testing.T) {
	s, err := GetSchema(SchemaDealFlow)
	require.NoError(t, err)

	f, ok := s.FieldByAlias("Revenue Run Rate")
	require.True(t, ok)
	assert.Equal(t, KindInteger, f.Kind)

	f, ok = s.FieldByAlias("State")
	require.True(t, ok)
	assert.Equal(t, KindEnum, f.Kind)
	assert.Contains(t, f.Enum, "Texas")
	assert.Contains(t, f.Enum, "Washington D.C.")

	_, ok = s.FieldByAlias("Valuation")
	assert.False(t, ok)
}
