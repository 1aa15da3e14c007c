package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiidateam/aiida-data-apis/schema"
)

func TestEntitiesSetAndClear(t *testing.T) {
	var e Entities

	assert.Equal(t, e, Entities(0))
	assert.False(t, e.IsExposed(Nodes))

	e.Set(Nodes | Users)
	assert.True(t, e.IsExposed(Nodes))
	assert.True(t, e.IsExposed(Users))

	e.Clear(Nodes)
	assert.False(t, e.IsExposed(Nodes))
	assert.True(t, e.IsExposed(Users))
}

func TestParseEntities(t *testing.T) {
	e, err := ParseEntities("nodes", " Users ", "")
	require.NoError(t, err)
	assert.Equal(t, Nodes|Users, e)
	assert.True(t, e.Exposes(schema.Nodes))
	assert.False(t, e.Exposes(schema.Logs))
	assert.Equal(t, []schema.Kind{schema.Users, schema.Nodes}, e.Kinds())

	e, err = ParseEntities()
	require.NoError(t, err)
	assert.Equal(t, AllEntities, e)
	assert.Len(t, e.Kinds(), 6)

	_, err = ParseEntities("nodes", "links")
	assert.EqualError(t, err, "invalid entity kind: links")
}

func TestEntitiesCoverRegistry(t *testing.T) {
	assert.ElementsMatch(t, schema.MustAiiDARegistry().Kinds(), AllEntities.Kinds())
}
