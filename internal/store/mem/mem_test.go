package mem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"place-std/internal/place"
	"place-std/internal/store"
)

func TestStore(t *testing.T) {
	s := New()
	s.Add(&place.Place{ID: 30, Name: "Springfield"})
	s.AddWord("springfield", 32, 30)
	s.AddWord("springfield", 30)

	p, err := s.Place(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, "Springfield", p.Name)
	_, err = s.Place(context.Background(), 99)
	assert.ErrorIs(t, err, store.ErrNotFound)

	ids, err := s.Words(context.Background(), "springfield")
	require.NoError(t, err)
	assert.Equal(t, []int{30, 32}, ids)
	ids, err = s.Words(context.Background(), "atlantis")
	require.NoError(t, err)
	assert.Nil(t, ids)
	assert.Equal(t, 1, s.Len())
}

func TestReaderDegrades(t *testing.T) {
	s := New()
	s.Add(&place.Place{ID: 1, Name: "USA"})
	r := store.NewReader(s)
	assert.NotNil(t, r.Place(context.Background(), 1))
	assert.Nil(t, r.Place(context.Background(), 2))
	assert.Nil(t, r.Words(context.Background(), ""))
}
