package gfx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBank_CreateSurfaceRejectsDuplicateID(t *testing.T) {
	bank := NewBank(100, 100)
	require.NoError(t, bank.CreateSurface(1, 10, 10))
	err := bank.CreateSurface(1, 10, 10)
	assert.ErrorIs(t, err, ErrSurfaceExists)
}

func TestBank_DeleteSurfaceThenLookupFails(t *testing.T) {
	bank := NewBank(100, 100)
	require.NoError(t, bank.CreateSurface(1, 10, 10))
	require.NoError(t, bank.DeleteSurface(1))
	_, ok := bank.Surface(1)
	assert.False(t, ok)
}

func TestBank_MapSurfaceToOutputUnknownIDErrors(t *testing.T) {
	bank := NewBank(100, 100)
	err := bank.MapSurfaceToOutput(99, 0, 0)
	assert.ErrorIs(t, err, ErrSurfaceNotFound)
}

func TestBank_CacheSurvivesSurfaceDeletion(t *testing.T) {
	bank := NewBank(100, 100)
	require.NoError(t, bank.CreateSurface(1, 64, 64))
	s, _ := bank.Surface(1)
	require.NoError(t, s.FillRect(Rect{W: 64, H: 64}, [4]byte{5, 5, 5, 255}))
	require.NoError(t, bank.SurfaceToCache(1, 0, Rect{W: 64, H: 64}))
	require.NoError(t, bank.DeleteSurface(1))

	pixels, err := bank.Cache.Pixels(0)
	require.NoError(t, err)
	assert.Equal(t, byte(5), pixels[0])
}
