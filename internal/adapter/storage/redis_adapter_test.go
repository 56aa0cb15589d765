package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/pet-storefront/internal/port"
)

func setupRedisSlot(t *testing.T, ttl time.Duration) (*RedisSlot, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisSlot(client, ttl), mr
}

func TestRedisSlot_PutGet(t *testing.T) {
	slot, mr := setupRedisSlot(t, 0)
	ctx := context.Background()

	require.NoError(t, slot.Put(ctx, "djurshop-cart", []byte(`{"items":[]}`)))

	got, err := slot.Get(ctx, "djurshop-cart")
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[]}`, string(got))

	stored, err := mr.Get("djurshop-cart")
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, stored)
	assert.Zero(t, mr.TTL("djurshop-cart"))
}

func TestRedisSlot_Overwrite(t *testing.T) {
	slot, _ := setupRedisSlot(t, 0)
	ctx := context.Background()

	require.NoError(t, slot.Put(ctx, "k", []byte("first")))
	require.NoError(t, slot.Put(ctx, "k", []byte("second")))

	got, err := slot.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

func TestRedisSlot_GetMissing(t *testing.T) {
	slot, _ := setupRedisSlot(t, 0)

	got, err := slot.Get(context.Background(), "nothing-here")
	assert.ErrorIs(t, err, port.ErrSlotEmpty)
	assert.Nil(t, got)
}

func TestRedisSlot_TTL(t *testing.T) {
	slot, mr := setupRedisSlot(t, time.Hour)

	require.NoError(t, slot.Put(context.Background(), "k", []byte("v")))
	assert.Equal(t, time.Hour, mr.TTL("k"))

	mr.FastForward(2 * time.Hour)
	_, err := slot.Get(context.Background(), "k")
	assert.ErrorIs(t, err, port.ErrSlotEmpty)
}

func TestRedisSlot_Delete(t *testing.T) {
	slot, mr := setupRedisSlot(t, 0)
	ctx := context.Background()

	require.NoError(t, slot.Put(ctx, "k", []byte("v")))
	require.NoError(t, slot.Delete(ctx, "k"))
	assert.False(t, mr.Exists("k"))

	// deleting again is fine
	assert.NoError(t, slot.Delete(ctx, "k"))
}

func TestRedisSlot_ServerDown(t *testing.T) {
	slot, mr := setupRedisSlot(t, 0)
	mr.Close()

	err := slot.Put(context.Background(), "k", []byte("v"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, port.ErrSlotEmpty)

	_, err = slot.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, port.ErrSlotEmpty)
}
