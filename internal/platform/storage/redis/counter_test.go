package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return client, mr
}

func TestCounter_Increment_WhenKeyIsNew_ShouldReturnIncrementedValue(t *testing.T) {
	client, _ := setupRedis(t)
	counter := NewCounter(client, "counter")

	ctx := context.Background()
	key := "hour:2026081512"

	// Act
	result, err := counter.Increment(ctx, key, 1)
	require.NoError(t, err)

	values, err := counter.GetAll(ctx, []string{key})

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, int64(1), result)
	assert.Equal(t, int64(1), values[key])
}

func TestCounter_Increment_WhenCalledRepeatedly_ShouldAccumulate(t *testing.T) {
	client, _ := setupRedis(t)
	counter := NewCounter(client, "counter")

	ctx := context.Background()
	key := "hour:2026081513"

	first, err := counter.Increment(ctx, key, 1)
	require.NoError(t, err)

	second, err := counter.Increment(ctx, key, 2)
	require.NoError(t, err)

	values, err := counter.GetAll(ctx, []string{key})

	assert.NoError(t, err)
	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(3), second)
	assert.Equal(t, int64(3), values[key])
}

func TestCounter_GetAll_WhenSomeKeysMissing_ShouldReturnZeroForThem(t *testing.T) {
	client, _ := setupRedis(t)
	counter := NewCounter(client, "counter")

	ctx := context.Background()
	keys := []string{"a", "b", "c"}

	_, err := counter.Increment(ctx, keys[0], 5)
	require.NoError(t, err)
	_, err = counter.Increment(ctx, keys[1], 10)
	require.NoError(t, err)

	result, err := counter.GetAll(ctx, keys)

	assert.NoError(t, err)
	assert.Equal(t, int64(5), result[keys[0]])
	assert.Equal(t, int64(10), result[keys[1]])
	assert.Equal(t, int64(0), result[keys[2]])
}

func TestCounter_GetAll_WhenNoKeys_ShouldReturnEmptyMap(t *testing.T) {
	client, _ := setupRedis(t)
	counter := NewCounter(client, "counter")

	result, err := counter.GetAll(context.Background(), nil)

	assert.NoError(t, err)
	assert.Empty(t, result)
}

func TestCounter_key_WhenPrefixEmpty_ShouldReturnBareKey(t *testing.T) {
	client, _ := setupRedis(t)
	counter := NewCounter(client, "")

	assert.Equal(t, "my-key", counter.key("my-key"))
}

func TestCounter_key_WhenPrefixSet_ShouldPrependIt(t *testing.T) {
	client, _ := setupRedis(t)
	counter := NewCounter(client, "prefix")

	assert.Equal(t, "prefix:my-key", counter.key("my-key"))
}
