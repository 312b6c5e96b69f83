/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/paymatch/paymatch/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client), mr
}

func TestSetAndGet(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	setValue := map[string]string{"message_id": "msg_1"}
	require.NoError(t, c.Set(ctx, "paymatch:submission:abc", setValue, 10*time.Minute))
	assert.True(t, mr.Exists("paymatch:submission:abc"))

	var getValue map[string]string
	require.NoError(t, c.Get(ctx, "paymatch:submission:abc", &getValue))
	assert.Equal(t, setValue, getValue)
}

func TestGetMiss(t *testing.T) {
	c, _ := newTestCache(t)

	var value string
	err := c.Get(context.Background(), "nonExistentKey", &value)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Empty(t, value)
}

func TestDelete(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "testKey", "testValue", 10*time.Minute))
	require.NoError(t, c.Delete(ctx, "testKey"))
	assert.False(t, mr.Exists("testKey"))

	var value string
	assert.ErrorIs(t, c.Get(ctx, "testKey", &value), ErrCacheMiss)

	assert.NoError(t, c.Delete(ctx, "nonExistentKey"))
}

func TestNewCache_FromConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	config.MockConfig(&config.Configuration{Redis: config.RedisConfig{Dns: mr.Addr()}})

	c, err := NewCache()
	require.NoError(t, err)
	require.NoError(t, c.Set(context.Background(), "k", "v", time.Minute))
	assert.True(t, mr.Exists("k"))
}
