// Package kvtest holds a conformance suite every backend must pass and a
// fault-injecting KV used to reproduce partial multi-key writes.
package kvtest

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialkv/internal/database"
)

// Run exercises the primitive contract against a fresh driver from newDriver.
func Run(t *testing.T, newDriver func(t *testing.T) database.Driver) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key is absent not an error", func(t *testing.T) {
		d := newDriver(t)
		v, ok, err := d.Get(ctx, "user:id:nope")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, v)
	})

	t.Run("set get overwrite", func(t *testing.T) {
		d := newDriver(t)
		require.NoError(t, d.Set(ctx, "user:nickname:alice", "1"))
		require.NoError(t, d.Set(ctx, "user:nickname:alice", "2"))
		v, ok, err := d.Get(ctx, "user:nickname:alice")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "2", v)
	})

	t.Run("json payload is stored verbatim", func(t *testing.T) {
		d := newDriver(t)
		payload := `{"id":"1","bio":"héllo \"quoted\"","n":null,"arr":[1,2]}`
		require.NoError(t, d.Set(ctx, "post:1", payload))
		v, ok, err := d.Get(ctx, "post:1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, payload, v)
	})

	t.Run("del scalar and missing key", func(t *testing.T) {
		d := newDriver(t)
		require.NoError(t, d.Set(ctx, "lastactive:1", "100"))
		require.NoError(t, d.Del(ctx, "lastactive:1"))
		_, ok, err := d.Get(ctx, "lastactive:1")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, d.Del(ctx, "lastactive:1"))
	})

	t.Run("sets add remove list", func(t *testing.T) {
		d := newDriver(t)
		require.NoError(t, d.SAdd(ctx, "users:all", "a", "b", "c"))
		require.NoError(t, d.SAdd(ctx, "users:all", "b", "d"))
		require.NoError(t, d.SRem(ctx, "users:all", "a", "zzz"))

		members, err := d.SMembers(ctx, "users:all")
		require.NoError(t, err)
		sort.Strings(members)
		assert.Equal(t, []string{"b", "c", "d"}, members)
	})

	t.Run("empty set lists nothing", func(t *testing.T) {
		d := newDriver(t)
		members, err := d.SMembers(ctx, "posts:all")
		require.NoError(t, err)
		assert.Empty(t, members)
		assert.NoError(t, d.SRem(ctx, "posts:all", "x"))
	})

	t.Run("sets are independent per key", func(t *testing.T) {
		d := newDriver(t)
		require.NoError(t, d.SAdd(ctx, "friends:user:1", "2"))
		require.NoError(t, d.SAdd(ctx, "friends:user:10", "3"))
		members, err := d.SMembers(ctx, "friends:user:1")
		require.NoError(t, err)
		assert.Equal(t, []string{"2"}, members)
	})

	t.Run("del removes a set", func(t *testing.T) {
		d := newDriver(t)
		require.NoError(t, d.SAdd(ctx, "messages:chat:1", "m1", "m2"))
		require.NoError(t, d.Del(ctx, "messages:chat:1"))
		members, err := d.SMembers(ctx, "messages:chat:1")
		require.NoError(t, err)
		assert.Empty(t, members)
	})

	t.Run("reset clears everything", func(t *testing.T) {
		d := newDriver(t)
		require.NoError(t, d.Set(ctx, "chat:1", "{}"))
		require.NoError(t, d.SAdd(ctx, "chats:user:1", "1"))
		require.NoError(t, d.Reset(ctx))
		_, ok, err := d.Get(ctx, "chat:1")
		require.NoError(t, err)
		assert.False(t, ok)
		members, err := d.SMembers(ctx, "chats:user:1")
		require.NoError(t, err)
		assert.Empty(t, members)
	})

	t.Run("self test", func(t *testing.T) {
		d := newDriver(t)
		res, err := database.SelfTest(ctx, d)
		require.NoError(t, err)
		assert.Equal(t, "ok", res.Basic)
		assert.Equal(t, 42, res.Number)
		assert.Equal(t, []string{"a", "b", "c"}, res.Set)
		_, ok, err := d.Get(ctx, "test:connection")
		require.NoError(t, err)
		assert.False(t, ok, "self test must clean up")
	})
}
