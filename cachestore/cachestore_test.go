package cachestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemCacheStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCacheStore(10, time.Hour)

	v, err := cs.Get(ctx, "ns", "k1")
	assert.NoError(err)
	assert.Equal("", v)

	assert.NoError(cs.Set(ctx, "ns", "k1", "val1"))
	v, err = cs.Get(ctx, "ns", "k1")
	assert.NoError(err)
	assert.Equal("val1", v)

	// namespaces don't collide
	v, err = cs.Get(ctx, "other", "k1")
	assert.NoError(err)
	assert.Equal("", v)

	assert.NoError(cs.Purge(ctx, "ns", "k1"))
	v, err = cs.Get(ctx, "ns", "k1")
	assert.NoError(err)
	assert.Equal("", v)
}
