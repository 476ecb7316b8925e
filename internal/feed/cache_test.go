package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache(t *testing.T) {
	c := NewCache(10, time.Minute)

	_, ok := c.Get("cal")
	assert.False(t, ok)

	c.Put("cal", "BEGIN:VCALENDAR")
	doc, ok := c.Get("cal")
	assert.True(t, ok)
	assert.Equal(t, "BEGIN:VCALENDAR", doc)

	c.Invalidate("cal")
	_, ok = c.Get("cal")
	assert.False(t, ok)
}

func TestCacheExpires(t *testing.T) {
	c := NewCache(10, 20*time.Millisecond)
	c.Put("cal", "doc")
	assert.Eventually(t, func() bool {
		_, ok := c.Get("cal")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestNilCacheIsNoop(t *testing.T) {
	c := NewCache(10, 0)
	assert.Nil(t, c)

	c.Put("cal", "doc")
	_, ok := c.Get("cal")
	assert.False(t, ok)
	c.Invalidate("cal")
}

func TestCacheTTLIsClamped(t *testing.T) {
	c := NewCache(1, 24*time.Hour)
	assert.NotNil(t, c)
}
