package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_Memo(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	memo := New[string](time.Minute, func() time.Time { return clock })

	_, ok := memo.Get()
	assert.False(t, ok, "empty memo must miss")

	memo.Set("2.0.0")
	got, ok := memo.Get()
	assert.True(t, ok)
	assert.Equal(t, "2.0.0", got)

	// Still fresh exactly at the TTL boundary.
	clock = clock.Add(time.Minute)
	_, ok = memo.Get()
	assert.True(t, ok)

	clock = clock.Add(time.Second)
	_, ok = memo.Get()
	assert.False(t, ok, "memo must expire after the TTL")
}

func Test_Memo_Invalidate(t *testing.T) {
	memo := New[int](time.Minute, nil)
	memo.Set(7)

	memo.Invalidate()
	_, ok := memo.Get()
	assert.False(t, ok)
}

func Test_Memo_ZeroValueIsCacheable(t *testing.T) {
	// A memoized nil pointer is a valid answer, distinct from a miss.
	memo := New[*int](time.Minute, nil)
	memo.Set(nil)

	got, ok := memo.Get()
	assert.True(t, ok)
	assert.Nil(t, got)
}
