package transcription

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResultCache_EvictsOldest(t *testing.T) {
	c := newResultCache(3)
	for i := 0; i < 5; i++ {
		c.put(fmt.Sprint(i), Result{WordCount: i})
	}
	assert.Equal(t, 3, c.len())
	_, ok := c.get("0")
	assert.False(t, ok)
	r, ok := c.get("4")
	assert.True(t, ok)
	assert.Equal(t, 4, r.WordCount)
}

func TestResultCache_OverwriteKeepsSize(t *testing.T) {
	c := newResultCache(2)
	c.put("a", Result{Text: "1"})
	c.put("a", Result{Text: "2"})
	assert.Equal(t, 1, c.len())
	r, _ := c.get("a")
	assert.Equal(t, "2", r.Text)
}
