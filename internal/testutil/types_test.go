package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMaxOverlap(t *testing.T) {
	base := time.Now()
	at := func(ms int) time.Time { return base.Add(time.Duration(ms) * time.Millisecond) }

	assert.Equal(t, 0, MaxOverlap(nil))
	assert.Equal(t, 1, MaxOverlap([]ExecutionRecord{
		{Start: at(0), End: at(10)},
		{Start: at(10), End: at(20)},
	}))
	assert.Equal(t, 3, MaxOverlap([]ExecutionRecord{
		{Start: at(0), End: at(30)},
		{Start: at(5), End: at(25)},
		{Start: at(10), End: at(20)},
		{Start: at(40), End: at(50)},
	}))
}
