package cancel

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToken(t *testing.T) {
	tok := New()
	assert.False(t, tok.IsCancelled())

	tok.Cancel()
	tok.Cancel()
	assert.True(t, tok.IsCancelled())

	tok.Reset()
	assert.False(t, tok.IsCancelled())
}

func TestToken_ConcurrentAccess(t *testing.T) {
	var tok Token
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			tok.Cancel()
		}()
		go func() {
			defer wg.Done()
			_ = tok.IsCancelled()
		}()
	}
	wg.Wait()

	assert.True(t, tok.IsCancelled())
}
