package compile

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCancelToken_SetIsIdempotent(t *testing.T) {
	tok := NewCancelToken()
	assert.False(t, tok.IsSet())

	tok.Set()
	tok.Set()
	tok.Set()

	assert.True(t, tok.IsSet())
}

func TestCancelToken_ConcurrentSetNeverPanics(t *testing.T) {
	tok := NewCancelToken()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok.Set()
		}()
	}
	wg.Wait()
	assert.True(t, tok.IsSet())
}

func TestCancelToken_DoneClosesOnSet(t *testing.T) {
	tok := NewCancelToken()
	select {
	case <-tok.Done():
		t.Fatal("expected Done channel to be open before Set")
	default:
	}

	tok.Set()

	select {
	case <-tok.Done():
	default:
		t.Fatal("expected Done channel to be closed after Set")
	}
}
