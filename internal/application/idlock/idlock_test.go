package idlock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLockSerializesAccessPerKey(t *testing.T) {
	table := NewTable()
	var counter int
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			table.With("app1", func() {
				cur := counter
				time.Sleep(time.Microsecond)
				counter = cur + 1
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestDifferentKeysDoNotBlockEachOther(t *testing.T) {
	table := NewTable()
	table.Lock("app1")
	defer table.Unlock("app1")

	done := make(chan struct{})
	go func() {
		table.With("app2", func() {})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("a lock on app1 must not block app2")
	}
}
