package messaging

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPairLocksSerialiseBothOrders(t *testing.T) {
	locks := newPairLocks()

	release := locks.lock(1, 2)
	acquired := make(chan struct{})
	go func() {
		unlock := locks.lock(2, 1)
		close(acquired)
		unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("reversed pair acquired a held lock")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock never released")
	}
}

func TestPairLocksIndependentPairs(t *testing.T) {
	locks := newPairLocks()
	release := locks.lock(1, 2)
	defer release()

	done := make(chan struct{})
	go func() {
		locks.lock(1, 3)()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unrelated pair blocked")
	}
}

func TestPairLocksCleanup(t *testing.T) {
	locks := newPairLocks()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			locks.lock(int64(i%5), 100)()
		}(i)
	}
	wg.Wait()

	assert.Zero(t, locks.size())
}
