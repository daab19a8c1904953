package pipeline

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaserExclusive(t *testing.T) {
	leaser := NewLeaser(time.Minute)

	release, err := leaser.Acquire(1)
	require.NoError(t, err)
	assert.True(t, leaser.Held(1))

	_, err = leaser.Acquire(1)
	assert.ErrorIs(t, err, ErrLeaseHeld)

	// Distinct entities lease independently.
	release2, err := leaser.Acquire(2)
	require.NoError(t, err)
	release2()

	release()
	assert.False(t, leaser.Held(1))

	_, err = leaser.Acquire(1)
	assert.NoError(t, err)
}

func TestLeaserReleaseIdempotent(t *testing.T) {
	leaser := NewLeaser(time.Minute)

	release, err := leaser.Acquire(1)
	require.NoError(t, err)
	release()
	release()

	_, err = leaser.Acquire(1)
	assert.NoError(t, err)
}

func TestLeaserTTLReclaim(t *testing.T) {
	leaser := NewLeaser(20 * time.Millisecond)

	staleRelease, err := leaser.Acquire(1)
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)

	// The expired lease can be reclaimed without a release.
	release, err := leaser.Acquire(1)
	require.NoError(t, err)

	// The stale holder's release must not drop the successor's lease.
	staleRelease()
	assert.True(t, leaser.Held(1))

	release()
	assert.False(t, leaser.Held(1))
}

func TestLeaserConcurrentAcquireSingleWinner(t *testing.T) {
	leaser := NewLeaser(time.Minute)

	const contenders = 16
	var wg sync.WaitGroup
	wins := make(chan func(), contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if release, err := leaser.Acquire(1); err == nil {
				wins <- release
			}
		}()
	}
	wg.Wait()
	close(wins)

	assert.Len(t, wins, 1)
}
