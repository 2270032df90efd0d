package lock

import (
	"context"
	"testing"
	"time"

	"github.com/simaogato/ledgerflow-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker_SerializesHolders(t *testing.T) {
	l := NewLocalLocker()

	release, err := l.Acquire(context.Background())
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := l.Acquire(context.Background())
		if err == nil {
			close(acquired)
			second()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired the lock while the first still held it")
	case <-time.After(50 * time.Millisecond):
	}

	release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second holder never acquired the lock")
	}
}

func TestLocalLocker_ContextCancelled(t *testing.T) {
	l := NewLocalLocker()

	release, err := l.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = l.Acquire(ctx)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
