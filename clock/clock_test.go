package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFake_AfterFiresOnAdvance(t *testing.T) {
	f := NewFake(time.Unix(0, 0))

	ch := f.After(10 * time.Second)

	select {
	case <-ch:
		t.Fatal("timer fired before advance")
	default:
	}

	f.Advance(9 * time.Second)
	select {
	case <-ch:
		t.Fatal("timer fired early")
	default:
	}

	f.Advance(time.Second)
	select {
	case now := <-ch:
		assert.Equal(t, time.Unix(10, 0), now)
	default:
		t.Fatal("timer did not fire")
	}
}

func TestFake_SleepRecordsAndAdvances(t *testing.T) {
	f := NewFake(time.Unix(0, 0))

	require.NoError(t, f.Sleep(context.Background(), 2*time.Second))

	assert.Equal(t, []time.Duration{2 * time.Second}, f.Slept())
	assert.Equal(t, time.Unix(2, 0), f.Now())
}

func TestReal_SleepHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New().Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
