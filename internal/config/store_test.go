// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_InitialSnapshotIsEmpty(t *testing.T) {
	s := NewStore()
	cur := s.Current()
	require.NotNil(t, cur)
	assert.Equal(t, uint64(0), cur.Version)
	assert.Equal(t, 0, cur.Len())
}

func TestStore_PublishAssignsMonotonicVersions(t *testing.T) {
	s := NewStore()
	first := s.Publish(NewSnapshot([]StreamDefinition{{"A", "rtsp://a"}}))
	second := s.Publish(NewSnapshot([]StreamDefinition{{"B", "rtsp://b"}}))

	assert.Equal(t, uint64(1), first.Version)
	assert.Equal(t, uint64(2), second.Version)
	assert.Same(t, second, s.Current())
	// The earlier snapshot is untouched by the later publish.
	assert.Equal(t, []string{"A"}, first.Names())
}

func TestSubscription_DeliversEverySnapshotInOrder(t *testing.T) {
	s := NewStore()
	before := s.Publish(NewSnapshot(nil))
	sub := s.Subscribe()
	defer sub.Close()

	const n = 50
	for i := 0; i < n; i++ {
		s.Publish(NewSnapshot(nil))
	}
	assert.Equal(t, n, sub.Pending())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 1; i <= n; i++ {
		snap, err := sub.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, before.Version+uint64(i), snap.Version)
	}
}

func TestSubscription_NextBlocksUntilPublish(t *testing.T) {
	s := NewStore()
	sub := s.Subscribe()
	defer sub.Close()

	got := make(chan *Snapshot, 1)
	go func() {
		snap, err := sub.Next(context.Background())
		if err == nil {
			got <- snap
		}
	}()

	select {
	case <-got:
		t.Fatal("Next returned before anything was published")
	case <-time.After(20 * time.Millisecond):
	}

	published := s.Publish(NewSnapshot([]StreamDefinition{{"A", "rtsp://a"}}))
	select {
	case snap := <-got:
		assert.Same(t, published, snap)
	case <-time.After(time.Second):
		t.Fatal("Next did not wake up on publish")
	}
}

func TestSubscription_CloseAndCancel(t *testing.T) {
	s := NewStore()
	sub := s.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sub.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	sub.Close()
	sub.Close()
	_, err = sub.Next(context.Background())
	assert.ErrorIs(t, err, ErrSubscriptionClosed)

	// Closed subscriptions no longer receive snapshots.
	s.Publish(NewSnapshot(nil))
	assert.Equal(t, 0, sub.Pending())
}

func TestStore_ConcurrentPublishersKeepOrderPerSubscriber(t *testing.T) {
	s := NewStore()
	sub := s.Subscribe()
	defer sub.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				s.Publish(NewSnapshot(nil))
				_ = s.Current().Version
			}
		}()
	}
	wg.Wait()

	var last uint64
	for sub.Pending() > 0 {
		snap, err := sub.Next(context.Background())
		require.NoError(t, err)
		require.Greater(t, snap.Version, last)
		last = snap.Version
	}
	assert.Equal(t, uint64(200), last)
}
