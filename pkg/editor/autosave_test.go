package editor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/haierkeys/doc-history-service/pkg/historyclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutosaver_Tick(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	ed := newFakeEditor(tree("Hello"))
	obs := NewObserver(nil)

	var events []VersionsChanged
	obs.Subscribe(func(ev VersionsChanged) { events = append(events, ev) })

	a := NewAutosaver("room-a", ed, NewChangeDetector(), store, obs, time.Hour, nil)
	a.SetIdentity(Identity{Title: "Notes", AuthorEmail: "a@example.com"})

	assert.True(t, a.Tick(ctx), "first snapshot is saved")
	assert.False(t, a.Tick(ctx), "same text is skipped")

	ed.set(bold("Hello"))
	assert.False(t, a.Tick(ctx), "formatting only is skipped")

	ed.set(tree("Hello world"))
	assert.True(t, a.Tick(ctx))

	assert.Equal(t, 2, store.count("room-a"))
	require.Len(t, events, 2)
	assert.Equal(t, VersionsChanged{RoomID: "room-a", Version: 2}, events[1])
	assert.Equal(t, "a@example.com", store.versions[0].AuthorEmail)
}

func TestAutosaver_FailedSaveIsRetried(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	ed := newFakeEditor(tree("draft"))
	detector := NewChangeDetector()
	a := NewAutosaver("room-a", ed, detector, store, nil, time.Hour, nil)

	store.saveErr = errors.New("store down")
	assert.False(t, a.Tick(ctx))
	_, has := detector.Last()
	assert.False(t, has, "failed save must not be remembered")

	store.saveErr = nil
	assert.True(t, a.Tick(ctx))
	assert.Equal(t, 1, store.count("room-a"))
}

func TestAutosaver_StartSavesOnInterval(t *testing.T) {
	store := newMemStore()
	ed := newFakeEditor(tree("ticking"))
	a := NewAutosaver("room-a", ed, NewChangeDetector(), store, nil, 10*time.Millisecond, nil)
	a.Start()
	defer a.Close()

	assert.Eventually(t, func() bool { return store.count("room-a") == 1 }, time.Second, 5*time.Millisecond)
}

func TestAutosaver_CloseSendsBeacon(t *testing.T) {
	store := newMemStore()
	ed := newFakeEditor(tree("v1"))
	a := NewAutosaver("room-a", ed, NewChangeDetector(), store, nil, time.Hour, nil)
	a.SetIdentity(Identity{Title: "T", AuthorEmail: "b@example.com"})
	a.Start()
	require.True(t, a.Tick(context.Background()))

	ed.set(tree("v2"))
	a.Close()

	select {
	case req := <-store.beaconsCh:
		assert.Equal(t, "room-a", req.RoomID)
		assert.Equal(t, "b@example.com", req.AuthorEmail)
		assert.JSONEq(t, tree("v2"), string(req.Content))
	case <-time.After(time.Second):
		t.Fatal("no beacon sent on close")
	}

	a.Close()
	assert.Len(t, store.beacons, 1, "close is idempotent")
}

// hangingStore holds every SaveVersion until its context is cancelled
type hangingStore struct {
	*memStore
	entered chan struct{}
}

func (h *hangingStore) SaveVersion(ctx context.Context, req historyclient.SaveRequest) (*historyclient.SaveResult, error) {
	h.entered <- struct{}{}
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestAutosaver_CloseDuringSlowSaveStillSendsBeacon(t *testing.T) {
	store := &hangingStore{memStore: newMemStore(), entered: make(chan struct{}, 1)}
	ed := newFakeEditor(tree("unsaved"))
	a := NewAutosaver("room-a", ed, NewChangeDetector(), store, nil, 5*time.Millisecond, nil)
	a.Start()

	select {
	case <-store.entered:
	case <-time.After(time.Second):
		t.Fatal("tick never reached the store")
	}

	closed := make(chan struct{})
	go func() {
		a.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("close blocked on the in-flight save")
	}

	select {
	case req := <-store.beaconsCh:
		assert.JSONEq(t, tree("unsaved"), string(req.Content))
	case <-time.After(time.Second):
		t.Fatal("final content was never sent")
	}
}

func TestAutosaver_CloseWithoutChangeSendsNothing(t *testing.T) {
	store := newMemStore()
	ed := newFakeEditor(tree("same"))
	a := NewAutosaver("room-a", ed, NewChangeDetector(), store, nil, time.Hour, nil)
	a.Start()
	require.True(t, a.Tick(context.Background()))
	a.Close()
	assert.Empty(t, store.beacons)
}

func TestAutosaver_NeverStartedSendsNothing(t *testing.T) {
	store := newMemStore()
	a := NewAutosaver("room-a", newFakeEditor(tree("x")), NewChangeDetector(), store, nil, time.Hour, nil)
	a.Close()
	a.Start()
	assert.Empty(t, store.beacons)
	assert.Zero(t, store.count("room-a"))
}

type brokenEditor struct{ fakeEditor }

func (b *brokenEditor) Snapshot() (json.RawMessage, error) { return nil, errors.New("no snapshot") }

func TestAutosaver_SnapshotFailure(t *testing.T) {
	store := newMemStore()
	a := NewAutosaver("room-a", &brokenEditor{}, NewChangeDetector(), store, nil, time.Hour, nil)
	assert.False(t, a.Tick(context.Background()))
	assert.Zero(t, store.count("room-a"))
}
