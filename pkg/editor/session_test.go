package editor

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{
		AutosaveInterval: time.Hour,
		LoadDelay:        time.Millisecond,
		LoadingDelay:     2 * time.Millisecond,
		ReadyDelay:       time.Millisecond,
	}
}

type recordingRelay struct {
	mu     sync.Mutex
	states []json.RawMessage
}

func (r *recordingRelay) SendApplyState(state json.RawMessage, versionID int64) error {
	r.mu.Lock()
	r.states = append(r.states, state)
	r.mu.Unlock()
	return nil
}

func openSession(t *testing.T, store *memStore, ed *fakeEditor, opts SessionOptions) *Session {
	t.Helper()
	if opts.Config == (Config{}) {
		opts.Config = fastConfig()
	}
	s, err := NewSession("room-s", ed, store, opts)
	require.NoError(t, err)
	s.Open()
	select {
	case <-s.Loaded():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish loading")
	}
	return s
}

func TestNewSession_Validation(t *testing.T) {
	_, err := NewSession("", newFakeEditor("{}"), newMemStore(), SessionOptions{})
	assert.Error(t, err)
	_, err = NewSession("room", nil, newMemStore(), SessionOptions{})
	assert.Error(t, err)

	s, err := NewSession("room", newFakeEditor("{}"), newMemStore(), SessionOptions{})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), s.cfg)
	s.Close()
}

func TestSession_OpenLoadsLatest(t *testing.T) {
	store := newMemStore()
	store.add("room-s", "a@example.com", json.RawMessage(tree("first")))
	store.add("room-s", "a@example.com", json.RawMessage(tree("latest")))
	ed := newFakeEditor(tree(""))

	s := openSession(t, store, ed, SessionOptions{AuthorEmail: "me@example.com"})
	defer s.Close()

	assert.Equal(t, tree("latest"), ed.current())
	last, ok := s.Detector.Last()
	assert.True(t, ok)
	assert.Equal(t, "latest", last)

	assert.False(t, s.Autosaver.Tick(context.Background()), "loaded content is not saved again")
}

func TestSession_OpenEmptyRoom(t *testing.T) {
	store := newMemStore()
	ed := newFakeEditor(tree("fresh"))
	s := openSession(t, store, ed, SessionOptions{})
	defer s.Close()

	assert.Equal(t, tree("fresh"), ed.current())
	assert.True(t, s.Autosaver.Tick(context.Background()))
	assert.Equal(t, 1, store.count("room-s"))
}

func TestSession_CloseSendsFinalBeacon(t *testing.T) {
	store := newMemStore()
	ed := newFakeEditor(tree("start"))
	s := openSession(t, store, ed, SessionOptions{Title: "Doc", AuthorEmail: "me@example.com"})
	require.True(t, s.Autosaver.Tick(context.Background()))

	ed.set(tree("typed before leaving"))
	s.Close()
	require.Len(t, store.beacons, 1)
	assert.Equal(t, "Doc", store.beacons[0].Title)

	s.Close()
	assert.Len(t, store.beacons, 1)
}

func TestSession_CloseBeforeOpenSendsNothing(t *testing.T) {
	store := newMemStore()
	s, err := NewSession("room-s", newFakeEditor(tree("x")), store, SessionOptions{Config: fastConfig()})
	require.NoError(t, err)
	s.Close()
	s.Open()
	assert.Empty(t, store.beacons)
}

func TestSession_RevertAppliesAndRelays(t *testing.T) {
	store := newMemStore()
	store.add("room-s", "a@example.com", json.RawMessage(tree("one")))
	store.add("room-s", "a@example.com", json.RawMessage(tree("two")))
	ed := newFakeEditor(tree(""))
	s := openSession(t, store, ed, SessionOptions{AuthorEmail: "me@example.com"})
	defer s.Close()

	relay := &recordingRelay{}
	s.AttachRelay(relay)

	var changed []VersionsChanged
	s.Browser.Subscribe(func(ev VersionsChanged) { changed = append(changed, ev) })

	res, applied, err := s.Revert(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, wait(t, applied))

	assert.Equal(t, int64(3), res.Version)
	assert.Equal(t, tree("one"), ed.current())
	assert.Equal(t, []VersionsChanged{{RoomID: "room-s", Version: 3}}, changed)
	require.Len(t, relay.states, 1)
	assert.JSONEq(t, tree("one"), string(relay.states[0]))
	assert.False(t, s.Autosaver.Tick(context.Background()), "reverted content is already persisted")
}

func TestSession_PreviewDoesNotWrite(t *testing.T) {
	store := newMemStore()
	store.add("room-s", "a@example.com", json.RawMessage(tree("one")))
	store.add("room-s", "a@example.com", json.RawMessage(tree("two")))
	store.add("room-x", "a@example.com", json.RawMessage(tree("other room")))
	ed := newFakeEditor(tree(""))
	s := openSession(t, store, ed, SessionOptions{})
	defer s.Close()

	require.NoError(t, wait(t, s.Preview(context.Background(), 1)))
	assert.Equal(t, tree("one"), ed.current())
	assert.Equal(t, 2, store.count("room-s"))

	assert.Error(t, wait(t, s.Preview(context.Background(), 3)))
	assert.Equal(t, tree("one"), ed.current())
}

func TestSession_HandleRemote(t *testing.T) {
	store := newMemStore()
	ed := newFakeEditor(tree("mine"))

	var presence []PresenceEvent
	s := openSession(t, store, ed, SessionOptions{
		AuthorEmail: "me@example.com",
		OnPresence:  func(ev PresenceEvent) { presence = append(presence, ev) },
	})
	defer s.Close()

	var changed []VersionsChanged
	s.Observer.Subscribe(func(ev VersionsChanged) { changed = append(changed, ev) })

	s.HandleRemote(ActionVersionsChanged, json.RawMessage(`{"roomId":"room-s","version":7}`))
	assert.Equal(t, []VersionsChanged{{RoomID: "room-s", Version: 7}}, changed)

	state := tree("from a peer")
	s.HandleRemote(ActionApplyState, json.RawMessage(`{"state":`+state+`,"versionId":4}`))
	assert.Eventually(t, func() bool { return ed.current() == state }, time.Second, 2*time.Millisecond)
	last, _ := s.Detector.Last()
	assert.Equal(t, "from a peer", last)

	s.HandleRemote(ActionApplyState, json.RawMessage(`{"versionId":4}`))
	s.HandleRemote(ActionUndo, nil)
	s.HandleRemote(ActionRedo, json.RawMessage(`{"steps":3}`))
	ed.mu.Lock()
	assert.Equal(t, 1, ed.undos)
	assert.Equal(t, 3, ed.redos)
	ed.mu.Unlock()

	s.HandleRemote(ActionPresenceJoin, json.RawMessage(`{"userEmail":"me@example.com","online":2}`))
	s.HandleRemote(ActionPresenceJoin, json.RawMessage(`{"userEmail":"bob@example.com","online":2}`))
	s.HandleRemote(ActionPresenceJoin, json.RawMessage(`{"userEmail":"bob@example.com","online":2}`))
	assert.Equal(t, []PresenceEvent{{Kind: PresenceJoin, UserEmail: "bob@example.com", Online: 2}}, presence)

	s.HandleRemote("Unknown", json.RawMessage(`{}`))
}
