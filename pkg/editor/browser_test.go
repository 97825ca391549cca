package editor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/haierkeys/doc-history-service/pkg/historyclient"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seed stores one version per text, oldest first, and returns the list newest first
func seed(t *testing.T, store *memStore, roomID string, docs ...string) []historyclient.VersionSummary {
	t.Helper()
	for _, d := range docs {
		store.add(roomID, "a@example.com", json.RawMessage(d))
	}
	list, err := store.ListVersions(context.Background(), roomID)
	require.NoError(t, err)
	return list
}

func TestHistoryBrowser_DisplayFilter(t *testing.T) {
	store := newMemStore()
	b := NewHistoryBrowser(store, nil, 2, nil)

	// ids 1..4 oldest to newest: "a", bold "a", "b", "b"
	list := seed(t, store, "room-a", tree("a"), bold("a"), tree("b"), tree("b"))
	visible := b.DisplayFilter(context.Background(), list)

	assert.Equal(t, map[int64]bool{
		4: false, // same text as 3
		3: true,
		2: false, // formatting only
		1: true,  // oldest
	}, visible)
}

func TestHistoryBrowser_DisplayFilterFetchFailureStaysVisible(t *testing.T) {
	store := newMemStore()
	b := NewHistoryBrowser(store, nil, 4, nil)
	list := seed(t, store, "room-a", tree("a"), tree("a"), tree("a"))

	store.getErr[2] = errors.New("flaky")
	visible := b.DisplayFilter(context.Background(), list)

	assert.True(t, visible[3], "its older neighbour could not be fetched")
	assert.True(t, visible[2], "its own fetch failed")
	assert.True(t, visible[1])
}

func TestHistoryBrowser_DisplayFilterFetchesEachVersionOnce(t *testing.T) {
	store := newMemStore()
	b := NewHistoryBrowser(store, nil, 1, nil)
	list := seed(t, store, "room-a", tree("a"), tree("b"), tree("c"))

	b.DisplayFilter(context.Background(), list)
	for _, v := range list {
		assert.Equal(t, 1, store.gets[v.ID])
	}
	assert.Empty(t, b.DisplayFilter(context.Background(), nil))
}

// alphabet is small so generated histories repeat texts often
var alphabet = []string{"", "a", "b", "ab"}

func TestHistoryBrowser_DisplayFilterProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("oldest is visible and others differ from their older neighbour", prop.ForAll(
		func(picks []int) bool {
			texts := make([]string, len(picks))
			for i, p := range picks {
				texts[i] = alphabet[p]
			}
			store := newMemStore()
			for _, s := range texts {
				store.add("room-p", "p@example.com", json.RawMessage(tree(s)))
			}
			list, _ := store.ListVersions(context.Background(), "room-p")
			visible := NewHistoryBrowser(store, nil, 3, nil).DisplayFilter(context.Background(), list)
			if len(visible) != len(list) {
				return false
			}
			for i, v := range list {
				if i == len(list)-1 {
					if !visible[v.ID] {
						return false
					}
					continue
				}
				differs := texts[len(texts)-1-i] != texts[len(texts)-2-i]
				if visible[v.ID] != differs {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, len(alphabet)-1)),
	))

	properties.TestingRun(t)
}

func TestHistoryBrowser_Restore(t *testing.T) {
	store := newMemStore()
	b := NewHistoryBrowser(store, nil, 0, nil)
	seed(t, store, "room-a", tree("a"))
	seed(t, store, "room-b", tree("b"))

	v, err := b.Restore(context.Background(), "room-a", 1)
	require.NoError(t, err)
	assert.JSONEq(t, tree("a"), string(v.Content))

	_, err = b.Restore(context.Background(), "room-a", 2)
	assert.ErrorIs(t, err, historyclient.ErrOwnershipMismatch)

	_, err = b.Restore(context.Background(), "room-a", 99)
	assert.ErrorIs(t, err, historyclient.ErrNotFound)

	assert.Equal(t, 1, store.count("room-a"), "restore never writes")
}

func TestHistoryBrowser_RevertPublishes(t *testing.T) {
	store := newMemStore()
	obs := NewObserver(nil)
	b := NewHistoryBrowser(store, obs, 0, nil)
	seed(t, store, "room-a", tree("one"), tree("two"))

	var got []VersionsChanged
	unsubscribe := b.Subscribe(func(ev VersionsChanged) { got = append(got, ev) })

	res, err := b.Revert(context.Background(), "room-a", 1, "c@example.com", "Doc")
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Version)
	assert.JSONEq(t, tree("one"), string(res.Content))
	assert.Equal(t, []VersionsChanged{{RoomID: "room-a", Version: 3}}, got)

	unsubscribe()
	_, err = b.Revert(context.Background(), "room-a", 2, "c@example.com", "Doc")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = b.Revert(context.Background(), "room-b", 1, "c@example.com", "Doc")
	assert.ErrorIs(t, err, historyclient.ErrOwnershipMismatch)
}
