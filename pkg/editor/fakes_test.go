package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/haierkeys/doc-history-service/pkg/historyclient"
)

// memStore is an in-memory historyclient.Store
type memStore struct {
	mu       sync.Mutex
	versions []historyclient.Version // ascending by id
	nextID   int64

	saveErr   error
	getErr    map[int64]error
	gets      map[int64]int
	beacons   []historyclient.SaveRequest
	beaconsCh chan historyclient.SaveRequest
}

func newMemStore() *memStore {
	return &memStore{
		nextID:    1,
		getErr:    map[int64]error{},
		gets:      map[int64]int{},
		beaconsCh: make(chan historyclient.SaveRequest, 8),
	}
}

func (m *memStore) add(roomID, author string, content json.RawMessage) historyclient.Version {
	var max int64
	for _, v := range m.versions {
		if v.RoomID == roomID && v.Version > max {
			max = v.Version
		}
	}
	v := historyclient.Version{
		VersionSummary: historyclient.VersionSummary{
			ID:          m.nextID,
			RoomID:      roomID,
			Version:     max + 1,
			AuthorEmail: author,
			CreatedAt:   time.Now(),
		},
		Content: append(json.RawMessage(nil), content...),
	}
	m.nextID++
	m.versions = append(m.versions, v)
	return v
}

func (m *memStore) SaveVersion(ctx context.Context, req historyclient.SaveRequest) (*historyclient.SaveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	v := m.add(req.RoomID, req.AuthorEmail, req.Content)
	return &historyclient.SaveResult{ID: v.ID, Version: v.Version}, nil
}

func (m *memStore) SaveVersionBeacon(req historyclient.SaveRequest) {
	m.mu.Lock()
	m.beacons = append(m.beacons, req)
	m.mu.Unlock()
	m.beaconsCh <- req
}

func (m *memStore) ListVersions(ctx context.Context, roomID string) ([]historyclient.VersionSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]historyclient.VersionSummary, 0)
	for i := len(m.versions) - 1; i >= 0; i-- {
		if m.versions[i].RoomID == roomID {
			out = append(out, m.versions[i].VersionSummary)
		}
	}
	return out, nil
}

func (m *memStore) GetVersion(ctx context.Context, versionID int64) (*historyclient.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets[versionID]++
	if err := m.getErr[versionID]; err != nil {
		return nil, err
	}
	for _, v := range m.versions {
		if v.ID == versionID {
			cp := v
			return &cp, nil
		}
	}
	return nil, historyclient.ErrNotFound
}

func (m *memStore) Revert(ctx context.Context, req historyclient.RevertRequest) (*historyclient.RevertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, src := range m.versions {
		if src.ID != req.VersionID {
			continue
		}
		if src.RoomID != req.RoomID {
			return nil, historyclient.ErrOwnershipMismatch
		}
		v := m.add(req.RoomID, req.AuthorEmail, src.Content)
		return &historyclient.RevertResult{ID: v.ID, Version: v.Version, Content: v.Content}, nil
	}
	return nil, historyclient.ErrNotFound
}

func (m *memStore) count(roomID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.versions {
		if v.RoomID == roomID {
			n++
		}
	}
	return n
}

// fakeEditor keeps its state as the raw snapshot
type fakeEditor struct {
	mu       sync.Mutex
	state    json.RawMessage
	ready    ReadyState
	selected int
	sets     int
	undos    int
	redos    int
	parseErr error
	panicSet bool
}

func newFakeEditor(state string) *fakeEditor {
	return &fakeEditor{state: json.RawMessage(state), ready: Ready}
}

func (e *fakeEditor) Snapshot() (json.RawMessage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append(json.RawMessage(nil), e.state...), nil
}

func (e *fakeEditor) ParseState(raw json.RawMessage) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.parseErr != nil {
		return nil, e.parseErr
	}
	if !json.Valid(raw) {
		return nil, errors.New("invalid state")
	}
	return append(json.RawMessage(nil), raw...), nil
}

func (e *fakeEditor) SetState(state any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.panicSet {
		panic("editor exploded")
	}
	e.state = state.(json.RawMessage)
	e.sets++
	return nil
}

func (e *fakeEditor) SelectEnd() error {
	e.mu.Lock()
	e.selected++
	e.mu.Unlock()
	return nil
}

func (e *fakeEditor) ReadyState() ReadyState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready
}

func (e *fakeEditor) Undo(steps int) error {
	e.mu.Lock()
	e.undos += steps
	e.mu.Unlock()
	return nil
}

func (e *fakeEditor) Redo(steps int) error {
	e.mu.Lock()
	e.redos += steps
	e.mu.Unlock()
	return nil
}

func (e *fakeEditor) set(state string) {
	e.mu.Lock()
	e.state = json.RawMessage(state)
	e.mu.Unlock()
}

func (e *fakeEditor) current() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return string(e.state)
}

// tree builds a document whose paragraphs carry the given texts
func tree(texts ...string) string {
	parts := make([]string, 0, len(texts))
	for _, t := range texts {
		b, _ := json.Marshal(t)
		parts = append(parts, fmt.Sprintf(`{"type":"paragraph","children":[{"type":"text","format":0,"text":%s}]}`, b))
	}
	return `{"root":{"type":"root","children":[` + strings.Join(parts, ",") + `]}}`
}

// bold is tree with every text node formatted bold
func bold(texts ...string) string {
	return strings.ReplaceAll(tree(texts...), `"format":0`, `"format":1`)
}

func jsonDoc(s string) json.RawMessage { return json.RawMessage(s) }
