package editor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChangeDetector_FormattingIsUnchanged(t *testing.T) {
	d := NewChangeDetector()

	decision, sig := d.Check(json.RawMessage(tree("Hello")))
	assert.Equal(t, Changed, decision)
	assert.Equal(t, "Hello", sig)

	decision, _ = d.Check(json.RawMessage(bold("Hello")))
	assert.Equal(t, Unchanged, decision, "bold toggling keeps the text")

	decision, _ = d.Check(json.RawMessage(tree("Hello!")))
	assert.Equal(t, Changed, decision)
}

func TestChangeDetector_ForgetAndSeed(t *testing.T) {
	d := NewChangeDetector()

	_, sig := d.Check(json.RawMessage(tree("a")))
	d.Forget("other")
	last, ok := d.Last()
	assert.True(t, ok)
	assert.Equal(t, "a", last, "forget of a different signature is ignored")

	d.Forget(sig)
	_, ok = d.Last()
	assert.False(t, ok)
	decision, _ := d.Check(json.RawMessage(tree("a")))
	assert.Equal(t, Changed, decision, "a failed save is retried")

	d.Seed(json.RawMessage(tree("persisted")))
	decision, _ = d.Check(json.RawMessage(tree("persisted")))
	assert.Equal(t, Unchanged, decision)
}

func TestChangeDetector_SessionsAreIndependent(t *testing.T) {
	a, b := NewChangeDetector(), NewChangeDetector()
	a.Check(json.RawMessage(tree("x")))
	decision, _ := b.Check(json.RawMessage(tree("x")))
	assert.Equal(t, Changed, decision)
}
