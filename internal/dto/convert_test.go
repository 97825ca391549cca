package dto

import (
	"testing"
	"time"

	"github.com/haierkeys/doc-history-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopy_VersionSummary(t *testing.T) {
	at := time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)
	src := &domain.VersionSummary{ID: 7, RoomID: "r1", Version: 3, AuthorEmail: "a@x.com", CreatedAt: at}

	var dst VersionSummaryDTO
	require.NoError(t, Copy(&dst, src))
	assert.Equal(t, int64(7), dst.ID)
	assert.Equal(t, "r1", dst.RoomID)
	assert.Equal(t, int64(3), dst.Version)
	assert.Equal(t, "a@x.com", dst.AuthorEmail)
	assert.True(t, at.Equal(dst.CreatedAt.Std()))
}

func TestCopy_SkipsTaggedFields(t *testing.T) {
	src := &domain.Version{ID: 1, RoomID: "r1", Version: 1, Content: `{"root":{}}`}
	dst := VersionDTO{Content: []byte(`{"kept":true}`)}

	require.NoError(t, Copy(&dst, src))
	assert.Equal(t, `{"kept":true}`, string(dst.Content))
	assert.True(t, dst.CreatedAt.IsZero())
}
