package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTime_UnixMethods(t *testing.T) {
	// Create a fixed time
	// 创建一个固定时间
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tt := Time(now)

	assert.Equal(t, now.Unix(), tt.Unix())
	assert.Equal(t, now.UnixMilli(), tt.UnixMilli())
	assert.Equal(t, now.UnixMicro(), tt.UnixMicro())
	assert.Equal(t, now.UnixNano(), tt.UnixNano())

	// Verify it's not returning time.Now() by waiting a bit
	// 通过等待一会确认它不是返回 time.Now()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, now.Unix(), tt.Unix())
}

func TestTime_JSON(t *testing.T) {
	at := Time(time.Date(2024, 5, 6, 7, 8, 9, 123_000_000, time.UTC))

	data, err := json.Marshal(at)
	require.NoError(t, err)
	assert.Equal(t, `"2024-05-06T07:08:09.123Z"`, string(data))

	var back Time
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, at.Std().Equal(back.Std()))

	zero, err := json.Marshal(Time{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(zero))

	var legacy Time
	require.NoError(t, json.Unmarshal([]byte(`"2024-05-06 07:08:09"`), &legacy))
	assert.Equal(t, 2024, legacy.Std().Year())
}

func TestTime_Scan(t *testing.T) {
	var v Time
	now := time.Now()
	require.NoError(t, v.Scan(now))
	assert.True(t, now.Equal(v.Std()))

	require.NoError(t, v.Scan(nil))
	assert.True(t, v.IsZero())

	assert.Error(t, v.Scan(42))
}
