package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLEmitAppendsOneLinePerRecord(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONL(dir, time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close()) }()

	album := testAlbum()
	require.NoError(t, s.Emit(context.Background(), album))

	second := album
	second.AOTYID = "9999-other"
	require.NoError(t, s.Emit(context.Background(), second))

	file, err := os.Open(s.Path())
	require.NoError(t, err)
	defer file.Close()

	var ids []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &decoded))
		ids = append(ids, decoded["aoty_id"].(string))
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []string{album.AOTYID, "9999-other"}, ids)
}

func TestJSONLFileNameCarriesTimestamp(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONL(dir, time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	defer s.Close()

	assert.Contains(t, s.Path(), "albums_20260823T120000Z.jsonl")
}
