package snapshot

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behaviour every backend shares.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	rooms, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, rooms)

	first := map[string]json.RawMessage{
		"ABCD": json.RawMessage(`{"code":"ABCD","state":"LOBBY","players":[]}`),
		"WXYZ": json.RawMessage(`{"code":"WXYZ","state":"PLAYING","round":2}`),
	}
	require.NoError(t, s.Save(ctx, first))

	rooms, err = s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	for code, want := range first {
		assert.JSONEq(t, string(want), string(rooms[code]), code)
	}

	second := map[string]json.RawMessage{
		"WXYZ": json.RawMessage(`{"code":"WXYZ","state":"ENDED"}`),
	}
	require.NoError(t, s.Save(ctx, second))

	rooms, err = s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1, "save replaces the previous snapshot")
	assert.JSONEq(t, `{"code":"WXYZ","state":"ENDED"}`, string(rooms["WXYZ"]))

	require.NoError(t, s.Save(ctx, map[string]json.RawMessage{}))
	rooms, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, rooms)
}
