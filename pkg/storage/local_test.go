package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	clock := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return s
}

func TestLocalStorage_SaveAndLatest(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	_, err := s.Save(ctx, "sales-source", "text/csv", strings.NewReader("Fecha,Total\n"))
	require.NoError(t, err)
	second, err := s.Save(ctx, "sales-source", "text/csv", strings.NewReader("Fecha,Total\n2024-03-05,100\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(27), second.Size)

	rc, info, err := s.Latest(ctx, "sales-source")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, second.ID, info.ID)
	assert.Equal(t, "text/csv", info.ContentType)
	assert.Equal(t, "Fecha,Total\n2024-03-05,100\n", string(data))
}

func TestLocalStorage_LatestEmpty(t *testing.T) {
	s := newTestStorage(t)

	_, _, err := s.Latest(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	files, err := s.List(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestLocalStorage_Prune(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	for i := 0; i < 5; i++ {
		_, err := s.Save(ctx, "sales-source", "text/csv", strings.NewReader("x"))
		require.NoError(t, err)
	}

	require.NoError(t, s.Prune(ctx, "sales-source", 2))

	files, err := s.List(ctx, "sales-source")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.True(t, files[0].CreatedAt.After(files[1].CreatedAt))
}

func TestLocalStorage_CanceledContext(t *testing.T) {
	s := newTestStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Save(ctx, "sales-source", "text/csv", strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"sales-source", "sales-source"},
		{"../etc/passwd", "__etc_passwd"},
		{`a:b*c?"d<e>f|g`, "a_b_c__d_e_f_g"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeFilename(tt.in))
		})
	}
}
