package local_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/operalab/commesse/internal/storage/domain"
	"github.com/operalab/commesse/internal/storage/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStore(t *testing.T) *local.Store {
	t.Helper()
	s, err := local.New(t.TempDir(), "/files", zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestPutStoresUnderSlugifiedName(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	stored, err := s.Put(ctx, "42", "My Invoice (1).PDF", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "my-invoice-1.pdf", stored.FileName)
	assert.Equal(t, "/files/voices/42/my-invoice-1.pdf", stored.FileURL)

	b, err := os.ReadFile(filepath.Join(s.Root(), "voices", "42", "my-invoice-1.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(b))

	// no staging leftovers
	entries, err := os.ReadDir(filepath.Join(s.Root(), "tmp"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPutCollisionLastWriteWins(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.Put(ctx, "7", "report.pdf", strings.NewReader("first"))
	require.NoError(t, err)
	_, err = s.Put(ctx, "7", "Report.PDF", strings.NewReader("second"))
	require.NoError(t, err)

	dir := filepath.Join(s.Root(), "voices", "7")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	b, err := os.ReadFile(filepath.Join(dir, "report.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(b))
}

func TestDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.Put(ctx, "9", "contract.pdf", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "9", "contract.pdf"))
	require.NoError(t, s.Delete(ctx, "9", "contract.pdf"))
	require.NoError(t, s.Delete(ctx, "9", "never-existed.pdf"))
	require.NoError(t, s.Delete(ctx, "no-such-voice", "contract.pdf"))
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.Put(ctx, "  ", "a.pdf", strings.NewReader("x"))
	assert.ErrorIs(t, err, domain.ErrMissingVoiceID)

	_, err = s.Put(ctx, "1", "???", strings.NewReader("x"))
	assert.ErrorIs(t, err, domain.ErrMissingFile)

	assert.ErrorIs(t, s.Delete(ctx, "", "a.pdf"), domain.ErrMissingVoiceID)
	assert.ErrorIs(t, s.Delete(ctx, "1", ""), domain.ErrMissingFile)
}
