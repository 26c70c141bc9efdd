package artifact

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"

	"github.com/roach88/iseven/internal/domain"
	"github.com/roach88/iseven/internal/keyspace"
)

func writeChunk(t *testing.T, s Store, l keyspace.Layout, i uint32) {
	t.Helper()
	lo, hi := l.Range(i)
	code, err := Assemble(lo, hi)
	require.NoError(t, err)
	require.NoError(t, s.Write(context.Background(), keyspace.Name(i), code))
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	s, err := OpenStore(ctx, t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &DirStore{}, s)

	s, err = OpenStore(ctx, "mem://")
	require.NoError(t, err)
	assert.IsType(t, &BucketStore{}, s)
	require.NoError(t, s.Close())

	_, err = OpenStore(ctx, "nope://bucket")
	assert.Error(t, err)
}

func TestDirStore(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := NewDirStore(root)

	ok, err := s.Exists(ctx, "00/00/00/000000")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Write(ctx, "00/00/00/000000", []byte{0xC3}))
	assert.FileExists(t, filepath.Join(root, "00", "00", "00", "000000"))
	assert.Equal(t, filepath.Join(root, "00", "00", "00", "000000"), s.Location("00/00/00/000000"))

	ok, err = s.Exists(ctx, "00/00/00/000000")
	require.NoError(t, err)
	assert.True(t, ok)

	code, release, err := s.Open(ctx, "00/00/00/000000")
	require.NoError(t, err)
	assert.Equal(t, 1, code.Len())
	assert.Equal(t, byte(0xC3), code.At(0))
	require.NoError(t, release())

	// No temp files are left behind.
	entries, err := os.ReadDir(filepath.Join(root, "00", "00", "00"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDirStore_EmptyFileDoesNotExist(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := NewDirStore(root)
	require.NoError(t, s.Write(ctx, "00/00/00/000001", nil))

	ok, err := s.Exists(ctx, "00/00/00/000001")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluator_Dir(t *testing.T) {
	l := keyspace.Default()
	last := uint32(l.Count() - 1)

	s := NewDirStore(t.TempDir())
	for _, i := range []uint32{0, 1, last} {
		writeChunk(t, s, l, i)
	}
	ev := NewEvaluator(s)

	tests := []struct {
		target uint32
		want   domain.Verdict
		other  uint32
	}{
		{4, domain.True, 1},
		{7, domain.False, last},
		{100_003, domain.False, 0},
		{4294967294, domain.True, 0},
	}
	for _, tt := range tests {
		home := l.Locate(tt.target)
		v, err := ev.Evaluate(context.Background(), l.Item(home), tt.target)
		require.NoError(t, err)
		assert.Equal(t, tt.want, v, "target %d", tt.target)

		v, err = ev.Evaluate(context.Background(), l.Item(tt.other), tt.target)
		require.NoError(t, err)
		assert.Equal(t, domain.Inconclusive, v, "target %d in key %d", tt.target, tt.other)
	}
}

func TestEvaluator_Bucket(t *testing.T) {
	b := memblob.OpenBucket(nil)
	s := NewBucketStore(b, "mem://")
	defer s.Close()

	l := keyspace.Default()
	writeChunk(t, s, l, 0)

	ok, err := s.Exists(context.Background(), keyspace.Name(0))
	require.NoError(t, err)
	assert.True(t, ok)

	v, err := NewEvaluator(s).Evaluate(context.Background(), l.Item(0), 99_999)
	require.NoError(t, err)
	assert.Equal(t, domain.False, v)

	_, err = NewEvaluator(s).Evaluate(context.Background(), l.Item(1), 99_999)
	require.Error(t, err)
	assert.True(t, domain.IsLoad(err))
	assert.Contains(t, err.Error(), "missing artifact")
	assert.Contains(t, err.Error(), "mem://00/00/00/000001")
}

func TestEvaluator_LoadErrors(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := NewDirStore(root)
	ev := NewEvaluator(s)
	l := keyspace.Default()

	t.Run("missing", func(t *testing.T) {
		_, err := ev.Evaluate(ctx, l.Item(0), 4)
		require.Error(t, err)
		assert.True(t, domain.IsLoad(err))
		assert.Contains(t, err.Error(), "missing artifact")
		assert.Contains(t, err.Error(), filepath.Join(root, "00", "00", "00", "000000"))
		assert.Contains(t, err.Error(), "no such file or directory")
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("empty", func(t *testing.T) {
		require.NoError(t, s.Write(ctx, keyspace.Name(1), nil))
		_, err := ev.Evaluate(ctx, l.Item(1), 4)
		require.Error(t, err)
		assert.True(t, domain.IsLoad(err))
		assert.Contains(t, err.Error(), "missing artifact")
	})

	t.Run("garbage", func(t *testing.T) {
		require.NoError(t, s.Write(ctx, keyspace.Name(2), []byte("#!/bin/sh\n")))
		_, err := ev.Evaluate(ctx, l.Item(2), 4)
		require.Error(t, err)
		assert.True(t, domain.IsLoad(err))
		assert.ErrorIs(t, err, ErrBadOpcode)
	})
}
