package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
	"golang.org/x/exp/mmap"

	// Bucket schemes accepted by OpenStore.
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
)

// Store holds artifacts under relative keys such as "00/00/a7/00a7c5".
type Store interface {
	// Open returns the artifact for key. The caller must call release
	// once it is done with code.
	Open(ctx context.Context, key string) (code Code, release func() error, err error)
	// Exists reports whether a non-empty artifact is stored under key.
	Exists(ctx context.Context, key string) (bool, error)
	// Write stores data under key, replacing any previous artifact.
	Write(ctx context.Context, key string, data []byte) error
	// Location names key for diagnostics.
	Location(key string) string
	Close() error
}

// OpenStore opens a directory path or, when location carries a scheme
// ("gs://bucket/prefix", "file:///tmp/x", "mem://"), a blob bucket.
func OpenStore(ctx context.Context, location string) (Store, error) {
	if strings.Contains(location, "://") {
		b, err := blob.OpenBucket(ctx, location)
		if err != nil {
			return nil, fmt.Errorf("open bucket %s: %w", location, err)
		}
		return NewBucketStore(b, location), nil
	}
	return NewDirStore(location), nil
}

// DirStore keeps artifacts as files below a root directory and reads
// them through a memory map.
type DirStore struct {
	root string
}

func NewDirStore(root string) *DirStore {
	return &DirStore{root: root}
}

func (d *DirStore) path(key string) string {
	return filepath.Join(d.root, filepath.FromSlash(key))
}

func (d *DirStore) Location(key string) string {
	return d.path(key)
}

func (d *DirStore) Open(_ context.Context, key string) (Code, func() error, error) {
	r, err := mmap.Open(d.path(key))
	if err != nil {
		return nil, nil, err
	}
	return r, r.Close, nil
}

func (d *DirStore) Exists(_ context.Context, key string) (bool, error) {
	fi, err := os.Stat(d.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return fi.Mode().IsRegular() && fi.Size() > 0, nil
}

// Write creates the key's parent directories and replaces the file
// atomically through a rename.
func (d *DirStore) Write(_ context.Context, key string, data []byte) error {
	dst := d.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func (d *DirStore) Close() error { return nil }

// BucketStore keeps artifacts as objects in a gocloud bucket.
type BucketStore struct {
	bucket *blob.Bucket
	url    string
}

func NewBucketStore(b *blob.Bucket, url string) *BucketStore {
	return &BucketStore{bucket: b, url: strings.TrimSuffix(url, "/")}
}

func (s *BucketStore) Location(key string) string {
	return s.url + "/" + key
}

func (s *BucketStore) Open(ctx context.Context, key string) (Code, func() error, error) {
	data, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, nil, fmt.Errorf("%w: %w", fs.ErrNotExist, err)
		}
		return nil, nil, err
	}
	return Bytes(data), func() error { return nil }, nil
}

func (s *BucketStore) Exists(ctx context.Context, key string) (bool, error) {
	attrs, err := s.bucket.Attributes(ctx, key)
	if gcerrors.Code(err) == gcerrors.NotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return attrs.Size > 0, nil
}

func (s *BucketStore) Write(ctx context.Context, key string, data []byte) error {
	return s.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{
		ContentType: "application/octet-stream",
	})
}

func (s *BucketStore) Close() error {
	return s.bucket.Close()
}
