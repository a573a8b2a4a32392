package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amlakhq/amlak/internal/shared"
)

type fakeProvider struct {
	objects map[string][]byte // bucket/path -> content
	uploads []UploadInput
	deletes int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{objects: make(map[string][]byte)}
}

func (f *fakeProvider) key(bucket, path string) string { return bucket + "/" + path }

func (f *fakeProvider) Upload(_ context.Context, input UploadInput) (Object, error) {
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return Object{}, err
	}
	f.objects[f.key(input.Bucket, input.Path)] = data
	f.uploads = append(f.uploads, input)
	return Object{Bucket: input.Bucket, Path: input.Path, Size: int64(len(data)), UpdatedAt: time.Now()}, nil
}

func (f *fakeProvider) Delete(_ context.Context, bucket, path string) error {
	delete(f.objects, f.key(bucket, path))
	f.deletes++
	return nil
}

func (f *fakeProvider) PublicURL(bucket, path string) string {
	return "https://cdn.example.com/" + bucket + "/" + path
}

func (f *fakeProvider) SignedURL(_ context.Context, bucket, path string, expires time.Duration) (string, error) {
	return "https://signed.example.com/" + bucket + "/" + path, nil
}

func (f *fakeProvider) ListObjects(_ context.Context, bucket, prefix string) ([]Object, error) {
	var out []Object
	for key, data := range f.objects {
		if !strings.HasPrefix(key, bucket+"/") {
			continue
		}
		path := strings.TrimPrefix(key, bucket+"/")
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		out = append(out, Object{Bucket: bucket, Path: path, Size: int64(len(data))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

type stubMetadataRepo struct {
	rows       map[string]*FileMetadata // bucket/path
	nextID     int64
	failInsert bool
	failDelete bool
}

func newStubMetadataRepo() *stubMetadataRepo {
	return &stubMetadataRepo{rows: make(map[string]*FileMetadata)}
}

func (s *stubMetadataRepo) key(bucket, path string) string { return bucket + "/" + path }

func (s *stubMetadataRepo) Insert(_ context.Context, meta FileMetadata) (*FileMetadata, error) {
	if s.failInsert {
		return nil, errors.New("insert failed")
	}
	s.nextID++
	meta.ID = s.nextID
	meta.CreatedAt = time.Now()
	s.rows[s.key(meta.Bucket, meta.Path)] = &meta
	copied := meta
	return &copied, nil
}

func (s *stubMetadataRepo) DeleteByPath(_ context.Context, bucket, path string) error {
	if s.failDelete {
		return errors.New("delete failed")
	}
	if _, ok := s.rows[s.key(bucket, path)]; !ok {
		return shared.ErrNotFound
	}
	delete(s.rows, s.key(bucket, path))
	return nil
}

func (s *stubMetadataRepo) MarkOrphaned(_ context.Context, bucket, path string) error {
	if row, ok := s.rows[s.key(bucket, path)]; ok {
		row.Orphaned = true
	}
	return nil
}

func (s *stubMetadataRepo) ListByBucketPrefix(_ context.Context, bucket, prefix string) ([]FileMetadata, error) {
	var out []FileMetadata
	for _, row := range s.rows {
		if row.Bucket == bucket && strings.HasPrefix(row.Path, prefix) && !row.Orphaned {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (s *stubMetadataRepo) ListOrphaned(_ context.Context, limit int) ([]FileMetadata, error) {
	var out []FileMetadata
	for _, row := range s.rows {
		if row.Orphaned {
			out = append(out, *row)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *stubMetadataRepo) Delete(_ context.Context, id int64) error {
	for key, row := range s.rows {
		if row.ID == id {
			delete(s.rows, key)
			return nil
		}
	}
	return shared.ErrNotFound
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestObjectKeyShape(t *testing.T) {
	key := ObjectKey("صورة الفيلا.JPG")
	parts := strings.SplitN(key, "-", 2)
	require.Len(t, parts, 2)
	assert.True(t, strings.HasSuffix(key, ".jpg"))
	assert.NotContains(t, key, " ")

	other := ObjectKey("صورة الفيلا.JPG")
	assert.NotEqual(t, key, other)
}

func TestUploadNestsKeyUnderPathPrefix(t *testing.T) {
	provider := newFakeProvider()
	repo := newStubMetadataRepo()
	svc := NewService(provider, repo, testLogger())

	meta, err := svc.Upload(context.Background(), UploadRequest{
		Bucket:       BucketPropertyImages,
		OriginalName: "villa.jpg",
		ContentType:  "image/jpeg",
		Size:         7,
		Body:         bytes.NewReader([]byte("payload")),
		PathPrefix:   "/unit-7/",
		CacheControl: "public, max-age=86400",
		Upsert:       true,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(meta.Path, "unit-7/"), "key must nest under the prefix")
	generated := strings.TrimPrefix(meta.Path, "unit-7/")
	assert.NotContains(t, generated, "/")
	assert.True(t, strings.HasSuffix(generated, ".jpg"))

	require.Len(t, provider.uploads, 1)
	assert.Equal(t, meta.Path, provider.uploads[0].Path)
	assert.Equal(t, "public, max-age=86400", provider.uploads[0].CacheControl)
	assert.True(t, provider.uploads[0].Upsert)

	files, err := svc.ListFiles(context.Background(), BucketPropertyImages, "unit-7/")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "villa.jpg", files[0].Name)
}

func TestUploadRejectsEscapingPrefix(t *testing.T) {
	provider := newFakeProvider()
	svc := NewService(provider, newStubMetadataRepo(), testLogger())

	for _, prefix := range []string{"..", "../secrets", "a/../../b"} {
		_, err := svc.Upload(context.Background(), UploadRequest{
			Bucket:       BucketPropertyImages,
			OriginalName: "villa.jpg",
			ContentType:  "image/jpeg",
			Size:         1,
			Body:         bytes.NewReader([]byte("x")),
			PathPrefix:   prefix,
		})
		assert.ErrorIs(t, err, ErrInvalidPrefix, prefix)
	}
	assert.Empty(t, provider.objects)
}

func TestUploadThenListReconciles(t *testing.T) {
	provider := newFakeProvider()
	repo := newStubMetadataRepo()
	svc := NewService(provider, repo, testLogger())
	uploader := int64(42)

	meta, err := svc.Upload(context.Background(), UploadRequest{
		Bucket:       BucketPropertyImages,
		OriginalName: "villa.jpg",
		ContentType:  "image/jpeg",
		Size:         int64(len("payload")),
		Body:         bytes.NewReader([]byte("payload")),
		UploadedBy:   &uploader,
	})
	require.NoError(t, err)
	assert.Equal(t, BucketPropertyImages, meta.Bucket)

	files, err := svc.ListFiles(context.Background(), BucketPropertyImages, "")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "villa.jpg", files[0].Name)
	assert.Equal(t, meta.Path, files[0].Path)
	assert.Equal(t, int64(len("payload")), files[0].Size)
	require.NotNil(t, files[0].UploadedBy)
	assert.Equal(t, uploader, *files[0].UploadedBy)
	assert.Contains(t, files[0].URL, "cdn.example.com")
}

func TestUploadCompensatesOnMetadataFailure(t *testing.T) {
	provider := newFakeProvider()
	repo := newStubMetadataRepo()
	repo.failInsert = true
	svc := NewService(provider, repo, testLogger())

	_, err := svc.Upload(context.Background(), UploadRequest{
		Bucket:       BucketPropertyImages,
		OriginalName: "villa.jpg",
		ContentType:  "image/jpeg",
		Size:         7,
		Body:         bytes.NewReader([]byte("payload")),
	})
	require.Error(t, err)
	assert.Empty(t, provider.objects, "failed upload must not leave an object behind")
}

func TestDeleteThenListIsEmpty(t *testing.T) {
	provider := newFakeProvider()
	repo := newStubMetadataRepo()
	svc := NewService(provider, repo, testLogger())

	meta, err := svc.Upload(context.Background(), UploadRequest{
		Bucket:       BucketClientFiles,
		OriginalName: "contract.pdf",
		ContentType:  "application/pdf",
		Size:         4,
		Body:         bytes.NewReader([]byte("data")),
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteFile(context.Background(), BucketClientFiles, meta.Path))

	files, err := svc.ListFiles(context.Background(), BucketClientFiles, "")
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Empty(t, repo.rows)
}

func TestDeleteMarksOrphanWhenRowDeleteFails(t *testing.T) {
	provider := newFakeProvider()
	repo := newStubMetadataRepo()
	svc := NewService(provider, repo, testLogger())

	meta, err := svc.Upload(context.Background(), UploadRequest{
		Bucket:       BucketClientFiles,
		OriginalName: "contract.pdf",
		ContentType:  "application/pdf",
		Size:         4,
		Body:         bytes.NewReader([]byte("data")),
	})
	require.NoError(t, err)

	repo.failDelete = true
	require.NoError(t, svc.DeleteFile(context.Background(), BucketClientFiles, meta.Path))
	assert.Empty(t, provider.objects, "object must be gone even when the row survives")
	assert.True(t, repo.rows["client-files/"+meta.Path].Orphaned)
}

func TestSweepOrphansClearsRows(t *testing.T) {
	provider := newFakeProvider()
	repo := newStubMetadataRepo()
	svc := NewService(provider, repo, testLogger())

	meta, err := svc.Upload(context.Background(), UploadRequest{
		Bucket:       BucketClientFiles,
		OriginalName: "contract.pdf",
		ContentType:  "application/pdf",
		Size:         4,
		Body:         bytes.NewReader([]byte("data")),
	})
	require.NoError(t, err)

	repo.failDelete = true
	require.NoError(t, svc.DeleteFile(context.Background(), BucketClientFiles, meta.Path))
	repo.failDelete = false

	swept, err := svc.SweepOrphans(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
	assert.Empty(t, repo.rows)
}

func TestListUntrackedObjectDegradesToStoreValues(t *testing.T) {
	provider := newFakeProvider()
	repo := newStubMetadataRepo()
	svc := NewService(provider, repo, testLogger())

	provider.objects["property-images/legacy/photo.png"] = []byte("old upload")

	files, err := svc.ListFiles(context.Background(), BucketPropertyImages, "legacy/")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "photo.png", files[0].Name)
	assert.Equal(t, int64(len("old upload")), files[0].Size)
	assert.Nil(t, files[0].UploadedBy)
}

func TestUnknownBucketRejected(t *testing.T) {
	svc := NewService(newFakeProvider(), newStubMetadataRepo(), testLogger())

	_, err := svc.Upload(context.Background(), UploadRequest{
		Bucket:       "scratch",
		OriginalName: "x.txt",
		ContentType:  "text/plain",
		Size:         1,
		Body:         bytes.NewReader([]byte("x")),
	})
	assert.ErrorIs(t, err, ErrUnknownBucket)

	_, err = svc.ListFiles(context.Background(), "scratch", "")
	assert.ErrorIs(t, err, ErrUnknownBucket)
}
