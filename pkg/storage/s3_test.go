package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 tracks stored objects in memory. Methods the writer never calls
// panic via the embedded interface, which is fine for these tests.
type fakeS3 struct {
	s3iface.S3API
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObjectWithContext(ctx aws.Context, in *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2WithContext(ctx aws.Context, in *s3.ListObjectsV2Input, opts ...request.Option) (*s3.ListObjectsV2Output, error) {
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for k := range f.objects {
		if strings.HasPrefix(k, aws.StringValue(in.Prefix)) {
			out.Contents = append(out.Contents, &s3.Object{Key: aws.String(k)})
		}
	}
	return out, nil
}

func (f *fakeS3) DeleteObjectsWithContext(ctx aws.Context, in *s3.DeleteObjectsInput, opts ...request.Option) (*s3.DeleteObjectsOutput, error) {
	for _, obj := range in.Delete.Objects {
		delete(f.objects, aws.StringValue(obj.Key))
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func (f *fakeS3) keysWithPrefix(prefix string) []string {
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

func TestS3Writer_PrefixScopedByWorkspaceAndSource(t *testing.T) {
	ws, ds := uuid.New(), uuid.New()
	w := newS3WriterWithClient(nil, "bucket")
	assert.Equal(t, ws.String()+"/"+ds.String()+"/", w.prefix(ws, ds))
}

func TestS3Writer_AppendAccumulates(t *testing.T) {
	fake := newFakeS3()
	w := newS3WriterWithClient(fake, "bucket")
	ws, ds := uuid.New(), uuid.New()
	ctx := context.Background()

	require.NoError(t, w.Append(ctx, ws, ds, testBatch(2), testSchema))
	require.NoError(t, w.Append(ctx, ws, ds, testBatch(3), testSchema))
	assert.Len(t, fake.keysWithPrefix(w.prefix(ws, ds)), 2)
}

func TestS3Writer_ReplaceLeavesOnlyLatest(t *testing.T) {
	fake := newFakeS3()
	w := newS3WriterWithClient(fake, "bucket")
	ws, ds := uuid.New(), uuid.New()
	ctx := context.Background()

	require.NoError(t, w.Append(ctx, ws, ds, testBatch(2), testSchema))
	require.NoError(t, w.Append(ctx, ws, ds, testBatch(2), testSchema))
	require.NoError(t, w.Replace(ctx, ws, ds, testBatch(7), testSchema))

	keys := fake.keysWithPrefix(w.prefix(ws, ds))
	require.Len(t, keys, 1)

	records, _, err := decodeColumnar(fake.objects[keys[0]])
	require.NoError(t, err)
	assert.Len(t, records, 7)
}

func TestS3Writer_DeleteIsScopedToSource(t *testing.T) {
	fake := newFakeS3()
	w := newS3WriterWithClient(fake, "bucket")
	ctx := context.Background()
	ws, ds1, ds2 := uuid.New(), uuid.New(), uuid.New()

	require.NoError(t, w.Append(ctx, ws, ds1, testBatch(1), testSchema))
	require.NoError(t, w.Append(ctx, ws, ds2, testBatch(1), testSchema))
	require.NoError(t, w.Delete(ctx, ws, ds1))

	assert.Empty(t, fake.keysWithPrefix(w.prefix(ws, ds1)))
	assert.Len(t, fake.keysWithPrefix(w.prefix(ws, ds2)), 1)
}
