package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"

	"github.com/datareef/reef-engine/pkg/apperrors"
	"github.com/datareef/reef-engine/pkg/models"
)

// S3Writer stores columnar blobs in an object store bucket, one object per
// appended batch, keyed <workspace>/<datasource>/<part>.
type S3Writer struct {
	client s3iface.S3API
	bucket string
}

// NewS3Writer builds a writer for the given bucket. A non-empty endpoint
// points at an S3-compatible store (minio etc.) with path-style addressing.
func NewS3Writer(bucket, region, endpoint string) (*S3Writer, error) {
	cfg := aws.NewConfig().WithRegion(region)
	if endpoint != "" {
		cfg = cfg.WithEndpoint(endpoint).WithS3ForcePathStyle(true)
	}

	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return &S3Writer{client: s3.New(sess), bucket: bucket}, nil
}

// newS3WriterWithClient is used by tests to inject a fake S3 API.
func newS3WriterWithClient(client s3iface.S3API, bucket string) *S3Writer {
	return &S3Writer{client: client, bucket: bucket}
}

func (w *S3Writer) prefix(workspaceID, datasourceID uuid.UUID) string {
	return fmt.Sprintf("%s/%s/", workspaceID, datasourceID)
}

func (w *S3Writer) Append(ctx context.Context, workspaceID, datasourceID uuid.UUID, records []models.Record, schema models.Schema) error {
	data, err := encodeColumnar(records, schema)
	if err != nil {
		return apperrors.Wrap(apperrors.KindPersistence, err, "encode batch")
	}

	key := w.prefix(workspaceID, datasourceID) + partName(time.Now(), uuid.NewString()[:8])
	_, err = w.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/gzip"),
	})
	if err != nil {
		return apperrors.Wrap(apperrors.KindPersistence, err, "put batch object")
	}
	return nil
}

func (w *S3Writer) Replace(ctx context.Context, workspaceID, datasourceID uuid.UUID, records []models.Record, schema models.Schema) error {
	if err := w.Delete(ctx, workspaceID, datasourceID); err != nil {
		return err
	}
	return w.Append(ctx, workspaceID, datasourceID, records, schema)
}

// Delete removes every stored part under the datasource prefix, paging
// through list results.
func (w *S3Writer) Delete(ctx context.Context, workspaceID, datasourceID uuid.UUID) error {
	prefix := w.prefix(workspaceID, datasourceID)

	var continuation *string
	for {
		listed, err := w.client.ListObjectsV2WithContext(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(w.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuation,
		})
		if err != nil {
			return apperrors.Wrap(apperrors.KindPersistence, err, "list stored parts")
		}
		if len(listed.Contents) == 0 {
			return nil
		}

		objects := make([]*s3.ObjectIdentifier, 0, len(listed.Contents))
		for _, obj := range listed.Contents {
			objects = append(objects, &s3.ObjectIdentifier{Key: obj.Key})
		}
		_, err = w.client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(w.bucket),
			Delete: &s3.Delete{Objects: objects},
		})
		if err != nil {
			return apperrors.Wrap(apperrors.KindPersistence, err, "delete stored parts")
		}

		if listed.IsTruncated == nil || !*listed.IsTruncated {
			return nil
		}
		continuation = listed.NextContinuationToken
	}
}

var _ Writer = (*S3Writer)(nil)
