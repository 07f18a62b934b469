package sink

import (
	"context"
	"mime"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/address-geocoder/internal/config"
)

// ObjectClient is the subset of *minio.Client used for uploads.
type ObjectClient interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Uploader copies run artifacts to S3-compatible storage under
// <prefix>/<run id>/<file name>.
type Uploader struct {
	client ObjectClient
	bucket string
	prefix string
	runID  string
}

// NewUploader wraps an existing client.
func NewUploader(client ObjectClient, bucket, prefix, runID string) *Uploader {
	return &Uploader{client: client, bucket: bucket, prefix: prefix, runID: runID}
}

// NewUploaderFromConfig connects to the configured endpoint.
func NewUploaderFromConfig(cfg config.S3Config, runID string) (*Uploader, error) {
	if !cfg.Enabled() {
		return nil, eris.New("sink: s3 endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, eris.Wrap(err, "sink: create s3 client")
	}
	return NewUploader(client, cfg.Bucket, cfg.Prefix, runID), nil
}

// ObjectKey returns the key a local file is uploaded to.
func (u *Uploader) ObjectKey(localPath string) string {
	return path.Join(u.prefix, u.runID, filepath.Base(localPath))
}

// Upload ensures the bucket exists and puts each file. It stops at the
// first failure.
func (u *Uploader) Upload(ctx context.Context, paths ...string) error {
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return eris.Wrapf(err, "sink: check bucket %s", u.bucket)
	}
	if !exists {
		if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{}); err != nil {
			return eris.Wrapf(err, "sink: create bucket %s", u.bucket)
		}
	}

	for _, p := range paths {
		key := u.ObjectKey(p)
		opts := minio.PutObjectOptions{ContentType: contentType(p)}
		info, err := u.client.FPutObject(ctx, u.bucket, key, p, opts)
		if err != nil {
			return eris.Wrapf(err, "sink: upload %s", p)
		}
		zap.L().Info("sink: artifact uploaded",
			zap.String("bucket", u.bucket),
			zap.String("key", key),
			zap.Int64("bytes", info.Size),
		)
	}
	return nil
}

func contentType(p string) string {
	switch filepath.Ext(p) {
	case ".parquet":
		return "application/vnd.apache.parquet"
	case ".yaml", ".yml":
		return "application/yaml"
	}
	if ct := mime.TypeByExtension(filepath.Ext(p)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
