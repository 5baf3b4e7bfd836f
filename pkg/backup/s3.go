package backup

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/chatui/internal/errors"
)

// S3API is the subset of the S3 client used by S3Target.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// ClientOptions configures NewS3Client.
type ClientOptions struct {
	Region string

	// Endpoint overrides the S3 endpoint, e.g. for MinIO.
	Endpoint string

	// AccessKeyID and SecretAccessKey are static credentials. When both are
	// empty requests are sent unsigned.
	AccessKeyID     string
	SecretAccessKey string

	// UsePathStyle addresses buckets as endpoint/bucket instead of
	// bucket.endpoint.
	UsePathStyle bool
}

// NewS3Client builds an S3 client from static options.
func NewS3Client(opts ClientOptions) *s3.Client {
	o := s3.Options{
		Region:       opts.Region,
		UsePathStyle: opts.UsePathStyle,
	}
	if opts.Endpoint != "" {
		o.BaseEndpoint = aws.String(opts.Endpoint)
	}
	if opts.AccessKeyID != "" || opts.SecretAccessKey != "" {
		creds := aws.Credentials{
			AccessKeyID:     opts.AccessKeyID,
			SecretAccessKey: opts.SecretAccessKey,
			Source:          "chatui",
		}
		o.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return creds, nil
		}))
	} else {
		o.Credentials = aws.AnonymousCredentials{}
	}
	return s3.New(o)
}

// S3Target keeps snapshots under a key prefix of one bucket.
type S3Target struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Target returns a target for bucket. prefix is prepended to every
// object key as is.
func NewS3Target(client S3API, bucket, prefix string) *S3Target {
	return &S3Target{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key for snap: prefix, database name and the
// snapshot time.
func (t *S3Target) Key(snap *Snapshot) string {
	return fmt.Sprintf("%s%s/%s.json", t.prefix, snap.Database, snap.CreatedAt.UTC().Format("20060102T150405.000Z"))
}

// Upload stores snap and returns its object key.
func (t *S3Target) Upload(ctx context.Context, snap *Snapshot) (string, error) {
	var buf bytes.Buffer
	if err := Write(&buf, snap); err != nil {
		return "", errors.New("E113").WithDetail("encode snapshot").Wrap(err)
	}

	key := t.Key(snap)
	_, err := t.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(t.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"database": snap.Database,
			"version":  fmt.Sprint(snap.Version),
		},
	})
	if err != nil {
		return "", errors.New("E113").WithDetailf("upload s3://%s/%s", t.bucket, key).Wrap(err)
	}
	return key, nil
}

// Download fetches the snapshot stored under key.
func (t *S3Target) Download(ctx context.Context, key string) (*Snapshot, error) {
	out, err := t.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.New("E113").WithDetailf("download s3://%s/%s", t.bucket, key).Wrap(err)
	}
	defer out.Body.Close()
	return Read(out.Body)
}

// Object describes one stored snapshot.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// List returns the snapshots of database, oldest first.
func (t *S3Target) List(ctx context.Context, database string) ([]Object, error) {
	prefix := t.prefix + database + "/"
	paginator := s3.NewListObjectsV2Paginator(t.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(t.bucket),
		Prefix: aws.String(prefix),
	})

	var objects []Object
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.New("E113").WithDetailf("list s3://%s/%s", t.bucket, prefix).Wrap(err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, ".json") {
				continue
			}
			objects = append(objects, Object{
				Key:          key,
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// Latest returns the key of the newest snapshot of database, or "" when
// there is none.
func (t *S3Target) Latest(ctx context.Context, database string) (string, error) {
	objects, err := t.List(ctx, database)
	if err != nil || len(objects) == 0 {
		return "", err
	}
	return objects[len(objects)-1].Key, nil
}
