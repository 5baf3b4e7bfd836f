package backup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/go-cmp/cmp"

	chatuierrors "github.com/vango-dev/chatui/internal/errors"
	"github.com/vango-dev/chatui/pkg/webdb"
)

var stores = []webdb.StoreDefinition{
	{
		Name:          "sessions",
		KeyPath:       "id",
		AutoIncrement: true,
		Indexes:       []webdb.IndexDefinition{{Name: "title", KeyPath: "title"}},
	},
	{Name: "settings"},
}

func openDB(t *testing.T, name string) *webdb.DB {
	t.Helper()
	db, err := webdb.Open(context.Background(), name, 1, stores, webdb.WithDir(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seed(t *testing.T, db *webdb.DB) {
	t.Helper()
	ctx := context.Background()
	for _, title := range []string{"first", "second"} {
		if _, err := db.AddData(ctx, "sessions", map[string]any{"title": title}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := db.UpdateData(ctx, "settings", "dark", "theme"); err != nil {
		t.Fatal(err)
	}
}

var snapTime = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

func TestTakeAndRestore(t *testing.T) {
	ctx := context.Background()
	src := openDB(t, "chats")
	seed(t, src)

	snap, err := Take(ctx, src, snapTime)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Database != "chats" || snap.Version != 1 || len(snap.Stores) != 2 {
		t.Fatalf("snapshot header = %+v", snap)
	}
	sessions, ok := snap.Store("sessions")
	if !ok || sessions.KeyPath != "id" || len(sessions.Records) != 2 {
		t.Fatalf("sessions snapshot = %+v", sessions)
	}

	var buf bytes.Buffer
	if err := Write(&buf, snap); err != nil {
		t.Fatal(err)
	}
	decoded, err := Read(&buf)
	if err != nil {
		t.Fatal(err)
	}

	dst, err := webdb.Open(ctx, "chats", 1, decoded.Definitions(), webdb.WithDir(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	defer dst.Close()
	skipped, err := Restore(ctx, dst, decoded)
	if err != nil || len(skipped) != 0 {
		t.Fatalf("Restore = %v, %v", skipped, err)
	}

	for _, name := range []string{"sessions", "settings"} {
		want, err := src.GetAllEntries(ctx, name)
		if err != nil {
			t.Fatal(err)
		}
		got, err := dst.GetAllEntries(ctx, name)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s (-want +got):\n%s", name, diff)
		}
	}

	// The key generator continues after the restored keys.
	key, err := dst.AddData(ctx, "sessions", map[string]any{"title": "third"})
	if err != nil {
		t.Fatal(err)
	}
	if key != 3.0 {
		t.Errorf("next key = %v, want 3", key)
	}
}

func TestRestoreSkipsUnknownStores(t *testing.T) {
	ctx := context.Background()
	src := openDB(t, "chats")
	seed(t, src)
	snap, err := Take(ctx, src, snapTime)
	if err != nil {
		t.Fatal(err)
	}

	dst, err := webdb.Open(ctx, "other", 1, stores[1:], webdb.WithDir(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	defer dst.Close()

	skipped, err := Restore(ctx, dst, snap)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"sessions"}, skipped); diff != "" {
		t.Errorf("skipped (-want +got):\n%s", diff)
	}
}

func TestTakeClosedDB(t *testing.T) {
	db := openDB(t, "chats")
	_ = db.Close()

	_, err := Take(context.Background(), db, snapTime)
	if !chatuierrors.HasCode(err, "E113") {
		t.Fatalf("Take(closed) = %v, want E113", err)
	}
	if !chatuierrors.HasCode(errors.Unwrap(err), "E110") {
		t.Errorf("cause = %v, want E110", errors.Unwrap(err))
	}
}

func TestReadRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", "nope"},
		{"wrong format", `{"format": 9, "database": "x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(tt.input)); !chatuierrors.HasCode(err, "E113") {
				t.Errorf("Read() = %v, want E113", err)
			}
		})
	}
}

// memS3 is an in-memory bucket that pages listings two keys at a time.
type memS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut error
}

func newMemS3() *memS3 { return &memS3{objects: map[string][]byte{}} }

func (m *memS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.failPut != nil {
		return nil, m.failPut
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.objects[aws.ToString(in.Key)] = data
	m.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func (m *memS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	data, ok := m.objects[aws.ToString(in.Key)]
	m.mu.Unlock()
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *memS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if in.ContinuationToken != nil {
		start, _ = strconv.Atoi(*in.ContinuationToken)
	}
	end := min(start+2, len(keys))
	out := &s3.ListObjectsV2Output{}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{
			Key:  aws.String(k),
			Size: aws.Int64(int64(len(m.objects[k]))),
		})
	}
	if end < len(keys) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func TestS3Target(t *testing.T) {
	ctx := context.Background()
	db := openDB(t, "chats")
	seed(t, db)
	bucket := newMemS3()
	target := NewS3Target(bucket, "backups", "nightly/")

	var keys []string
	for i := 0; i < 3; i++ {
		snap, err := Take(ctx, db, snapTime.Add(time.Duration(i)*time.Hour))
		if err != nil {
			t.Fatal(err)
		}
		key, err := target.Upload(ctx, snap)
		if err != nil {
			t.Fatal(err)
		}
		keys = append(keys, key)
	}
	if keys[0] != "nightly/chats/20240501T123000.000Z.json" {
		t.Errorf("first key = %q", keys[0])
	}

	objects, err := target.List(ctx, "chats")
	if err != nil {
		t.Fatal(err)
	}
	var listed []string
	for _, o := range objects {
		listed = append(listed, o.Key)
	}
	if diff := cmp.Diff(keys, listed); diff != "" {
		t.Errorf("listed keys (-want +got):\n%s", diff)
	}

	latest, err := target.Latest(ctx, "chats")
	if err != nil || latest != keys[2] {
		t.Fatalf("Latest() = %q, %v", latest, err)
	}
	snap, err := target.Download(ctx, latest)
	if err != nil {
		t.Fatal(err)
	}
	if !snap.CreatedAt.Equal(snapTime.Add(2 * time.Hour)) {
		t.Errorf("downloaded snapshot time = %v", snap.CreatedAt)
	}

	if _, err := target.Download(ctx, "nightly/chats/missing.json"); !chatuierrors.HasCode(err, "E113") {
		t.Errorf("Download(missing) = %v, want E113", err)
	}
	if key, err := target.Latest(ctx, "empty"); err != nil || key != "" {
		t.Errorf("Latest(empty) = %q, %v", key, err)
	}
}

func TestS3UploadFailure(t *testing.T) {
	bucket := newMemS3()
	bucket.failPut = errors.New("access denied")
	target := NewS3Target(bucket, "backups", "")

	_, err := target.Upload(context.Background(), &Snapshot{Format: FormatVersion, Database: "chats", CreatedAt: snapTime})
	if !chatuierrors.HasCode(err, "E113") || !strings.Contains(err.Error(), "access denied") {
		t.Errorf("Upload() = %v", err)
	}
}

func TestNewS3Client(t *testing.T) {
	c := NewS3Client(ClientOptions{Region: "us-east-1", Endpoint: "http://localhost:9000", UsePathStyle: true})
	o := c.Options()
	if o.Region != "us-east-1" || !o.UsePathStyle || aws.ToString(o.BaseEndpoint) != "http://localhost:9000" {
		t.Errorf("options = region %q path %v endpoint %q", o.Region, o.UsePathStyle, aws.ToString(o.BaseEndpoint))
	}

	c = NewS3Client(ClientOptions{Region: "eu-west-1", AccessKeyID: "AKID", SecretAccessKey: "secret"})
	creds, err := c.Options().Credentials.Retrieve(context.Background())
	if err != nil || creds.AccessKeyID != "AKID" {
		t.Errorf("credentials = %+v, %v", creds, err)
	}
}
