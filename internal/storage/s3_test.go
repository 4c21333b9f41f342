package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	bodies []string
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(params.Body)
	f.inputs = append(f.inputs, params)
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func TestArchive(t *testing.T) {
	fake := &fakeS3{}
	a := &S3Archive{client: fake, bucket: "reports", prefix: "otomoto"}

	local := filepath.Join(t.TempDir(), "report-20250301.csv")
	os.WriteFile(local, []byte("id,title\n"), 0o644)

	key, err := a.Archive(context.Background(), local)
	if err != nil {
		t.Fatal("Archive failed:", err)
	}
	if key != "otomoto/report-20250301.csv" {
		t.Errorf("Expected prefixed key, got %s", key)
	}
	if len(fake.inputs) != 1 {
		t.Fatalf("Expected 1 upload, got %d", len(fake.inputs))
	}
	in := fake.inputs[0]
	if *in.Bucket != "reports" || *in.ContentType != "text/csv" {
		t.Errorf("Unexpected upload %s %s", *in.Bucket, *in.ContentType)
	}
	if fake.bodies[0] != "id,title\n" {
		t.Errorf("Unexpected body %q", fake.bodies[0])
	}
}

func TestArchiveMissingFile(t *testing.T) {
	a := &S3Archive{client: &fakeS3{}, bucket: "reports"}
	if _, err := a.Archive(context.Background(), filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Error("Expected error for missing file")
	}
}
