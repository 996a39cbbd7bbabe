package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeS3 struct {
	objects map[string][]byte
	gotKey  string
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.gotKey = aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	data, ok := f.objects[f.gotKey]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{
		Body:        io.NopCloser(bytes.NewReader(data)),
		ContentType: aws.String("image/jpeg"),
	}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if _, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]; !ok {
		return nil, errors.New("api error NotFound: Not Found")
	}
	return &s3.HeadObjectOutput{}, nil
}

func TestParseRef(t *testing.T) {
	c := NewClientWithAPI(&fakeS3{}, "catalog", 0)

	tests := []struct {
		ref        string
		wantBucket string
		wantKey    string
		shouldErr  bool
	}{
		{"s3://other/garments/a.jpg", "other", "garments/a.jpg", false},
		{"garments/a.jpg", "catalog", "garments/a.jpg", false},
		{"/garments/a.jpg", "catalog", "garments/a.jpg", false},
		{"s3://bucket-only", "", "", true},
		{"s3:///key", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		bucket, key, err := c.ParseRef(tt.ref)
		if tt.shouldErr {
			if err == nil {
				t.Errorf("expected error for %q", tt.ref)
			}
			continue
		}
		if err != nil || bucket != tt.wantBucket || key != tt.wantKey {
			t.Errorf("ParseRef(%q) = %q, %q, %v", tt.ref, bucket, key, err)
		}
	}

	if _, _, err := NewClientWithAPI(&fakeS3{}, "", 0).ParseRef("a.jpg"); err == nil {
		t.Error("bare key without default bucket should fail")
	}
}

func TestFetch(t *testing.T) {
	api := &fakeS3{objects: map[string][]byte{"catalog/shirt.jpg": []byte("jpeg-bytes")}}
	c := NewClientWithAPI(api, "catalog", 1024)

	data, contentType, err := c.Fetch(context.Background(), "shirt.jpg")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "jpeg-bytes" || contentType != "image/jpeg" {
		t.Errorf("got %q %q", data, contentType)
	}

	if _, _, err := c.Fetch(context.Background(), "missing.jpg"); err == nil {
		t.Error("expected error for missing object")
	}
}

func TestFetch_SizeCap(t *testing.T) {
	api := &fakeS3{objects: map[string][]byte{"catalog/big.jpg": bytes.Repeat([]byte{1}, 11)}}
	c := NewClientWithAPI(api, "catalog", 10)

	if _, _, err := c.Fetch(context.Background(), "big.jpg"); err == nil {
		t.Error("expected error for object above the size cap")
	}
}

func TestExists(t *testing.T) {
	api := &fakeS3{objects: map[string][]byte{"catalog/a.jpg": nil}}
	c := NewClientWithAPI(api, "catalog", 0)

	ok, err := c.Exists(context.Background(), "a.jpg")
	if err != nil || !ok {
		t.Errorf("Exists(a.jpg) = %v, %v", ok, err)
	}
	ok, err = c.Exists(context.Background(), "b.jpg")
	if err != nil || ok {
		t.Errorf("Exists(b.jpg) = %v, %v", ok, err)
	}
}
