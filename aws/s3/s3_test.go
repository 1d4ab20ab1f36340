package s3

import (
	"bytes"
	"context"
	"io/ioutil"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

type fakeS3API struct {
	s3iface.S3API
	objects map[string]string
	gotKey  string
}

func (f *fakeS3API) GetObjectWithContext(_ aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	f.gotKey = aws.StringValue(in.Key)
	data, ok := f.objects[aws.StringValue(in.Bucket)+"/"+f.gotKey]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "The specified key does not exist.", nil)
	}
	return &s3.GetObjectOutput{Body: ioutil.NopCloser(bytes.NewBufferString(data))}, nil
}

func TestParseS3URL(t *testing.T) {
	cases := []struct {
		url     string
		bucket  string
		key     string
		wantErr bool
	}{
		{"s3://my-bucket/raw/marketing_campaign_dataset.csv", "my-bucket", "raw/marketing_campaign_dataset.csv", false},
		{"s3://my-bucket/file.csv", "my-bucket", "file.csv", false},
		{"s3://my-bucket/", "", "", true},
		{"s3:///file.csv", "", "", true},
		{"https://my-bucket/file.csv", "", "", true},
	}
	for _, c := range cases {
		got, err := ParseS3URL(c.url)
		if c.wantErr {
			if err == nil {
				t.Fatalf("expected error parsing %q", c.url)
			}
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error parsing %q: %v", c.url, err)
		}
		if got.Bucket != c.bucket || got.Key != c.key {
			t.Fatalf("unexpected result for %q: %+v", c.url, got)
		}
		if got.String() != c.url {
			t.Fatalf("expected String() %q, got %q", c.url, got.String())
		}
	}
	if !IsS3URL("S3://bucket/key") || IsS3URL("data/raw/file.csv") {
		t.Fatal("IsS3URL returned an unexpected result")
	}
}

func TestBasicClientGet(t *testing.T) {
	api := &fakeS3API{objects: map[string]string{"bucket/raw/data.csv": "a,b\n1,2\n"}}

	// Test 1 - prefix and key are joined with a single slash.
	c := NewBasicClientWithAPI("bucket", "eu-west-1", "raw/", api)
	b, err := c.Get(context.Background(), "data.csv")
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "a,b\n1,2\n" || api.gotKey != "raw/data.csv" {
		t.Fatalf("unexpected object %q for key %q", string(b), api.gotKey)
	}

	// Test 2 - missing keys map to ErrKeyNotFound.
	c = NewBasicClientWithAPI("bucket", "eu-west-1", "", api)
	if _, err = c.Get(context.Background(), "missing.csv"); err != ErrKeyNotFound {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}
