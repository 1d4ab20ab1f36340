package s3

import (
	"fmt"
	"net/url"
	"strings"
)

const urlScheme = "s3"

type AwsS3Object struct {
	Bucket string `errorTxt:"bucket name" mandatory:"yes"`
	Key    string `errorTxt:"object key" mandatory:"yes"`
}

func (o AwsS3Object) String() string {
	return fmt.Sprintf("%v://%v/%v", urlScheme, o.Bucket, o.Key)
}

// IsS3URL returns true if path has the s3:// scheme.
func IsS3URL(path string) bool {
	return strings.HasPrefix(strings.ToLower(path), urlScheme+"://")
}

// ParseS3URL expects objectURL to be of the form s3://<bucket>/<key>
// It returns an AwsS3Object populated with the components of objectURL.
func ParseS3URL(objectURL string) (retval AwsS3Object, err error) {
	s3url, err := url.Parse(objectURL)
	if err != nil {
		return retval, fmt.Errorf("error parsing S3 URL: %v", err)
	}
	if s3url.Scheme != urlScheme {
		return retval, fmt.Errorf("expected S3 URL scheme %q but got %q", urlScheme, s3url.Scheme)
	}
	retval.Bucket = s3url.Host
	if retval.Bucket == "" {
		return retval, fmt.Errorf("S3 URL %q is missing a bucket name", objectURL)
	}
	retval.Key = strings.TrimLeft(s3url.Path, "/")
	if retval.Key == "" || strings.HasSuffix(retval.Key, "/") {
		return retval, fmt.Errorf("S3 URL %q is missing an object key", objectURL)
	}
	return
}
