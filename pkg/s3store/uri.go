package s3store

import (
	"errors"
	"strings"
)

// ParseS3URI parses an S3 URI (s3://bucket/key) into bucket and key components.
func ParseS3URI(uri string) (bucket, key string, err error) {
	if !strings.HasPrefix(uri, "s3://") {
		return "", "", errors.New("invalid S3 URI: must start with s3://")
	}

	path := strings.TrimPrefix(uri, "s3://")
	parts := strings.SplitN(path, "/", 2)
	if parts[0] == "" {
		return "", "", errors.New("invalid S3 URI: missing bucket name")
	}

	bucket = parts[0]
	if len(parts) == 2 {
		key = parts[1]
	}

	return bucket, key, nil
}

// FormatS3URI joins bucket and key into s3://bucket/key. The key is used
// verbatim, including any URL encoding carried over from event payloads.
func FormatS3URI(bucket, key string) string {
	return "s3://" + bucket + "/" + key
}
