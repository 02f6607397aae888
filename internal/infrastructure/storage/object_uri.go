package storage

import (
	"errors"
	"fmt"
	"strings"
)

// Scheme prefixes sources and archive locations held in object storage
const Scheme = "s3://"

// ObjectURI names an object as s3://bucket/key
type ObjectURI struct {
	Bucket string
	Key    string
}

// IsObjectURI reports whether source names an object rather than a file
func IsObjectURI(source string) bool {
	return strings.HasPrefix(strings.TrimSpace(source), Scheme)
}

// ParseObjectURI parses s3://bucket/key
func ParseObjectURI(source string) (ObjectURI, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(source), Scheme)
	if !ok {
		return ObjectURI{}, fmt.Errorf("%q is not an %s location", source, Scheme)
	}
	bucket, key, _ := strings.Cut(rest, "/")
	loc := ObjectURI{Bucket: bucket, Key: key}
	if err := loc.validate(); err != nil {
		return ObjectURI{}, fmt.Errorf("invalid location %q: %w", source, err)
	}
	return loc, nil
}

func (u ObjectURI) validate() error {
	if u.Bucket == "" {
		return errors.New("storage bucket is required")
	}
	if u.Key == "" || strings.HasSuffix(u.Key, "/") {
		return errors.New("storage key is required")
	}
	return nil
}

func (u ObjectURI) String() string {
	return Scheme + u.Bucket + "/" + u.Key
}
