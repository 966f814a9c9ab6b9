package entities

import "time"

// ObjectInfo is the metadata of a stored blob.
type ObjectInfo struct {
	Bucket      string
	Name        string
	Size        int64
	ContentType string
	ETag        string
	Metadata    map[string]string
	UpdatedAt   time.Time
}

// ObjectAttrs are the caller-supplied attributes of an upload.
type ObjectAttrs struct {
	ContentType string
	Metadata    map[string]string
}

// ObjectQuery filters a bucket listing.
type ObjectQuery struct {
	Prefix string
	Limit  int
}
