// Package s3 provides a remote archive backend over an S3-compatible
// object store. Guest files map to objects under a configurable key
// prefix and guest directories map to key prefixes delimited by '/'.
// It backs the remote save-data mirror and is registered only when a
// bucket is configured.
package s3
