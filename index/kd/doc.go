// Package kd provides a k-d tree backed implementation of index.Index. The
// tree is rebuilt from the persisted vectors on load, which keeps the binary
// format a tagged variant of the brute-force encoding.
package kd
