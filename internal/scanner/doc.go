// Package scanner stages the direct file entries of a source directory for upload.
//
// Listing is a single call on the filesystem; reading the files runs in parallel
// across a bounded group of workers. Each staged file receives a dense index
// that follows the sorted directory listing, independent of the order in which
// the reads complete.
package scanner
