// Package gallery implements the catalog core of an art gallery
// application: content items with externally stored media, embedded
// per-author ratings, a catalog-wide featured flag, and the cascade
// logic that keeps cross-document references consistent in a store
// without enforced foreign keys.
//
// The package is storage-agnostic. Metadata persistence is abstracted
// behind Repository (in-memory and MongoDB implementations under
// repo/), binary media behind MediaStore (memory, fs and S3 backends
// under storage/). Media uploads and deletes run through a
// bounded-concurrency Provisioner with all-or-nothing semantics.
package gallery
