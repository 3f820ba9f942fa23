// Package productmedia implements the product image pipeline for the
// storefront: validating uploaded source images, generating a fixed set of
// resized and re-encoded derivatives, persisting them to an object store, and
// keeping the relational image rows reconciled with the caller's intent.
//
// Two stores, one source of truth. Image rows live in the relational store
// and are authoritative for which images a product has; the object store is a
// write-once cache of derivative bytes addressed by key. No transaction spans
// both stores: blob uploads happen before their rows are inserted, and blob
// deletes happen after their rows are removed, best-effort and never blocking
// the row mutation. A failed blob delete is logged and left behind as an
// orphan; a failed upload aborts the request before any row is written. On
// the product-create path the just-inserted product row is removed when the
// pipeline fails (compensation on the relational side only). Operators should
// expect and garbage-collect orphaned objects out-of-band.
//
// Processing is sequential everywhere: one source image at a time, one
// derivative at a time, in thumbnail, medium, large, original order. This
// caps peak memory at a single decoded source plus a single encoded
// derivative, at the cost of wall-clock time.
package productmedia
