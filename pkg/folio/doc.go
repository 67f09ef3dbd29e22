// Package folio provides the content store behind a portfolio website: a flat
// mapping from section key (hero, about, projects, ...) to an opaque JSON
// document, with pluggable repository and blob storage backends.
//
// Consistency Contract
//
// Each key is replaced wholesale by a single insert-or-update statement, so a
// key's upsert is atomic. A multi-key write is not: UpsertMany applies keys
// one at a time and stops at the first failure without rolling back the keys
// already written. Callers keep one logical section per key so a partially
// applied batch still leaves every section in a defined state.
//
// UpsertSingleMerged is a read-modify-write. Two concurrent merges into the
// same key race and the last write wins; the expected usage is a single admin.
package folio
