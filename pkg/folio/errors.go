package folio

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error types
var (
	// ErrStorageUnavailable indicates the table could not be reached or queried
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrSerialization indicates a value could not be converted to or from JSON
	ErrSerialization = errors.New("serialization failed")

	// ErrInvalidKey indicates an empty or oversized section key
	ErrInvalidKey = errors.New("invalid section key")

	// ErrSectionNotFound indicates no document is stored under the key
	ErrSectionNotFound = errors.New("section not found")

	// ErrNotObject indicates a merge target is not a JSON object
	ErrNotObject = errors.New("document is not a JSON object")

	// ErrUploadFailed indicates an asset upload failed
	ErrUploadFailed = errors.New("upload failed")

	// ErrBlobStoreNotConfigured indicates an upload was attempted without a blob store
	ErrBlobStoreNotConfigured = errors.New("blob store not configured")
)

// UpsertError reports the key at which a write stopped. Keys listed in
// Applied were written before the failure and are not rolled back.
type UpsertError struct {
	Key     string
	Op      string
	Applied []string
	Err     error
}

func (e *UpsertError) Error() string {
	if len(e.Applied) == 0 {
		return fmt.Sprintf("section operation %s failed for key %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("section operation %s failed for key %q after applying [%s]: %v",
		e.Op, e.Key, strings.Join(e.Applied, ", "), e.Err)
}

func (e *UpsertError) Unwrap() error {
	return e.Err
}

// DecodeError lists stored rows whose value is not valid JSON. It is
// returned alongside the rows that did decode.
type DecodeError struct {
	Keys []string
}

func (e *DecodeError) Error() string {
	keys := append([]string(nil), e.Keys...)
	sort.Strings(keys)
	return fmt.Sprintf("failed to decode %d section(s): %s", len(keys), strings.Join(keys, ", "))
}

func (e *DecodeError) Unwrap() error {
	return ErrSerialization
}

// StorageError represents an error related to blob storage operations
type StorageError struct {
	Key string
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ValidateKey checks a section key before it reaches a repository.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key is empty", ErrInvalidKey)
	}
	if len(key) > MaxKeyLength {
		return fmt.Errorf("%w: key exceeds %d bytes", ErrInvalidKey, MaxKeyLength)
	}
	return nil
}
