package objectkey

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Asset kinds. Each kind is a top-level prefix in the blob store.
const (
	KindResume = "resumes"
	KindImage  = "images"
)

// Generator defines the interface for object key generation strategies
type Generator interface {
	// GenerateKey creates an object key for storage backends
	GenerateKey(objectID uuid.UUID, metadata *KeyMetadata) string
}

// KeyMetadata contains information that influences key generation
type KeyMetadata struct {
	Kind        string // KindResume, KindImage or any other prefix
	FileName    string // client supplied name, used only for its extension
	ContentType string // sniffed type, used when the file name has no usable extension
}

// FlatGenerator produces {kind}/{uuid}{ext}, e.g. resumes/3f2a....pdf
type FlatGenerator struct{}

func NewFlatGenerator() *FlatGenerator {
	return &FlatGenerator{}
}

func (g *FlatGenerator) GenerateKey(objectID uuid.UUID, metadata *KeyMetadata) string {
	return fmt.Sprintf("%s/%s%s", kindOf(metadata), objectID, extensionOf(metadata))
}

// ShardedGenerator provides Git-style sharding under the kind prefix
// Example: images/3f/2a9c...e1.png
type ShardedGenerator struct {
	// ShardLength controls how many characters to use for sharding (default: 2)
	ShardLength int
}

func NewShardedGenerator() *ShardedGenerator {
	return &ShardedGenerator{
		ShardLength: 2,
	}
}

func (g *ShardedGenerator) GenerateKey(objectID uuid.UUID, metadata *KeyMetadata) string {
	id := strings.ReplaceAll(objectID.String(), "-", "")

	shard := g.ShardLength
	if shard <= 0 || shard >= len(id) {
		shard = 2
	}

	return fmt.Sprintf("%s/%s/%s%s", kindOf(metadata), id[:shard], id[shard:], extensionOf(metadata))
}

// New returns the generator for a layout name ("flat" or "sharded").
func New(layout string) (Generator, error) {
	switch strings.ToLower(layout) {
	case "", "flat":
		return NewFlatGenerator(), nil
	case "sharded":
		return NewShardedGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown object key layout %q", layout)
	}
}

func kindOf(metadata *KeyMetadata) string {
	if metadata == nil || metadata.Kind == "" {
		return "assets"
	}
	return sanitizePathComponent(metadata.Kind)
}

// resumes are always PDFs
var typeExtensions = map[string]string{
	"application/pdf": ".pdf",
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/bmp":       ".bmp",
	"image/x-icon":    ".ico",
	"image/svg+xml":   ".svg",
}

func extensionOf(metadata *KeyMetadata) string {
	if metadata == nil {
		return ""
	}
	if metadata.Kind == KindResume {
		return ".pdf"
	}

	// the detected content type wins over whatever the client named the file
	mediaType, _, _ := strings.Cut(metadata.ContentType, ";")
	if ext, ok := typeExtensions[strings.TrimSpace(strings.ToLower(mediaType))]; ok {
		return ext
	}
	if metadata.Kind == KindImage {
		return ""
	}
	return sanitizeExtension(path.Ext(metadata.FileName))
}

// sanitizeExtension keeps a short alphanumeric extension and drops anything else.
func sanitizeExtension(ext string) string {
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return ""
		}
	}
	return strings.ToLower(ext)
}

func sanitizePathComponent(component string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
		"..", "_",
	)
	return strings.ToLower(replacer.Replace(component))
}
