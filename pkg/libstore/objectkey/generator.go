package objectkey

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Generator defines the interface for payload key generation strategies
type Generator interface {
	// GenerateKey creates an object key for storage backends
	GenerateKey(metadata KeyMetadata) string
}

// KeyMetadata identifies the block a payload belongs to
type KeyMetadata struct {
	Org       string
	Library   string
	BlockType string
	BlockID   string
	// Revision distinguishes successive uploads for the same block.
	Revision string
	FileName string
}

// HierarchicalGenerator mirrors the library layout:
// libraries/{org}/{library}/{type}/{id}[/{revision}][/{filename}]
//
// All payloads of a library share one prefix, so a library can be inspected
// or cleaned up with a single prefix listing.
type HierarchicalGenerator struct{}

func NewHierarchicalGenerator() *HierarchicalGenerator {
	return &HierarchicalGenerator{}
}

func (g *HierarchicalGenerator) GenerateKey(metadata KeyMetadata) string {
	key := fmt.Sprintf("libraries/%s/%s/%s/%s",
		sanitizeSegment(metadata.Org),
		sanitizeSegment(metadata.Library),
		sanitizeSegment(metadata.BlockType),
		sanitizeSegment(metadata.BlockID))
	if metadata.Revision != "" {
		key += "/" + sanitizeSegment(metadata.Revision)
	}
	if metadata.FileName != "" {
		key += "/" + sanitizeFilename(metadata.FileName)
	}
	return key
}

// ShardedGenerator provides Git-style sharded storage keyed by a hash of the
// block identity: blocks/ab/cd1234...
type ShardedGenerator struct {
	// ShardLength controls how many characters to use for sharding (default: 2)
	ShardLength int
}

func NewShardedGenerator() *ShardedGenerator {
	return &ShardedGenerator{
		ShardLength: 2,
	}
}

func (g *ShardedGenerator) GenerateKey(metadata KeyMetadata) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{metadata.Org, metadata.Library, metadata.BlockType, metadata.BlockID, metadata.Revision}, "+")))
	digest := fmt.Sprintf("%x", sum)

	shard := g.ShardLength
	if shard <= 0 || shard >= len(digest) {
		shard = 2
	}

	key := fmt.Sprintf("blocks/%s/%s", digest[:shard], digest[shard:])
	if metadata.FileName != "" {
		key += "_" + sanitizeFilename(metadata.FileName)
	}
	return key
}

// NewDefaultGenerator returns the generator used when none is configured
func NewDefaultGenerator() Generator {
	return NewHierarchicalGenerator()
}

// sanitizeSegment keeps a path segment free of separators
func sanitizeSegment(s string) string {
	if s == "" {
		return "_"
	}
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_")
	return replacer.Replace(s)
}

// sanitizeFilename removes or replaces characters that might cause issues in object keys
func sanitizeFilename(filename string) string {
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
	)

	sanitized := replacer.Replace(filename)
	if len(sanitized) > 100 {
		ext := ""
		if lastDot := strings.LastIndex(sanitized, "."); lastDot > 0 && len(sanitized)-lastDot <= 10 {
			ext = sanitized[lastDot:]
			sanitized = sanitized[:lastDot]
		}
		sanitized = sanitized[:100-len(ext)] + ext
	}
	return sanitized
}
