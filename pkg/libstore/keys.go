package libstore

import (
	"fmt"
	"regexp"
	"strings"
)

// KeyKind discriminates the learning context a key refers to.
type KeyKind int

const (
	KindCourse KeyKind = iota + 1
	KindLibrary
)

func (k KeyKind) String() string {
	switch k {
	case KindCourse:
		return "course"
	case KindLibrary:
		return "library"
	default:
		return "unknown"
	}
}

// Key prefixes
const (
	CourseKeyPrefix    = "course-v1"
	LibraryKeyPrefix   = "library-v1"
	LibraryBlockPrefix = "lib-block-v1"
)

var keyPartPattern = regexp.MustCompile(`^[A-Za-z0-9_.~-]+$`)

// ContextKey is a parsed learning context key. The zero value is invalid.
type ContextKey struct {
	kind   KeyKind
	org    string
	course string // library slug for library keys
	run    string
}

// ParseContextKey parses a course ("course-v1:ORG+COURSE+RUN") or library
// ("library-v1:ORG+LIBRARY") key.
func ParseContextKey(s string) (ContextKey, error) {
	prefix, body, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return ContextKey{}, &KeyError{Key: s, Err: ErrInvalidKey}
	}

	parts := strings.Split(body, "+")
	switch prefix {
	case CourseKeyPrefix:
		if len(parts) != 3 || !validParts(parts...) {
			return ContextKey{}, &KeyError{Key: s, Err: ErrInvalidKey}
		}
		return ContextKey{kind: KindCourse, org: parts[0], course: parts[1], run: parts[2]}, nil
	case LibraryKeyPrefix:
		if len(parts) != 2 || !validParts(parts...) {
			return ContextKey{}, &KeyError{Key: s, Err: ErrInvalidKey}
		}
		return ContextKey{kind: KindLibrary, org: parts[0], course: parts[1]}, nil
	default:
		return ContextKey{}, &KeyError{Key: s, Err: ErrInvalidKey}
	}
}

// Kind reports which learning context the key addresses.
func (k ContextKey) Kind() KeyKind { return k.kind }

// LibraryKey narrows the key to a library key. Course keys yield ErrNotLibraryKey.
func (k ContextKey) LibraryKey() (LibraryKey, error) {
	if k.kind != KindLibrary {
		return LibraryKey{}, &KeyError{Key: k.String(), Err: ErrNotLibraryKey}
	}
	return LibraryKey{Org: k.org, Library: k.course}, nil
}

func (k ContextKey) String() string {
	switch k.kind {
	case KindCourse:
		return fmt.Sprintf("%s:%s+%s+%s", CourseKeyPrefix, k.org, k.course, k.run)
	case KindLibrary:
		return fmt.Sprintf("%s:%s+%s", LibraryKeyPrefix, k.org, k.course)
	default:
		return ""
	}
}

// LibraryKey identifies a library.
type LibraryKey struct {
	Org     string
	Library string
}

// ParseLibraryKey parses s and rejects keys that are not library keys.
func ParseLibraryKey(s string) (LibraryKey, error) {
	ck, err := ParseContextKey(s)
	if err != nil {
		return LibraryKey{}, err
	}
	lk, err := ck.LibraryKey()
	if err != nil {
		return LibraryKey{}, &KeyError{Key: s, Err: ErrNotLibraryKey}
	}
	return lk, nil
}

func (k LibraryKey) String() string {
	return fmt.Sprintf("%s:%s+%s", LibraryKeyPrefix, k.Org, k.Library)
}

// IsZero reports whether the key is unset.
func (k LibraryKey) IsZero() bool {
	return k.Org == "" && k.Library == ""
}

// MakeUsageKey returns the key of a block of blockType inside this library.
func (k LibraryKey) MakeUsageKey(blockType, blockID string) UsageKey {
	return UsageKey{Library: k, BlockType: blockType, BlockID: blockID}
}

// UsageKey identifies a block inside a library.
type UsageKey struct {
	Library   LibraryKey
	BlockType string
	BlockID   string
}

// ParseUsageKey parses "lib-block-v1:ORG+LIBRARY+type@TYPE+block@ID".
func ParseUsageKey(s string) (UsageKey, error) {
	prefix, body, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || prefix != LibraryBlockPrefix {
		return UsageKey{}, &KeyError{Key: s, Err: ErrInvalidKey}
	}

	parts := strings.Split(body, "+")
	if len(parts) != 4 {
		return UsageKey{}, &KeyError{Key: s, Err: ErrInvalidKey}
	}
	blockType, ok := strings.CutPrefix(parts[2], "type@")
	if !ok {
		return UsageKey{}, &KeyError{Key: s, Err: ErrInvalidKey}
	}
	blockID, ok := strings.CutPrefix(parts[3], "block@")
	if !ok {
		return UsageKey{}, &KeyError{Key: s, Err: ErrInvalidKey}
	}
	if !validParts(parts[0], parts[1], blockType, blockID) {
		return UsageKey{}, &KeyError{Key: s, Err: ErrInvalidKey}
	}

	return UsageKey{
		Library:   LibraryKey{Org: parts[0], Library: parts[1]},
		BlockType: blockType,
		BlockID:   blockID,
	}, nil
}

func (k UsageKey) String() string {
	return fmt.Sprintf("%s:%s+%s+type@%s+block@%s", LibraryBlockPrefix, k.Library.Org, k.Library.Library, k.BlockType, k.BlockID)
}

// Validate checks every component of the usage key.
func (k UsageKey) Validate() error {
	if !validParts(k.Library.Org, k.Library.Library, k.BlockType, k.BlockID) {
		return &KeyError{Key: k.String(), Err: ErrInvalidKey}
	}
	return nil
}

func validParts(parts ...string) bool {
	for _, p := range parts {
		if !keyPartPattern.MatchString(p) {
			return false
		}
	}
	return true
}
