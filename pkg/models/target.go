package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// TargetKind identifies which case of a Target is active.
type TargetKind string

const (
	TargetPost     TargetKind = "post"
	TargetAuthor   TargetKind = "author"
	TargetAuthors  TargetKind = "authors"
	TargetKeywords TargetKind = "keywords"
)

var (
	ErrNoTarget        = errors.New("exactly one target kind must be set, got none")
	ErrMultipleTargets = errors.New("exactly one target kind must be set, got several")
	ErrEmptyTarget     = errors.New("target has no usable values")
)

// Target selects the content a job replies to. It is a tagged variant:
// exactly one of post id, single author, author set or keyword set is active.
// The zero value is invalid; build one with the constructors below.
type Target struct {
	kind   TargetKind
	values []string
}

// PostTarget targets one specific post. Existence is not checked here.
func PostTarget(postID string) (Target, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return Target{}, fmt.Errorf("post target: %w", ErrEmptyTarget)
	}
	return Target{kind: TargetPost, values: []string{postID}}, nil
}

// AuthorTarget targets the recent posts of a single author handle.
func AuthorTarget(handle string) (Target, error) {
	handle = normalizeHandle(handle)
	if handle == "" {
		return Target{}, fmt.Errorf("author target: %w", ErrEmptyTarget)
	}
	return Target{kind: TargetAuthor, values: []string{handle}}, nil
}

// AuthorsTarget targets the recent posts of every handle in the set.
// Blank and repeated handles are dropped; order is preserved.
func AuthorsTarget(handles []string) (Target, error) {
	cleaned := cleanList(handles, normalizeHandle)
	if len(cleaned) == 0 {
		return Target{}, fmt.Errorf("authors target: %w", ErrEmptyTarget)
	}
	return Target{kind: TargetAuthors, values: cleaned}, nil
}

// KeywordsTarget targets posts matching any of the keywords.
func KeywordsTarget(keywords []string) (Target, error) {
	cleaned := cleanList(keywords, strings.TrimSpace)
	if len(cleaned) == 0 {
		return Target{}, fmt.Errorf("keywords target: %w", ErrEmptyTarget)
	}
	return Target{kind: TargetKeywords, values: cleaned}, nil
}

// TargetFromFields builds a Target from the loosely typed shape used by API
// payloads, rejecting zero or multiple populated kinds instead of picking one
// by priority.
func TargetFromFields(postID, author string, authors, keywords []string) (Target, error) {
	set := 0
	if strings.TrimSpace(postID) != "" {
		set++
	}
	if strings.TrimSpace(author) != "" {
		set++
	}
	if len(authors) > 0 {
		set++
	}
	if len(keywords) > 0 {
		set++
	}
	switch {
	case set == 0:
		return Target{}, ErrNoTarget
	case set > 1:
		return Target{}, ErrMultipleTargets
	}

	switch {
	case strings.TrimSpace(postID) != "":
		return PostTarget(postID)
	case strings.TrimSpace(author) != "":
		return AuthorTarget(author)
	case len(authors) > 0:
		return AuthorsTarget(authors)
	default:
		return KeywordsTarget(keywords)
	}
}

// DecodeTarget rebuilds a Target from its persisted (kind, values) pair.
func DecodeTarget(kind string, values []string) (Target, error) {
	switch TargetKind(kind) {
	case TargetPost:
		if len(values) != 1 {
			return Target{}, fmt.Errorf("post target needs 1 value, got %d", len(values))
		}
		return PostTarget(values[0])
	case TargetAuthor:
		if len(values) != 1 {
			return Target{}, fmt.Errorf("author target needs 1 value, got %d", len(values))
		}
		return AuthorTarget(values[0])
	case TargetAuthors:
		return AuthorsTarget(values)
	case TargetKeywords:
		return KeywordsTarget(values)
	default:
		return Target{}, fmt.Errorf("unknown target kind %q", kind)
	}
}

// Kind returns the active case.
func (t Target) Kind() TargetKind { return t.kind }

// Valid reports whether t was built by one of the constructors.
func (t Target) Valid() bool { return t.kind != "" && len(t.values) > 0 }

// PostID returns the targeted post id; ok is false for other kinds.
func (t Target) PostID() (string, bool) {
	if t.kind != TargetPost {
		return "", false
	}
	return t.values[0], true
}

// Handles returns the author handles for author and authors targets.
func (t Target) Handles() []string {
	if t.kind != TargetAuthor && t.kind != TargetAuthors {
		return nil
	}
	return append([]string(nil), t.values...)
}

// Keywords returns the keyword set for keyword targets.
func (t Target) Keywords() []string {
	if t.kind != TargetKeywords {
		return nil
	}
	return append([]string(nil), t.values...)
}

// Values returns a copy of the raw values, for persistence.
func (t Target) Values() []string {
	return append([]string(nil), t.values...)
}

func (t Target) String() string {
	return fmt.Sprintf("%s:%s", t.kind, strings.Join(t.values, ","))
}

type targetJSON struct {
	Kind   TargetKind `json:"kind"`
	Values []string   `json:"values"`
}

func (t Target) MarshalJSON() ([]byte, error) {
	return json.Marshal(targetJSON{Kind: t.kind, Values: t.values})
}

func (t *Target) UnmarshalJSON(b []byte) error {
	var raw targetJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	decoded, err := DecodeTarget(string(raw.Kind), raw.Values)
	if err != nil {
		return err
	}
	*t = decoded
	return nil
}

func normalizeHandle(h string) string {
	return strings.TrimPrefix(strings.TrimSpace(h), "@")
}

func cleanList(in []string, norm func(string) string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = norm(v)
		if v == "" || seen[strings.ToLower(v)] {
			continue
		}
		seen[strings.ToLower(v)] = true
		out = append(out, v)
	}
	return out
}
