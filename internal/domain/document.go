package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Document is one page or record produced by a loader.
type Document struct {
	Text     string
	Metadata DocumentMetadata
}

type DocumentMetadata struct {
	SourceFile string
	// Page is 1-based; 0 means the loader had no page notion.
	Page int
}

// Chunk is a token-bounded slice of one or more documents.
type Chunk struct {
	ID       string        `json:"id,omitempty"`
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

type ChunkMetadata struct {
	SourceFile string `json:"source_file"`
	// Pages lists every page the chunk was merged from; empty means unknown.
	Pages    []int  `json:"pages,omitempty"`
	Tag      Tag    `json:"tag,omitempty"`
	Filename string `json:"filename"`
}

// Page returns the first contributing page, or 0 when unknown.
func (m ChunkMetadata) Page() int {
	if len(m.Pages) == 0 {
		return 0
	}
	return m.Pages[0]
}

// QandA is the answer to a single prompt with its source attribution.
type QandA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Source   string `json:"source"`
}

// Prompt is one retrieval request.
type Prompt struct {
	Question    string
	DetailLevel DetailLevel
	Tags        []Tag
	Filenames   []string
}

var ownerID = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateOwnerIDs rejects ids that are empty or carry characters outside
// [A-Za-z0-9_-], so distinct ids never share a collection name.
func ValidateOwnerIDs(attorneyID, applicantID string) error {
	for _, id := range []struct{ name, value string }{
		{"attorney", attorneyID},
		{"applicant", applicantID},
	} {
		v := strings.TrimSpace(id.value)
		if v == "" {
			return fmt.Errorf("%w: %s id is required", ErrInvalidOwnerID, id.name)
		}
		if !ownerID.MatchString(v) {
			return fmt.Errorf("%w: %s id %q may only contain letters, digits, '_' and '-'", ErrInvalidOwnerID, id.name, v)
		}
	}
	return nil
}

// CollectionName returns the vector collection owned by an attorney/applicant
// pair. The ids must have passed ValidateOwnerIDs.
func CollectionName(attorneyID, applicantID string) string {
	return fmt.Sprintf("%s_%s_collection", strings.TrimSpace(attorneyID), strings.TrimSpace(applicantID))
}
