package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownTag         = errors.New("unknown document tag")
	ErrUnknownDetailLevel = errors.New("unknown detail level")
)

// Tag is the bucket a document was uploaded under.
type Tag int

const (
	TagUnspecified Tag = iota
	TagResearch
	TagReviews
	TagAwards
	TagFeedback
)

var allTags = []Tag{TagResearch, TagReviews, TagAwards, TagFeedback}

// Tags returns every valid tag in display order.
func Tags() []Tag {
	out := make([]Tag, len(allTags))
	copy(out, allTags)
	return out
}

func (t Tag) String() string {
	switch t {
	case TagResearch:
		return "research"
	case TagReviews:
		return "reviews"
	case TagAwards:
		return "awards"
	case TagFeedback:
		return "feedback"
	default:
		return ""
	}
}

func (t Tag) Valid() bool {
	return t.String() != ""
}

// ParseTag matches case-insensitively against the known tags.
func ParseTag(s string) (Tag, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, t := range allTags {
		if t.String() == key {
			return t, nil
		}
	}
	return TagUnspecified, fmt.Errorf("%w: %q", ErrUnknownTag, s)
}

// ParseTags parses every value, failing on the first unknown one.
func ParseTags(values []string) ([]Tag, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]Tag, 0, len(values))
	for _, v := range values {
		t, err := ParseTag(v)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// MarshalText renders the unset tag as "" so a zero value never fails
// encoding; out-of-range values still do.
func (t Tag) MarshalText() ([]byte, error) {
	if t == TagUnspecified {
		return []byte{}, nil
	}
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTag, int(t))
	}
	return []byte(t.String()), nil
}

func (t *Tag) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*t = TagUnspecified
		return nil
	}
	parsed, err := ParseTag(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// DetailLevel controls how long an answer the model is asked for.
type DetailLevel int

const (
	DetailUnspecified DetailLevel = iota
	DetailLight
	DetailModerate
	DetailLengthy
	DetailHeavy
)

var allDetailLevels = []DetailLevel{DetailLight, DetailModerate, DetailLengthy, DetailHeavy}

// String returns the phrase inserted into the answer prompt.
func (d DetailLevel) String() string {
	switch d {
	case DetailLight:
		return "light detail"
	case DetailModerate:
		return "moderate detail"
	case DetailLengthy:
		return "lengthy detail"
	case DetailHeavy:
		return "very heavy detail"
	default:
		return ""
	}
}

func (d DetailLevel) Valid() bool {
	return d.String() != ""
}

// ParseDetailLevel returns the first level whose phrase contains keyword,
// so "heavy", "Very Heavy Detail" and "moderate" are all accepted.
func ParseDetailLevel(keyword string) (DetailLevel, error) {
	key := strings.ToLower(strings.TrimSpace(keyword))
	if key == "" {
		return DetailUnspecified, fmt.Errorf("%w: empty keyword", ErrUnknownDetailLevel)
	}
	for _, d := range allDetailLevels {
		if strings.Contains(d.String(), key) {
			return d, nil
		}
	}
	return DetailUnspecified, fmt.Errorf("%w: %q", ErrUnknownDetailLevel, keyword)
}

func (d DetailLevel) MarshalText() ([]byte, error) {
	if d == DetailUnspecified {
		return []byte{}, nil
	}
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDetailLevel, int(d))
	}
	return []byte(d.String()), nil
}

func (d *DetailLevel) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = DetailUnspecified
		return nil
	}
	parsed, err := ParseDetailLevel(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
