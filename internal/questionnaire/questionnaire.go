// Package questionnaire reads screening questionnaires from YAML.
//
//	questions:
//	  - question: What research has the applicant published?
//	    detail: lengthy
//	    tags: [research]
//	    filenames: [cv.pdf]
package questionnaire

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"applicant-rag/internal/domain"
)

var ErrNoQuestions = errors.New("questionnaire has no questions")

type file struct {
	Questions []item `yaml:"questions"`
}

type item struct {
	Question  string   `yaml:"question"`
	Detail    string   `yaml:"detail"`
	Tags      []string `yaml:"tags"`
	Filenames []string `yaml:"filenames"`
}

func LoadFile(path string) ([]domain.Prompt, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questionnaire failed: %w", err)
	}
	return Parse(bytes.NewReader(b))
}

// Parse decodes and validates a questionnaire. A missing detail level
// defaults to moderate.
func Parse(r io.Reader) ([]domain.Prompt, error) {
	var f file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoQuestions
		}
		return nil, fmt.Errorf("decode questionnaire failed: %w", err)
	}
	if len(f.Questions) == 0 {
		return nil, ErrNoQuestions
	}

	prompts := make([]domain.Prompt, 0, len(f.Questions))
	for i, q := range f.Questions {
		question := strings.TrimSpace(q.Question)
		if question == "" {
			return nil, fmt.Errorf("question %d is empty", i+1)
		}
		detail := domain.DetailModerate
		if strings.TrimSpace(q.Detail) != "" {
			d, err := domain.ParseDetailLevel(q.Detail)
			if err != nil {
				return nil, fmt.Errorf("question %d: %w", i+1, err)
			}
			detail = d
		}
		tags, err := domain.ParseTags(q.Tags)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		prompts = append(prompts, domain.Prompt{
			Question:    question,
			DetailLevel: detail,
			Tags:        tags,
			Filenames:   q.Filenames,
		})
	}
	return prompts, nil
}
