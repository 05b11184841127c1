package model

import "time"

type JobKind string

const (
	JobVectorizeFiles    JobKind = "vectorize_files"
	JobDeleteFileVectors JobKind = "delete_file_vectors"
)

// JobFile is a file already stored where the worker can read it.
type JobFile struct {
	Path     string `json:"path"`
	Filename string `json:"filename,omitempty"`
}

// Job is the message body exchanged over the vectorize queue.
type Job struct {
	ID          string    `json:"id"`
	Kind        JobKind   `json:"kind"`
	AttorneyID  string    `json:"attorney_id"`
	ApplicantID string    `json:"applicant_id"`
	Tag         string    `json:"tag"`
	Files       []JobFile `json:"files,omitempty"`
	// Filename selects the vectors removed by a delete job.
	Filename  string    `json:"filename,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
