package pipeline

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/docnorm/internal/docmodel"
	"github.com/dgallion1/docnorm/internal/validate"
)

// JobStatus represents the state of a conversion job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusConverting JobStatus = "converting"
	StatusValidating JobStatus = "validating"
	StatusRendering  JobStatus = "rendering"
	StatusDelivering JobStatus = "delivering"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Job tracks the state of a single document conversion.
type Job struct {
	mu sync.Mutex

	ID    string `json:"job_id"`
	DocID string `json:"doc_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Format   string    `json:"format"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData  []byte
	tree      json.RawMessage
	markdown  string
	metadata  docmodel.Metadata
	issues    []validate.Issue
	errors    []string
	failClass string
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// SetFormat records the detected source format.
func (j *Job) SetFormat(format string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Format = format
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// SetFailureClass records the conversion error class so the API can
// map the failure onto a status code without re-parsing messages.
func (j *Job) SetFailureClass(class string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.failClass = class
	j.UpdatedAt = time.Now()
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// SetResult stores the conversion output and releases the input bytes.
func (j *Job) SetResult(tree json.RawMessage, markdown string, meta docmodel.Metadata, issues []validate.Issue) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.tree = tree
	j.markdown = markdown
	j.metadata = meta
	j.issues = issues
	j.fileData = nil
	j.UpdatedAt = time.Now()
}

// JobResult is the output of a completed conversion.
type JobResult struct {
	DocID    string            `json:"doc_id"`
	Filename string            `json:"filename"`
	Format   string            `json:"format"`
	Metadata docmodel.Metadata `json:"metadata"`
	Tree     json.RawMessage   `json:"tree,omitempty"`
	Markdown string            `json:"markdown,omitempty"`
	Issues   []validate.Issue  `json:"issues"`
}

// Result returns the conversion output, or nil if the job has not completed.
func (j *Job) Result() *JobResult {
	j.mu.Lock()
	completed := j.Status == StatusCompleted
	j.mu.Unlock()
	if !completed {
		return nil
	}
	return j.output()
}

// output returns the conversion output regardless of job status.
func (j *Job) output() *JobResult {
	j.mu.Lock()
	defer j.mu.Unlock()
	issues := j.issues
	if issues == nil {
		issues = []validate.Issue{}
	}
	return &JobResult{
		DocID:    j.DocID,
		Filename: j.Filename,
		Format:   j.Format,
		Metadata: j.metadata,
		Tree:     j.tree,
		Markdown: j.markdown,
		Issues:   issues,
	}
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	DocID     string    `json:"doc_id"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Filename  string    `json:"filename"`
	Format    string    `json:"format,omitempty"`
	IssuesN   int       `json:"issue_count"`
	Errors    []string  `json:"errors"`
	FailClass string    `json:"failure_class,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.errors
	if errs == nil {
		errs = []string{}
	}
	return JobSnapshot{
		ID:        j.ID,
		DocID:     j.DocID,
		Status:    j.Status,
		Phase:     j.Phase,
		Filename:  j.Filename,
		Format:    j.Format,
		IssuesN:   len(j.issues),
		Errors:    errs,
		FailClass: j.failClass,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
