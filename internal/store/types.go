package store

import "time"

// JobStatus is one of the states in the C7 state machine (spec.md §4.7).
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobPaused    JobStatus = "paused"
	JobCancelled JobStatus = "cancelled"
	JobFailed    JobStatus = "failed"
	JobHalted    JobStatus = "halted"
	JobCompleted JobStatus = "completed"
)

// validTransitions enumerates the state machine's legal edges; any other
// requested change is an errs.ErrInvalidTransition.
var validTransitions = map[JobStatus][]JobStatus{
	JobPending:   {JobRunning},
	JobRunning:   {JobPaused, JobCancelled, JobFailed, JobHalted, JobCompleted},
	JobPaused:    {JobRunning, JobCancelled},
}

// CanTransition reports whether from -> to is a legal state-machine edge.
func CanTransition(from, to JobStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// JobKind distinguishes an ingestion job from an export job; both share the
// same status machine and progress fields, per spec.md's Job entity.
type JobKind string

const (
	JobKindImport JobKind = "import"
	JobKindExport JobKind = "export"
)

// Job mirrors the Job entity from the data model.
type Job struct {
	ID              int64
	Kind            JobKind
	Status          JobStatus
	StorageDir      string
	ProgressCurrent int
	ProgressTotal   int
	ErrorCount      int
	CurrentFilename string
	Message         string
	CreatedAt       time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
}

// Confidence mirrors timestamp.Tier's vocabulary without importing that
// package here, keeping store a leaf dependency.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// Candidate is the persisted shape of a timestamp candidate.
type Candidate struct {
	UTC    time.Time `json:"utc"`
	Source string    `json:"source"`
}

// File mirrors the File entity from the data model.
type File struct {
	ID                     int64
	JobID                  int64
	OriginalPath           string
	OriginalFilename       string
	FileSize               int64
	ContentHash            string
	PerceptualHash         string
	ChosenTimestamp        *time.Time
	TimestampSource        string
	Confidence             Confidence
	Candidates             []Candidate
	MIMEType               string
	Width, Height          int
	ThumbnailPath          string
	ProcessingError        string
	FinalTimestamp         *time.Time
	ReviewedAt             *time.Time
	Discarded              bool
	ExactGroupID           string
	ExactGroupConfidence   Confidence
	SimilarGroupID         string
	SimilarGroupConfidence Confidence
	SimilarGroupKind       string
}

// ListMode selects the file subset ListJobFiles returns, per spec.md §4.8.
type ListMode string

const (
	ModeAll        ListMode = "all"
	ModeDuplicates ListMode = "duplicates"
	ModeSimilar    ListMode = "similar"
	ModeUnreviewed ListMode = "unreviewed"
	ModeReviewed   ListMode = "reviewed"
	ModeDiscarded  ListMode = "discarded"
	ModeFailed     ListMode = "failed"
)

// SortField and SortOrder drive ListJobFiles pagination, per spec.md §6.
type SortField string

const (
	SortDetectedTimestamp SortField = "detected_timestamp"
	SortOriginalFilename  SortField = "original_filename"
	SortFileSize          SortField = "file_size"
	SortOriginalTimestamp SortField = "original_timestamp"
)

type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// ListFilesQuery bundles ListJobFiles' filter/pagination parameters.
type ListFilesQuery struct {
	Mode       ListMode
	Confidence Confidence // empty means "any"
	Page       int
	PageSize   int
	Sort       SortField
	Order      SortOrder
}

// Tag mirrors the Tag entity.
type Tag struct {
	ID       int64
	Name     string
	UseCount int
}

// UserDecision mirrors the UserDecision entity — an audit trail row.
// Only MarkReviewed appends one (action "reviewed"); discards, group
// resolutions and tag changes record no UserDecision row.
type UserDecision struct {
	ID             int64
	FileID         int64
	Action         string
	FinalTimestamp *time.Time
	CreatedAt      time.Time
}

// Summary is the per-mode count set the UI's filter chips display.
type Summary struct {
	All        int
	Duplicates int
	Similar    int
	Unreviewed int
	Reviewed   int
	Discarded  int
	Failed     int
}

// GroupingUpdate is what the job engine hands to ApplyGroupings after
// running C6 — the store-facing projection of duplicate.Grouping.
type GroupingUpdate struct {
	FileID                 int64
	ExactGroupID           string
	ExactGroupConfidence   string
	SimilarGroupID         string
	SimilarGroupConfidence string
	SimilarGroupKind       string
}

// ResultRecord is what the job engine hands to UpdateFilesBatch — the
// store-facing projection of fileproc.Result plus the file id it applies to.
type ResultRecord struct {
	FileID          int64
	ContentHash     string
	PerceptualHash  string
	ChosenTimestamp *time.Time
	TimestampSource string
	Confidence      Confidence
	Candidates      []Candidate
	MIMEType        string
	Width, Height   int
	ThumbnailPath   string
	ProcessingError string
}
