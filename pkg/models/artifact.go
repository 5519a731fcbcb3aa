package models

// ThreadRef identifies one conversation thread on the messaging platform.
type ThreadRef struct {
	Channel  string `json:"channel"`
	ThreadTS string `json:"thread_ts"`
}

// ArtifactKind classifies uploaded content.
type ArtifactKind string

const (
	KindTranscript ArtifactKind = "transcript"
	KindDocument   ArtifactKind = "document"
)

// Artifact is the cached, in-flight representation of one uploaded document.
// The cache entry is an optimization only: any worker must be able to rebuild
// an equivalent value by re-downloading Content from the platform and
// recomputing Summary.
type Artifact struct {
	FileID     string       `json:"file_id"`
	Channel    string       `json:"channel"`
	User       string       `json:"user"`
	Name       string       `json:"name"`
	Content    string       `json:"content"`
	Summary    string       `json:"summary,omitempty"`
	Kind       ArtifactKind `json:"kind,omitempty"`
	Thread     ThreadRef    `json:"thread"`
	UploadedTS int64        `json:"uploaded_ts"`
}

// HasSummary reports whether the minutes summary has been computed. Summary is
// written once; readers see either nothing or the whole thing.
func (a *Artifact) HasSummary() bool { return a.Summary != "" }

// DedupRecord is the durable marker for one observed event key. Create-once,
// read-only thereafter, expired by the retention sweep.
type DedupRecord struct {
	EventKey    string            `json:"event_key"`
	ProcessedAt int64             `json:"processed_at"`
	ExpiresAt   int64             `json:"expires_at"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}
