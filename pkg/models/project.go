package models

// Project is one record in the external project directory.
type Project struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	TargetPath     string   `json:"target_path"`
	DefaultBranch  string   `json:"default_branch"`
	LinkedChannels []string `json:"linked_channels"`
}

// Task is the derived record propagated to the project directory after a
// successful commit.
type Task struct {
	ID        string `json:"id"`
	SourceID  string `json:"source_id,omitempty"`
	ProjectID string `json:"project_id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Channel   string `json:"channel,omitempty"`
	CreatedTS int64  `json:"created_ts"`
}

// TaskID is an issued task identifier. Fallback ids lose strict ordering, so
// they are marked and carry a SourceID for downstream dedup.
type TaskID struct {
	Value    string `json:"value"`
	Period   string `json:"period,omitempty"`
	Seq      int64  `json:"seq,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
	SourceID string `json:"source_id,omitempty"`
}
