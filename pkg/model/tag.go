package model

import "time"

// TagDescriptor is an immutable named snapshot of a dataset's state,
// bound to a point in project history.
//
// A tag is analogous to tags in git. Once created it is never rewritten:
// removal deletes the record only.
type TagDescriptor struct {
	Name        string        `json:"name" yaml:"name"`
	DatasetName string        `json:"dataset" yaml:"dataset"`
	DatasetID   string        `json:"datasetId" yaml:"datasetId"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	CreatedAt   time.Time     `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	CommitID    string        `json:"commit" yaml:"commit"`
	Files       []DatasetFile `json:"files" yaml:"files"`
	_           struct{}
}

// TagDescriptors is a collection of tags, sortable by creation time
// ascending, with name as a tie breaker
type TagDescriptors []TagDescriptor

func (t TagDescriptors) Len() int      { return len(t) }
func (t TagDescriptors) Swap(i, j int) { t[i], t[j] = t[j], t[i] }
func (t TagDescriptors) Less(i, j int) bool {
	if t[i].CreatedAt.Equal(t[j].CreatedAt) {
		return t[i].Name < t[j].Name
	}
	return t[i].CreatedAt.Before(t[j].CreatedAt)
}
