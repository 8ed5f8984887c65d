// Package models defines the exporter's persisted and exchanged data types.
package models

import (
	"sort"
	"time"
)

// UploadRecord is one upload attempt and its export status. It is created by
// the upload-intake API when the upload session completes and is mutated
// only by the export orchestrator.
type UploadRecord struct {
	UploadID    string
	AppID       string
	HealthCode  string
	Filename    string
	ContentType string
	Encrypted   bool
	// StagingKey is the object key of the raw (possibly encrypted) bytes in
	// the staging bucket.
	StagingKey string
	// ClientInfo is the opaque client descriptor sent with the upload.
	ClientInfo string
	// UserMetadata is the caller-supplied metadata, unsanitized, in the
	// order it was submitted.
	UserMetadata Metadata

	SharingScopeAtUpload SharingScope
	UploadedOn           time.Time

	Exported   bool
	ExportedOn *time.Time
	Locator    ArchiveLocator
}

// ExportOutcome is the terminal state of one export attempt.
type ExportOutcome string

const (
	// OutcomeExported means an archive entry was created in this attempt.
	OutcomeExported ExportOutcome = "exported"
	// OutcomeReused means an existing archive entry was found and re-marked.
	OutcomeReused ExportOutcome = "reused"
	// OutcomeSkippedByPolicy means the participant does not currently share.
	OutcomeSkippedByPolicy ExportOutcome = "skipped_by_policy"
)

// ExportResult is what Export returns on success.
type ExportResult struct {
	UploadID   string
	Outcome    ExportOutcome
	Locator    ArchiveLocator
	ExportedOn time.Time
}

// MetadataItem is one caller-supplied metadata pair.
type MetadataItem struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Metadata keeps caller-supplied metadata in submission order.
type Metadata []MetadataItem

// Get returns the last value submitted for key.
func (m Metadata) Get(key string) (string, bool) {
	for i := len(m) - 1; i >= 0; i-- {
		if m[i].Key == key {
			return m[i].Value, true
		}
	}
	return "", false
}

// MetadataFromMap converts an unordered map, ordering the items by key.
func MetadataFromMap(in map[string]string) Metadata {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(Metadata, 0, len(keys))
	for _, k := range keys {
		out = append(out, MetadataItem{Key: k, Value: in[k]})
	}
	return out
}
