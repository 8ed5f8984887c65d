package models

import (
	"strconv"
	"time"
)

// ArchiveLocator points at an exported artifact: the catalog entity and the
// object-store location of its bytes.
type ArchiveLocator struct {
	EntryID  string
	FolderID string
	Bucket   string
	Key      string
}

func (l ArchiveLocator) IsZero() bool {
	return l.EntryID == ""
}

// ArchiveFolder is a dated folder under an app's raw-data root.
type ArchiveFolder struct {
	ID        string
	AppID     string
	Name      string
	CreatedOn time.Time
}

// ArchiveEntry is the catalog entity for one exported artifact.
type ArchiveEntry struct {
	ID          string
	FolderID    string
	AppID       string
	Name        string
	ContentType string
	Bucket      string
	Key         string
	Annotations Annotations
	CreatedOn   time.Time
}

func (e *ArchiveEntry) Locator() ArchiveLocator {
	return ArchiveLocator{EntryID: e.ID, FolderID: e.FolderID, Bucket: e.Bucket, Key: e.Key}
}

// AnnotationType tags how an annotation value is stored in the catalog.
type AnnotationType string

const (
	AnnotationString AnnotationType = "STRING"
	AnnotationLong   AnnotationType = "LONG"
)

// AnnotationValue is a single-valued, typed annotation.
type AnnotationValue struct {
	Type   AnnotationType `json:"type"`
	String string         `json:"string,omitempty"`
	Long   int64          `json:"long,omitempty"`
}

func StringValue(s string) AnnotationValue {
	return AnnotationValue{Type: AnnotationString, String: s}
}

func LongValue(n int64) AnnotationValue {
	return AnnotationValue{Type: AnnotationLong, Long: n}
}

// Text renders the value as a string regardless of its type.
func (v AnnotationValue) Text() string {
	if v.Type == AnnotationLong {
		return strconv.FormatInt(v.Long, 10)
	}
	return v.String
}

// Annotations is the annotation map attached to an archive entry.
type Annotations map[string]AnnotationValue

// Flatten renders every value as a string, the shape used for object-store
// user metadata.
func (a Annotations) Flatten() map[string]string {
	out := make(map[string]string, len(a))
	for k, v := range a {
		out[k] = v.Text()
	}
	return out
}
