package models

// Progress event names as seen by subscribers.
const (
	EventUploadProgress = "uploadProgress"
	EventUploadError    = "uploadError"
)

// ProgressEvent is published on the progress channel while an upload runs.
type ProgressEvent struct {
	Name string       `json:"-"`
	Data ProgressData `json:"data"`
}

// ProgressData is the event payload. File is only set on the final event.
type ProgressData struct {
	Progress *int   `json:"progress,omitempty"`
	File     *File  `json:"file,omitempty"`
	Error    string `json:"error,omitempty"`
}

// NewProgressEvent builds an uploadProgress event.
func NewProgressEvent(percent int, file *File) ProgressEvent {
	return ProgressEvent{
		Name: EventUploadProgress,
		Data: ProgressData{Progress: &percent, File: file},
	}
}

// NewUploadErrorEvent builds an uploadError event.
func NewUploadErrorEvent(message string) ProgressEvent {
	return ProgressEvent{
		Name: EventUploadError,
		Data: ProgressData{Error: message},
	}
}
