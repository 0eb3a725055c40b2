package types

import (
	"path/filepath"
	"strings"
	"time"
)

// Mode selects the conversion the server applies to an uploaded batch.
type Mode string

const (
	ModePDF   Mode = "pdf"   // OCR each PDF into a document
	ModeImage Mode = "image" // merge images into a PDF
)

var allowedExtensions = map[Mode][]string{
	ModePDF:   {".pdf"},
	ModeImage: {".jpg", ".jpeg", ".png", ".bmp", ".tiff"},
}

// ParseMode accepts "pdf" or "image" in any case.
func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModePDF:
		return ModePDF, true
	case ModeImage:
		return ModeImage, true
	}
	return "", false
}

// Extensions returns the file extensions accepted for the mode.
func (m Mode) Extensions() []string {
	return append([]string(nil), allowedExtensions[m]...)
}

// AllowsFile reports whether the file name carries an extension accepted by the mode.
func (m Mode) AllowsFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range allowedExtensions[m] {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Label is the human name of the mode used in messages ("PDF" / "image").
func (m Mode) Label() string {
	if m == ModePDF {
		return "PDF"
	}
	return "image"
}

// Status is the lifecycle state of a session.
type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusUploaded   Status = "UPLOADED"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Progress counts processed files of a batch.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Percent is current/total*100 rounded to one decimal, 0 when total is 0.
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(int(float64(p.Current)*1000/float64(p.Total)+0.5)) / 10
}

// Snapshot is an immutable copy of a session handed to observers.
type Snapshot struct {
	LocalID      string    `json:"localId"`
	SessionID    string    `json:"sessionId,omitempty"`
	Mode         Mode      `json:"mode"`
	Language     string    `json:"lang,omitempty"`
	Status       Status    `json:"status"`
	Progress     Progress  `json:"progress"`
	Percent      float64   `json:"percent"`
	ErrorMessage string    `json:"error,omitempty"`
	DownloadURL  string    `json:"downloadUrl,omitempty"`
	FileCount    int       `json:"fileCount"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
