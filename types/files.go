package types

// FileEntry is one local file chosen for upload.
type FileEntry struct {
	Name     string `json:"fileName"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	FileType string `json:"fileType"`
}

// FileSelection is the ordered batch plus the conversion options.
// It must not be modified after being handed to the orchestrator.
type FileSelection struct {
	Files    []FileEntry
	Mode     Mode
	Language string
}

// TotalSize sums the sizes of all entries.
func (s FileSelection) TotalSize() int64 {
	var n int64
	for _, f := range s.Files {
		n += f.Size
	}
	return n
}
