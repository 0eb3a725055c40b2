package tool

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/moyoez/docconvert-go/types"
)

// SplitFileList splits the comma separated -files flag, dropping blanks.
func SplitFileList(raw string) []string {
	var paths []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// CollectFiles stats each path and returns the entries in the given order.
func CollectFiles(paths []string) ([]types.FileEntry, error) {
	entries := make([]types.FileEntry, 0, len(paths))
	for _, p := range paths {
		entry, err := GetFileInfoFromPath(p)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// GetFileInfoFromPath reads name, size and MIME type of a local file.
func GetFileInfoFromPath(filePath string) (types.FileEntry, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return types.FileEntry{}, fmt.Errorf("failed to stat file: %w", err)
	}
	if fileInfo.IsDir() {
		return types.FileEntry{}, fmt.Errorf("path is a directory, not a file: %s", filePath)
	}

	fileType := mime.TypeByExtension(filepath.Ext(filePath))
	if fileType == "" {
		fileType = "application/octet-stream"
	}

	return types.FileEntry{
		Name:     filepath.Base(filePath),
		Path:     filePath,
		Size:     fileInfo.Size(),
		FileType: fileType,
	}, nil
}
