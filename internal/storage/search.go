package storage

import (
	"os"
	"path/filepath"
	"strings"
)

// ListSources walks basePath for subtitle files whose name contains query
func ListSources(basePath, query string, maxResults int) ([]*FileEntry, error) {
	query = strings.ToLower(query)
	results := []*FileEntry{}

	err := filepath.Walk(basePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip errors
		}
		if len(results) >= maxResults {
			return filepath.SkipAll
		}
		if strings.HasPrefix(info.Name(), ".") && path != basePath {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() || !IsSubtitleFile(info.Name()) {
			return nil
		}
		if query != "" && !strings.Contains(strings.ToLower(info.Name()), query) {
			return nil
		}
		rel, _ := filepath.Rel(basePath, path)
		results = append(results, &FileEntry{
			Name: info.Name(),
			Path: filepath.ToSlash(rel),
			Size: info.Size(),
			Lang: LangFromFilename(info.Name()),
		})
		return nil
	})
	return results, err
}
