package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// ErrOutsideRoot is returned for paths escaping their base directory
var ErrOutsideRoot = errors.New("path escapes base directory")

// maxSourceSize bounds subtitle files read into memory
const maxSourceSize = 32 << 20

type FileEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
	Lang string `json:"lang,omitempty"`
}

var subtitleExtensions = map[string]bool{
	".srt": true, ".vtt": true,
}

// IsSubtitleFile reports whether name has a parseable subtitle extension
func IsSubtitleFile(name string) bool {
	return subtitleExtensions[strings.ToLower(filepath.Ext(name))]
}

// Resolve joins relativePath onto basePath, refusing traversal outside basePath
func Resolve(basePath, relativePath string) (string, error) {
	absBase, err := filepath.Abs(basePath)
	if err != nil {
		return "", err
	}
	absFull, err := filepath.Abs(filepath.Join(absBase, relativePath))
	if err != nil {
		return "", err
	}
	if absFull != absBase && !strings.HasPrefix(absFull, absBase+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return absFull, nil
}

// ReadSource loads a subtitle file under basePath
func ReadSource(basePath, relativePath string) (string, error) {
	if !IsSubtitleFile(relativePath) {
		return "", fmt.Errorf("not a subtitle file: %s", relativePath)
	}
	full, err := Resolve(basePath, relativePath)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(full)
	if err != nil {
		return "", err
	}
	if info.Size() > maxSourceSize {
		return "", fmt.Errorf("subtitle file too large: %d bytes", info.Size())
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// LangFromFilename extracts the language tag of "video.en.srt" or "video.zh-CN.vtt".
// It returns "" when the name carries no tag.
func LangFromFilename(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	dot := strings.LastIndex(base, ".")
	if dot < 0 {
		return ""
	}
	tag := base[dot+1:]
	primary, region, hasRegion := strings.Cut(tag, "-")
	if len(primary) < 2 || len(primary) > 3 || !isLetters(primary) {
		return ""
	}
	if hasRegion && (len(region) < 2 || len(region) > 4 || !isAlnum(region)) {
		return ""
	}
	return tag
}

func isLetters(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func isAlnum(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}

// OutputDir creates and returns the artifact directory of a job
func OutputDir(outputPath, jobID string) (string, error) {
	dir, err := Resolve(outputPath, jobID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	return dir, nil
}

// WriteArtifact writes one output file into dir
func WriteArtifact(dir, name string, data []byte) error {
	path, err := Resolve(dir, name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
