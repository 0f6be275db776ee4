// Package runlog keeps one directory per suite run for logs and reports.
package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Run holds information about the current suite run
type Run struct {
	ID        string    // Short unique identifier (8 chars)
	Timestamp time.Time // When the run started
	Dir       string    // Full path to the run directory
}

// New creates the run directory under baseDir
func New(baseDir string) (*Run, error) {
	now := time.Now()
	shortID := uuid.New().String()[:8]

	// Format: <baseDir>/2025-01-15_143052_a1b2c3d4/
	dirName := fmt.Sprintf("%s_%s", now.Format("2006-01-02_150405"), shortID)
	runDir := filepath.Join(baseDir, dirName)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}

	return &Run{
		ID:        shortID,
		Timestamp: now,
		Dir:       runDir,
	}, nil
}

// Path returns the full path of a file in the run directory
func (r *Run) Path(name string) string {
	return filepath.Join(r.Dir, name)
}

// LogPath returns the full path for a log file
func (r *Run) LogPath(name string) string {
	return r.Path(name + ".log")
}

// CreateLogFile creates a log file and returns the file handle
func (r *Run) CreateLogFile(name string) (*os.File, error) {
	return os.Create(r.LogPath(name))
}

// RunInfo contains information about a stored run
type RunInfo struct {
	Name      string    `json:"name"`
	Dir       string    `json:"dir"`
	Timestamp time.Time `json:"timestamp"`
	Logs      []File    `json:"logs"`
	Reports   []File    `json:"reports"`
}

// File is a regular file in a run directory
type File struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// ListRuns returns all run directories under baseDir, most recent first
func ListRuns(baseDir string) ([]RunInfo, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunInfo{}, nil
		}
		return nil, err
	}

	// Directory names start with the timestamp, so name order is time order.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() > entries[j].Name() })

	runs := []RunInfo{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		runDir := filepath.Join(baseDir, entry.Name())
		logs, reports, _ := listFiles(runDir)

		runs = append(runs, RunInfo{
			Name:      entry.Name(),
			Dir:       runDir,
			Timestamp: info.ModTime(),
			Logs:      logs,
			Reports:   reports,
		})
	}

	return runs, nil
}

func listFiles(runDir string) (logs, reports []File, err error) {
	entries, err := os.ReadDir(runDir)
	if err != nil {
		return nil, nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		f := File{
			Name: entry.Name(),
			Path: filepath.Join(runDir, entry.Name()),
			Size: info.Size(),
		}
		if filepath.Ext(entry.Name()) == ".log" {
			f.Name = strings.TrimSuffix(entry.Name(), ".log")
			logs = append(logs, f)
		} else {
			reports = append(reports, f)
		}
	}

	return logs, reports, nil
}

// GetLogContent reads the content of a log file of a stored run
func GetLogContent(baseDir, runName, logName string) (string, error) {
	path := filepath.Join(baseDir, runName, logName+".log")
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}
