package config

import (
	"path/filepath"
	"strings"
	"time"
)

// MergeConfig contains batch merge configuration.
type MergeConfig struct {
	// MaxDocuments caps how many documents one merge request may select.
	MaxDocuments int `env:"MERGE_MAX_DOCUMENTS" envDefault:"200"`

	// MaxTotalBytes caps the summed size of the selected source files.
	MaxTotalBytes int64 `env:"MERGE_MAX_TOTAL_BYTES" envDefault:"524288000"`

	// YieldEvery is how many documents the worker processes between scheduler yields.
	YieldEvery int `env:"MERGE_YIELD_EVERY" envDefault:"10"`

	// QueueSize is how many submitted jobs may wait behind the running one.
	QueueSize int `env:"MERGE_QUEUE_SIZE" envDefault:"16"`

	// OutputDir is where consolidated PDFs are written. It must be inside FILES_ROOT.
	OutputDir string `env:"MERGE_OUTPUT_DIR"`

	// JobRetention is how long finished job state stays queryable.
	JobRetention time.Duration `env:"MERGE_JOB_RETENTION" envDefault:"24h"`
}

// Sanitize applies guardrails to merge configuration values.
func (m *MergeConfig) Sanitize() {
	if m.MaxDocuments < 1 {
		m.MaxDocuments = 1
	}
	if m.MaxTotalBytes < 1 {
		m.MaxTotalBytes = 1
	}
	if m.YieldEvery < 1 {
		m.YieldEvery = 1
	}
	if m.QueueSize < 1 {
		m.QueueSize = 1
	}
	if m.JobRetention < time.Minute {
		m.JobRetention = time.Minute
	}
	m.OutputDir = cleanPath(m.OutputDir)
}

// FilesConfig names the single directory tree every served, moved, or merged file must live in.
type FilesConfig struct {
	Root string `env:"FILES_ROOT"`

	// SweepInterval is how often the file mover re-drives items left in uploaded.
	SweepInterval time.Duration `env:"FILE_MOVER_SWEEP_INTERVAL" envDefault:"1m"`
}

// Sanitize applies guardrails to files configuration values.
func (f *FilesConfig) Sanitize() {
	f.Root = cleanPath(f.Root)
	if f.SweepInterval < time.Second {
		f.SweepInterval = time.Second
	}
}

func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	return filepath.Clean(p)
}

// isWithin is a lexical check; symlinks are resolved later by the files root.
func isWithin(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
