package model

import "time"

// Document is the collaborator record a queue item refers to.
type Document struct {
	FileID     int64      `json:"file_id"`
	PatientID  int64      `json:"patient_id"`
	FileName   string     `json:"file_name"`
	Category   string     `json:"category"`
	FileType   string     `json:"file_type"`
	Path       string     `json:"pass"`
	BaseDir    string     `json:"base_dir"`
	IsUploaded bool       `json:"is_uploaded"`
	UploadedAt *time.Time `json:"uploaded_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// FileInfo describes a document's file on disk.
type FileInfo struct {
	FileID     int64      `json:"file_id"`
	FileName   string     `json:"file_name"`
	Path       string     `json:"path"`
	Exists     bool       `json:"exists"`
	Size       int64      `json:"size"`
	ModifiedAt *time.Time `json:"modified_at,omitempty"`
}
