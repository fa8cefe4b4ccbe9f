package testutil

import (
	"context"
	"database/sql"
	"time"
)

// SeedDocumentParams describes a collaborator document row for store tests.
type SeedDocumentParams struct {
	PatientID   int64
	PatientName string
	FileName    string
	Category    string
	Path        string
}

// SeedDocument upserts the patient and inserts a document, returning its file id.
func SeedDocument(t TestingTB, db *sql.DB, p SeedDocumentParams) int64 {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if p.PatientID == 0 {
		p.PatientID = 1
	}
	if p.PatientName == "" {
		p.PatientName = "Test Patient"
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO patients (patient_id, patient_name) VALUES ($1, $2)
		ON CONFLICT (patient_id) DO UPDATE SET patient_name = EXCLUDED.patient_name
	`, p.PatientID, p.PatientName); err != nil {
		t.Fatalf("seed patient: %v", err)
	}

	var fileID int64
	if err := db.QueryRowContext(ctx, `
		INSERT INTO documents (patient_id, file_name, category, pass)
		VALUES ($1, $2, $3, $4)
		RETURNING file_id
	`, p.PatientID, p.FileName, p.Category, p.Path).Scan(&fileID); err != nil {
		t.Fatalf("seed document: %v", err)
	}
	return fileID
}
