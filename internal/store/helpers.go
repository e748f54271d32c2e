package store

import (
	"database/sql"
	"fmt"
)

// scanSessionRecord scans a SessionRecord from sql.Rows.
func scanSessionRecord(rows *sql.Rows) (SessionRecord, error) {
	var rec SessionRecord
	var feedback, artifact sql.NullString
	err := rows.Scan(
		&rec.ID, &rec.ParticipantName, &rec.Role, &rec.GradeTarget, &rec.Difficulty,
		&rec.AverageScore, &rec.TurnCount, &feedback, &artifact, &rec.CreatedAt,
	)
	if err != nil {
		return rec, fmt.Errorf("scan session record failed: %w", err)
	}
	rec.FinalFeedback = feedback.String
	rec.ArtifactJSON = artifact.String
	return rec, nil
}

// scanSessionRecordRow scans a SessionRecord from a single sql.Row.
func scanSessionRecordRow(row *sql.Row) (SessionRecord, error) {
	var rec SessionRecord
	var feedback, artifact sql.NullString
	err := row.Scan(
		&rec.ID, &rec.ParticipantName, &rec.Role, &rec.GradeTarget, &rec.Difficulty,
		&rec.AverageScore, &rec.TurnCount, &feedback, &artifact, &rec.CreatedAt,
	)
	if err != nil {
		return rec, err
	}
	rec.FinalFeedback = feedback.String
	rec.ArtifactJSON = artifact.String
	return rec, nil
}
