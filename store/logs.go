package store

import (
	"context"

	"paper-graph/models"
)

// LogExtraction schreibt genau einen Audit-Eintrag für einen Stufen-Versuch.
// Die Tabelle ist append-only: Einträge werden nie aktualisiert oder
// dedupliziert, jede Wiederholung erzeugt eine neue Zeile.
func (s *Store) LogExtraction(ctx context.Context, paperID uint, stage, status, errorMessage string, seconds *float64) error {
	if stage == "" {
		return &ValidationError{Field: "stage", Reason: "must not be empty"}
	}
	switch status {
	case models.StatusSuccess, models.StatusFailed, models.StatusInProgress:
	default:
		return &ValidationError{Field: "status", Reason: "unknown status " + status}
	}

	entry := models.ExtractionLog{
		PaperID:               paperID,
		Stage:                 stage,
		Status:                status,
		ErrorMessage:          errorMessage,
		ProcessingTimeSeconds: seconds,
	}
	return s.DB.WithContext(ctx).Create(&entry).Error
}

// GetExtractionLogs liefert die Audit-Historie eines Papers, neueste zuerst.
func (s *Store) GetExtractionLogs(ctx context.Context, paperID uint) ([]models.ExtractionLog, error) {
	var logs []models.ExtractionLog
	err := s.DB.WithContext(ctx).
		Where("paper_id = ?", paperID).
		Order("created_at DESC, id DESC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// CountExtractionLogs zählt alle Audit-Einträge, optional je Status.
func (s *Store) CountExtractionLogs(ctx context.Context, status string) (int64, error) {
	query := s.DB.WithContext(ctx).Model(&models.ExtractionLog{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
