package models

import "time"

// Status-Werte für Pipeline-Stufen.
const (
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	StatusInProgress = "in_progress"
)

// Pipeline-Stufen. Freie Enumeration, neue Stufen brauchen keine Migration.
const (
	StageDiscovery          = "discovery"
	StagePDFDownload        = "pdf_download"
	StagePDFExtraction      = "pdf_extraction"
	StageEntityExtraction   = "entity_extraction"
	StageRelationExtraction = "relationship_extraction"
)

// ExtractionLog ist ein Append-only-Audit-Eintrag: genau eine Zeile pro
// Verarbeitungsversuch einer Pipeline-Stufe. Einträge werden nie verändert.
type ExtractionLog struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_logs_created,sort:desc"`

	PaperID uint `json:"paper_id" gorm:"index"`

	Stage  string `json:"stage" gorm:"size:50;not null"`
	Status string `json:"status" gorm:"size:20;not null;index"`

	ErrorMessage          string   `json:"error_message,omitempty" gorm:"type:text"`
	ProcessingTimeSeconds *float64 `json:"processing_time_seconds,omitempty"`

	Paper Paper `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// TableName gibt explizit den Tabellennamen an.
func (ExtractionLog) TableName() string {
	return "extraction_logs"
}
