package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Paper repräsentiert eine wissenschaftliche Arbeit als Knoten im Wissensgraphen.
// Ein Paper kann ohne Volltext existieren (Skeleton) und wird durch einen
// späteren Upsert vervollständigt.
type Paper struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Externe Identität (z.B. ArXiv Accession Number), eindeutig
	ArxivID string `json:"arxiv_id" gorm:"column:arxiv_id;uniqueIndex;not null"`

	Title         string         `json:"title" gorm:"type:text;not null"`
	Abstract      string         `json:"abstract,omitempty" gorm:"type:text"`
	Authors       datatypes.JSON `json:"authors,omitempty"`
	PublishedDate *time.Time     `json:"published_date,omitempty" gorm:"index"`

	// Pfad/Link zum lokal bzw. in S3 abgelegten PDF-Artefakt
	PDFPath string `json:"pdf_path,omitempty"`

	// Extrahierter Volltext; leer, solange die Extraktion nicht gelungen ist
	FullText string `json:"full_text,omitempty" gorm:"type:text"`

	IsSeminal   bool       `json:"is_seminal" gorm:"default:false"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`

	// Download-Quelle aus der Discovery, wird nicht persistiert
	PDFURL string `json:"pdf_url,omitempty" gorm:"-"`
}

// TableName gibt explizit den Tabellennamen an.
func (Paper) TableName() string {
	return "papers"
}

// SetAuthors serialisiert die Autorenliste in die JSON-Spalte.
func (p *Paper) SetAuthors(names []string) error {
	if len(names) == 0 {
		p.Authors = nil
		return nil
	}
	b, err := json.Marshal(names)
	if err != nil {
		return err
	}
	p.Authors = datatypes.JSON(b)
	return nil
}

// AuthorNames deserialisiert die Autorenliste aus der JSON-Spalte.
func (p *Paper) AuthorNames() []string {
	if len(p.Authors) == 0 {
		return nil
	}
	var names []string
	if err := json.Unmarshal(p.Authors, &names); err != nil {
		return nil
	}
	return names
}

// HasFullText meldet, ob das Paper bereits vollständig ingestiert wurde.
func (p *Paper) HasFullText() bool {
	return p.FullText != ""
}
