package models

// PaperConcept verknüpft ein Paper mit einem Konzept (n:m-Kante).
// Pro (Paper, Konzept)-Paar existiert höchstens eine Kante; erneute
// Einfügungen werden ignoriert (first write wins).
type PaperConcept struct {
	ID uint `json:"id" gorm:"primaryKey"`

	PaperID   uint `json:"paper_id" gorm:"not null;uniqueIndex:idx_paper_concepts_pair"`
	ConceptID uint `json:"concept_id" gorm:"not null;uniqueIndex:idx_paper_concepts_pair"`

	// Wie zentral das Konzept für das Paper ist (0-1), optional
	RelevanceScore *float64 `json:"relevance_score,omitempty" gorm:"check:relevance_score BETWEEN 0 AND 1"`

	// Textstelle, an der das Konzept auftaucht
	Context string `json:"context,omitempty" gorm:"type:text"`

	Paper   Paper   `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Concept Concept `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// TableName gibt explizit den Tabellennamen an.
func (PaperConcept) TableName() string {
	return "paper_concepts"
}
