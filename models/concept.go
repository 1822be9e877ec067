package models

import "time"

// Gültige Konzept-Typen (feste Enumeration).
const (
	ConceptTypeMethod    = "method"
	ConceptTypeTechnique = "technique"
	ConceptTypeDataset   = "dataset"
	ConceptTypeMetric    = "metric"
	ConceptTypeConcept   = "concept"
)

var conceptTypes = map[string]struct{}{
	ConceptTypeMethod:    {},
	ConceptTypeTechnique: {},
	ConceptTypeDataset:   {},
	ConceptTypeMetric:    {},
	ConceptTypeConcept:   {},
}

// ValidConceptType prüft, ob der Typ Teil der festen Enumeration ist.
func ValidConceptType(t string) bool {
	_, ok := conceptTypes[t]
	return ok
}

// Concept ist ein aus Papern extrahiertes Konzept (Methode, Technik, Datensatz, ...).
// Der MentionCount wächst monoton: jede erneute Einfügung desselben Namens
// erhöht ihn um genau 1, die Beschreibung der Erst-Einfügung bleibt erhalten.
type Concept struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	Name        string `json:"name" gorm:"uniqueIndex;size:255;not null"`
	ConceptType string `json:"concept_type" gorm:"size:50;index"`
	Description string `json:"description,omitempty" gorm:"type:text"`

	MentionCount int `json:"mention_count" gorm:"default:1;index:idx_concepts_mention_count,sort:desc"`
}

// TableName gibt explizit den Tabellennamen an.
func (Concept) TableName() string {
	return "concepts"
}
