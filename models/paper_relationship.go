package models

import "time"

// Bekannte Beziehungstypen. Die Menge ist bewusst erweiterbar; der Store
// validiert den Typ nicht gegen diese Liste.
const (
	RelationImprovesOn = "improves_on"
	RelationExtends    = "extends"
	RelationEvaluates  = "evaluates"
	RelationBuildsOn   = "builds_on"
	RelationAddresses  = "addresses"
	RelationCites      = "cites"
)

// PaperRelationship ist eine gerichtete semantische Kante zwischen zwei Papern.
// Identität ist das Tripel (Quelle, Ziel, Typ); erneute Upserts überschreiben
// Erklärung und Konfidenz, das Validated-Flag bleibt unberührt.
type PaperRelationship struct {
	ID uint `json:"id" gorm:"primaryKey"`

	SourcePaperID uint `json:"source_paper_id" gorm:"not null;uniqueIndex:idx_relationships_edge;check:chk_relationships_no_self_loop,source_paper_id <> target_paper_id"`
	TargetPaperID uint `json:"target_paper_id" gorm:"not null;uniqueIndex:idx_relationships_edge"`

	RelationshipType string `json:"relationship_type" gorm:"size:50;not null;uniqueIndex:idx_relationships_edge;index"`

	// Natürlichsprachliche Begründung der Beziehung
	Explanation string `json:"explanation" gorm:"type:text;not null"`

	// Konfidenz der Extraktion (0-1)
	Confidence float64 `json:"confidence" gorm:"check:confidence BETWEEN 0 AND 1;index:idx_relationships_confidence,sort:desc"`

	Validated   bool      `json:"validated" gorm:"default:false;index"`
	ExtractedAt time.Time `json:"extracted_at" gorm:"autoCreateTime"`

	SourcePaper Paper `json:"-" gorm:"foreignKey:SourcePaperID;constraint:OnDelete:CASCADE"`
	TargetPaper Paper `json:"-" gorm:"foreignKey:TargetPaperID;constraint:OnDelete:CASCADE"`
}

// TableName gibt explizit den Tabellennamen an.
func (PaperRelationship) TableName() string {
	return "paper_relationships"
}
