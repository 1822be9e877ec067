package store

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm/clause"

	"paper-graph/models"
)

// LinkPaperConcept erstellt die Kante zwischen Paper und Konzept. Existiert
// das Paar bereits, wird der Aufruf still ignoriert: pro Paar höchstens eine
// Kante, der erste Schreiber gewinnt.
func (s *Store) LinkPaperConcept(ctx context.Context, paperID, conceptID uint, relevance *float64, context_ string) error {
	if paperID == 0 {
		return &ValidationError{Field: "paper_id", Reason: "must not be zero"}
	}
	if conceptID == 0 {
		return &ValidationError{Field: "concept_id", Reason: "must not be zero"}
	}
	if relevance != nil && (*relevance < 0 || *relevance > 1) {
		return &ValidationError{Field: "relevance_score", Reason: "must be within [0,1]"}
	}

	link := models.PaperConcept{
		PaperID:        paperID,
		ConceptID:      conceptID,
		RelevanceScore: relevance,
		Context:        context_,
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "paper_id"}, {Name: "concept_id"}},
		DoNothing: true,
	}).Create(&link).Error
}

// UpsertRelationship erstellt oder aktualisiert eine gerichtete Kante zwischen
// zwei Papern. Identität ist (Quelle, Ziel, Typ); beim Konflikt gewinnen
// Erklärung und Konfidenz des letzten Aufrufs, das Validated-Flag einer
// früheren Kuration bleibt erhalten.
func (s *Store) UpsertRelationship(ctx context.Context, sourceID, targetID uint, relType, explanation string, confidence float64) (uint, error) {
	if sourceID == 0 || targetID == 0 {
		return 0, &ValidationError{Field: "paper_id", Reason: "source and target must not be zero"}
	}
	if sourceID == targetID {
		return 0, &ValidationError{Field: "target_paper_id", Reason: "self-loops are not allowed"}
	}
	if relType == "" {
		return 0, &ValidationError{Field: "relationship_type", Reason: "must not be empty"}
	}
	if explanation == "" {
		return 0, &ValidationError{Field: "explanation", Reason: "must not be empty"}
	}
	if confidence < 0 || confidence > 1 {
		return 0, &ValidationError{Field: "confidence", Reason: "must be within [0,1]"}
	}

	rel := models.PaperRelationship{
		SourcePaperID:    sourceID,
		TargetPaperID:    targetID,
		RelationshipType: relType,
		Explanation:      explanation,
		Confidence:       confidence,
	}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "source_paper_id"}, {Name: "target_paper_id"}, {Name: "relationship_type"}},
		DoUpdates: clause.Assignments(map[string]any{
			"explanation": explanation,
			"confidence":  confidence,
		}),
	}).Create(&rel).Error
	if err != nil {
		return 0, err
	}

	if rel.ID == 0 {
		var existing models.PaperRelationship
		err := s.DB.WithContext(ctx).Select("id").
			Where("source_paper_id = ? AND target_paper_id = ? AND relationship_type = ?", sourceID, targetID, relType).
			First(&existing).Error
		if err != nil {
			return 0, err
		}
		rel.ID = existing.ID
	}

	s.Logger.Debug("Relationship upserted",
		zap.Uint("source", sourceID), zap.Uint("target", targetID), zap.String("type", relType))
	return rel.ID, nil
}

// RelationshipView ist eine Kante angereichert mit den Titeln beider Paper.
type RelationshipView struct {
	ID               uint    `json:"id"`
	RelationshipType string  `json:"relationship_type"`
	Explanation      string  `json:"explanation"`
	Confidence       float64 `json:"confidence"`
	Validated        bool    `json:"validated"`
	SourceTitle      string  `json:"source_title"`
	TargetTitle      string  `json:"target_title"`
	TargetArxivID    string  `json:"target_arxiv_id"`
}

// GetRelationshipsForPaper liefert alle Kanten, an denen das Paper als Quelle
// oder Ziel hängt, ab der angegebenen Mindest-Konfidenz. Sortiert nach
// Konfidenz absteigend, bei Gleichstand nach Einfüge-Reihenfolge: dieses
// Ranking bestimmt jeden Top-k-Report downstream.
func (s *Store) GetRelationshipsForPaper(ctx context.Context, paperID uint, minConfidence float64) ([]RelationshipView, error) {
	var views []RelationshipView
	err := s.DB.WithContext(ctx).Raw(`
		SELECT pr.id,
		       pr.relationship_type,
		       pr.explanation,
		       pr.confidence,
		       pr.validated,
		       source.title AS source_title,
		       target.title AS target_title,
		       target.arxiv_id AS target_arxiv_id
		FROM paper_relationships pr
		JOIN papers source ON pr.source_paper_id = source.id
		JOIN papers target ON pr.target_paper_id = target.id
		WHERE (pr.source_paper_id = ? OR pr.target_paper_id = ?)
		  AND pr.confidence >= ?
		ORDER BY pr.confidence DESC, pr.id ASC`,
		paperID, paperID, minConfidence).Scan(&views).Error
	if err != nil {
		return nil, err
	}
	return views, nil
}

// SetRelationshipValidated markiert eine Kante als menschlich kuratiert.
func (s *Store) SetRelationshipValidated(ctx context.Context, relationshipID uint, validated bool) error {
	return s.DB.WithContext(ctx).Model(&models.PaperRelationship{}).
		Where("id = ?", relationshipID).
		Update("validated", validated).Error
}
