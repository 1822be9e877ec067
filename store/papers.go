package store

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"paper-graph/models"
)

// UpsertPaper fügt ein Paper ein oder aktualisiert es anhand der ArxivID.
// Beim Konflikt gewinnen Titel, Abstract und Volltext des neuen Aufrufs;
// Autoren, Publikationsdatum und CreatedAt der Erst-Einfügung bleiben stehen.
// Gibt die dauerhafte interne ID zurück.
func (s *Store) UpsertPaper(ctx context.Context, p *models.Paper) (uint, error) {
	if p.ArxivID == "" {
		return 0, &ValidationError{Field: "arxiv_id", Reason: "must not be empty"}
	}
	if p.Title == "" {
		return 0, &ValidationError{Field: "title", Reason: "must not be empty"}
	}

	assignments := map[string]any{
		"title":      p.Title,
		"abstract":   p.Abstract,
		"full_text":  p.FullText,
		"updated_at": time.Now(),
	}
	if p.PDFPath != "" {
		assignments["pdf_path"] = p.PDFPath
	}
	if p.ProcessedAt != nil {
		assignments["processed_at"] = *p.ProcessedAt
	}

	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "arxiv_id"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(p).Error
	if err != nil {
		return 0, err
	}

	// Manche Dialekte liefern beim Konflikt-Update keine ID über RETURNING.
	if p.ID == 0 {
		var existing models.Paper
		if err := s.DB.WithContext(ctx).Select("id").Where("arxiv_id = ?", p.ArxivID).First(&existing).Error; err != nil {
			return 0, err
		}
		p.ID = existing.ID
	}

	s.Logger.Debug("Paper upserted", zap.String("arxiv_id", p.ArxivID), zap.Uint("id", p.ID))
	return p.ID, nil
}

// GetPaper liefert das Paper zur ArxivID. Nicht-Existenz ist kein Fehler,
// sondern ein erwartetes Ergebnis: (nil, nil).
func (s *Store) GetPaper(ctx context.Context, arxivID string) (*models.Paper, error) {
	var paper models.Paper
	err := s.DB.WithContext(ctx).Where("arxiv_id = ?", arxivID).First(&paper).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &paper, nil
}

// ListPapers gibt alle Paper zurück, neueste Publikation zuerst.
func (s *Store) ListPapers(ctx context.Context) ([]models.Paper, error) {
	var papers []models.Paper
	if err := s.DB.WithContext(ctx).Order("published_date DESC").Find(&papers).Error; err != nil {
		return nil, err
	}
	return papers, nil
}

// KnownArxivIDs liefert die Menge aller bereits persistierten externen IDs.
// Dient als dauerhafter Dedup-Schlüssel über Prozess-Neustarts hinweg.
func (s *Store) KnownArxivIDs(ctx context.Context) (map[string]bool, error) {
	var ids []string
	if err := s.DB.WithContext(ctx).Model(&models.Paper{}).Pluck("arxiv_id", &ids).Error; err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}
	return known, nil
}

// DeletePaper entfernt ein Paper samt aller Kanten und Logs (Cascade).
// Nur für explizite Operator-Aktionen gedacht, die Pipeline löscht nie.
func (s *Store) DeletePaper(ctx context.Context, arxivID string) error {
	paper, err := s.GetPaper(ctx, arxivID)
	if err != nil {
		return err
	}
	if paper == nil {
		return nil
	}
	return s.DB.WithContext(ctx).Delete(paper).Error
}

// UpsertConcept fügt ein Konzept ein oder erhöht beim bestehenden Namen den
// MentionCount um genau 1. Beschreibung und Typ der Erst-Einfügung werden
// nie überschrieben.
func (s *Store) UpsertConcept(ctx context.Context, name, conceptType, description string) (uint, error) {
	if name == "" {
		return 0, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if !models.ValidConceptType(conceptType) {
		return 0, &ValidationError{Field: "concept_type", Reason: "unknown concept type " + conceptType}
	}

	concept := models.Concept{
		Name:         name,
		ConceptType:  conceptType,
		Description:  description,
		MentionCount: 1,
	}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]any{
			"mention_count": gorm.Expr("concepts.mention_count + 1"),
		}),
	}).Create(&concept).Error
	if err != nil {
		return 0, err
	}

	if concept.ID == 0 {
		var existing models.Concept
		if err := s.DB.WithContext(ctx).Select("id").Where("name = ?", name).First(&existing).Error; err != nil {
			return 0, err
		}
		concept.ID = existing.ID
	}
	return concept.ID, nil
}

// GetConcept liefert das Konzept zum Namen, (nil, nil) falls unbekannt.
func (s *Store) GetConcept(ctx context.Context, name string) (*models.Concept, error) {
	var concept models.Concept
	err := s.DB.WithContext(ctx).Where("name = ?", name).First(&concept).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &concept, nil
}
