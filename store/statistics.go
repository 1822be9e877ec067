package store

import (
	"context"
	"database/sql"
	"math"

	"paper-graph/models"
)

// DefaultTopConcepts ist das Standard-N für die Top-Konzept-Auswertung.
const DefaultTopConcepts = 5

// ConceptMentions ist ein Eintrag der Top-Konzept-Liste.
type ConceptMentions struct {
	Name     string `json:"name"`
	Mentions int    `json:"mentions"`
}

// RelationshipTypeCount ist ein Eintrag der Typ-Aufschlüsselung.
type RelationshipTypeCount struct {
	RelationshipType string `json:"relationship_type"`
	Count            int64  `json:"count"`
}

// Statistics sind die aggregierten Kennzahlen des Graphen. Jede Kennzahl
// stammt aus einem einzelnen Punkt-in-Zeit-Read; eine transaktionale
// Isolation über alle Kennzahlen hinweg wird nicht garantiert.
type Statistics struct {
	TotalPapers              int64                   `json:"total_papers"`
	TotalConcepts            int64                   `json:"total_concepts"`
	TotalRelationships       int64                   `json:"total_relationships"`
	AvgRelationshipsPerPaper float64                 `json:"avg_relationships_per_paper"`
	RelationshipsByType      []RelationshipTypeCount `json:"relationships_by_type"`
	TopConcepts              []ConceptMentions       `json:"top_concepts"`
}

// Statistics berechnet die Graph-Kennzahlen. topN begrenzt die
// Top-Konzept-Liste; Werte <= 0 fallen auf DefaultTopConcepts zurück.
func (s *Store) Statistics(ctx context.Context, topN int) (*Statistics, error) {
	if topN <= 0 {
		topN = DefaultTopConcepts
	}
	db := s.DB.WithContext(ctx)
	stats := &Statistics{}

	if err := db.Model(&models.Paper{}).Count(&stats.TotalPapers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Concept{}).Count(&stats.TotalConcepts).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.PaperRelationship{}).Count(&stats.TotalRelationships).Error; err != nil {
		return nil, err
	}

	// Durchschnittlicher Out-Degree über Paper mit mindestens einer
	// ausgehenden Kante. Leerer Graph ergibt 0, nie einen Fehler.
	var avg sql.NullFloat64
	err := db.Raw(`
		SELECT AVG(rel_count)
		FROM (
			SELECT COUNT(*) AS rel_count
			FROM paper_relationships
			GROUP BY source_paper_id
		) subq`).Scan(&avg).Error
	if err != nil {
		return nil, err
	}
	if avg.Valid {
		stats.AvgRelationshipsPerPaper = math.Round(avg.Float64*100) / 100
	}

	err = db.Model(&models.PaperRelationship{}).
		Select("relationship_type, COUNT(*) AS count").
		Group("relationship_type").
		Order("count DESC").
		Scan(&stats.RelationshipsByType).Error
	if err != nil {
		return nil, err
	}

	err = db.Model(&models.Concept{}).
		Select("name, mention_count AS mentions").
		Order("mention_count DESC").
		Limit(topN).
		Scan(&stats.TopConcepts).Error
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// PaperConceptSummary fasst je Paper die Anzahl verknüpfter Konzepte zusammen.
type PaperConceptSummary struct {
	PaperID      uint   `json:"paper_id"`
	ArxivID      string `json:"arxiv_id"`
	Title        string `json:"title"`
	ConceptCount int64  `json:"concept_count"`
	IsSeminal    bool   `json:"is_seminal"`
}

// PaperConceptSummaries liefert die Konzept-Abdeckung pro Paper.
func (s *Store) PaperConceptSummaries(ctx context.Context) ([]PaperConceptSummary, error) {
	var rows []PaperConceptSummary
	err := s.DB.WithContext(ctx).Raw(`
		SELECT p.id AS paper_id,
		       p.arxiv_id,
		       p.title,
		       COUNT(pc.concept_id) AS concept_count,
		       p.is_seminal
		FROM papers p
		LEFT JOIN paper_concepts pc ON p.id = pc.paper_id
		GROUP BY p.id, p.arxiv_id, p.title, p.is_seminal
		ORDER BY concept_count DESC, p.id ASC`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ConceptCoverage rankt ein Konzept nach der Zahl unterschiedlicher Paper,
// die es erwähnen.
type ConceptCoverage struct {
	ConceptID    uint   `json:"concept_id"`
	Name         string `json:"name"`
	ConceptType  string `json:"concept_type"`
	MentionCount int    `json:"mention_count"`
	PaperCount   int64  `json:"paper_count"`
}

// TopConceptsByCoverage liefert Konzepte sortiert nach Paper-Abdeckung.
func (s *Store) TopConceptsByCoverage(ctx context.Context, limit int) ([]ConceptCoverage, error) {
	if limit <= 0 {
		limit = DefaultTopConcepts
	}
	var rows []ConceptCoverage
	err := s.DB.WithContext(ctx).Raw(`
		SELECT c.id AS concept_id,
		       c.name,
		       c.concept_type,
		       c.mention_count,
		       COUNT(DISTINCT pc.paper_id) AS paper_count
		FROM concepts c
		LEFT JOIN paper_concepts pc ON c.id = pc.concept_id
		GROUP BY c.id, c.name, c.concept_type, c.mention_count
		ORDER BY paper_count DESC, c.mention_count DESC
		LIMIT ?`, limit).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// RelationshipTypeSummary ist die Typ-Statistik mit Konfidenz und Kuration.
type RelationshipTypeSummary struct {
	RelationshipType string  `json:"relationship_type"`
	Count            int64   `json:"count"`
	AvgConfidence    float64 `json:"avg_confidence"`
	ValidatedCount   int64   `json:"validated_count"`
}

// RelationshipTypeSummaries liefert je Beziehungstyp Anzahl, mittlere
// Konfidenz und die Zahl validierter Kanten.
func (s *Store) RelationshipTypeSummaries(ctx context.Context) ([]RelationshipTypeSummary, error) {
	var rows []RelationshipTypeSummary
	err := s.DB.WithContext(ctx).Raw(`
		SELECT relationship_type,
		       COUNT(*) AS count,
		       AVG(confidence) AS avg_confidence,
		       SUM(CASE WHEN validated THEN 1 ELSE 0 END) AS validated_count
		FROM paper_relationships
		GROUP BY relationship_type
		ORDER BY count DESC`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
