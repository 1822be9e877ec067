package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"paper-graph/models"
)

// newTestStore erstellt einen Store über einer In-Memory-SQLite-Datenbank.
// Foreign Keys müssen explizit aktiviert werden, sonst greifen die Cascades nicht.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	st := New(db, zap.NewNop())
	require.NoError(t, st.Migrate())
	return st
}

func insertPaper(t *testing.T, st *Store, arxivID, title string) uint {
	t.Helper()
	id, err := st.UpsertPaper(context.Background(), &models.Paper{ArxivID: arxivID, Title: title})
	require.NoError(t, err)
	require.NotZero(t, id)
	return id
}

func TestUpsertPaperInsertThenUpdate(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	published := time.Date(2023, time.August, 8, 0, 0, 0, 0, time.UTC)
	first := &models.Paper{
		ArxivID:       "2308.04079",
		Title:         "3D Gaussian Splatting",
		Abstract:      "Radiance field rendering.",
		PublishedDate: &published,
	}
	require.NoError(t, first.SetAuthors([]string{"Kerbl", "Kopanas"}))

	id1, err := st.UpsertPaper(ctx, first)
	require.NoError(t, err)
	require.NotZero(t, id1)

	// Zweiter Upsert mit derselben ArxivID: Titel und Volltext gewinnen,
	// Autoren und Publikationsdatum der Erst-Einfügung bleiben stehen.
	second := &models.Paper{
		ArxivID:  "2308.04079",
		Title:    "3D Gaussian Splatting for Real-Time Radiance Field Rendering",
		FullText: "full extracted text",
	}
	id2, err := st.UpsertPaper(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	stored, err := st.GetPaper(ctx, "2308.04079")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "3D Gaussian Splatting for Real-Time Radiance Field Rendering", stored.Title)
	assert.Equal(t, "full extracted text", stored.FullText)
	assert.Equal(t, []string{"Kerbl", "Kopanas"}, stored.AuthorNames())
	require.NotNil(t, stored.PublishedDate)
	assert.Equal(t, published.Year(), stored.PublishedDate.Year())
	assert.True(t, stored.HasFullText())

	var count int64
	require.NoError(t, st.DB.Model(&models.Paper{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUpsertPaperValidation(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.UpsertPaper(ctx, &models.Paper{Title: "no id"})
	assert.True(t, IsValidation(err))

	_, err = st.UpsertPaper(ctx, &models.Paper{ArxivID: "1234.5678"})
	assert.True(t, IsValidation(err))
}

func TestGetPaperNotFoundIsNotAnError(t *testing.T) {
	st := newTestStore(t)

	paper, err := st.GetPaper(context.Background(), "0000.00000")
	require.NoError(t, err)
	assert.Nil(t, paper)
}

func TestKnownArxivIDs(t *testing.T) {
	st := newTestStore(t)
	insertPaper(t, st, "2308.04079", "Seminal")
	insertPaper(t, st, "2401.00001", "Follow-up")

	known, err := st.KnownArxivIDs(context.Background())
	require.NoError(t, err)
	assert.True(t, known["2308.04079"])
	assert.True(t, known["2401.00001"])
	assert.False(t, known["9999.99999"])
}

func TestUpsertConceptIncrementsMentionCount(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id1, err := st.UpsertConcept(ctx, "gaussian splatting", models.ConceptTypeMethod, "point-based rendering")
	require.NoError(t, err)

	// Zweiter Aufruf mit anderer Beschreibung: der Zähler steigt, die
	// ursprüngliche Beschreibung wird nicht überschrieben.
	id2, err := st.UpsertConcept(ctx, "gaussian splatting", models.ConceptTypeMethod, "something else entirely")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	concept, err := st.GetConcept(ctx, "gaussian splatting")
	require.NoError(t, err)
	require.NotNil(t, concept)
	assert.Equal(t, 2, concept.MentionCount)
	assert.Equal(t, "point-based rendering", concept.Description)
}

func TestUpsertConceptRejectsUnknownType(t *testing.T) {
	st := newTestStore(t)

	_, err := st.UpsertConcept(context.Background(), "psnr", "weird_type", "")
	assert.True(t, IsValidation(err))

	_, err = st.UpsertConcept(context.Background(), "", models.ConceptTypeMetric, "")
	assert.True(t, IsValidation(err))
}

func TestGetConceptNotFound(t *testing.T) {
	st := newTestStore(t)

	concept, err := st.GetConcept(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Nil(t, concept)
}

func TestLinkPaperConceptFirstWriterWins(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	paperID := insertPaper(t, st, "2308.04079", "Seminal")
	conceptID, err := st.UpsertConcept(ctx, "psnr", models.ConceptTypeMetric, "")
	require.NoError(t, err)

	highRelevance := 0.9
	require.NoError(t, st.LinkPaperConcept(ctx, paperID, conceptID, &highRelevance, "evaluated on PSNR"))

	lowRelevance := 0.1
	require.NoError(t, st.LinkPaperConcept(ctx, paperID, conceptID, &lowRelevance, "other context"))

	var links []models.PaperConcept
	require.NoError(t, st.DB.Find(&links).Error)
	require.Len(t, links, 1)
	require.NotNil(t, links[0].RelevanceScore)
	assert.InDelta(t, 0.9, *links[0].RelevanceScore, 1e-9)
	assert.Equal(t, "evaluated on PSNR", links[0].Context)
}

func TestLinkPaperConceptValidation(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	bad := 1.5
	err := st.LinkPaperConcept(ctx, 1, 2, &bad, "")
	assert.True(t, IsValidation(err))

	err = st.LinkPaperConcept(ctx, 0, 2, nil, "")
	assert.True(t, IsValidation(err))

	err = st.LinkPaperConcept(ctx, 1, 0, nil, "")
	assert.True(t, IsValidation(err))
}

func TestUpsertRelationshipValidation(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.UpsertRelationship(ctx, 1, 1, models.RelationExtends, "self", 0.5)
	assert.True(t, IsValidation(err))

	_, err = st.UpsertRelationship(ctx, 1, 2, "", "x", 0.5)
	assert.True(t, IsValidation(err))

	_, err = st.UpsertRelationship(ctx, 1, 2, models.RelationExtends, "", 0.5)
	assert.True(t, IsValidation(err))

	_, err = st.UpsertRelationship(ctx, 1, 2, models.RelationExtends, "x", 1.2)
	assert.True(t, IsValidation(err))
}

func TestUpsertRelationshipOverwritesButKeepsValidated(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	sourceID := insertPaper(t, st, "2401.00001", "Follow-up")
	targetID := insertPaper(t, st, "2308.04079", "Seminal")

	relID, err := st.UpsertRelationship(ctx, sourceID, targetID, models.RelationImprovesOn, "faster rendering", 0.7)
	require.NoError(t, err)
	require.NoError(t, st.SetRelationshipValidated(ctx, relID, true))

	// Erneuter Upsert derselben Kante: Erklärung und Konfidenz werden
	// ersetzt, die Kuration bleibt erhalten.
	relID2, err := st.UpsertRelationship(ctx, sourceID, targetID, models.RelationImprovesOn, "much faster rendering", 0.9)
	require.NoError(t, err)
	assert.Equal(t, relID, relID2)

	var rel models.PaperRelationship
	require.NoError(t, st.DB.First(&rel, relID).Error)
	assert.Equal(t, "much faster rendering", rel.Explanation)
	assert.InDelta(t, 0.9, rel.Confidence, 1e-9)
	assert.True(t, rel.Validated)

	// Gleiche Paare mit anderem Typ sind eine eigene Kante.
	otherID, err := st.UpsertRelationship(ctx, sourceID, targetID, models.RelationEvaluates, "benchmarked against", 0.6)
	require.NoError(t, err)
	assert.NotEqual(t, relID, otherID)
}

func TestGetRelationshipsForPaperOrderingAndFilter(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seminalID := insertPaper(t, st, "2308.04079", "Seminal")
	aID := insertPaper(t, st, "2401.00001", "Paper A")
	bID := insertPaper(t, st, "2401.00002", "Paper B")
	cID := insertPaper(t, st, "2401.00003", "Paper C")

	_, err := st.UpsertRelationship(ctx, aID, seminalID, models.RelationBuildsOn, "a builds on", 0.5)
	require.NoError(t, err)
	_, err = st.UpsertRelationship(ctx, bID, seminalID, models.RelationImprovesOn, "b improves", 0.9)
	require.NoError(t, err)
	_, err = st.UpsertRelationship(ctx, cID, seminalID, models.RelationCites, "c cites", 0.2)
	require.NoError(t, err)

	views, err := st.GetRelationshipsForPaper(ctx, seminalID, 0)
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, "Paper B", views[0].SourceTitle)
	assert.Equal(t, "Paper A", views[1].SourceTitle)
	assert.Equal(t, "Paper C", views[2].SourceTitle)
	assert.Equal(t, "2308.04079", views[0].TargetArxivID)

	filtered, err := st.GetRelationshipsForPaper(ctx, seminalID, 0.5)
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	assert.Equal(t, models.RelationImprovesOn, filtered[0].RelationshipType)
}

func TestLogExtractionAppendOnly(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	paperID := insertPaper(t, st, "2308.04079", "Seminal")

	secs := 1.5
	require.NoError(t, st.LogExtraction(ctx, paperID, models.StagePDFDownload, models.StatusFailed, "timeout", &secs))
	require.NoError(t, st.LogExtraction(ctx, paperID, models.StagePDFExtraction, models.StatusSuccess, "", nil))

	logs, err := st.GetExtractionLogs(ctx, paperID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	// Neuester Eintrag zuerst.
	assert.Equal(t, models.StagePDFExtraction, logs[0].Stage)
	assert.Equal(t, models.StagePDFDownload, logs[1].Stage)
	assert.Equal(t, "timeout", logs[1].ErrorMessage)

	failed, err := st.CountExtractionLogs(ctx, models.StatusFailed)
	require.NoError(t, err)
	assert.EqualValues(t, 1, failed)

	total, err := st.CountExtractionLogs(ctx, "")
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestLogExtractionValidation(t *testing.T) {
	st := newTestStore(t)

	err := st.LogExtraction(context.Background(), 1, "", models.StatusSuccess, "", nil)
	assert.True(t, IsValidation(err))

	err = st.LogExtraction(context.Background(), 1, models.StageDiscovery, "bogus", "", nil)
	assert.True(t, IsValidation(err))
}

func TestStatisticsEmptyGraph(t *testing.T) {
	st := newTestStore(t)

	stats, err := st.Statistics(context.Background(), 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats.TotalPapers)
	assert.EqualValues(t, 0, stats.TotalRelationships)
	assert.Zero(t, stats.AvgRelationshipsPerPaper)
	assert.Empty(t, stats.TopConcepts)
}

func TestStatisticsPopulatedGraph(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seminalID := insertPaper(t, st, "2308.04079", "Seminal")
	aID := insertPaper(t, st, "2401.00001", "Paper A")
	bID := insertPaper(t, st, "2401.00002", "Paper B")

	// A hat zwei ausgehende Kanten, B eine: Durchschnitt 1.5.
	_, err := st.UpsertRelationship(ctx, aID, seminalID, models.RelationBuildsOn, "x", 0.8)
	require.NoError(t, err)
	_, err = st.UpsertRelationship(ctx, aID, bID, models.RelationCites, "x", 0.4)
	require.NoError(t, err)
	_, err = st.UpsertRelationship(ctx, bID, seminalID, models.RelationBuildsOn, "x", 0.6)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = st.UpsertConcept(ctx, "gaussian splatting", models.ConceptTypeMethod, "")
		require.NoError(t, err)
	}
	_, err = st.UpsertConcept(ctx, "psnr", models.ConceptTypeMetric, "")
	require.NoError(t, err)

	stats, err := st.Statistics(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalPapers)
	assert.EqualValues(t, 2, stats.TotalConcepts)
	assert.EqualValues(t, 3, stats.TotalRelationships)
	assert.InDelta(t, 1.5, stats.AvgRelationshipsPerPaper, 1e-9)

	require.Len(t, stats.TopConcepts, 1)
	assert.Equal(t, "gaussian splatting", stats.TopConcepts[0].Name)
	assert.Equal(t, 3, stats.TopConcepts[0].Mentions)

	require.NotEmpty(t, stats.RelationshipsByType)
	assert.Equal(t, models.RelationBuildsOn, stats.RelationshipsByType[0].RelationshipType)
	assert.EqualValues(t, 2, stats.RelationshipsByType[0].Count)
}

func TestTopConceptsByCoverage(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	aID := insertPaper(t, st, "2401.00001", "Paper A")
	bID := insertPaper(t, st, "2401.00002", "Paper B")

	wideID, err := st.UpsertConcept(ctx, "nerf", models.ConceptTypeConcept, "")
	require.NoError(t, err)
	narrowID, err := st.UpsertConcept(ctx, "ssim", models.ConceptTypeMetric, "")
	require.NoError(t, err)

	require.NoError(t, st.LinkPaperConcept(ctx, aID, wideID, nil, ""))
	require.NoError(t, st.LinkPaperConcept(ctx, bID, wideID, nil, ""))
	require.NoError(t, st.LinkPaperConcept(ctx, aID, narrowID, nil, ""))

	rows, err := st.TopConceptsByCoverage(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "nerf", rows[0].Name)
	assert.EqualValues(t, 2, rows[0].PaperCount)
	assert.Equal(t, "ssim", rows[1].Name)
	assert.EqualValues(t, 1, rows[1].PaperCount)
}

func TestPaperConceptSummaries(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	aID := insertPaper(t, st, "2401.00001", "Paper A")
	insertPaper(t, st, "2401.00002", "Paper B")

	conceptID, err := st.UpsertConcept(ctx, "nerf", models.ConceptTypeConcept, "")
	require.NoError(t, err)
	require.NoError(t, st.LinkPaperConcept(ctx, aID, conceptID, nil, ""))

	rows, err := st.PaperConceptSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Paper A", rows[0].Title)
	assert.EqualValues(t, 1, rows[0].ConceptCount)
	assert.EqualValues(t, 0, rows[1].ConceptCount)
}

func TestRelationshipTypeSummaries(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	aID := insertPaper(t, st, "2401.00001", "Paper A")
	bID := insertPaper(t, st, "2401.00002", "Paper B")
	cID := insertPaper(t, st, "2401.00003", "Paper C")

	relID, err := st.UpsertRelationship(ctx, aID, bID, models.RelationExtends, "x", 0.4)
	require.NoError(t, err)
	_, err = st.UpsertRelationship(ctx, aID, cID, models.RelationExtends, "x", 0.8)
	require.NoError(t, err)
	require.NoError(t, st.SetRelationshipValidated(ctx, relID, true))

	rows, err := st.RelationshipTypeSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.RelationExtends, rows[0].RelationshipType)
	assert.EqualValues(t, 2, rows[0].Count)
	assert.InDelta(t, 0.6, rows[0].AvgConfidence, 1e-9)
	assert.EqualValues(t, 1, rows[0].ValidatedCount)
}

func TestDeletePaperCascades(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seminalID := insertPaper(t, st, "2308.04079", "Seminal")
	otherID := insertPaper(t, st, "2401.00001", "Paper A")

	conceptID, err := st.UpsertConcept(ctx, "nerf", models.ConceptTypeConcept, "")
	require.NoError(t, err)
	require.NoError(t, st.LinkPaperConcept(ctx, seminalID, conceptID, nil, ""))
	_, err = st.UpsertRelationship(ctx, otherID, seminalID, models.RelationBuildsOn, "x", 0.9)
	require.NoError(t, err)
	require.NoError(t, st.LogExtraction(ctx, seminalID, models.StagePDFExtraction, models.StatusSuccess, "", nil))

	require.NoError(t, st.DeletePaper(ctx, "2308.04079"))

	paper, err := st.GetPaper(ctx, "2308.04079")
	require.NoError(t, err)
	assert.Nil(t, paper)

	var linkCount, relCount, logCount int64
	require.NoError(t, st.DB.Model(&models.PaperConcept{}).Count(&linkCount).Error)
	require.NoError(t, st.DB.Model(&models.PaperRelationship{}).Count(&relCount).Error)
	require.NoError(t, st.DB.Model(&models.ExtractionLog{}).Count(&logCount).Error)
	assert.Zero(t, linkCount)
	assert.Zero(t, relCount)
	assert.Zero(t, logCount)

	// Konzept und das andere Paper überleben die Löschung.
	concept, err := st.GetConcept(ctx, "nerf")
	require.NoError(t, err)
	assert.NotNil(t, concept)

	// Löschen eines unbekannten Papers ist ein No-Op.
	require.NoError(t, st.DeletePaper(ctx, "0000.00000"))
}
