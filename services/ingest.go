package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"paper-graph/config"
	"paper-graph/models"
	"paper-graph/providers"
	"paper-graph/store"
)

// Downloader ist die Fähigkeit "download(identifier) -> Artefakt oder Fehler".
type Downloader interface {
	DownloadPDF(ctx context.Context, paper *models.Paper) ([]byte, error)
}

// ArtifactStore legt PDF-Artefakte dauerhaft ab und liefert deren Handle.
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
}

// Summary ist das Ergebnis eines Ingestion-Laufs. Fehler einzelner Paper
// tauchen hier als Zähler auf, nicht als Fehler des Laufs.
type Summary struct {
	Total          int `json:"total"`
	Successful     int `json:"successful"`
	Skipped        int `json:"skipped"`
	FailedArtifact int `json:"failed_artifact"`
	FailedPersist  int `json:"failed_persist"`
}

// IngestService treibt die Pipeline: Discovery -> Dedup -> Download ->
// Extraktion -> Persistierung, ein Paper nach dem anderen. Jede Stufe
// schreibt genau einen Audit-Eintrag; kein Paper-Fehler bricht den Lauf ab.
type IngestService struct {
	Config     *config.Config
	Store      *store.Store
	Logger     *zap.Logger
	Providers  []providers.Provider
	Downloader Downloader
	Extractor  TextExtractor
	Artifacts  ArtifactStore // optional, ohne Ablage bleibt PDFPath leer
}

// NewIngestService erstellt eine neue Instanz des IngestService.
func NewIngestService(cfg *config.Config, st *store.Store, logger *zap.Logger, provs []providers.Provider, dl Downloader, ex TextExtractor, artifacts ArtifactStore) *IngestService {
	return &IngestService{
		Config:     cfg,
		Store:      st,
		Logger:     logger,
		Providers:  provs,
		Downloader: dl,
		Extractor:  ex,
		Artifacts:  artifacts,
	}
}

// Run führt die Discovery über alle Provider aus und verarbeitet die
// gefundenen Paper. Der Ausfall eines einzelnen Providers wird geloggt und
// übersprungen; nur ein unerreichbarer Store ist fatal.
func (s *IngestService) Run(ctx context.Context) (*Summary, error) {
	if err := s.Store.Ping(ctx); err != nil {
		return nil, err
	}

	var stubs []*models.Paper
	seen := make(map[string]bool)
	for _, provider := range s.Providers {
		discovered, err := provider.Discover(ctx)
		if err != nil {
			s.Logger.Error("Provider discovery failed",
				zap.String("provider", provider.Name()), zap.Error(err))
			continue
		}
		for _, stub := range discovered {
			if stub.ArxivID == "" || seen[stub.ArxivID] {
				continue
			}
			seen[stub.ArxivID] = true
			stubs = append(stubs, stub)
		}
	}

	if max := s.Config.IngestMaxPapers; max > 0 && len(stubs) > max {
		s.Logger.Info("Discovery-Ergebnis gekappt", zap.Int("limit", max), zap.Int("found", len(stubs)))
		stubs = stubs[:max]
	}

	return s.RunForStubs(ctx, stubs)
}

// RunForStubs verarbeitet die übergebenen Paper strikt sequentiell. Der Lauf
// darf zwischen zwei Papern abgebrochen werden: jedes Paper ist eine eigene
// atomare Einheit, ein Teil-Lauf hinterlässt keinen ungültigen Zustand.
func (s *IngestService) RunForStubs(ctx context.Context, stubs []*models.Paper) (*Summary, error) {
	if err := s.Store.Ping(ctx); err != nil {
		return nil, err
	}

	summary := &Summary{Total: len(stubs)}
	for _, stub := range stubs {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}
		s.processPaper(ctx, stub, summary)
	}

	s.Logger.Info("Ingestion-Lauf abgeschlossen",
		zap.Int("total", summary.Total),
		zap.Int("successful", summary.Successful),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed_artifact", summary.FailedArtifact),
		zap.Int("failed_persist", summary.FailedPersist))
	return summary, nil
}

// processPaper schleust ein einzelnes Paper durch alle Stufen. Fehler werden
// gezählt und auditiert, aber nie nach außen geworfen.
func (s *IngestService) processPaper(ctx context.Context, stub *models.Paper, summary *Summary) {
	log := s.Logger.With(zap.String("arxiv_id", stub.ArxivID))

	existing, err := s.Store.GetPaper(ctx, stub.ArxivID)
	if err != nil {
		log.Error("Store-Abfrage fehlgeschlagen", zap.Error(err))
		summary.FailedPersist++
		return
	}

	// Idempotenz-Garantie: vollständig ingestierte Paper werden nie erneut
	// heruntergeladen oder extrahiert.
	if existing != nil && existing.HasFullText() {
		log.Debug("Paper bereits mit Volltext im Store, wird übersprungen.")
		summary.Skipped++
		s.audit(ctx, existing.ID, models.StageDiscovery, models.StatusSuccess, "already ingested with full text", nil)
		return
	}

	start := time.Now()
	data, err := s.Downloader.DownloadPDF(ctx, stub)
	if err != nil || len(data) == 0 {
		// Fallback: Metadaten-Skeleton persistieren, damit ein späterer
		// Lauf den Download erneut versuchen kann.
		paperID, perr := s.Store.UpsertPaper(ctx, stub)
		if perr != nil {
			log.Error("Skeleton-Persistierung fehlgeschlagen", zap.Error(perr))
			summary.FailedPersist++
			return
		}
		summary.FailedArtifact++
		message := "no artifact available"
		if err != nil {
			message = err.Error()
		}
		s.audit(ctx, paperID, models.StagePDFDownload, models.StatusFailed, message, seconds(start))
		log.Warn("Kein PDF-Artefakt, nur Metadaten persistiert", zap.Error(err))
		return
	}

	text, err := s.Extractor.ExtractText(data)
	if err != nil {
		paperID, perr := s.Store.UpsertPaper(ctx, stub)
		if perr != nil {
			log.Error("Skeleton-Persistierung fehlgeschlagen", zap.Error(perr))
			summary.FailedPersist++
			return
		}
		summary.FailedArtifact++
		s.audit(ctx, paperID, models.StagePDFExtraction, models.StatusFailed, err.Error(), seconds(start))
		log.Warn("Textextraktion fehlgeschlagen, Paper bleibt Skeleton", zap.Error(err))
		return
	}

	stub.FullText = text
	now := time.Now()
	stub.ProcessedAt = &now

	if s.Artifacts != nil {
		key := stub.ArxivID + ".pdf"
		link, err := s.Artifacts.Put(ctx, key, data)
		if err != nil {
			// Volltext wird trotzdem persistiert, nur das Handle fehlt.
			log.Error("Artefakt-Upload fehlgeschlagen", zap.Error(err))
		} else {
			stub.PDFPath = link
		}
	}

	paperID, err := s.Store.UpsertPaper(ctx, stub)
	if err != nil {
		log.Error("Persistierung fehlgeschlagen", zap.Error(err))
		summary.FailedPersist++
		return
	}
	summary.Successful++
	s.audit(ctx, paperID, models.StagePDFExtraction, models.StatusSuccess, "", seconds(start))
	log.Info("Paper erfolgreich ingestiert", zap.Uint("paper_id", paperID), zap.Int("chars", len(text)))
}

// audit schreibt den Stufen-Eintrag; ein Log-Fehler beeinflusst den Lauf nicht.
func (s *IngestService) audit(ctx context.Context, paperID uint, stage, status, message string, secs *float64) {
	if err := s.Store.LogExtraction(ctx, paperID, stage, status, message, secs); err != nil {
		s.Logger.Error("Audit-Log konnte nicht geschrieben werden",
			zap.Uint("paper_id", paperID), zap.String("stage", stage), zap.Error(err))
	}
}

func seconds(start time.Time) *float64 {
	v := time.Since(start).Seconds()
	return &v
}
