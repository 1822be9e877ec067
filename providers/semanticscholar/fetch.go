package semanticscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"paper-graph/config"
	"paper-graph/models"
	"paper-graph/providers"
)

const (
	citationFields = "paperId,externalIds,title,abstract,authors,year,citationCount,influentialCitationCount"
	pageSize       = 100

	// Pause zwischen zwei Seiten-Abfragen, die API ist rate-limitiert.
	pageDelay = time.Second
)

// Fetcher holt zitierende Paper des Seminal-Papers über die
// Semantic-Scholar-Graph-API. So bekommt jedes gefundene Paper eine direkte
// Beziehung zum Seminal-Werk.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
	Client *http.Client
	Retry  providers.RetryPolicy
}

// NewFetcher erstellt eine neue Instanz des Semantic-Scholar-Fetchers.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		Config: cfg,
		Logger: logger,
		Client: &http.Client{Timeout: cfg.FetchTimeout},
		Retry:  providers.RetryPolicy{MaxAttempts: cfg.RetryMaxAttempts, BackoffBase: cfg.RetryBackoffBase},
	}
}

// Name gibt den Namen des Providers zurück.
func (f *Fetcher) Name() string {
	return "semanticscholar"
}

// Discover liefert bis zu S2MaxCitingPapers zitierende Paper des
// Seminal-Papers. Zitierungen ohne ArXiv-ID werden übersprungen, da wir sie
// weder herunterladen noch eindeutig deduplizieren können.
func (f *Fetcher) Discover(ctx context.Context) ([]*models.Paper, error) {
	if f.Config.SeminalArxivID == "" {
		return nil, nil
	}
	log := f.Logger.With(zap.String("seminal_arxiv_id", f.Config.SeminalArxivID))

	s2ID, err := f.lookupPaperID(ctx, f.Config.SeminalArxivID)
	if err != nil {
		return nil, fmt.Errorf("semantic scholar lookup failed: %w", err)
	}
	log.Info("Seminal-Paper bei Semantic Scholar gefunden", zap.String("s2_paper_id", s2ID))

	maxPapers := f.Config.S2MaxCitingPapers
	var papers []*models.Paper
	skippedNoArxiv := 0

	for offset := 0; len(papers) < maxPapers; {
		page, err := f.fetchCitationsPage(ctx, s2ID, offset)
		if err != nil {
			return nil, fmt.Errorf("semantic scholar citations failed: %w", err)
		}

		for _, item := range page.Data {
			if len(papers) >= maxPapers {
				break
			}
			arxivID := item.CitingPaper.ExternalIDs.ArXiv
			if arxivID == "" {
				skippedNoArxiv++
				continue
			}
			papers = append(papers, f.paperFromCitation(arxivID, item.CitingPaper))
		}

		if page.Next == nil || len(page.Data) == 0 {
			break
		}
		offset = *page.Next

		select {
		case <-ctx.Done():
			return papers, ctx.Err()
		case <-time.After(pageDelay):
		}
	}

	log.Info("Zitierende Paper geladen",
		zap.Int("count", len(papers)), zap.Int("skipped_no_arxiv", skippedNoArxiv))
	return papers, nil
}

// lookupPaperID übersetzt eine ArXiv-ID in die interne Semantic-Scholar-ID.
func (f *Fetcher) lookupPaperID(ctx context.Context, arxivID string) (string, error) {
	query := url.Values{}
	query.Set("fields", "paperId,title,citationCount")
	requestURL := fmt.Sprintf("%s/paper/ARXIV:%s?%s", f.Config.S2BaseURL, arxivID, query.Encode())

	var lookup PaperLookup
	if err := f.getJSON(ctx, requestURL, &lookup); err != nil {
		return "", err
	}
	if lookup.PaperID == "" {
		return "", fmt.Errorf("no semantic scholar id for arxiv:%s", arxivID)
	}
	return lookup.PaperID, nil
}

func (f *Fetcher) fetchCitationsPage(ctx context.Context, s2ID string, offset int) (*CitationsResponse, error) {
	query := url.Values{}
	query.Set("fields", citationFields)
	query.Set("limit", fmt.Sprintf("%d", pageSize))
	query.Set("offset", fmt.Sprintf("%d", offset))
	requestURL := fmt.Sprintf("%s/paper/%s/citations?%s", f.Config.S2BaseURL, s2ID, query.Encode())

	var page CitationsResponse
	if err := f.getJSON(ctx, requestURL, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (f *Fetcher) getJSON(ctx context.Context, requestURL string, out any) error {
	var header http.Header
	if f.Config.S2APIKey != "" {
		header = http.Header{"x-api-key": []string{f.Config.S2APIKey}}
	}

	resp, err := f.Retry.Get(ctx, f.Client, requestURL, header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("semantic scholar returned status %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// paperFromCitation baut ein standardisiertes Paper aus einer Zitierung.
// Das Publikationsdatum ist nur aufs Jahr genau bekannt und wird auf den
// 1. Januar approximiert; der ArXiv-Download korrigiert das später nicht,
// weil der Upsert Datum und Autoren der Erst-Einfügung stehen lässt.
func (f *Fetcher) paperFromCitation(arxivID string, citing CitingPaper) *models.Paper {
	paper := &models.Paper{
		ArxivID:  arxivID,
		Title:    citing.Title,
		Abstract: citing.Abstract,
		PDFURL:   fmt.Sprintf("%s/%s.pdf", f.Config.ArxivPDFBaseURL, arxivID),
	}
	if citing.Title == "" {
		paper.Title = "Unknown"
	}
	if citing.Year > 0 {
		published := time.Date(citing.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		paper.PublishedDate = &published
	}

	names := make([]string, 0, len(citing.Authors))
	for _, a := range citing.Authors {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	_ = paper.SetAuthors(names)
	return paper
}
