package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"paper-graph/config"
	"paper-graph/models"
	"paper-graph/providers"
)

var versionSuffix = regexp.MustCompile(`v\d+$`)

// Fetcher kapselt die Interaktion mit der ArXiv-API: Discovery über die
// konfigurierte Suchanfrage plus das Seminal-Paper, und der PDF-Download.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
	Client *http.Client
	Retry  providers.RetryPolicy
}

// NewFetcher erstellt eine neue Instanz des ArXiv-Fetchers.
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
	return "arxiv"
}

// Discover holt das Seminal-Paper (falls konfiguriert) und die Treffer der
// konfigurierten Suchanfrage. Duplikate innerhalb des Ergebnisses werden
// bereits hier entfernt.
func (f *Fetcher) Discover(ctx context.Context) ([]*models.Paper, error) {
	var papers []*models.Paper
	seen := make(map[string]bool)

	if f.Config.SeminalArxivID != "" {
		seminal, err := f.FetchByID(ctx, f.Config.SeminalArxivID)
		if err != nil {
			f.Logger.Warn("Seminal-Paper konnte nicht geladen werden",
				zap.String("arxiv_id", f.Config.SeminalArxivID), zap.Error(err))
		} else if seminal != nil {
			seminal.IsSeminal = true
			papers = append(papers, seminal)
			seen[seminal.ArxivID] = true
		}
	}

	if f.Config.ArxivQuery != "" {
		results, err := f.search(ctx, f.Config.ArxivQuery, f.Config.ArxivMaxResults)
		if err != nil {
			return papers, err
		}
		for _, p := range results {
			if !seen[p.ArxivID] {
				papers = append(papers, p)
				seen[p.ArxivID] = true
			}
		}
	}

	f.Logger.Info("ArXiv discovery abgeschlossen", zap.Int("count", len(papers)))
	return papers, nil
}

// FetchByID holt die Metadaten eines einzelnen Papers über id_list.
func (f *Fetcher) FetchByID(ctx context.Context, arxivID string) (*models.Paper, error) {
	query := url.Values{}
	query.Set("id_list", arxivID)
	query.Set("max_results", "1")

	feed, err := f.fetchFeed(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(feed.Entries) == 0 {
		return nil, nil
	}
	return f.paperFromEntry(feed.Entries[0]), nil
}

// search führt eine Suchanfrage gegen die ArXiv-API aus.
func (f *Fetcher) search(ctx context.Context, term string, maxResults int) ([]*models.Paper, error) {
	log := f.Logger.With(zap.String("term", term))
	log.Info("Starte ArXiv-Suche.")

	query := url.Values{}
	query.Set("search_query", term)
	query.Set("start", "0")
	query.Set("max_results", fmt.Sprintf("%d", maxResults))
	query.Set("sortBy", "relevance")

	feed, err := f.fetchFeed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("arxiv search failed: %w", err)
	}

	papers := make([]*models.Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		paper := f.paperFromEntry(entry)
		if paper.ArxivID == "" {
			continue
		}
		papers = append(papers, paper)
	}
	log.Info("ArXiv-Suche abgeschlossen", zap.Int("count", len(papers)))
	return papers, nil
}

func (f *Fetcher) fetchFeed(ctx context.Context, query url.Values) (*Feed, error) {
	requestURL := f.Config.ArxivBaseURL + "?" + query.Encode()
	f.Logger.Debug("Rufe ArXiv-API auf", zap.String("url", requestURL))

	resp, err := f.Retry.Get(ctx, f.Client, requestURL, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("arxiv api returned status %d: %s", resp.StatusCode, string(body))
	}

	var feed Feed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("arxiv feed decode failed: %w", err)
	}
	return &feed, nil
}

// paperFromEntry überführt einen Atom-Eintrag in ein standardisiertes Paper.
func (f *Fetcher) paperFromEntry(entry Entry) *models.Paper {
	paper := &models.Paper{
		ArxivID:  NormalizeID(entry.ID),
		Title:    collapseWhitespace(entry.Title),
		Abstract: strings.TrimSpace(entry.Summary),
	}

	if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
		paper.PublishedDate = &t
	}

	names := make([]string, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	_ = paper.SetAuthors(names)

	for _, link := range entry.Links {
		if link.Title == "pdf" || link.Type == "application/pdf" {
			paper.PDFURL = link.Href
			break
		}
	}
	if paper.PDFURL == "" && paper.ArxivID != "" {
		paper.PDFURL = f.pdfURL(paper.ArxivID)
	}
	return paper
}

func (f *Fetcher) pdfURL(arxivID string) string {
	return fmt.Sprintf("%s/%s.pdf", f.Config.ArxivPDFBaseURL, arxivID)
}

// DownloadPDF lädt das PDF-Artefakt eines Papers herunter.
func (f *Fetcher) DownloadPDF(ctx context.Context, paper *models.Paper) ([]byte, error) {
	downloadURL := paper.PDFURL
	if downloadURL == "" {
		downloadURL = f.pdfURL(paper.ArxivID)
	}
	log := f.Logger.With(zap.String("arxiv_id", paper.ArxivID), zap.String("url", downloadURL))
	log.Info("Starte PDF-Download.")

	resp, err := f.Retry.Get(ctx, f.Client, downloadURL, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pdf download failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("pdf download returned empty body")
	}
	log.Info("PDF-Download abgeschlossen", zap.Int("bytes", len(data)))
	return data, nil
}

// NormalizeID extrahiert die reine ArXiv-ID aus einer Atom-Entry-ID oder
// URL und entfernt den Versions-Suffix (v1, v2, ...).
func NormalizeID(raw string) string {
	id := strings.TrimSpace(raw)
	if idx := strings.LastIndex(id, "/abs/"); idx >= 0 {
		id = id[idx+len("/abs/"):]
	}
	return versionSuffix.ReplaceAllString(id, "")
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
