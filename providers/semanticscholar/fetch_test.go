package semanticscholar

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"paper-graph/config"
)

func testFetcher(baseURL string) *Fetcher {
	cfg := &config.Config{
		S2BaseURL:         baseURL,
		SeminalArxivID:    "2308.04079",
		S2MaxCitingPapers: 10,
		ArxivPDFBaseURL:   "https://arxiv.org/pdf",
		FetchTimeout:      5 * time.Second,
		RetryMaxAttempts:  1,
		RetryBackoffBase:  time.Millisecond,
	}
	return NewFetcher(cfg, zap.NewNop())
}

func TestDiscoverCollectsCitingPapers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/paper/ARXIV:2308.04079"):
			fmt.Fprint(w, `{"paperId": "s2-internal-id", "title": "Seminal", "citationCount": 2}`)
		case strings.Contains(r.URL.Path, "/paper/s2-internal-id/citations"):
			fmt.Fprint(w, `{
				"offset": 0,
				"data": [
					{"citingPaper": {"paperId": "p1", "title": "Citing A", "year": 2024,
						"externalIds": {"ArXiv": "2401.00001"},
						"authors": [{"name": "Alice"}]}},
					{"citingPaper": {"paperId": "p2", "title": "No arxiv id", "year": 2024,
						"externalIds": {}}},
					{"citingPaper": {"paperId": "p3", "title": "", "year": 0,
						"externalIds": {"ArXiv": "2401.00002"}}}
				]
			}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	f := testFetcher(srv.URL)
	papers, err := f.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, papers, 2)

	assert.Equal(t, "2401.00001", papers[0].ArxivID)
	assert.Equal(t, "Citing A", papers[0].Title)
	assert.Equal(t, []string{"Alice"}, papers[0].AuthorNames())
	assert.Equal(t, "https://arxiv.org/pdf/2401.00001.pdf", papers[0].PDFURL)
	require.NotNil(t, papers[0].PublishedDate)
	assert.Equal(t, 2024, papers[0].PublishedDate.Year())

	// Fehlender Titel und fehlendes Jahr bekommen neutrale Defaults.
	assert.Equal(t, "Unknown", papers[1].Title)
	assert.Nil(t, papers[1].PublishedDate)
}

func TestDiscoverRespectsMaxCitingPapers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/paper/ARXIV:"):
			fmt.Fprint(w, `{"paperId": "s2-internal-id"}`)
		default:
			fmt.Fprint(w, `{
				"offset": 0,
				"next": 100,
				"data": [
					{"citingPaper": {"paperId": "p1", "title": "A", "externalIds": {"ArXiv": "1"}}},
					{"citingPaper": {"paperId": "p2", "title": "B", "externalIds": {"ArXiv": "2"}}},
					{"citingPaper": {"paperId": "p3", "title": "C", "externalIds": {"ArXiv": "3"}}}
				]
			}`)
		}
	}))
	defer srv.Close()

	f := testFetcher(srv.URL)
	f.Config.S2MaxCitingPapers = 2

	papers, err := f.Discover(context.Background())
	require.NoError(t, err)
	assert.Len(t, papers, 2)
}

func TestDiscoverWithoutSeminalIDIsNoOp(t *testing.T) {
	f := testFetcher("http://unused")
	f.Config.SeminalArxivID = ""

	papers, err := f.Discover(context.Background())
	require.NoError(t, err)
	assert.Nil(t, papers)
}

func TestLookupPaperIDUnknownPaper(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	f := testFetcher(srv.URL)
	_, err := f.lookupPaperID(context.Background(), "0000.00000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no semantic scholar id")
}
