package semanticscholar

// PaperLookup ist die Antwort des Paper-Lookups über die externe ID.
type PaperLookup struct {
	PaperID       string `json:"paperId"`
	Title         string `json:"title"`
	CitationCount int    `json:"citationCount"`
}

// CitationsResponse ist eine Seite der Citations-Liste.
type CitationsResponse struct {
	Offset int  `json:"offset"`
	Next   *int `json:"next"`
	Data   []struct {
		CitingPaper CitingPaper `json:"citingPaper"`
	} `json:"data"`
}

// CitingPaper ist ein zitierendes Paper aus der Semantic-Scholar-Antwort.
type CitingPaper struct {
	PaperID     string `json:"paperId"`
	ExternalIDs struct {
		ArXiv string `json:"ArXiv"`
	} `json:"externalIds"`
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	Year     int    `json:"year"`
	Authors  []struct {
		Name string `json:"name"`
	} `json:"authors"`
	CitationCount            int `json:"citationCount"`
	InfluentialCitationCount int `json:"influentialCitationCount"`
}
