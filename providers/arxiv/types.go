package arxiv

import "encoding/xml"

// Feed ist die Atom-Antwort der ArXiv-API.
type Feed struct {
	XMLName      xml.Name `xml:"feed"`
	TotalResults int      `xml:"totalResults"`
	Entries      []Entry  `xml:"entry"`
}

// Entry ist ein einzelnes Paper im Atom-Feed.
type Entry struct {
	ID        string   `xml:"id"` // z.B. http://arxiv.org/abs/2308.04079v1
	Title     string   `xml:"title"`
	Summary   string   `xml:"summary"`
	Published string   `xml:"published"`
	Authors   []Author `xml:"author"`
	Links     []Link   `xml:"link"`
}

// Author ist ein Autor-Eintrag im Atom-Feed.
type Author struct {
	Name string `xml:"name"`
}

// Link ist ein Link-Element; der PDF-Link trägt title="pdf".
type Link struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}
