package providers

import (
	"context"

	"paper-graph/models"
)

// Provider ist das Interface, das jede Discovery-Quelle (z.B. ArXiv,
// Semantic Scholar) implementieren muss.
type Provider interface {
	// Discover liefert Kandidaten-Paper als standardisierte Paper-Modelle.
	// Volltext und Artefakt werden erst von der Pipeline nachgezogen.
	Discover(ctx context.Context) ([]*models.Paper, error)

	// Name gibt den eindeutigen Namen des Providers zurück (z.B. "arxiv").
	Name() string
}
