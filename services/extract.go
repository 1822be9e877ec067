package services

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// TextExtractor ist die Fähigkeit "text = extract(Artefakt) oder Fehler".
// Die Pipeline hängt nur am Interface, damit Tests eine Fake-Extraktion
// einsetzen können.
type TextExtractor interface {
	ExtractText(data []byte) (string, error)
}

// PDFExtractor extrahiert Klartext aus PDF-Artefakten und normalisiert ihn
// für die Persistierung.
type PDFExtractor struct {
	Logger     *zap.Logger
	Normalizer *TextNormalizer
}

// NewPDFExtractor erstellt einen neuen PDF-Extraktor.
func NewPDFExtractor(logger *zap.Logger) *PDFExtractor {
	return &PDFExtractor{Logger: logger, Normalizer: NewTextNormalizer(logger)}
}

// ExtractText liest den gesamten Text eines PDFs. Leere oder nicht als PDF
// erkennbare Artefakte sind ein Fehler, kein leeres Ergebnis: der Aufrufer
// soll das Paper als Skeleton stehen lassen und später erneut versuchen.
func (e *PDFExtractor) ExtractText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty artifact")
	}
	if !isPDF(data) {
		return "", fmt.Errorf("artifact is not a pdf (missing %%PDF header)")
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}

	text, stats := e.Normalizer.Normalize(string(raw))
	if text == "" {
		return "", fmt.Errorf("pdf contained no extractable text")
	}
	e.Logger.Debug("Text aus PDF extrahiert",
		zap.Int("chars", stats.NumChars), zap.Int("words", stats.NumWords))
	return text, nil
}

// isPDF prüft die Magic Bytes: ein PDF beginnt mit "%PDF-".
func isPDF(b []byte) bool {
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}
