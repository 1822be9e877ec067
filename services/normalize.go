package services

import (
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeStats enthält Kennzahlen zur Normalisierung eines Volltexts.
type NormalizeStats struct {
	NumWords     int `json:"num_words"`
	NumChars     int `json:"num_chars"`
	HyphenFixes  int `json:"hyphen_fixes"`
	DroppedLines int `json:"dropped_lines"`
}

// TextNormalizer bereinigt rohen PDF-Extract-Output für die Persistierung:
// Ligaturen und Unicode-Normalisierung, Silbentrennung am Zeilenende,
// Seitenzahl-Artefakte und Leerraum. Die Heuristiken sind bewusst konservativ,
// echte Inhaltszeilen werden nie verworfen.
type TextNormalizer struct {
	logger *zap.Logger
}

// NewTextNormalizer erstellt einen neuen Normalizer.
func NewTextNormalizer(logger *zap.Logger) *TextNormalizer {
	return &TextNormalizer{logger: logger}
}

var (
	hyphenBreak = regexp.MustCompile(`(?m)([\p{L}\p{N}])-(?:\r?\n)([\p{Ll}])`)
	pageNumber  = regexp.MustCompile(`^(?:[Pp]age\s*)?\d+(?:\s*/\s*\d+)?$`)

	ligatures = strings.NewReplacer(
		"ﬁ", "fi",
		"ﬂ", "fl",
		"ﬀ", "ff",
		"ﬃ", "ffi",
		"ﬄ", "ffl",
		"ﬆ", "st",
	)
)

// Normalize überführt rohen Extraktions-Output in den persistierbaren
// Volltext. Ein leeres Ergebnis signalisiert der Aufrufer als Fehler.
func (tn *TextNormalizer) Normalize(raw string) (string, NormalizeStats) {
	stats := NormalizeStats{}

	s := ligatures.Replace(raw)
	s, _, _ = transform.String(transform.Chain(norm.NFC), s)

	s, stats.HyphenFixes = fixHyphenation(s)
	s, stats.DroppedLines = dropPageArtifacts(s)
	s = collapseWhitespace(s)

	stats.NumWords = len(strings.Fields(s))
	stats.NumChars = len([]rune(s))

	if tn.logger != nil {
		tn.logger.Debug("Volltext normalisiert",
			zap.Int("words", stats.NumWords),
			zap.Int("hyphen_fixes", stats.HyphenFixes),
			zap.Int("dropped_lines", stats.DroppedLines))
	}
	return s, stats
}

// fixHyphenation entfernt Trennstriche am Zeilenende vor kleinem
// Anfangsbuchstaben der Folgezeile: "ab-\nweichung" -> "abweichung".
func fixHyphenation(s string) (string, int) {
	count := len(hyphenBreak.FindAllStringIndex(s, -1))
	if count == 0 {
		return s, 0
	}
	return hyphenBreak.ReplaceAllString(s, "$1$2"), count
}

// dropPageArtifacts verwirft Zeilen, die nur aus einer Seitenzahl bestehen.
func dropPageArtifacts(s string) (string, int) {
	lines := splitLines(s)
	kept := make([]string, 0, len(lines))
	dropped := 0
	for _, line := range lines {
		if isLikelyPageNumber(line) {
			dropped++
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n"), dropped
}

func isLikelyPageNumber(s string) bool {
	trimmed := strings.TrimSpace(s)
	return trimmed != "" && pageNumber.MatchString(trimmed)
}

func splitLines(s string) []string {
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}

// collapseWhitespace normalisiert Leerraum zeilenweise und entfernt
// Leerzeilen.
func collapseWhitespace(s string) string {
	lines := splitLines(s)
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRightFunc(line, unicode.IsSpace)
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
