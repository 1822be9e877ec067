package store

import (
	"errors"
	"fmt"
)

// ErrUnavailable signalisiert, dass der Store gar nicht erreichbar ist.
// Das ist der einzige Fehler, der einen kompletten Ingestion-Lauf abbricht.
var ErrUnavailable = errors.New("store unavailable")

// ValidationError beschreibt ungültige Eingaben des Aufrufers. Solche Fehler
// werden nie retried, sondern sofort zurückgegeben.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// IsValidation prüft, ob ein Fehler ein ValidationError ist.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
