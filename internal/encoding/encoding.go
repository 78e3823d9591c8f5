// Package encoding reads declaration files with a UTF-8-first,
// Windows-1252-fallback strategy, grounded on the original ingestion
// core's read_file_with_encoding_fallback (encoding_rs UTF_8/WINDOWS_1252)
// and reimplemented against golang.org/x/text/encoding/charmap.
package encoding

import (
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	apperrors "github.com/RyugaHideki7/visor/pkg/errors"
)

// ReadFile reads path and returns its content as a UTF-8 string, trying
// plain UTF-8 first and falling back to Windows-1252 decoding when the
// bytes are not valid UTF-8.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", apperrors.Of(apperrors.KindReadIO, "encoding", "read", "failed to read file", err).
			WithMetadata("path", path)
	}
	return Decode(data), nil
}

// Decode applies the same fallback strategy to an in-memory byte slice.
func Decode(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		// charmap.Windows1252's decoder does not fail on arbitrary byte
		// sequences in practice, but guard defensively by falling back
		// to a lossy UTF-8 conversion rather than propagating an error.
		return string(data)
	}
	return string(decoded)
}
