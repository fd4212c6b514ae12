package ledger

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/gosuda/anchord/internal/domain"
)

// PlaceholderTxRef is the all-zero reference returned when no live anchor exists.
var PlaceholderTxRef = "0x" + strings.Repeat("0", domain.DigestHexLen) //nolint:gochecknoglobals // constant-like

// NormalizeDigest maps a digest onto exactly 64 hex characters: an optional 0x
// prefix is stripped, short input is right-padded with '0', long input is truncated.
// The mapping is lossy; callers validate digests with domain.ParseDigest first.
func NormalizeDigest(digest string) string {
	d := strings.TrimPrefix(strings.TrimPrefix(digest, "0x"), "0X")
	if len(d) < domain.DigestHexLen {
		d += strings.Repeat("0", domain.DigestHexLen-len(d))
	}
	return strings.ToLower(d[:domain.DigestHexLen])
}

// digestWord returns the bytes32 form of a normalized digest.
func digestWord(digest string) ([32]byte, error) {
	var word [32]byte
	raw, err := hex.DecodeString(NormalizeDigest(digest))
	if err != nil {
		return word, fmt.Errorf("ledger.digestWord: %w", domain.ErrValidation)
	}
	copy(word[:], raw)
	return word, nil
}
