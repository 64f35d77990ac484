package db

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"
)

// Squad document IDs are minted here so every store backend agrees on the
// format: squad_<unix-millis>_<random-hex>.
func newSquadID() string {
	buf := make([]byte, 5)
	rand.Read(buf)
	return fmt.Sprintf("squad_%d_%s", time.Now().UTC().UnixMilli(), hex.EncodeToString(buf))
}

// legacySquadIDPattern matches the historical <unix-millis>-<random> format
// that predates the squad_ prefix.
var legacySquadIDPattern = regexp.MustCompile(`^(\d{10,16})-([0-9a-z]+)$`)

// normalizeLegacySquadID converts a legacy squad ID into the canonical
// format. It returns the input unchanged, and false, when the ID is not in
// the legacy format. New IDs are only ever minted in the canonical format;
// this exists so documents created before the migration stay reachable.
func normalizeLegacySquadID(id string) (string, bool) {
	m := legacySquadIDPattern.FindStringSubmatch(id)
	if m == nil {
		return id, false
	}
	return "squad_" + m[1] + "_" + m[2], true
}
