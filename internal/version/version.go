// Package version encodes and decodes compression version identity: version
// ids, artifact filenames, and the legacy pre-part naming scheme.
package version

import (
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/hpungsan/condense/internal/compact"
	"github.com/hpungsan/condense/internal/manifest"
)

// PartVersionID derives the next version id for a part: a per-part sequence
// number, zero-padded, prefixed with the part ("part2_v001"). Deterministic
// given the session's compression history.
func PartVersionID(s *manifest.Session, partNumber int) string {
	seq := len(s.RecordsForPart(partNumber)) + 1
	return fmt.Sprintf("part%d_v%03d", partNumber, seq)
}

// PartVersionFilename encodes (part, level) as the extension-less base
// filename shared by a version's markdown and JSONL artifacts. Unknown levels
// encode as moderate.
func PartVersionFilename(partNumber int, level compact.Level) string {
	return fmt.Sprintf("compressed_part%d_v%d", partNumber, compact.LevelNumber(level))
}

// PartVersion is the decoded identity of a part-version filename.
type PartVersion struct {
	PartNumber       int
	CompressionLevel compact.Level
}

var partVersionRe = regexp.MustCompile(`^compressed_part([0-9]+)_v([0-9]+)$`)

// ParsePartVersionFilename is the inverse of PartVersionFilename. It returns
// nil for non-matching input; callers treat that as "not a part-version
// file", not an error.
func ParsePartVersionFilename(name string) *PartVersion {
	m := partVersionRe.FindStringSubmatch(name)
	if m == nil {
		return nil
	}
	part, err := strconv.Atoi(m[1])
	if err != nil || part < 1 {
		return nil
	}
	num, err := strconv.Atoi(m[2])
	if err != nil {
		return nil
	}
	return &PartVersion{
		PartNumber:       part,
		CompressionLevel: compact.LevelFromNumber(num),
	}
}

// CanRecompressPart reports whether the session may gain a new record for
// (partNumber, level): true iff no existing record holds both. This is the
// duplicate-prevention check performed before any compaction work begins.
func CanRecompressPart(s *manifest.Session, partNumber int, level compact.Level) bool {
	for _, rec := range s.Compressions {
		if rec.PartNumber != nil && *rec.PartNumber == partNumber && rec.CompressionLevel == level {
			return false
		}
	}
	return true
}

// LegacyVersion is the decoded identity of a pre-part-based filename of the
// form "v{id}_{mode}-{preset}_{tokens}k".
type LegacyVersion struct {
	ID      int
	Mode    string
	Preset  string
	TokensK int
}

var legacyRe = regexp.MustCompile(`^v([0-9]+)_([a-z]+)-([a-z0-9]+)_([0-9]+)k$`)

// ParseLegacyFilename decodes a legacy version filename, or returns nil when
// the name does not match.
func ParseLegacyFilename(name string) *LegacyVersion {
	m := legacyRe.FindStringSubmatch(name)
	if m == nil {
		return nil
	}
	id, _ := strconv.Atoi(m[1])
	tokens, _ := strconv.Atoi(m[4])
	return &LegacyVersion{ID: id, Mode: m[2], Preset: m[3], TokensK: tokens}
}

// LegacyFilename encodes the legacy naming scheme. The token count is rounded
// to the nearest thousand and floored at 1 so the name never renders "0k".
func LegacyFilename(id int, mode, preset string, tokens int) string {
	k := int(math.Round(float64(tokens) / 1000))
	if k < 1 {
		k = 1
	}
	return fmt.Sprintf("v%03d_%s-%s_%dk", id, mode, preset, k)
}
