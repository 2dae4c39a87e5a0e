// Package leads handles inbound lead submissions and the merging of
// CSV-derived lead lists. Lists from different sources rarely agree on how a
// street address is written, so records are joined on a normalized address
// key rather than the raw string.
package leads

import "strings"

// abbreviations maps long-form street words to their canonical short form.
// Canonical forms are absent from the map keys so normalization is idempotent.
var abbreviations = map[string]string{
	"street":    "st",
	"avenue":    "ave",
	"road":      "rd",
	"drive":     "dr",
	"lane":      "ln",
	"court":     "ct",
	"boulevard": "blvd",
	"place":     "pl",
	"circle":    "cir",
	"trail":     "trl",
	"parkway":   "pkwy",
	"highway":   "hwy",
	"terrace":   "ter",
	"suite":     "ste",
	"apartment": "apt",
	"north":     "n",
	"south":     "s",
	"east":      "e",
	"west":      "w",
	"northeast": "ne",
	"northwest": "nw",
	"southeast": "se",
	"southwest": "sw",
}

// AddressKey reduces a street address to a stable dedup key: lowercase,
// punctuation stripped, whitespace collapsed, and common street words and
// directionals contracted to their postal abbreviation. Applying it to its
// own output returns the same key.
func AddressKey(address string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(address) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	fields := strings.Fields(b.String())
	for i, f := range fields {
		if short, ok := abbreviations[f]; ok {
			fields[i] = short
		}
	}
	return strings.Join(fields, " ")
}
