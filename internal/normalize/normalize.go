// Package normalize reduces source fragments to a canonical form used for
// fingerprinting and similarity comparison.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Options controls normalization.
type Options struct {
	// StrictStarComments only drops "*" lines that look like block comment
	// continuations ("*", "* text", "*/"). The default drops every line
	// starting with "*", which also removes expressions such as "*p = 1".
	// Flipping this changes fingerprints for existing stores.
	StrictStarComments bool
}

// DefaultOptions returns the compatibility settings.
func DefaultOptions() Options {
	return Options{}
}

var commentPrefixes = []string{"#", "//", "/*"}

// Normalize trims every line, drops blank and comment lines, collapses
// internal whitespace and rejoins the surviving lines with "\n".
func Normalize(content string, opts Options) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || isComment(line, opts) {
			continue
		}
		out = append(out, strings.Join(strings.Fields(line), " "))
	}

	return strings.Join(out, "\n")
}

func isComment(line string, opts Options) bool {
	for _, p := range commentPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	if !strings.HasPrefix(line, "*") {
		return false
	}
	if !opts.StrictStarComments {
		return true
	}
	return line == "*" || strings.HasPrefix(line, "* ") || strings.HasPrefix(line, "*\t") || strings.HasPrefix(line, "*/")
}

// Tokens returns the distinct whitespace-delimited tokens of the normalized
// content as a set.
func Tokens(content string, opts Options) map[string]struct{} {
	fields := strings.Fields(Normalize(content, opts))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Fingerprint returns the hex SHA-256 of the normalized content, the gene
// type and the lowercased name joined with "::".
func Fingerprint(content, geneType, name string, opts Options) string {
	composite := Normalize(content, opts) + "::" + geneType + "::" + strings.ToLower(name)
	sum := sha256.Sum256([]byte(composite))
	return hex.EncodeToString(sum[:])
}

// Short truncates a hex digest to the 8 characters used for display.
func Short(hash string) string {
	if len(hash) <= 8 {
		return hash
	}
	return hash[:8]
}

// ContentHash is the display hash of raw, un-normalized content.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return Short(hex.EncodeToString(sum[:]))
}
