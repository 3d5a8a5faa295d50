// Package pathfs implements the ISOBUS path grammar from spec §4.4:
// volumes, the `~` manufacturer-specific directory, `.`/`..`
// normalization against a per-client current directory, and
// translation to a host filesystem path.
package pathfs

import (
	"strings"

	"github.com/isobusfs/isobusfs/internal/isoerrors"
)

// Separator is the ISOBUS path segment separator. Go source needs two
// characters ("\\") to write one backslash rune.
const Separator = '\\'

// ErrMalformedPath is returned for every "reject, do not guess" case in
// spec §4.4: empty volume, more than two leading backslashes, tilde
// used as a non-root marker, or a forbidden character in a segment.
var ErrMalformedPath = isoerrors.New(isoerrors.KindSession, isoerrors.CodeInvalidSourceName, "malformed isobus path")

func isForbidden(r rune) bool {
	switch {
	case r <= 0x1F:
		return true
	case r >= 0x7F && r <= 0x9F:
		return true
	case r == '/', r == '*', r == '?', r == '<', r == '>', r == '|':
		return true
	default:
		return false
	}
}

func validateSegment(seg string) error {
	for _, r := range seg {
		if isForbidden(r) {
			return ErrMalformedPath
		}
	}
	return nil
}

// leadingBackslashRun counts consecutive Separator runes at the start
// of s.
func leadingBackslashRun(s string) int {
	n := 0
	for n < len(s) && s[n] == Separator {
		n++
	}
	return n
}

// VolumeOf returns the volume token of an absolute ISOBUS path
// (`\\<vol>...`), or "" if p is not absolute.
func VolumeOf(p string) string {
	if leadingBackslashRun(p) != 2 {
		return ""
	}
	rest := p[2:]
	if i := strings.IndexByte(rest, Separator); i >= 0 {
		return rest[:i]
	}
	return rest
}

// popSegment removes the last path segment from working, never
// crossing above the volume root `\\<vol>\` (spec §4.4, §8 "`..` bound").
func popSegment(working string) string {
	vol := VolumeOf(working)
	root := string(Separator) + string(Separator) + vol
	if working == root || len(working) <= len(root) {
		return root
	}
	i := strings.LastIndexByte(working, Separator)
	if i <= len(root) {
		return root
	}
	return working[:i]
}

func appendSegment(working, seg string) string {
	return working + string(Separator) + seg
}

// Normalize resolves input against the absolute current directory cur,
// per the rules in spec §4.4. mfsDir is the manufacturer-specific
// directory name used to expand a leading `~\`.
func Normalize(cur, input, mfsDir string) (string, error) {
	if cur == "" {
		cur = string(Separator) + string(Separator)
	}

	var working string
	var remainder string

	lbs := leadingBackslashRun(input)
	switch {
	case lbs >= 3:
		return "", ErrMalformedPath
	case lbs == 2:
		rest := input[2:]
		var vol string
		if i := strings.IndexByte(rest, Separator); i >= 0 {
			vol = rest[:i]
			remainder = rest[i+1:]
		} else {
			vol = rest
			remainder = ""
		}
		if vol == "" {
			return "", ErrMalformedPath
		}
		if vol == "~" {
			return "", ErrMalformedPath
		}
		if err := validateSegment(vol); err != nil {
			return "", err
		}
		working = string(Separator) + string(Separator) + vol
	case lbs == 1:
		if len(input) >= 2 && input[1] == '~' && (len(input) == 2 || input[2] == Separator) {
			return "", ErrMalformedPath
		}
		working = cur
		remainder = input[1:]
	default: // lbs == 0
		if strings.HasPrefix(input, "~"+string(Separator)) {
			vol := VolumeOf(cur)
			working = string(Separator) + string(Separator) + vol + string(Separator) + mfsDir
			remainder = input[2:]
		} else {
			working = cur
			remainder = input
		}
	}

	for _, seg := range strings.Split(remainder, string(Separator)) {
		if seg == "" {
			continue
		}
		if err := validateSegment(seg); err != nil {
			return "", err
		}
		switch seg {
		case ".":
			// stay
		case "..":
			working = popSegment(working)
		default:
			working = appendSegment(working, seg)
		}
	}

	return working, nil
}
