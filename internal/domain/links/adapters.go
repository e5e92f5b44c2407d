package links

import (
	"regexp"
	"strconv"
)

// DefaultScheme is the internal URI scheme of the content store host.
const DefaultScheme = "obsidian"

// pathChar is one character of a bare path.
const pathChar = `[\w./-]`

// Extractor maps a raw match to a Match. loc is the submatch index slice
// of regexp.FindAllStringSubmatchIndex. Returning false drops the
// candidate.
type Extractor func(text string, loc []int) (Match, bool)

// Adapter is a named link rule.
type Adapter struct {
	Name    string
	Kind    Kind
	Pattern *regexp.Regexp
	Extract Extractor
}

// DefaultAdapters returns the built-in rules for DefaultScheme.
func DefaultAdapters() []Adapter {
	return NewAdapters(DefaultScheme)
}

// NewAdapters returns the built-in rules in precedence order. The order is
// part of the contract: at identical start offsets the earlier rule wins.
func NewAdapters(scheme string) []Adapter {
	return []Adapter{
		{
			Name:    "http-url",
			Kind:    KindURL,
			Pattern: regexp.MustCompile(`https?://[^\s<>"')\]]+`),
			Extract: wholeMatch,
		},
		{
			Name:    "internal-uri",
			Kind:    KindInternal,
			Pattern: regexp.MustCompile(regexp.QuoteMeta(scheme) + `://[^\s<>"')\]]+`),
			Extract: wholeMatch,
		},
		{
			Name:    "wikilink",
			Kind:    KindInternal,
			Pattern: regexp.MustCompile(`\[\[([^\]|]+)(?:\|[^\]]+)?\]\]`),
			Extract: groupValue(1, -1, -1),
		},
		{
			Name:    "email",
			Kind:    KindEmail,
			Pattern: regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
			Extract: wholeMatch,
		},
		{
			Name:    "file:line:col",
			Kind:    KindFile,
			Pattern: regexp.MustCompile(`(` + pathChar + `+\.\w+):(\d+)(?::(\d+))?`),
			Extract: groupValue(1, 2, 3),
		},
		{
			Name:    "paren-position",
			Kind:    KindFile,
			Pattern: regexp.MustCompile(`(` + pathChar + `+\.\w+)\((\d+),(\d+)\)`),
			Extract: groupValue(1, 2, 3),
		},
		{
			Name:    "python-traceback",
			Kind:    KindFile,
			Pattern: regexp.MustCompile(`File "([^"]+)", line (\d+)`),
			Extract: groupValue(1, 2, -1),
		},
		{
			Name:    "stack-frame",
			Kind:    KindFile,
			Pattern: regexp.MustCompile(`at (?:\S+ \()?([/\\][\w./\\-]+):(\d+):(\d+)\)?`),
			Extract: skipPrefix(len("at "), groupValue(1, 2, 3)),
		},
		{
			Name:    "git-status",
			Kind:    KindFile,
			Pattern: regexp.MustCompile(`(?:modified|deleted|new file):\s+(\S+)`),
			Extract: fromGroup(1),
		},
		{
			Name:    "relative",
			Kind:    KindFile,
			Pattern: regexp.MustCompile(`(\.\.?/` + pathChar + `+)`),
			Extract: groupValue(1, -1, -1),
		},
		{
			Name:    "absolute-unix",
			Kind:    KindFile,
			Pattern: regexp.MustCompile(`(/(?:Users|home|tmp|var|etc)/` + pathChar + `+\.\w+)`),
			Extract: groupValue(1, -1, -1),
		},
		{
			Name:    "windows",
			Kind:    KindFile,
			Pattern: regexp.MustCompile(`([A-Za-z]:\\[\w.\\-]+)`),
			Extract: groupValue(1, -1, -1),
		},
	}
}

// group returns submatch i, or false when it did not participate.
func group(text string, loc []int, i int) (string, bool) {
	if 2*i+1 >= len(loc) || loc[2*i] < 0 {
		return "", false
	}
	return text[loc[2*i]:loc[2*i+1]], true
}

func wholeMatch(text string, loc []int) (Match, bool) {
	return Match{Value: text[loc[0]:loc[1]], Start: loc[0], End: loc[1]}, true
}

// groupValue takes the value from group v and optional line and column
// numbers from groups l and c (-1 for none). The span is the whole match.
// A number that does not parse drops the candidate.
func groupValue(v, l, c int) Extractor {
	return func(text string, loc []int) (Match, bool) {
		value, ok := group(text, loc, v)
		if !ok {
			return Match{}, false
		}
		m := Match{Value: value, Start: loc[0], End: loc[1]}
		if l >= 0 {
			s, ok := group(text, loc, l)
			if !ok {
				return Match{}, false
			}
			n, err := strconv.Atoi(s)
			if err != nil {
				return Match{}, false
			}
			m.Line = n
		}
		if c >= 0 {
			if s, ok := group(text, loc, c); ok {
				n, err := strconv.Atoi(s)
				if err != nil {
					return Match{}, false
				}
				m.Column = n
			}
		}
		return m, true
	}
}

// skipPrefix moves the span start past a literal prefix.
func skipPrefix(n int, next Extractor) Extractor {
	return func(text string, loc []int) (Match, bool) {
		m, ok := next(text, loc)
		if ok {
			m.Start += n
		}
		return m, ok
	}
}

// fromGroup starts the span at group i and ends it with the whole match.
func fromGroup(i int) Extractor {
	return func(text string, loc []int) (Match, bool) {
		value, ok := group(text, loc, i)
		if !ok {
			return Match{}, false
		}
		return Match{Value: value, Start: loc[2*i], End: loc[1]}, true
	}
}
