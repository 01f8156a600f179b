// Package render turns a ranked mirror list into its textual outputs:
// the pacman mirrorlist file and the country report.
package render

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/manu3618/reflecto/internal/mirror"
)

// Mirrorlist renders the mirrorlist file content: a banner, an optional
// provenance line, then one Server line per mirror in list order,
// truncated to at most limit entries.
func Mirrorlist(l mirror.List, limit int) string {
	lines := []string{
		"# Arch Linux mirror list generated by reflecto",
		"#",
	}
	if l.Source != "" {
		lines = append(lines, "# from: \t"+l.Source)
	}
	lines = append(lines, "")

	for _, m := range l.Truncate(limit).Mirrors {
		lines = append(lines, "Server = "+m.URL+"$repo/os/$arch")
	}
	return strings.Join(lines, "\n")
}

type countryCount struct {
	country string
	code    string
	count   int
}

// Countries renders one line per distinct (country, code) pair with its
// mirror count, columns aligned to the longest country name and sorted
// by (country, code) ascending.
func Countries(l mirror.List) string {
	counts := make(map[[2]string]int)
	for _, m := range l.Mirrors {
		if m.Country == nil || m.CountryCode == nil {
			continue
		}
		counts[[2]string{*m.Country, *m.CountryCode}]++
	}

	rows := make([]countryCount, 0, len(counts))
	for key, n := range counts {
		rows = append(rows, countryCount{country: key[0], code: key[1], count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].country != rows[j].country {
			return rows[i].country < rows[j].country
		}
		return rows[i].code < rows[j].code
	})

	// minimal width: length of the word "Country"
	longest := len("Country")
	for _, r := range rows {
		if n := utf8.RuneCountInString(r.country); n > longest {
			longest = n
		}
	}

	lines := []string{
		"Country" + strings.Repeat(" ", longest-len("Country")) + " Code Count",
		strings.Repeat("-", longest) + " ---- ----",
	}
	for _, r := range rows {
		if r.country == "" {
			continue
		}
		lines = append(lines, countryLine(r, longest))
	}
	return strings.Join(lines, "\n")
}

func countryLine(r countryCount, width int) string {
	pad := width - utf8.RuneCountInString(r.country)
	if pad < 0 {
		pad = 0
	}
	return fmt.Sprintf("%s%s %4s %4d", r.country, strings.Repeat(" ", pad), r.code, r.count)
}
