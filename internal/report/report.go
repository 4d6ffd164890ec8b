// Package report renders violation lists for humans and machines.
package report

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/guardlint/guardlint/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Text writes violations in the conventional path:line:col form, one per line,
// followed by a summary count.
func Text(w io.Writer, violations []model.Violation) {
	for _, v := range violations {
		fmt.Fprintf(w, "%s:%d:%d: %s [%s]\n", v.Path, v.Line, v.Col, v.Message, v.Rule)
	}
	switch len(violations) {
	case 0:
		fmt.Fprintln(w, "no violations found")
	case 1:
		fmt.Fprintln(w, "1 violation found")
	default:
		fmt.Fprintf(w, "%d violations found\n", len(violations))
	}
}

// EncodeTOON converts violations into TOON (Token-Oriented Object Notation),
// a compact tabular format suitable for feeding to other tools.
func EncodeTOON(violations []model.Violation) string {
	rows := make([][]string, 0, len(violations))
	for i := range violations {
		v := &violations[i]
		rows = append(rows, []string{
			v.Path,
			fmt.Sprintf("%d", v.Line),
			fmt.Sprintf("%d", v.Col),
			v.Rule,
			v.Message,
		})
	}
	return formatTabular("violations", []string{"file", "line", "col", "rule", "message"}, rows)
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
