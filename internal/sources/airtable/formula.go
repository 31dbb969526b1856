package airtable

import (
	"fmt"
	"strings"
)

// blankFormula matches records whose field is empty. Concatenating with ''
// turns a null into the empty string while a numeric 0 becomes "0", so zero
// counts stay excluded. NOT({field}) would match both.
func blankFormula(field string) string {
	return fmt.Sprintf("LEN(%s&'')=0", fieldRef(field))
}

// equalsFormula matches records whose field equals value.
func equalsFormula(field, value string) string {
	return fmt.Sprintf("%s='%s'", fieldRef(field), quote(value))
}

// and joins formulas with AND, skipping empty terms.
func and(terms ...string) string {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		if t != "" {
			parts = append(parts, t)
		}
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return "AND(" + strings.Join(parts, ",") + ")"
}

func fieldRef(field string) string {
	return "{" + strings.ReplaceAll(field, "}", `\}`) + "}"
}

var quoter = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func quote(value string) string {
	return quoter.Replace(value)
}
