// Package load builds LOAD DATA statements.
//
// Clauses are emitted in a fixed order whatever the order fields are set in:
//
//	LOAD DATA INPATH '<path>'
//	INTO TABLE <table>
//	FORMAT <format>
//	PREFIX '<prefix>'
//	QUERY '<query>'
//	SKIP <n>
//	NOCHECK
//	LIMIT <n>
//	LOCALE '<locale>';
package load

import (
	"strconv"
	"strings"

	"github.com/ajitpratap0/indexima/pkg/errors"
)

// clauseSeparator joins consecutive clauses
const clauseSeparator = " \n"

// Statement holds the clauses of a load statement. Zero values are omitted.
type Statement struct {
	Path   string
	Table  string
	Format string
	// Prefix and Query are free text; single quotes are escaped
	Prefix  string
	Query   string
	Skip    int
	NoCheck bool
	Limit   int
	Locale  string
}

// Validate checks the mandatory clauses
func (s Statement) Validate() error {
	if s.Path == "" {
		return errors.New(errors.ErrorTypeValidation, "load path is required")
	}
	if s.Table == "" {
		return errors.New(errors.ErrorTypeValidation, "target table is required")
	}
	return nil
}

// Build renders the statement, terminated by a semicolon
func (s Statement) Build() string {
	clauses := []string{
		"LOAD DATA INPATH '" + s.Path + "'",
		"INTO TABLE " + s.Table,
	}
	if s.Format != "" {
		clauses = append(clauses, "FORMAT "+s.Format)
	}
	if s.Prefix != "" {
		clauses = append(clauses, "PREFIX '"+Escape(s.Prefix)+"'")
	}
	if s.Query != "" {
		clauses = append(clauses, "QUERY '"+Escape(s.Query)+"'")
	}
	if s.Skip > 0 {
		clauses = append(clauses, "SKIP "+strconv.Itoa(s.Skip))
	}
	if s.NoCheck {
		clauses = append(clauses, "NOCHECK")
	}
	if s.Limit > 0 {
		clauses = append(clauses, "LIMIT "+strconv.Itoa(s.Limit))
	}
	if s.Locale != "" {
		clauses = append(clauses, "LOCALE '"+s.Locale+"'")
	}
	return strings.Join(clauses, clauseSeparator) + ";"
}

// String implements fmt.Stringer
func (s Statement) String() string {
	return s.Build()
}

// Escape replaces every ' with \'
func Escape(text string) string {
	return strings.ReplaceAll(text, "'", `\'`)
}

// Truncate returns the default truncate statement of table
func Truncate(table string) string {
	return "TRUNCATE TABLE " + table
}
