// Package sqlgen renders the SQL statement surface of the staged bulk load
// from a coercion rule table.
//
// Every statement that mentions columns is derived from rules.Table order, so
// the staging DDL, the bulk-ingest statement, and the promote INSERT..SELECT
// can never disagree about column order. The dialect is MySQL: the relational
// destination is an Aurora-MySQL-compatible cluster and the bulk-ingest
// statement is Aurora's LOAD DATA FROM S3.
package sqlgen

import (
	"fmt"
	"strings"

	"bulkloader/internal/rules"
)

// DefaultBadRowLimit bounds the diagnostic bad-row sample.
const DefaultBadRowLimit = 50

// Builder renders statements for one staging/target table pair.
type Builder struct {
	// Staging is the ephemeral all-text staging table name.
	Staging string

	// Target is the externally owned, typed destination table name.
	Target string

	// Rules is the coercion rule table; its order is column order.
	Rules rules.Table
}

// Statements is the full statement set for one run, in execution order. The
// transaction controller consumes this value rather than the Builder so tests
// can substitute dialect-neutral statements.
type Statements struct {
	Truncate      string
	SessionTuning string
	CreateStaging string
	Load          string
	CountStaging  string
	Promote       string
	BadRows       string
}

// Statements renders the complete set for the given source object.
func (b Builder) Statements(bucket, key string) Statements {
	return Statements{
		Truncate:      b.Truncate(),
		SessionTuning: b.SessionTuning(),
		CreateStaging: b.CreateStaging(),
		Load:          b.LoadFromS3(bucket, key),
		CountStaging:  b.CountStaging(),
		Promote:       b.Promote(),
		BadRows:       b.BadRows(DefaultBadRowLimit),
	}
}

// Truncate empties the staging table. DELETE (not TRUNCATE) so the statement
// is transactional on engines that treat TRUNCATE as DDL.
func (b Builder) Truncate() string {
	return fmt.Sprintf("DELETE FROM %s;", b.Staging)
}

// SessionTuning disables the per-session execution-time cap. The engine may
// reject the variable; callers treat failure as a logged warning.
func (b Builder) SessionTuning() string {
	return "SET SESSION max_execution_time=0;"
}

// CreateStaging renders the all-text staging DDL in rule-table order.
func (b Builder) CreateStaging() string {
	cols := make([]string, len(b.Rules.Rules))
	for i, r := range b.Rules.Rules {
		cols[i] = r.Name + " TEXT"
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n)", b.Staging, strings.Join(cols, ", "))
}

// LoadFromS3 renders the engine-native bulk ingest of the source object into
// staging: comma-delimited, optionally double-quote-enclosed, newline
// records, header line skipped.
func (b Builder) LoadFromS3(bucket, key string) string {
	return fmt.Sprintf(
		"LOAD DATA FROM S3 's3://%s/%s' INTO TABLE %s "+
			"FIELDS TERMINATED BY ',' OPTIONALLY ENCLOSED BY '\"' LINES TERMINATED BY '\\n' IGNORE 1 LINES;",
		bucket, key, b.Staging)
}

// CountStaging counts staged rows.
func (b Builder) CountStaging() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s;", b.Staging)
}

// Promote renders the set-oriented insert-select that copies every staging
// row into the target, applying each column's coercion expression. A value
// failing its rule becomes NULL; no row is dropped.
func (b Builder) Promote() string {
	cols := make([]string, len(b.Rules.Rules))
	exprs := make([]string, len(b.Rules.Rules))
	for i, r := range b.Rules.Rules {
		cols[i] = r.Name
		exprs[i] = coerceExpr(r)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s",
		b.Target,
		strings.Join(cols, ", "),
		strings.Join(exprs, ", "),
		b.Staging)
}

// BadRows renders the bounded diagnostic selection of staging rows failing
// the numeric-id rule or the currency rule, projecting the identifier and the
// two offending raw columns.
func (b Builder) BadRows(limit int) string {
	if limit <= 0 {
		limit = DefaultBadRowLimit
	}
	numID, _ := b.Rules.Find(b.Rules.NumericIDColumn)
	cur, _ := b.Rules.Find(b.Rules.CurrencyColumn)
	return fmt.Sprintf(
		"SELECT %s, %s, %s FROM %s WHERE (NOT (%s)) OR (NOT (%s)) LIMIT %d;",
		b.Rules.IDColumn, numID.Name, cur.Name,
		b.Staging,
		validExpr(numID), validExpr(cur),
		limit)
}

// coerceExpr renders the typed SELECT expression for one rule.
func coerceExpr(r rules.Rule) string {
	trimmed := fmt.Sprintf("TRIM(%s)", r.Name)

	switch r.Kind {
	case rules.Integer:
		return fmt.Sprintf(
			"(CASE WHEN %s REGEXP '%s' THEN CAST(%s AS SIGNED) ELSE NULL END)",
			trimmed, r.Pattern, trimmed)

	case rules.Decimal:
		return fmt.Sprintf(
			"(CASE WHEN %s REGEXP '%s' THEN CAST(%s AS DECIMAL(%d,%d)) ELSE NULL END)",
			trimmed, r.Pattern, trimmed, r.Precision, r.Scale)

	case rules.Currency:
		stripped := stripMoneyExpr(r.Name)
		return fmt.Sprintf(
			"(CASE WHEN %s REGEXP '%s' THEN CAST(%s AS DECIMAL(%d,%d)) ELSE NULL END)",
			stripped, r.Pattern, stripped, r.Precision, r.Scale)

	case rules.Date:
		var sb strings.Builder
		fmt.Fprintf(&sb, "(CASE WHEN %s = '' THEN NULL ", trimmed)
		fmt.Fprintf(&sb, "WHEN UPPER(%s) IN ('N/A','NA','NULL') THEN NULL ", trimmed)
		for _, f := range dateFormats(r) {
			fmt.Fprintf(&sb, "WHEN %s REGEXP '%s' THEN STR_TO_DATE(%s, '%s') ", trimmed, f.Pattern, trimmed, f.MySQL)
		}
		sb.WriteString("ELSE NULL END)")
		return sb.String()

	default:
		return trimmed
	}
}

// validExpr renders the boolean validation predicate for a rule, used by the
// bad-row sample's WHERE clause. Only pattern-validated kinds have one; other
// kinds are always valid.
func validExpr(r rules.Rule) string {
	switch r.Kind {
	case rules.Integer, rules.Decimal:
		return fmt.Sprintf("TRIM(%s) REGEXP '%s'", r.Name, r.Pattern)
	case rules.Currency:
		return fmt.Sprintf("%s REGEXP '%s'", stripMoneyExpr(r.Name), r.Pattern)
	default:
		return "TRUE"
	}
}

// stripMoneyExpr removes literal "$" and "," from the trimmed column, in that
// order, matching the currency rule's in-process stripping.
func stripMoneyExpr(col string) string {
	return fmt.Sprintf("REPLACE(REPLACE(TRIM(%s), '\\$', ''), ',', '')", col)
}

func dateFormats(r rules.Rule) []rules.DateFormat {
	if r.Formats != nil {
		return r.Formats
	}
	return rules.DateFormats
}
