// Package analysis ranks member reports so the most harmful ones are
// reviewed first.
package analysis

import (
	"sort"
	"strings"

	"zawaj/backend/internal/config"

	"gorm.io/gorm/clause"
)

// Severity returns the weight of a report reason. Unknown reasons weigh 0.
func Severity(reason string) int {
	return config.ReportSeverity[reason]
}

// SeverityOrder is an ORDER BY ranking rows by the severity of the reason
// stored in column, most severe first. Rows of equal severity follow
// tieBreak, which is plain ORDER BY SQL such as "reports.created_at ASC".
func SeverityOrder(column, tieBreak string) clause.OrderBy {
	reasons := make([]string, 0, len(config.ReportSeverity))
	for reason := range config.ReportSeverity {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)

	var sql strings.Builder
	vars := make([]any, 0, 2*len(reasons))
	sql.WriteString("CASE " + column)
	for _, reason := range reasons {
		sql.WriteString(" WHEN ? THEN ?")
		vars = append(vars, reason, config.ReportSeverity[reason])
	}
	sql.WriteString(" ELSE 0 END DESC, " + tieBreak)

	return clause.OrderBy{Expression: clause.Expr{SQL: sql.String(), Vars: vars}}
}
