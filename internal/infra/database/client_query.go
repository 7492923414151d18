package database

import (
	"fmt"
	"strings"

	"membership_renewal_service/internal/domain/membership"
)

const selectClientColumns = `SELECT id, first_name, last_name, email,
               COALESCE(membership_plan_type, '') AS membership_plan_type,
               membership_start_date, membership_end_date, membership_status,
               membership_last_notified_at, created_at, updated_at
               FROM clients`

// buildFindQuery renders a membership.Query as a parameterised SELECT.
func buildFindQuery(q membership.Query) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if q.Status != nil {
		add("membership_status = $%d", string(*q.Status))
	}
	if q.EndDateFrom != nil {
		add("membership_end_date >= $%d", *q.EndDateFrom)
	}
	if q.EndDateTo != nil {
		add("membership_end_date <= $%d", *q.EndDateTo)
	}
	if q.EndDateBefore != nil {
		add("membership_end_date < $%d", *q.EndDateBefore)
	}

	var b strings.Builder
	b.WriteString(selectClientColumns)
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY membership_end_date ASC, id ASC")
	return b.String(), args
}
