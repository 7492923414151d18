package membership

import "time"

// Query is a typed selection over client memberships. Nil fields do not filter.
type Query struct {
	Status        *Status
	EndDateFrom   *time.Time // inclusive
	EndDateTo     *time.Time // inclusive
	EndDateBefore *time.Time // exclusive
}

// Filter narrows a Query.
type Filter func(q *Query)

// NewQuery composes filters into a Query.
func NewQuery(filters ...Filter) Query {
	var q Query
	for _, f := range filters {
		f(&q)
	}
	return q
}

func StatusEquals(s Status) Filter {
	return func(q *Query) { q.Status = &s }
}

// EndDateBetween selects end dates in [from, to].
func EndDateBetween(from, to time.Time) Filter {
	return func(q *Query) {
		q.EndDateFrom = &from
		q.EndDateTo = &to
	}
}

// EndDateBefore selects end dates strictly before t.
func EndDateBefore(t time.Time) Filter {
	return func(q *Query) { q.EndDateBefore = &t }
}

// ReminderCandidatesQuery selects active memberships ending within [now, now+window].
func ReminderCandidatesQuery(now time.Time, window time.Duration) Query {
	return NewQuery(StatusEquals(StatusActive), EndDateBetween(now, now.Add(window)))
}

// LapsedMembershipsQuery selects active memberships whose end date has passed.
func LapsedMembershipsQuery(now time.Time) Query {
	return NewQuery(StatusEquals(StatusActive), EndDateBefore(now))
}

// Matches evaluates the query against a single client.
// A client without an end date never matches a query that filters on it.
func (q Query) Matches(c *Client) bool {
	if q.Status != nil && c.Status != *q.Status {
		return false
	}
	if q.EndDateFrom == nil && q.EndDateTo == nil && q.EndDateBefore == nil {
		return true
	}
	if !c.EndDate.Valid {
		return false
	}
	end := c.EndDate.Time
	if q.EndDateFrom != nil && end.Before(*q.EndDateFrom) {
		return false
	}
	if q.EndDateTo != nil && end.After(*q.EndDateTo) {
		return false
	}
	if q.EndDateBefore != nil && !end.Before(*q.EndDateBefore) {
		return false
	}
	return true
}
