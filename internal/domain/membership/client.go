package membership

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidMembership marks a client record whose membership fields cannot be processed.
var ErrInvalidMembership = errors.New("invalid membership record")

// Membership is the subdocument embedded on a client describing the current plan.
// Corresponds to the membership_* columns of the 'clients' table.
type Membership struct {
	PlanType       string       `db:"membership_plan_type"`
	StartDate      sql.NullTime `db:"membership_start_date"`
	EndDate        sql.NullTime `db:"membership_end_date"`
	Status         Status       `db:"membership_status"`
	LastNotifiedAt sql.NullTime `db:"membership_last_notified_at"` // last renewal reminder sent
}

// Client is a gym member together with their current membership.
type Client struct {
	ID        int64          `db:"id"`
	FirstName string         `db:"first_name"`
	LastName  sql.NullString `db:"last_name"`
	Email     string         `db:"email"`
	Membership
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// FullName joins first and last name, skipping an empty last name.
func (c *Client) FullName() string {
	name := strings.TrimSpace(c.FirstName)
	if c.LastName.Valid && strings.TrimSpace(c.LastName.String) != "" {
		name += " " + strings.TrimSpace(c.LastName.String)
	}
	return name
}

// Validate checks the fields the renewal sweep depends on.
func (c *Client) Validate() error {
	if strings.TrimSpace(c.Email) == "" {
		return fmt.Errorf("%w: client %d has no email", ErrInvalidMembership, c.ID)
	}
	if !c.Status.IsKnown() {
		return fmt.Errorf("%w: client %d has unknown status %q", ErrInvalidMembership, c.ID, c.Status)
	}
	if !c.EndDate.Valid || c.EndDate.Time.IsZero() {
		return fmt.Errorf("%w: client %d has no end date", ErrInvalidMembership, c.ID)
	}
	if c.StartDate.Valid && c.EndDate.Time.Before(c.StartDate.Time) {
		return fmt.Errorf("%w: client %d end date %s is before start date %s", ErrInvalidMembership, c.ID,
			c.EndDate.Time.Format(time.RFC3339), c.StartDate.Time.Format(time.RFC3339))
	}
	return nil
}
