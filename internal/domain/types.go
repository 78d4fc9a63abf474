package domain

import (
	"fmt"
	"time"
)

// RuleType discriminates the schedule rule union. The set is closed; the
// recurrence package dispatches exhaustively over it.
type RuleType string

const (
	RuleMinutes RuleType = "minutes"
	RuleHours   RuleType = "hours"
	RuleDays    RuleType = "days"
	RuleWeeks   RuleType = "weeks"
	RuleMonths  RuleType = "months"
	RuleCron    RuleType = "cron"
)

// ScheduleRule is the user-authored recurrence configuration attached to a
// trigger node. It is a tagged union over Type; only the fields belonging to
// the active variant are meaningful, the rest stay at their zero value.
//
// Timezone is a fixed signed UTC offset in hours (may be fractional, e.g.
// 5.5 for IST). It is not an IANA zone name and carries no DST adjustment.
type ScheduleRule struct {
	Type RuleType `json:"type"`

	MinutesInterval int `json:"minutes_interval,omitempty"`
	HoursInterval   int `json:"hours_interval,omitempty"`
	DaysInterval    int `json:"days_interval,omitempty"`
	WeeksInterval   int `json:"weeks_interval,omitempty"`
	MonthsInterval  int `json:"months_interval,omitempty"`

	// WeekDays uses Go's numbering: 0 = Sunday .. 6 = Saturday.
	WeekDays []time.Weekday `json:"week_days,omitempty"`

	DayOfMonth int `json:"day_of_month,omitempty"`
	Hour       int `json:"hour,omitempty"`
	Minute     int `json:"minute,omitempty"`

	CronExpr string `json:"cron_expr,omitempty"`

	Timezone float64 `json:"timezone"`
}

// Location returns the fixed-offset location the rule's wall-clock fields are
// expressed in.
func (r ScheduleRule) Location() *time.Location {
	offset := int(r.Timezone * 3600)
	if offset == 0 {
		return time.UTC
	}
	return time.FixedZone(fmt.Sprintf("UTC%+g", r.Timezone), offset)
}

// Trigger is a scheduled workflow trigger node. NextTrigger is the
// authoritative next-fire instant maintained by the refresher; when present it
// always wins over local recurrence arithmetic.
type Trigger struct {
	ID             string       `json:"id"`
	WorkflowID     string       `json:"workflow_id"`
	Name           string       `json:"name"`
	Rule           ScheduleRule `json:"rule"`
	Enabled        bool         `json:"enabled"`
	NextTrigger    *time.Time   `json:"next_trigger,omitempty"`
	LastComputedAt *time.Time   `json:"last_computed_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
