package recurrence

import (
	"fmt"
	"strings"
	"time"

	"nexthint/internal/domain"
)

// Resolver computes the next fire instant for a schedule rule. It is pure and
// stateless: identical inputs (including the captured now) yield identical
// output, so concurrent calls need no synchronization.
type Resolver struct {
	cron CronDelegate
}

func NewResolver(cron CronDelegate) *Resolver {
	if cron == nil {
		cron = NewCronDelegate()
	}
	return &Resolver{cron: cron}
}

// ComputeNext resolves the next fire instant for rule.
//
// A non-empty override that parses as RFC 3339 is the backend-computed
// authoritative value and wins unconditionally; local arithmetic never
// overrides it. Otherwise the matching strategy runs against now expressed in
// the rule's fixed-offset zone. Unrecognized rule types, out-of-range fields,
// and cron failures all resolve to the comma-ok false result.
func (r *Resolver) ComputeNext(rule domain.ScheduleRule, override string, now time.Time) (time.Time, bool) {
	if override != "" {
		if t, err := time.Parse(time.RFC3339, override); err == nil {
			return t, true
		}
	}

	zoneNow := now.In(rule.Location())

	switch rule.Type {
	case domain.RuleMinutes:
		return nextMinutes(rule, zoneNow)
	case domain.RuleHours:
		return nextHours(rule, zoneNow)
	case domain.RuleDays:
		return nextDays(rule, zoneNow)
	case domain.RuleWeeks:
		return nextWeeks(rule, zoneNow)
	case domain.RuleMonths:
		return nextMonths(rule, zoneNow)
	case domain.RuleCron:
		expr := strings.TrimSpace(rule.CronExpr)
		if expr == "" {
			return time.Time{}, false
		}
		next, err := r.cron.Next(expr, zoneNow)
		if err != nil || next.IsZero() {
			return time.Time{}, false
		}
		return next, true
	default:
		return time.Time{}, false
	}
}

// Hint is the resolved next fire plus its display form, as consumed by the
// trigger card.
type Hint struct {
	Next    *time.Time `json:"next"`
	Display string     `json:"display"`
}

// Hint resolves rule and formats the result in one step, keeping the instant
// and the rendered string on the same reference now.
func (r *Resolver) Hint(rule domain.ScheduleRule, override string, now time.Time) Hint {
	next, ok := r.ComputeNext(rule, override, now)
	if !ok {
		return Hint{Display: FormatNext(time.Time{}, now)}
	}
	return Hint{Next: &next, Display: FormatNext(next, now)}
}

// Validate reports why a rule is unusable. The resolver itself degrades
// silently; this exists for the API layer, which rejects bad configurations
// with a message instead of persisting a rule that will never resolve.
func Validate(rule domain.ScheduleRule) error {
	switch rule.Type {
	case domain.RuleMinutes:
		if rule.MinutesInterval < 1 || rule.MinutesInterval > 59 {
			return fmt.Errorf("minutes_interval must be 1-59, got %d", rule.MinutesInterval)
		}
	case domain.RuleHours:
		if rule.HoursInterval < 1 || rule.HoursInterval > 23 {
			return fmt.Errorf("hours_interval must be 1-23, got %d", rule.HoursInterval)
		}
		if rule.Minute < 0 || rule.Minute > 59 {
			return fmt.Errorf("minute must be 0-59, got %d", rule.Minute)
		}
	case domain.RuleDays:
		if rule.DaysInterval < 1 || rule.DaysInterval > 31 {
			return fmt.Errorf("days_interval must be 1-31, got %d", rule.DaysInterval)
		}
		if !validClock(rule.Hour, rule.Minute) {
			return fmt.Errorf("invalid time of day %02d:%02d", rule.Hour, rule.Minute)
		}
	case domain.RuleWeeks:
		if rule.WeeksInterval < 1 || rule.WeeksInterval > 52 {
			return fmt.Errorf("weeks_interval must be 1-52, got %d", rule.WeeksInterval)
		}
		if len(rule.WeekDays) == 0 {
			return fmt.Errorf("week_days must not be empty")
		}
		for _, d := range rule.WeekDays {
			if d < time.Sunday || d > time.Saturday {
				return fmt.Errorf("invalid weekday %d", d)
			}
		}
		if !validClock(rule.Hour, rule.Minute) {
			return fmt.Errorf("invalid time of day %02d:%02d", rule.Hour, rule.Minute)
		}
	case domain.RuleMonths:
		if rule.MonthsInterval < 1 || rule.MonthsInterval > 24 {
			return fmt.Errorf("months_interval must be 1-24, got %d", rule.MonthsInterval)
		}
		if rule.DayOfMonth < 1 || rule.DayOfMonth > 31 {
			return fmt.Errorf("day_of_month must be 1-31, got %d", rule.DayOfMonth)
		}
		if !validClock(rule.Hour, rule.Minute) {
			return fmt.Errorf("invalid time of day %02d:%02d", rule.Hour, rule.Minute)
		}
	case domain.RuleCron:
		if strings.TrimSpace(rule.CronExpr) == "" {
			return fmt.Errorf("cron_expr is required")
		}
		if err := ValidateCronExpression(rule.CronExpr); err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
	case "":
		return fmt.Errorf("rule type is required")
	default:
		return fmt.Errorf("unknown rule type %q", rule.Type)
	}
	return nil
}
