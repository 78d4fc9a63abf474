package recurrence

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// CronDelegate evaluates a cron expression against a reference instant. It is
// injected so the rest of the engine can be tested without trusting any
// particular cron implementation.
type CronDelegate interface {
	Next(expr string, from time.Time) (time.Time, error)
}

type standardCron struct{}

// NewCronDelegate returns the default delegate backed by robfig/cron's
// standard five-field parser.
func NewCronDelegate() CronDelegate { return standardCron{} }

func (standardCron) Next(expr string, from time.Time) (next time.Time, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cron evaluate %q: %v", expr, r)
		}
	}()
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from), nil
}

// ValidateCronExpression reports whether expr parses as a standard cron
// expression.
func ValidateCronExpression(expr string) error {
	_, err := cron.ParseStandard(expr)
	return err
}
