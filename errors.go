package timer

import "errors"

var ErrAlreadyArmed = errors.New("timer: arm called on an already-armed timer")
var ErrInvalidPeriod = errors.New("timer: period must not be negative")
var ErrInvalidCron = errors.New("timer: invalid cron expression")
