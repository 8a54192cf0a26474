package notify

import (
	"fmt"
	"strconv"
	"strings"
)

// Callback actions attached to inline buttons.
const (
	ActionDone           = "done"
	ActionDeleteHabit    = "del"
	ActionDeleteNote     = "delnote"
	ActionScheduleDay    = "schedule_day"
	ActionDelScheduleDay = "delschedule_day"
)

// EncodeAction builds callback data in the form "action:arg".
func EncodeAction(action string, arg int) string {
	return action + ":" + strconv.Itoa(arg)
}

// ParseAction splits callback data produced by EncodeAction.
func ParseAction(data string) (string, int, error) {
	action, raw, ok := strings.Cut(data, ":")
	if !ok || action == "" {
		return "", 0, fmt.Errorf("malformed callback data %q", data)
	}
	arg, err := strconv.Atoi(raw)
	if err != nil {
		return "", 0, fmt.Errorf("malformed callback argument %q: %w", raw, err)
	}
	return action, arg, nil
}
