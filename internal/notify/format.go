package notify

import (
	"fmt"
	"html"
	"strings"

	"habitbot/internal/model"
)

// DayNames are short weekday labels indexed 0 = Monday.
var DayNames = [model.DaysPerWeek]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// DayName returns the label for a Monday-based day index, or "?" when out of range.
func DayName(day int) string {
	if !model.ValidDay(day) {
		return "?"
	}
	return DayNames[day]
}

// FormatDigest builds the morning message: today's schedule followed by the habit list.
// scheduleText is nil when nothing is planned for the day.
func FormatDigest(day int, scheduleText *string, habits []model.Habit) Message {
	var b strings.Builder
	b.WriteString("🌅 <b>Good morning!</b>\n\n")

	fmt.Fprintf(&b, "<b>Today's schedule (%s):</b>\n", DayName(day))
	if scheduleText != nil && strings.TrimSpace(*scheduleText) != "" {
		b.WriteString(html.EscapeString(*scheduleText))
	} else {
		b.WriteString("- empty. Use /editschedule to add one")
	}
	b.WriteString("\n\n")

	if len(habits) == 0 {
		b.WriteString("You have no habits yet. Use /addhabit to add one.")
		return Message{Text: b.String()}
	}

	b.WriteString("<b>Habits for today:</b>")
	for _, h := range habits {
		fmt.Fprintf(&b, "\n%d. %s", h.ID, html.EscapeString(h.Name))
	}
	return Message{Text: b.String(), Keyboard: HabitActions(habits)}
}

// FormatNotesReminder lists every note. ok is false when there is nothing to remind about.
func FormatNotesReminder(notes []model.Note) (Message, bool) {
	if len(notes) == 0 {
		return Message{}, false
	}
	parts := make([]string, 0, len(notes)+1)
	parts = append(parts, "⏰ <b>Reminders</b>")
	for _, n := range notes {
		parts = append(parts, fmt.Sprintf("#%d: %s", n.ID, html.EscapeString(n.Content)))
	}
	return Message{Text: strings.Join(parts, "\n\n")}, true
}

// HabitActions returns one Done/Delete row per habit.
func HabitActions(habits []model.Habit) [][]Button {
	rows := make([][]Button, 0, len(habits))
	for _, h := range habits {
		rows = append(rows, []Button{
			{Text: "✅ Done", Data: EncodeAction(ActionDone, h.ID)},
			{Text: "🗑 Delete", Data: EncodeAction(ActionDeleteHabit, h.ID)},
		})
	}
	return rows
}

// FormatHabitList renders habits with their totals and streaks. Habits missing from stats
// are shown with zeros.
func FormatHabitList(habits []model.Habit, stats map[int]model.HabitStats) Message {
	if len(habits) == 0 {
		return Message{Text: "You have no habits yet. Use /addhabit to add one."}
	}
	var b strings.Builder
	b.WriteString("<b>📋 Your habits:</b>\n")
	for _, h := range habits {
		st := stats[h.ID]
		fmt.Fprintf(&b, "\n<b>%d. %s</b>\nTotal: %d • Streak: %d\n", h.ID, html.EscapeString(h.Name), st.Total, st.Streak)
	}
	return Message{Text: b.String(), Keyboard: HabitActions(habits)}
}

func FormatStats(habitID int, st model.HabitStats) Message {
	last := st.LastDoneString()
	if last == "" {
		last = "never"
	}
	return Message{Text: fmt.Sprintf(
		"<b>Stats for habit #%d</b>\n\nTotal completions: %d\nLast done: %s\nCurrent streak: %d",
		habitID, st.Total, last, st.Streak,
	)}
}

func FormatSchedules(entries []model.ScheduleEntry) Message {
	if len(entries) == 0 {
		return Message{Text: "No schedules yet. Use /editschedule to add one."}
	}
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, fmt.Sprintf("<b>%s</b>:\n%s\n", DayName(e.DayOfWeek), html.EscapeString(e.Text)))
	}
	return Message{Text: strings.Join(parts, "\n")}
}

// FormatNoteList renders notes with a delete button for each.
func FormatNoteList(notes []model.Note) Message {
	if len(notes) == 0 {
		return Message{Text: "You have no notes yet. Use /addnote to add one."}
	}
	lines := make([]string, 0, len(notes))
	rows := make([][]Button, 0, len(notes))
	for _, n := range notes {
		lines = append(lines, fmt.Sprintf("#%d: %s", n.ID, html.EscapeString(n.Content)))
		rows = append(rows, []Button{{Text: fmt.Sprintf("Delete #%d", n.ID), Data: EncodeAction(ActionDeleteNote, n.ID)}})
	}
	return Message{Text: "<b>Notes:</b>\n\n" + strings.Join(lines, "\n"), Keyboard: rows}
}

// DayPicker is a two-row weekday keyboard whose buttons carry action:<day>.
func DayPicker(action string) [][]Button {
	rows := [][]Button{make([]Button, 0, 4), make([]Button, 0, 3)}
	for day := 0; day < model.DaysPerWeek; day++ {
		row := 0
		if day >= 4 {
			row = 1
		}
		rows[row] = append(rows[row], Button{Text: DayNames[day], Data: EncodeAction(action, day)})
	}
	return rows
}

func Help() Message {
	return Message{Text: strings.Join([]string{
		"Hi! I track your habits, your class schedule and short notes.",
		"",
		"Commands:",
		"/addhabit - add a habit",
		"/listhabits - list habits with stats",
		"/done &lt;id&gt; - mark a habit done today",
		"/delhabit &lt;id&gt; - delete a habit",
		"/stats &lt;id&gt; - habit statistics",
		"",
		"/editschedule - add or change a day's schedule",
		"/viewschedule - show all schedules",
		"/delschedule - delete a day's schedule",
		"",
		"/addnote - add a note",
		"/listnotes - list notes",
		"/cancel - abort the current input",
	}, "\n")}
}
