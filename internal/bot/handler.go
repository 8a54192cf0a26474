package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"habitbot/internal/model"
	"habitbot/internal/notify"
	"habitbot/internal/service"
	"habitbot/internal/session"
	"habitbot/pkg/logger"
	"habitbot/pkg/metrics"
)

const failureText = "⚠️ Something went wrong, please try again later."

type Handler struct {
	tracker   *service.Tracker
	planner   *service.Planner
	notebook  *service.Notebook
	sessions  session.Store
	reminders string
	logger    *zap.Logger
}

// NewHandler wires the services. reminders is the human-readable list of note reminder
// times shown after a note is saved, e.g. "15:00, 18:00 and 21:00".
func NewHandler(
	tracker *service.Tracker,
	planner *service.Planner,
	notebook *service.Notebook,
	sessions session.Store,
	reminders string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		tracker:   tracker,
		planner:   planner,
		notebook:  notebook,
		sessions:  sessions,
		reminders: reminders,
		logger:    logger,
	}
}

func (h *Handler) Handle(ctx context.Context, u Update) Reply {
	if u.Callback != nil {
		metrics.IncrementBotUpdate("callback")
		return h.handleCallback(ctx, u.ChatID, u.Callback)
	}

	msg := strings.TrimSpace(u.Text)
	if strings.HasPrefix(msg, "/") {
		metrics.IncrementBotUpdate("command")
		return h.handleCommand(ctx, u.ChatID, msg)
	}
	metrics.IncrementBotUpdate("text")
	return h.handleText(ctx, u.ChatID, msg)
}

// parseCommand splits "/cmd@botname arg1 arg2" into "cmd" and its arguments.
func parseCommand(s string) (string, []string) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return "", nil
	}
	cmd := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), fields[1:]
}

func (h *Handler) handleCommand(ctx context.Context, chatID int64, s string) Reply {
	cmd, args := parseCommand(s)

	// any command abandons a pending multi-step input
	if cmd != "cancel" {
		if err := h.sessions.Clear(ctx, chatID); err != nil {
			return h.fail(ctx, "clear session", err)
		}
	}

	switch cmd {
	case "start", "help":
		return message(notify.Help())
	case "cancel":
		return h.cancel(ctx, chatID)
	case "addhabit":
		return h.await(ctx, chatID, session.State{Kind: session.AwaitingHabitName}, "✍️ Send the name of the new habit:")
	case "listhabits":
		return h.listHabits(ctx)
	case "delhabit":
		return h.withID(args, "delhabit", func(id int) Reply { return h.deleteHabit(ctx, id) })
	case "stats":
		return h.withID(args, "stats", func(id int) Reply { return h.stats(ctx, id) })
	case "done":
		return h.withID(args, "done", func(id int) Reply { return h.markDone(ctx, id) })
	case "editschedule":
		return Reply{Messages: []notify.Message{{
			Text:     "Pick the day whose schedule you want to add or change:",
			Keyboard: notify.DayPicker(notify.ActionScheduleDay),
		}}}
	case "viewschedule":
		entries, err := h.planner.ListAllSchedules(ctx)
		if err != nil {
			return h.fail(ctx, "list schedules", err)
		}
		return message(notify.FormatSchedules(entries))
	case "delschedule":
		return Reply{Messages: []notify.Message{{
			Text:     "Pick the day whose schedule you want to delete:",
			Keyboard: notify.DayPicker(notify.ActionDelScheduleDay),
		}}}
	case "addnote":
		return h.await(ctx, chatID, session.State{Kind: session.AwaitingNoteText}, "✍️ Send the note text:")
	case "listnotes":
		notes, err := h.notebook.ListNotes(ctx)
		if err != nil {
			return h.fail(ctx, "list notes", err)
		}
		return message(notify.FormatNoteList(notes))
	default:
		return text("Unknown command. Send /help for the list of commands.")
	}
}

func (h *Handler) withID(args []string, cmd string, fn func(id int) Reply) Reply {
	if len(args) == 0 {
		return text(fmt.Sprintf("Usage: /%s &lt;id&gt;", cmd))
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return text("Invalid id.")
	}
	return fn(id)
}

func (h *Handler) await(ctx context.Context, chatID int64, st session.State, prompt string) Reply {
	if err := h.sessions.Set(ctx, chatID, st); err != nil {
		return h.fail(ctx, "save session", err)
	}
	return text(prompt)
}

func (h *Handler) cancel(ctx context.Context, chatID int64) Reply {
	st, err := h.sessions.Get(ctx, chatID)
	if err != nil {
		return h.fail(ctx, "load session", err)
	}
	if st.IsIdle() {
		return text("Nothing to cancel.")
	}
	if err := h.sessions.Clear(ctx, chatID); err != nil {
		return h.fail(ctx, "clear session", err)
	}
	return text("Cancelled.")
}

func (h *Handler) handleText(ctx context.Context, chatID int64, s string) Reply {
	st, err := h.sessions.Get(ctx, chatID)
	if err != nil {
		return h.fail(ctx, "load session", err)
	}

	switch st.Kind {
	case session.AwaitingHabitName:
		id, err := h.tracker.AddHabit(ctx, s)
		if errors.Is(err, model.ErrValidation) {
			return text("The name cannot be empty, try again.")
		}
		if err != nil {
			return h.fail(ctx, "add habit", err)
		}
		h.finish(ctx, chatID)
		return text(fmt.Sprintf("✅ Habit <b>%s</b> added (id=%d).", html.EscapeString(s), id))

	case session.AwaitingScheduleText:
		err := h.planner.SetScheduleForDay(ctx, st.Day, s)
		if errors.Is(err, model.ErrValidation) {
			return text("The text is empty, try again.")
		}
		if err != nil {
			return h.fail(ctx, "set schedule", err)
		}
		h.finish(ctx, chatID)
		return text(fmt.Sprintf("✅ Schedule for <b>%s</b> saved.", notify.DayName(st.Day)))

	case session.AwaitingNoteText:
		id, err := h.notebook.AddNote(ctx, s)
		if errors.Is(err, model.ErrValidation) {
			return text("The note cannot be empty.")
		}
		if err != nil {
			return h.fail(ctx, "add note", err)
		}
		h.finish(ctx, chatID)
		reply := fmt.Sprintf("✅ Note saved (#%d).", id)
		if h.reminders != "" {
			reply += fmt.Sprintf(" I will remind you at %s.", h.reminders)
		}
		return text(reply)

	default:
		return text("Send /help to see what I can do.")
	}
}

// finish returns the chat to idle. A failure only means the prompt lingers until the TTL.
func (h *Handler) finish(ctx context.Context, chatID int64) {
	if err := h.sessions.Clear(ctx, chatID); err != nil {
		logger.WithTrace(ctx, h.logger).Warn("Failed to clear session", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (h *Handler) listHabits(ctx context.Context) Reply {
	habits, err := h.tracker.ListHabits(ctx)
	if err != nil {
		return h.fail(ctx, "list habits", err)
	}
	stats, err := h.tracker.AllStats(ctx, habits)
	if err != nil {
		return h.fail(ctx, "habit stats", err)
	}
	return message(notify.FormatHabitList(habits, stats))
}

func (h *Handler) stats(ctx context.Context, id int) Reply {
	st, err := h.tracker.HabitStats(ctx, id)
	if err != nil {
		return h.fail(ctx, "habit stats", err)
	}
	return message(notify.FormatStats(id, st))
}

func (h *Handler) deleteHabit(ctx context.Context, id int) Reply {
	ok, err := h.tracker.DeleteHabit(ctx, id)
	if err != nil {
		return h.fail(ctx, "delete habit", err)
	}
	if !ok {
		return text("No such habit.")
	}
	return text(fmt.Sprintf("🗑 Habit #%d deleted.", id))
}

func (h *Handler) markDone(ctx context.Context, id int) Reply {
	ok, err := h.tracker.MarkDoneToday(ctx, id)
	switch {
	case errors.Is(err, model.ErrNotFound):
		return text("No such habit.")
	case err != nil:
		return h.fail(ctx, "mark done", err)
	case !ok:
		return text("Already marked today.")
	}
	return text(fmt.Sprintf("Habit <b>%d</b> marked for today.", id))
}

func (h *Handler) handleCallback(ctx context.Context, chatID int64, cb *Callback) Reply {
	action, arg, err := notify.ParseAction(cb.Data)
	if err != nil {
		logger.WithTrace(ctx, h.logger).Warn("Ignoring malformed callback", zap.String("data", cb.Data))
		return Reply{Answer: &Answer{}}
	}

	switch action {
	case notify.ActionDone:
		ok, err := h.tracker.MarkDoneToday(ctx, arg)
		switch {
		case errors.Is(err, model.ErrNotFound):
			return Reply{Answer: &Answer{Text: "Habit not found.", Alert: true}}
		case err != nil:
			return h.failCallback(ctx, "mark done", err)
		case !ok:
			return Reply{Answer: &Answer{Text: "Already marked today.", Alert: true}}
		}
		r := text(fmt.Sprintf("Habit <b>%d</b> marked for today.", arg))
		r.Answer = &Answer{Text: "Marked ✅"}
		return r

	case notify.ActionDeleteHabit:
		ok, err := h.tracker.DeleteHabit(ctx, arg)
		if err != nil {
			return h.failCallback(ctx, "delete habit", err)
		}
		if !ok {
			return Reply{Answer: &Answer{Text: "Habit not found.", Alert: true}}
		}
		r := text(fmt.Sprintf("🗑 Habit <b>%d</b> deleted.", arg))
		r.Answer = &Answer{Text: "Habit deleted."}
		r.ClearKeyboard = true
		return r

	case notify.ActionDeleteNote:
		ok, err := h.notebook.DeleteNote(ctx, arg)
		if err != nil {
			return h.failCallback(ctx, "delete note", err)
		}
		if !ok {
			return Reply{Answer: &Answer{Text: "Note not found.", Alert: true}}
		}
		r := text(fmt.Sprintf("Note #%d deleted.", arg))
		r.Answer = &Answer{Text: "Note deleted."}
		return r

	case notify.ActionScheduleDay:
		if !model.ValidDay(arg) {
			return Reply{Answer: &Answer{Text: "Unknown day.", Alert: true}}
		}
		if err := h.sessions.Set(ctx, chatID, session.State{Kind: session.AwaitingScheduleText, Day: arg}); err != nil {
			return h.failCallback(ctx, "save session", err)
		}
		r := text(fmt.Sprintf("Send the schedule for <b>%s</b>.\nSeveral lines are fine (e.g. 1) Algebra 8:30).", notify.DayName(arg)))
		r.Answer = &Answer{}
		return r

	case notify.ActionDelScheduleDay:
		ok, err := h.planner.DeleteScheduleForDay(ctx, arg)
		if errors.Is(err, model.ErrValidation) {
			return Reply{Answer: &Answer{Text: "Unknown day.", Alert: true}}
		}
		if err != nil {
			return h.failCallback(ctx, "delete schedule", err)
		}
		if !ok {
			return Reply{Answer: &Answer{Text: "No schedule for this day.", Alert: true}}
		}
		r := text(fmt.Sprintf("🗑 Schedule for <b>%s</b> deleted.", notify.DayName(arg)))
		r.Answer = &Answer{Text: fmt.Sprintf("Schedule for %s deleted.", notify.DayName(arg))}
		return r

	default:
		return Reply{Answer: &Answer{}}
	}
}

func (h *Handler) fail(ctx context.Context, op string, err error) Reply {
	logger.WithTrace(ctx, h.logger).Error("Bot operation failed", zap.String("op", op), zap.Error(err))
	return text(failureText)
}

func (h *Handler) failCallback(ctx context.Context, op string, err error) Reply {
	r := h.fail(ctx, op, err)
	r.Answer = &Answer{Text: "Something went wrong.", Alert: true}
	return r
}
