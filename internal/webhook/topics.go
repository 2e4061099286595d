package webhook

import "strings"

const (
	TopicBookingChanged = "booking_changed"
	TopicTaskChanged    = "task_changed"
)

// NormalizeTopic converts store topic strings into a stable internal form.
// Examples:
// - "booking/changed" -> "booking_changed"
// - "Task.Changed" -> "task_changed"
func NormalizeTopic(topic string) string {
	t := strings.TrimSpace(strings.ToLower(topic))
	t = strings.ReplaceAll(t, "/", "_")
	t = strings.ReplaceAll(t, ".", "_")
	t = strings.ReplaceAll(t, "-", "_")
	for strings.Contains(t, "__") {
		t = strings.ReplaceAll(t, "__", "_")
	}
	return strings.Trim(t, "_")
}
