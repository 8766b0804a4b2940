package notification

import (
	"fmt"
	"time"

	"github.com/shelfwatch/notifier/internal/model"
)

// Message is the composed content handed to a channel sender.
type Message struct {
	Subject string
	Body    string
}

type messageBuilder func(n model.Notification) Message

// builders maps each reminder category to its template. Unrecognized
// categories fall back to a generic message keyed by kind and due time.
var builders = map[model.Category]messageBuilder{
	model.CategoryHardware:     hardwareMessage,
	model.CategorySoftware:     softwareMessage,
	model.CategorySubscription: subscriptionMessage,
	model.CategoryTest:         testMessage,
	model.CategoryGeneral:      generalMessage,
}

// Compose builds the outgoing message for a notification.
func Compose(n model.Notification) Message {
	if build, ok := builders[n.Category]; ok {
		return build(n)
	}

	return fallbackMessage(n)
}

func dueDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

func hardwareMessage(n model.Notification) Message {
	return Message{
		Subject: fmt.Sprintf("Warranty reminder: %s", n.SubjectLabel),
		Body: fmt.Sprintf(
			"The warranty on %q runs out around %s. You asked to be reminded %d days ahead.",
			n.SubjectLabel, dueDate(n.DueAt), n.LeadDays,
		),
	}
}

func softwareMessage(n model.Notification) Message {
	return Message{
		Subject: fmt.Sprintf("License reminder: %s", n.SubjectLabel),
		Body: fmt.Sprintf(
			"The license for %q expires around %s. You asked to be reminded %d days ahead.",
			n.SubjectLabel, dueDate(n.DueAt), n.LeadDays,
		),
	}
}

func subscriptionMessage(n model.Notification) Message {
	return Message{
		Subject: fmt.Sprintf("Renewal reminder: %s", n.SubjectLabel),
		Body: fmt.Sprintf(
			"Your subscription %q renews around %s. You asked to be reminded %d days ahead.",
			n.SubjectLabel, dueDate(n.DueAt), n.LeadDays,
		),
	}
}

func testMessage(n model.Notification) Message {
	return Message{
		Subject: "Test reminder",
		Body: fmt.Sprintf(
			"This is a test reminder for %q scheduled at %s. If you can read this, delivery works.",
			n.SubjectLabel, n.DueAt.Format(time.RFC3339),
		),
	}
}

func generalMessage(n model.Notification) Message {
	return Message{
		Subject: fmt.Sprintf("Reminder: %s", n.SubjectLabel),
		Body: fmt.Sprintf(
			"Reminder for %q, due around %s.",
			n.SubjectLabel, dueDate(n.DueAt),
		),
	}
}

func fallbackMessage(n model.Notification) Message {
	return Message{
		Subject: fmt.Sprintf("Reminder: %s", n.SubjectLabel),
		Body: fmt.Sprintf(
			"Reminder (%s) for %q, due %s.",
			n.Kind, n.SubjectLabel, n.DueAt.Format(time.RFC3339),
		),
	}
}
