package entities

// Notification is a message addressed to a single recipient.
type Notification struct {
	To      string
	Subject string
	Body    string
}
