package game

// Notification is one outbound chat message. Target is a room ID, or a person ID
// when Direct is set.
type Notification struct {
	Target   string
	Text     string
	Direct   bool
	Markdown bool
}

// Notifier delivers notifications. Delivery is fire-and-forget.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) {
	f(n)
}

// Discard drops every notification.
var Discard Notifier = NotifierFunc(func(Notification) {})
