// Package notification contains the platform-agnostic push notification
// payload.
package notification

// Notification is the title and content shown to the user, plus optional
// custom key/value data delivered alongside it.
type Notification struct {
	title   string
	content string
	data    map[string]string
}

// New returns an empty notification. Title and content default to "".
func New() *Notification {
	return &Notification{}
}

func (n *Notification) SetTitle(title string) *Notification {
	n.title = title
	return n
}

func (n *Notification) Title() string {
	return n.title
}

func (n *Notification) SetContent(content string) *Notification {
	n.content = content
	return n
}

func (n *Notification) Content() string {
	return n.content
}

// SetData adds a custom field. APNS receives it as a custom payload key,
// FCM as a data entry.
func (n *Notification) SetData(key, value string) *Notification {
	if n.data == nil {
		n.data = make(map[string]string)
	}
	n.data[key] = value
	return n
}

// Data returns the custom fields, nil when none were set.
func (n *Notification) Data() map[string]string {
	return n.data
}
