package notifier

// Client delivers operator alerts for failures the daemon cannot surface in
// the page, such as a lost browser attachment.
type Client interface {
	Notify(message string)
}
