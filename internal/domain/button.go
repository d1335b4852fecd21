package domain

// ButtonState is the visual state of one injected action button. The state
// is owned by the DOM node the button decorates; Error always returns to
// Idle after a fixed display delay.
type ButtonState string

const (
	ButtonIdle    ButtonState = "idle"
	ButtonLoading ButtonState = "loading"
	ButtonError   ButtonState = "error"
)
