package core

// Account is the owning or consenting account as seen by this subsystem:
// comparable by id and renderable without private fields.
type Account interface {
	AccountID() string
	Render() map[string]any
}
