package copilot

// Popup configures how the assistant introduces itself.
type Popup struct {
	Instructions        string `yaml:"instructions"`
	Title               string `yaml:"title"`
	Initial             string `yaml:"initial"`
	DefaultOpen         bool   `yaml:"default_open"`
	ClickOutsideToClose bool   `yaml:"click_outside_to_close"`
}

// DefaultPopup returns the todo list assistant settings.
func DefaultPopup() Popup {
	return Popup{
		Instructions: "Help the user manage a todo list. If the user provides a high level goal, " +
			"break it down into a few specific tasks and add them to the list",
		Title:       "Todo List Copilot",
		Initial:     "Hi you! 👋 I can help you manage your todo list.",
		DefaultOpen: true,
	}
}

// Merge fills empty fields of p from def. Booleans are taken from p.
func (p Popup) Merge(def Popup) Popup {
	if p.Instructions == "" {
		p.Instructions = def.Instructions
	}
	if p.Title == "" {
		p.Title = def.Title
	}
	if p.Initial == "" {
		p.Initial = def.Initial
	}
	return p
}
