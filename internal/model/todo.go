package model

// Todo is the domain model for a todo entry.
// AssignedTo is empty when nobody is assigned and is then left out of JSON.
type Todo struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	IsCompleted bool   `json:"isCompleted"`
	AssignedTo  string `json:"assignedTo,omitempty"`
}

// Assigned reports whether someone is assigned to the todo.
func (t Todo) Assigned() bool { return t.AssignedTo != "" }
