// Package agent binds the todo store to the assistant: the two actions it
// may invoke and the readable list it sees.
package agent

import (
	"context"
	"fmt"

	"github.com/idilsaglam/todo-copilot/internal/copilot"
	"github.com/idilsaglam/todo-copilot/internal/model"
	"github.com/idilsaglam/todo-copilot/internal/store"
)

const (
	ActionUpdateTodoList = "updateTodoList"
	ActionDeleteTodo     = "deleteTodo"

	// ReadableTodoList is the readable name of the projection.
	ReadableTodoList = "todoList"
)

// Register declares the todo actions and the todo list readable, and
// returns the projection backing the readable.
func Register(reg *copilot.Registry, rds *copilot.Readables, st *store.Store) (*Projection, error) {
	if err := reg.Register(UpdateTodoListAction(st)); err != nil {
		return nil, err
	}
	if err := reg.Register(DeleteTodoAction(st)); err != nil {
		return nil, err
	}

	p := NewProjection(st)
	rds.Register(copilot.Readable{
		Name:        ReadableTodoList,
		Description: "The user's todo list",
		Value:       p.String,
	})
	return p, nil
}

// UpdateTodoListAction upserts the given items by id.
func UpdateTodoListAction(st *store.Store) *copilot.Action {
	return &copilot.Action{
		Name:        ActionUpdateTodoList,
		Description: "Update the users todo list",
		Parameters: []copilot.Parameter{
			{
				Name:        "items",
				Type:        copilot.TypeObjectArray,
				Description: "The new and updated todo list items.",
				Attributes: []copilot.Parameter{
					{
						Name:        "id",
						Type:        copilot.TypeString,
						Description: "The id of the todo item. When creating a new todo item, just make up a new id.",
					},
					{
						Name:        "text",
						Type:        copilot.TypeString,
						Description: "The text of the todo item.",
					},
					{
						Name:        "isCompleted",
						Type:        copilot.TypeBoolean,
						Description: "The completion status of the todo item.",
					},
					{
						Name:        "assignedTo",
						Type:        copilot.TypeString,
						Description: "The person assigned to the todo item. If you don't know, assign it to 'YOU'.",
					},
				},
			},
		},
		Render: "Updating the todo list...",
		Handler: func(_ context.Context, args map[string]any) error {
			var in struct {
				Items []model.Todo `json:"items"`
			}
			if err := copilot.DecodeArgs(args, &in); err != nil {
				return fmt.Errorf("%s: %w", ActionUpdateTodoList, err)
			}
			st.BulkUpsert(in.Items)
			return nil
		},
	}
}

// DeleteTodoAction removes one item by id.
func DeleteTodoAction(st *store.Store) *copilot.Action {
	return &copilot.Action{
		Name:        ActionDeleteTodo,
		Description: "Delete a todo item",
		Parameters: []copilot.Parameter{
			{
				Name:        "id",
				Type:        copilot.TypeString,
				Description: "The id of the todo item to delete.",
			},
		},
		Render: "Deleting a todo item...",
		Handler: func(_ context.Context, args map[string]any) error {
			var in struct {
				ID string `json:"id"`
			}
			if err := copilot.DecodeArgs(args, &in); err != nil {
				return fmt.Errorf("%s: %w", ActionDeleteTodo, err)
			}
			st.Delete(in.ID)
			return nil
		},
	}
}
