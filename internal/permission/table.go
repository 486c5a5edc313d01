package permission

import "fmt"

type Action string

const (
	ActionList          Action = "list"
	ActionRetrieve      Action = "retrieve"
	ActionCreate        Action = "create"
	ActionUpdate        Action = "update"
	ActionPartialUpdate Action = "partial_update"
	ActionDestroy       Action = "destroy"
	ActionCancel        Action = "cancel"
)

// CRUD is the action set of a plain resource controller.
var CRUD = []Action{
	ActionList,
	ActionRetrieve,
	ActionCreate,
	ActionUpdate,
	ActionPartialUpdate,
	ActionDestroy,
}

// Rule pairs the representation an action renders with the predicate
// guarding it.
type Rule[T any] struct {
	Render func(T) any
	Allow  Predicate
}

// Table maps every action of a controller to its Rule.
type Table[T any] map[Action]Rule[T]

// MustCover panics unless every listed action has a complete rule. Call it
// where the table is built so a missing or misspelled action fails at startup.
func (t Table[T]) MustCover(actions ...Action) Table[T] {
	for _, a := range actions {
		r, ok := t[a]
		if !ok {
			panic(fmt.Sprintf("permission: no rule for action %q", a))
		}
		if r.Render == nil || r.Allow == nil {
			panic(fmt.Sprintf("permission: incomplete rule for action %q", a))
		}
	}
	return t
}

func (t Table[T]) For(a Action) Rule[T] {
	r, ok := t[a]
	if !ok {
		panic(fmt.Sprintf("permission: no rule for action %q", a))
	}
	return r
}

// RenderAll applies the action's representation to every item.
func (t Table[T]) RenderAll(a Action, items []T) []any {
	render := t.For(a).Render
	out := make([]any, 0, len(items))
	for _, it := range items {
		out = append(out, render(it))
	}
	return out
}
