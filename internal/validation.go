package internal

import (
	"slices"

	"github.com/lychee-technology/formview"
)

// MessageKind enumerates the signals a control sends to its immediate parent.
type MessageKind int

const (
	MessageReady MessageKind = iota
	MessageSetError
	MessageRemoveError
)

func (k MessageKind) String() string {
	switch k {
	case MessageReady:
		return "ready"
	case MessageSetError:
		return "set:error"
	case MessageRemoveError:
		return "remove:error"
	}
	return "unknown"
}

// Message is a typed signal addressed to a control's immediate parent.
// Key is "absPath:constraint" for error messages and empty for readiness.
type Message struct {
	Kind MessageKind
	Key  string
}

// Parent receives messages from its direct children.
type Parent interface {
	Deliver(msg Message)
}

// ErrorKey builds the identity of a control error in the aggregate map.
func ErrorKey(abs formview.Path, constraint string) string {
	return abs.Pointer() + ":" + constraint
}

// Predicate reports whether a value satisfies a constraint.
type Predicate func(value any) bool

type constraint struct {
	name  string
	check Predicate
}

// Validator is the per-control constraint registry. Built-in errors follow the
// registered predicates; custom errors are injected from server responses and
// cleared on the next local validation pass.
type Validator struct {
	abs         formview.Path
	schema      *formview.Schema
	parent      Parent
	constraints []constraint
	errors      []string
	custom      []string
	messages    map[string]string
}

// NewValidator creates a validator for the control at abs.
func NewValidator(abs formview.Path, schema *formview.Schema, parent Parent) *Validator {
	return &Validator{
		abs:      abs,
		schema:   schema,
		parent:   parent,
		messages: make(map[string]string),
	}
}

// AddConstraint registers a check. Unless custom is set, it is only registered when
// the schema declares the keyword of the same name. It reports whether it was registered.
func (v *Validator) AddConstraint(name string, check Predicate, custom bool) bool {
	if !custom && !v.schema.HasKeyword(name) {
		return false
	}
	v.constraints = append(v.constraints, constraint{name: name, check: check})
	return true
}

// Constraints lists registered constraint names in registration order.
func (v *Validator) Constraints() []string {
	names := make([]string, len(v.constraints))
	for i, c := range v.constraints {
		names[i] = c.name
	}
	return names
}

// Run evaluates every constraint against value, then clears custom errors.
func (v *Validator) Run(value any) {
	for _, c := range v.constraints {
		if c.check(value) {
			v.RemoveError(c.name)
		} else {
			v.SetError(c.name)
		}
	}
	v.ClearCustomErrors()
}

// SetError activates a built-in error.
func (v *Validator) SetError(name string) {
	if slices.Contains(v.errors, name) {
		return
	}
	v.errors = append(v.errors, name)
	v.notify(MessageSetError, name)
}

// RemoveError clears a built-in error.
func (v *Validator) RemoveError(name string) {
	var ok bool
	if v.errors, ok = remove(v.errors, name); !ok {
		return
	}
	if !slices.Contains(v.custom, name) {
		v.notify(MessageRemoveError, name)
	}
}

// SetCustomError activates a server-reported error.
func (v *Validator) SetCustomError(code, message string) {
	if message != "" {
		v.messages[code] = message
	}
	if slices.Contains(v.custom, code) {
		return
	}
	v.custom = append(v.custom, code)
	if !slices.Contains(v.errors, code) {
		v.notify(MessageSetError, code)
	}
}

// ClearCustomErrors removes every server-reported error.
func (v *Validator) ClearCustomErrors() {
	for _, code := range append([]string(nil), v.custom...) {
		v.custom, _ = remove(v.custom, code)
		delete(v.messages, code)
		if !slices.Contains(v.errors, code) {
			v.notify(MessageRemoveError, code)
		}
	}
}

// Reset removes every active error, notifying the parent for each.
func (v *Validator) Reset() {
	for _, name := range append([]string(nil), v.errors...) {
		v.RemoveError(name)
	}
	v.ClearCustomErrors()
}

// HasErrors reports whether any built-in or custom error is active.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0 || len(v.custom) > 0
}

// HasError reports whether the named error is active.
func (v *Validator) HasError(name string) bool {
	return slices.Contains(v.errors, name) || slices.Contains(v.custom, name)
}

// FirstError returns the first active built-in error, else the first custom error.
func (v *Validator) FirstError() string {
	if len(v.errors) > 0 {
		return v.errors[0]
	}
	if len(v.custom) > 0 {
		return v.custom[0]
	}
	return ""
}

// Errors lists active errors, built-in first.
func (v *Validator) Errors() []string {
	out := make([]string, 0, len(v.errors)+len(v.custom))
	out = append(out, v.errors...)
	for _, c := range v.custom {
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

// Message returns the server message recorded for a custom error.
func (v *Validator) Message(code string) string {
	return v.messages[code]
}

func (v *Validator) notify(kind MessageKind, name string) {
	if v.parent != nil {
		v.parent.Deliver(Message{Kind: kind, Key: ErrorKey(v.abs, name)})
	}
}

func remove(list []string, s string) ([]string, bool) {
	i := slices.Index(list, s)
	if i < 0 {
		return list, false
	}
	return slices.Delete(list, i, i+1), true
}
