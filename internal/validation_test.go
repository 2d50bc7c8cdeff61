package internal

import (
	"testing"

	"github.com/lychee-technology/formview"
	"github.com/stretchr/testify/assert"
)

type recordingParent struct {
	messages []Message
}

func (p *recordingParent) Deliver(msg Message) {
	p.messages = append(p.messages, msg)
}

func TestValidatorConstraintRegistration(t *testing.T) {
	schema := parseSchema(t, `{"type":"string","minLength":3}`)
	v := NewValidator(formview.Path{}.Key("title"), schema, nil)

	assert.True(t, v.AddConstraint("minLength", MinLengthPredicate(3), false))
	assert.False(t, v.AddConstraint("maxLength", MaxLengthPredicate(10), false), "undeclared keywords are skipped")
	assert.True(t, v.AddConstraint("required", RequiredString, true))
	assert.Equal(t, []string{"minLength", "required"}, v.Constraints())
}

func TestValidatorRunNotifiesParent(t *testing.T) {
	schema := parseSchema(t, `{"type":"string","minLength":3}`)
	parent := &recordingParent{}
	abs := formview.Path{}.Key("title")
	v := NewValidator(abs, schema, parent)
	v.AddConstraint("minLength", MinLengthPredicate(3), false)
	v.AddConstraint("required", RequiredString, true)

	v.Run("")
	assert.Equal(t, []string{"minLength", "required"}, v.Errors())
	assert.Equal(t, "minLength", v.FirstError())
	assert.Equal(t, []Message{
		{Kind: MessageSetError, Key: "/title:minLength"},
		{Kind: MessageSetError, Key: "/title:required"},
	}, parent.messages)

	parent.messages = nil
	v.Run("ab")
	assert.Equal(t, []string{"minLength"}, v.Errors())
	assert.Equal(t, []Message{{Kind: MessageRemoveError, Key: "/title:required"}}, parent.messages)

	parent.messages = nil
	v.Run("ab")
	assert.Empty(t, parent.messages, "an unchanged error is not announced twice")

	v.Run("abc")
	assert.False(t, v.HasErrors())
	assert.Equal(t, "", v.FirstError())
}

func TestValidatorCustomErrors(t *testing.T) {
	schema := parseSchema(t, `{"type":"string","minLength":3}`)
	parent := &recordingParent{}
	v := NewValidator(formview.Path{}.Key("email"), schema, parent)
	v.AddConstraint("minLength", MinLengthPredicate(3), false)

	v.SetCustomError("unique", "email already taken")
	assert.True(t, v.HasError("unique"))
	assert.Equal(t, "unique", v.FirstError())
	assert.Equal(t, "email already taken", v.Message("unique"))
	assert.Equal(t, []Message{{Kind: MessageSetError, Key: "/email:unique"}}, parent.messages)

	parent.messages = nil
	v.Run("a@b.c")
	assert.False(t, v.HasErrors(), "custom errors clear on the next local pass")
	assert.Equal(t, "", v.Message("unique"))
	assert.Equal(t, []Message{{Kind: MessageRemoveError, Key: "/email:unique"}}, parent.messages)
}

func TestValidatorCustomErrorSharingBuiltinName(t *testing.T) {
	schema := parseSchema(t, `{"type":"string","minLength":3}`)
	parent := &recordingParent{}
	v := NewValidator(formview.Path{}.Key("name"), schema, parent)
	v.AddConstraint("minLength", MinLengthPredicate(3), false)

	v.Run("a")
	v.SetCustomError("minLength", "")
	assert.Len(t, parent.messages, 1, "an already active key is not announced again")

	v.Reset()
	assert.False(t, v.HasErrors())
	assert.Equal(t, Message{Kind: MessageRemoveError, Key: "/name:minLength"}, parent.messages[len(parent.messages)-1])
}

func TestMessageKindString(t *testing.T) {
	assert.Equal(t, "ready", MessageReady.String())
	assert.Equal(t, "set:error", MessageSetError.String())
	assert.Equal(t, "remove:error", MessageRemoveError.String())
	assert.Equal(t, "unknown", MessageKind(9).String())
}
