package internal

import (
	"time"

	"github.com/lychee-technology/formview"
)

// controlBehavior is the validation side of a control kind: which value it watches,
// which constraints it registers and how it initialises its model at mount.
type controlBehavior struct {
	watchField  string
	constraints func(n *controlNode) error
	mount       func(f *Form, n *controlNode) error
}

var controlBehaviors = map[formview.ControlKind]controlBehavior{
	formview.KindString:          {constraints: stringConstraints(true)},
	formview.KindSlug:            {constraints: stringConstraints(true)},
	formview.KindText:            {constraints: stringConstraints(false)},
	formview.KindPassword:        {constraints: passwordConstraints, mount: mountPassword},
	formview.KindNumber:          {constraints: numberConstraints},
	formview.KindRef:             {watchField: formview.FieldRefID, constraints: requiredIdentity},
	formview.KindSingleSelectRef: {watchField: formview.FieldRefID, constraints: requiredIdentity},
	formview.KindImage:           {watchField: "name", constraints: requiredImage, mount: mountImage},
	formview.KindDatetime:        {mount: mountDatetime},
	formview.KindBoolean:         {},
	formview.KindEnum:            {},
	formview.KindMultiSelectRef:  {},
	formview.KindCustom:          {},
}

func behaviorFor(kind formview.ControlKind) controlBehavior {
	return controlBehaviors[kind]
}

// watchPath returns the model path whose changes re-run the control's constraints.
func (b controlBehavior) watchPath(modelPath formview.Path) formview.Path {
	if b.watchField == "" {
		return modelPath
	}
	return modelPath.Key(b.watchField)
}

func isRequired(n *controlNode) bool {
	return n.desc.BoolOption(formview.OptionIsRequired)
}

func stringConstraints(withPattern bool) func(n *controlNode) error {
	return func(n *controlNode) error {
		s := n.desc.Schema
		v := n.validator
		if s.MaxLength != nil {
			v.AddConstraint("maxLength", MaxLengthPredicate(*s.MaxLength), false)
		}
		if s.MinLength != nil {
			v.AddConstraint("minLength", MinLengthPredicate(*s.MinLength), false)
		}
		if withPattern {
			re, err := compilePattern(s, n.desc.SchemaPath)
			if err != nil {
				return err
			}
			if re != nil {
				v.AddConstraint("pattern", PatternPredicate(re), false)
			}
		}
		if isRequired(n) {
			v.AddConstraint("required", RequiredString, true)
		}
		return nil
	}
}

func passwordConstraints(n *controlNode) error {
	return stringConstraints(false)(n)
}

func numberConstraints(n *controlNode) error {
	s := n.desc.Schema
	v := n.validator
	if n.desc.BoolOption(formview.OptionIsInteger) {
		v.AddConstraint("integer", IntegerPredicate, true)
	}
	if s.MultipleOf != nil {
		v.AddConstraint("multipleOf", MultipleOfPredicate(*s.MultipleOf), false)
	}
	if s.Minimum != nil {
		v.AddConstraint("minimum", MinimumPredicate(*s.Minimum), false)
	}
	if s.Maximum != nil {
		v.AddConstraint("maximum", MaximumPredicate(*s.Maximum), false)
	}
	if isRequired(n) {
		v.AddConstraint("required", RequiredNumber, true)
	}
	return nil
}

func requiredIdentity(n *controlNode) error {
	if isRequired(n) {
		n.validator.AddConstraint("required", RequiredIdentity, true)
	}
	return nil
}

func requiredImage(n *controlNode) error {
	if isRequired(n) {
		n.validator.AddConstraint("required", RequiredString, true)
	}
	return nil
}

func mountPassword(f *Form, n *controlNode) error {
	n.oldPass, _ = n.desc.ModelPath.Get(f.model)
	return nil
}

func mountImage(f *Form, n *controlNode) error {
	n.fileID = newFileID()
	if v, ok := n.desc.ModelPath.Get(f.model); !ok || v == nil {
		return f.setValue(n.desc.ModelPath, map[string]any{})
	}
	return nil
}

func mountDatetime(f *Form, n *controlNode) error {
	v, _ := n.desc.ModelPath.Get(f.model)
	if s, ok := v.(string); ok && s != "" {
		return nil
	}
	return f.setValue(n.desc.ModelPath, FormatTimestamp(f.now()))
}

// FormatTimestamp renders t as an ISO-8601 UTC string with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
