package topology

import (
	"errors"
	"fmt"
	"strings"
)

// SelectorField names the node attribute a selector matches on.
type SelectorField string

const (
	FieldID          SelectorField = "id"
	FieldName        SelectorField = "name"
	FieldKind        SelectorField = "kind"
	FieldZone        SelectorField = "zone"
	FieldCriticality SelectorField = "criticality"
)

// ErrInvalidSelector is returned for selectors that cannot match anything meaningful.
var ErrInvalidSelector = errors.New("invalid selector")

// Selector picks nodes by a single attribute equality, e.g. zone:external.
type Selector struct {
	Field SelectorField `json:"field"`
	Value string        `json:"value"`
}

// ByID selects the node with the given identity.
func ByID(id string) Selector { return Selector{Field: FieldID, Value: id} }

// ByZone selects interfaces in the given zone.
func ByZone(zone string) Selector { return Selector{Field: FieldZone, Value: zone} }

// ByCriticality selects components with the given criticality.
func ByCriticality(c Criticality) Selector {
	return Selector{Field: FieldCriticality, Value: string(c)}
}

// ByKind selects every node of a kind.
func ByKind(k NodeKind) Selector { return Selector{Field: FieldKind, Value: string(k)} }

// ParseSelector parses the field:value form. The field "type" is accepted as an alias of kind.
func ParseSelector(s string) (Selector, error) {
	field, value, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Selector{}, fmt.Errorf("%w: %q is not of the form field:value", ErrInvalidSelector, s)
	}
	field = strings.ToLower(strings.TrimSpace(field))
	if field == "type" {
		field = string(FieldKind)
	}
	sel := Selector{Field: SelectorField(field), Value: strings.TrimSpace(value)}
	if err := sel.Validate(); err != nil {
		return Selector{}, err
	}
	return sel, nil
}

// Validate rejects empty selectors and unknown fields.
func (s Selector) Validate() error {
	if s.Value == "" {
		return fmt.Errorf("%w: empty value for field %q", ErrInvalidSelector, s.Field)
	}
	switch s.Field {
	case FieldID, FieldName, FieldKind, FieldZone, FieldCriticality:
		return nil
	case "":
		return fmt.Errorf("%w: empty field", ErrInvalidSelector)
	default:
		return fmt.Errorf("%w: unknown field %q", ErrInvalidSelector, s.Field)
	}
}

// IsZero reports whether the selector was left unset.
func (s Selector) IsZero() bool {
	return s.Field == "" && s.Value == ""
}

// Matches reports whether n satisfies the selector.
func (s Selector) Matches(n Node) bool {
	switch s.Field {
	case FieldID:
		return n.Key() == s.Value
	case FieldName:
		return n.Name == s.Value
	case FieldKind:
		return string(n.Kind) == s.Value
	case FieldZone:
		return n.Zone == s.Value
	case FieldCriticality:
		return string(n.Criticality) == s.Value
	default:
		return false
	}
}

// String renders the selector in field:value form.
func (s Selector) String() string {
	return string(s.Field) + ":" + s.Value
}
