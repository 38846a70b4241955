package parser

// Attribute is a single name/value pair of a start tag. Both halves are
// built up one rune at a time while the tokenizer walks the attribute
// states.
type Attribute struct {
	Name  string
	Value string
}

// PushName appends a rune to the attribute's name.
func (a *Attribute) PushName(r rune) {
	a.Name += string(r)
}

// PushValue appends a rune to the attribute's value.
func (a *Attribute) PushValue(r rune) {
	a.Value += string(r)
}

func (a Attribute) String() string {
	return a.Name + "=" + `"` + a.Value + `"`
}
