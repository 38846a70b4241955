package parser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html/atom"
)

// TokenType tells which variant of Token is populated.
type TokenType uint

const (
	CharacterToken TokenType = iota
	StartTagToken
	EndTagToken
	EndOfFileToken
)

func (t TokenType) String() string {
	switch t {
	case CharacterToken:
		return "Character"
	case StartTagToken:
		return "StartTag"
	case EndTagToken:
		return "EndTag"
	case EndOfFileToken:
		return "EOF"
	}
	return fmt.Sprintf("TokenType(%d)", uint(t))
}

type tagType uint

const (
	startTag tagType = iota
	endTag
)

// Token is a concrete token that is ready to be emitted. Only the fields
// belonging to TokenType are meaningful:
//
//	StartTagToken: TagName, DataAtom, SelfClosing, Attributes
//	EndTagToken:   TagName, DataAtom
//	CharacterToken: Char
type Token struct {
	TokenType   TokenType
	TagName     string
	DataAtom    atom.Atom
	SelfClosing bool
	Attributes  []Attribute
	Char        rune
}

// Equal reports whether two tokens carry the same data. DataAtom is derived
// from TagName so it is not compared.
func (t *Token) Equal(o *Token) bool {
	if t.TokenType != o.TokenType {
		return false
	}
	switch t.TokenType {
	case CharacterToken:
		return t.Char == o.Char
	case EndTagToken:
		return t.TagName == o.TagName
	case StartTagToken:
		if t.TagName != o.TagName || t.SelfClosing != o.SelfClosing || len(t.Attributes) != len(o.Attributes) {
			return false
		}
		for i := range t.Attributes {
			if t.Attributes[i] != o.Attributes[i] {
				return false
			}
		}
	}
	return true
}

func (t *Token) String() string {
	switch t.TokenType {
	case CharacterToken:
		return fmt.Sprintf("Character %q", t.Char)
	case StartTagToken:
		var b strings.Builder
		b.WriteString("StartTag <")
		b.WriteString(t.TagName)
		for _, a := range t.Attributes {
			b.WriteByte(' ')
			b.WriteString(a.String())
		}
		if t.SelfClosing {
			b.WriteString(" /")
		}
		b.WriteByte('>')
		return b.String()
	case EndTagToken:
		return "EndTag </" + t.TagName + ">"
	}
	return t.TokenType.String()
}

// TokenBuilder holds the tag token under construction. The tokenizer owns
// exactly one; a tag is copied out of it on emission and the builder is
// reset before the next tag starts.
type TokenBuilder struct {
	name        strings.Builder
	tempBuffer  strings.Builder
	attributes  []Attribute
	current     *Attribute
	selfClosing bool
	curTagType  tagType
}

// MakeTokenBuilder returns an empty builder.
func MakeTokenBuilder() *TokenBuilder {
	return &TokenBuilder{}
}

// Reset clears the name, attributes and flags for a new tag of the given
// type. The temp buffer is left alone, the script data states manage it.
func (t *TokenBuilder) Reset(tt tagType) {
	t.name.Reset()
	t.attributes = nil
	t.current = nil
	t.selfClosing = false
	t.curTagType = tt
}

// WriteName appends a character to the current tag name.
func (t *TokenBuilder) WriteName(r rune) {
	t.name.WriteRune(r)
}

// Name is the tag name accumulated so far.
func (t *TokenBuilder) Name() string {
	return t.name.String()
}

// EnableSelfClosing changes the self-closing flag to "set".
func (t *TokenBuilder) EnableSelfClosing() {
	t.selfClosing = true
}

// StartAttribute commits the attribute in progress, if any, and begins a
// new empty one.
func (t *TokenBuilder) StartAttribute() {
	t.CommitAttribute()
	t.current = &Attribute{}
}

// WriteAttributeName appends a character to the current attribute's name.
func (t *TokenBuilder) WriteAttributeName(r rune) {
	if t.current == nil {
		t.current = &Attribute{}
	}
	t.current.PushName(r)
}

// WriteAttributeValue appends a character to the current attribute's value.
func (t *TokenBuilder) WriteAttributeValue(r rune) {
	if t.current == nil {
		t.current = &Attribute{}
	}
	t.current.PushValue(r)
}

// CommitAttribute moves the current attribute onto the tag's list.
// Attributes without a name are discarded. Duplicate names are kept; the
// consumer decides what to do with them.
func (t *TokenBuilder) CommitAttribute() {
	if t.current != nil && t.current.Name != "" {
		t.attributes = append(t.attributes, *t.current)
	}
	t.current = nil
}

// WriteTempBuffer appends a character to the temporary buffer.
func (t *TokenBuilder) WriteTempBuffer(r rune) {
	t.tempBuffer.WriteRune(r)
}

// ResetTempBuffer clears the temporary buffer.
func (t *TokenBuilder) ResetTempBuffer() {
	t.tempBuffer.Reset()
}

// TempBuffer returns the buffer contents.
func (t *TokenBuilder) TempBuffer() string {
	return t.tempBuffer.String()
}

// TempBufferCharTokens turns every rune in the temp buffer into a
// character token.
func (t *TokenBuilder) TempBufferCharTokens() []Token {
	var tokens []Token
	for _, r := range t.tempBuffer.String() {
		tokens = append(tokens, t.CharacterToken(r))
	}
	return tokens
}

// TagToken creates a start or end tag token from the builder contents,
// whichever kind the builder was last reset for. End tags never carry
// attributes or the self-closing flag.
func (t *TokenBuilder) TagToken() Token {
	t.CommitAttribute()
	name := t.name.String()
	if t.curTagType == endTag {
		return Token{
			TokenType: EndTagToken,
			TagName:   name,
			DataAtom:  atom.Lookup([]byte(name)),
		}
	}

	var attrs []Attribute
	if len(t.attributes) > 0 {
		attrs = make([]Attribute, len(t.attributes))
		copy(attrs, t.attributes)
	}
	return Token{
		TokenType:   StartTagToken,
		TagName:     name,
		DataAtom:    atom.Lookup([]byte(name)),
		SelfClosing: t.selfClosing,
		Attributes:  attrs,
	}
}

// CharacterToken creates a character token.
func (t *TokenBuilder) CharacterToken(r rune) Token {
	return Token{
		TokenType: CharacterToken,
		Char:      r,
	}
}

// EndOfFileToken creates an end of file token.
func (t *TokenBuilder) EndOfFileToken() Token {
	return Token{
		TokenType: EndOfFileToken,
	}
}
