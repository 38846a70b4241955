package parser

import (
	"io"
	"iter"
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// HTMLTokenizer turns a decoded character stream into HTML tokens. It is a
// pull tokenizer: every call to Next runs the state machine until at least
// one token has been emitted and hands back the oldest one. An
// HTMLTokenizer must not be shared between goroutines.
type HTMLTokenizer struct {
	done                    bool
	currentState            State
	input                   []rune
	emittedTokens           []Token
	tokenBuilder            *TokenBuilder
	lastEmittedStartTagName string
	log                     *logrus.Entry
}

// NewHTMLTokenizer creates a tokenizer that owns the given HTML.
func NewHTMLTokenizer(html string) *HTMLTokenizer {
	return &HTMLTokenizer{
		currentState: DataState,
		input:        []rune(html),
		tokenBuilder: MakeTokenBuilder(),
		log:          logrus.WithField("component", "tokenizer"),
	}
}

// NewHTMLTokenizerFromReader reads all of r and tokenizes it. The reader
// must already yield UTF-8; no encoding sniffing is done here.
func NewHTMLTokenizerFromReader(r io.Reader) (*HTMLTokenizer, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading html input")
	}
	return NewHTMLTokenizer(string(b)), nil
}

// WithLogger routes the tokenizer's trace and parse error logging to l.
func (p *HTMLTokenizer) WithLogger(l *logrus.Logger) *HTMLTokenizer {
	p.log = l.WithField("component", "tokenizer")
	return p
}

// SetState switches the machine into s before the next character is
// consumed. The tree builder uses this to put the tokenizer into
// ScriptDataState after a <script> start tag.
func (p *HTMLTokenizer) SetState(s State) {
	p.currentState = s
}

// State returns the state the next character will be consumed in.
func (p *HTMLTokenizer) State() State {
	return p.currentState
}

// Next returns the next token. The end of file token is returned exactly
// once; after that Next reports false forever.
func (p *HTMLTokenizer) Next() (Token, bool) {
	// some states emit more than 1 token at a time and sometimes no tokens.
	// loop until at least 1 token is emitted and then take them.
	for {
		if token, ok := p.takeLastEmittedToken(); ok {
			return token, true
		}
		if p.done {
			return Token{}, false
		}

		r, eof := p.consumeNextInput()
		p.processRune(r, eof)
		if eof && len(p.emittedTokens) == 0 {
			p.emit(p.tokenBuilder.EndOfFileToken())
		}
	}
}

// All ranges over the tokens that have not been pulled yet.
func (p *HTMLTokenizer) All() iter.Seq[Token] {
	return func(yield func(Token) bool) {
		for {
			token, ok := p.Next()
			if !ok || !yield(token) {
				return
			}
		}
	}
}

// Tokenize collects every token of html, end of file included.
func Tokenize(html string) []Token {
	var tokens []Token
	for token := range NewHTMLTokenizer(html).All() {
		tokens = append(tokens, token)
	}
	return tokens
}

func (p *HTMLTokenizer) consumeNextInput() (rune, bool) {
	if len(p.input) == 0 {
		return 0, true
	}
	r := p.input[0]
	p.input = p.input[1:]
	return p.normalizeNewlines(r), false
}

// normalizeNewlines folds CR LF pairs and lone CRs into a single LF.
func (p *HTMLTokenizer) normalizeNewlines(r rune) rune {
	if r == '\u000D' {
		if len(p.input) > 0 && p.input[0] == '\u000A' {
			p.input = p.input[1:]
		}
		return '\u000A'
	}
	return r
}

func (p *HTMLTokenizer) takeLastEmittedToken() (Token, bool) {
	if p.done || len(p.emittedTokens) == 0 {
		return Token{}, false
	}
	ret := p.emittedTokens[0]
	p.emittedTokens = p.emittedTokens[1:]
	if ret.TokenType == EndOfFileToken {
		p.done = true
		p.emittedTokens = nil
	}
	return ret, true
}

func (p *HTMLTokenizer) processRune(r rune, eof bool) {
	reconsume := true
	for reconsume {
		from := p.currentState
		reconsume, p.currentState = p.stateToParser(p.currentState)(r, eof)
		if p.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
			p.log.WithFields(logrus.Fields{
				"rune":      string(r),
				"eof":       eof,
				"from":      from,
				"to":        p.currentState,
				"reconsume": reconsume,
			}).Trace("transition")
		}
	}
}

func (p *HTMLTokenizer) parseError(code string, r rune, eof bool) {
	entry := p.log.WithFields(logrus.Fields{
		"code":  code,
		"state": p.currentState,
	})
	if eof {
		entry = entry.WithField("rune", "EOF")
	} else {
		entry = entry.WithField("rune", string(r))
	}
	entry.Debug("parse error")
}

func (p *HTMLTokenizer) emit(tokens ...Token) {
	for _, token := range tokens {
		if token.TokenType == StartTagToken {
			p.lastEmittedStartTagName = token.TagName
		}
		p.emittedTokens = append(p.emittedTokens, token)
	}
}

func (p *HTMLTokenizer) emitCurrentTag() State {
	b := p.tokenBuilder
	if b.curTagType == endTag {
		b.CommitAttribute()
		if len(b.attributes) > 0 {
			p.parseError("end-tag-with-attributes", '>', false)
		}
		if b.selfClosing {
			p.parseError("end-tag-with-trailing-solidus", '>', false)
		}
	}
	p.emit(b.TagToken())
	return DataState
}

func (p *HTMLTokenizer) emitEOFInTag(r rune) (bool, State) {
	p.parseError("eof-in-tag", r, true)
	p.emit(p.tokenBuilder.EndOfFileToken())
	return false, DataState
}

// isApprEndTagToken reports whether the end tag being built closes the
// last start tag that was emitted.
func (p *HTMLTokenizer) isApprEndTagToken() bool {
	return p.lastEmittedStartTagName != "" && p.lastEmittedStartTagName == p.tokenBuilder.Name()
}

func isASCIIWhitespace(r rune) bool {
	switch r {
	case '\u0009', '\u000A', '\u000C', ' ':
		return true
	default:
		return false
	}
}

func isASCIIUpper(r rune) bool {
	return r >= 'A' && r <= 'Z'
}

func isASCIILower(r rune) bool {
	return r >= 'a' && r <= 'z'
}

func isASCIIAlpha(r rune) bool {
	return isASCIIUpper(r) || isASCIILower(r)
}

func toASCIILower(r rune) rune {
	if isASCIIUpper(r) {
		return r + 0x20
	}
	return r
}

func (p *HTMLTokenizer) dataStateParser(r rune, eof bool) (bool, State) {
	if eof {
		p.emit(p.tokenBuilder.EndOfFileToken())
		return false, DataState
	}
	switch r {
	case '<':
		return false, TagOpenState
	case '\u0000':
		p.parseError("unexpected-null-character", r, eof)
		p.emit(p.tokenBuilder.CharacterToken(r))
		return false, DataState
	default:
		p.emit(p.tokenBuilder.CharacterToken(r))
		return false, DataState
	}
}

func (p *HTMLTokenizer) tagOpenStateParser(r rune, eof bool) (bool, State) {
	if eof {
		p.parseError("eof-before-tag-name", r, eof)
		p.emit(p.tokenBuilder.CharacterToken('<'), p.tokenBuilder.EndOfFileToken())
		return false, DataState
	}
	switch {
	case r == '/':
		return false, EndTagOpenState
	case isASCIIAlpha(r):
		p.tokenBuilder.Reset(startTag)
		return true, TagNameState
	case r == '!':
		// no comment or doctype states; the declaration is passed through as text.
		p.parseError("unsupported-markup-declaration", r, eof)
		p.emit(p.tokenBuilder.CharacterToken('<'))
		return true, DataState
	case r == '?':
		p.parseError("unexpected-question-mark-instead-of-tag-name", r, eof)
		p.emit(p.tokenBuilder.CharacterToken('<'))
		return true, DataState
	default:
		p.parseError("invalid-first-character-of-tag-name", r, eof)
		p.emit(p.tokenBuilder.CharacterToken('<'))
		return true, DataState
	}
}

func (p *HTMLTokenizer) endTagOpenStateParser(r rune, eof bool) (bool, State) {
	if eof {
		p.parseError("eof-before-tag-name", r, eof)
		p.emit(p.tokenBuilder.CharacterToken('<'), p.tokenBuilder.CharacterToken('/'), p.tokenBuilder.EndOfFileToken())
		return false, DataState
	}
	switch {
	case isASCIIAlpha(r):
		p.tokenBuilder.Reset(endTag)
		return true, TagNameState
	case r == '>':
		p.parseError("missing-end-tag-name", r, eof)
		return false, DataState
	default:
		p.parseError("invalid-first-character-of-tag-name", r, eof)
		p.emit(p.tokenBuilder.CharacterToken('<'), p.tokenBuilder.CharacterToken('/'))
		return true, DataState
	}
}

func (p *HTMLTokenizer) tagNameStateParser(r rune, eof bool) (bool, State) {
	if eof {
		return p.emitEOFInTag(r)
	}
	switch {
	case isASCIIWhitespace(r):
		return false, BeforeAttributeNameState
	case r == '/':
		return false, SelfClosingStartTagState
	case r == '>':
		return false, p.emitCurrentTag()
	case r == '\u0000':
		p.parseError("unexpected-null-character", r, eof)
		p.tokenBuilder.WriteName('\uFFFD')
		return false, TagNameState
	default:
		p.tokenBuilder.WriteName(toASCIILower(r))
		return false, TagNameState
	}
}

func (p *HTMLTokenizer) beforeAttributeNameStateParser(r rune, eof bool) (bool, State) {
	if eof {
		return true, AfterAttributeNameState
	}
	switch r {
	case '\u0009', '\u000A', '\u000C', ' ':
		return false, BeforeAttributeNameState
	case '/', '>':
		return true, AfterAttributeNameState
	case '=':
		// set that attribute's name to the current input character, and its value to the empty string.
		p.parseError("unexpected-equals-sign-before-attribute-name", r, eof)
		p.tokenBuilder.StartAttribute()
		p.tokenBuilder.WriteAttributeName(r)
		return false, AttributeNameState
	default:
		p.tokenBuilder.StartAttribute()
		return true, AttributeNameState
	}
}

func (p *HTMLTokenizer) attributeNameStateParser(r rune, eof bool) (bool, State) {
	if eof {
		return true, AfterAttributeNameState
	}
	switch r {
	case '\u0009', '\u000A', '\u000C', ' ', '/', '>':
		return true, AfterAttributeNameState
	case '=':
		return false, BeforeAttributeValueState
	case '\u0000':
		p.parseError("unexpected-null-character", r, eof)
		p.tokenBuilder.WriteAttributeName('\uFFFD')
		return false, AttributeNameState
	case '"', '\'', '<':
		p.parseError("unexpected-character-in-attribute-name", r, eof)
		p.tokenBuilder.WriteAttributeName(r)
		return false, AttributeNameState
	default:
		p.tokenBuilder.WriteAttributeName(toASCIILower(r))
		return false, AttributeNameState
	}
}

func (p *HTMLTokenizer) afterAttributeNameStateParser(r rune, eof bool) (bool, State) {
	if eof {
		return p.emitEOFInTag(r)
	}
	switch r {
	case '\u0009', '\u000A', '\u000C', ' ':
		return false, AfterAttributeNameState
	case '/':
		return false, SelfClosingStartTagState
	case '=':
		return false, BeforeAttributeValueState
	case '>':
		return false, p.emitCurrentTag()
	default:
		p.tokenBuilder.StartAttribute()
		return true, AttributeNameState
	}
}

func (p *HTMLTokenizer) beforeAttributeValueStateParser(r rune, eof bool) (bool, State) {
	if eof {
		return true, AttributeValueUnquotedState
	}
	switch r {
	case '\u0009', '\u000A', '\u000C', ' ':
		return false, BeforeAttributeValueState
	case '"':
		return false, AttributeValueDoubleQuotedState
	case '\'':
		return false, AttributeValueSingleQuotedState
	case '>':
		p.parseError("missing-attribute-value", r, eof)
		return false, p.emitCurrentTag()
	default:
		return true, AttributeValueUnquotedState
	}
}

func (p *HTMLTokenizer) attributeValueQuotedStateParser(quote rune, self State) parserStateHandler {
	return func(r rune, eof bool) (bool, State) {
		if eof {
			return p.emitEOFInTag(r)
		}
		switch r {
		case quote:
			return false, AfterAttributeValueQuotedState
		case '\u0000':
			p.parseError("unexpected-null-character", r, eof)
			p.tokenBuilder.WriteAttributeValue('\uFFFD')
			return false, self
		default:
			p.tokenBuilder.WriteAttributeValue(r)
			return false, self
		}
	}
}

func (p *HTMLTokenizer) attributeValueUnquotedStateParser(r rune, eof bool) (bool, State) {
	if eof {
		return p.emitEOFInTag(r)
	}
	switch r {
	case '\u0009', '\u000A', '\u000C', ' ':
		return false, BeforeAttributeNameState
	case '>':
		return false, p.emitCurrentTag()
	case '\u0000':
		p.parseError("unexpected-null-character", r, eof)
		p.tokenBuilder.WriteAttributeValue('\uFFFD')
		return false, AttributeValueUnquotedState
	case '"', '\'', '<', '=', '`':
		p.parseError("unexpected-character-in-unquoted-attribute-value", r, eof)
		p.tokenBuilder.WriteAttributeValue(r)
		return false, AttributeValueUnquotedState
	default:
		p.tokenBuilder.WriteAttributeValue(r)
		return false, AttributeValueUnquotedState
	}
}

func (p *HTMLTokenizer) afterAttributeValueQuotedStateParser(r rune, eof bool) (bool, State) {
	if eof {
		return p.emitEOFInTag(r)
	}
	switch r {
	case '\u0009', '\u000A', '\u000C', ' ':
		return false, BeforeAttributeNameState
	case '/':
		return false, SelfClosingStartTagState
	case '>':
		return false, p.emitCurrentTag()
	default:
		p.parseError("missing-whitespace-between-attributes", r, eof)
		return true, BeforeAttributeNameState
	}
}

func (p *HTMLTokenizer) selfClosingStartTagStateParser(r rune, eof bool) (bool, State) {
	if eof {
		return p.emitEOFInTag(r)
	}
	switch r {
	case '>':
		p.tokenBuilder.EnableSelfClosing()
		return false, p.emitCurrentTag()
	default:
		p.parseError("unexpected-solidus-in-tag", r, eof)
		return true, BeforeAttributeNameState
	}
}

func (p *HTMLTokenizer) scriptDataStateParser(r rune, eof bool) (bool, State) {
	if eof {
		p.emit(p.tokenBuilder.EndOfFileToken())
		return false, DataState
	}
	switch r {
	case '<':
		return false, ScriptDataLessThanSignState
	case '\u0000':
		p.parseError("unexpected-null-character", r, eof)
		p.emit(p.tokenBuilder.CharacterToken('\uFFFD'))
		return false, ScriptDataState
	default:
		p.emit(p.tokenBuilder.CharacterToken(r))
		return false, ScriptDataState
	}
}

func (p *HTMLTokenizer) scriptDataLessThanSignStateParser(r rune, eof bool) (bool, State) {
	if !eof && r == '/' {
		p.tokenBuilder.ResetTempBuffer()
		return false, ScriptDataEndTagOpenState
	}
	p.emit(p.tokenBuilder.CharacterToken('<'))
	return true, ScriptDataState
}

func (p *HTMLTokenizer) scriptDataEndTagOpenStateParser(r rune, eof bool) (bool, State) {
	if !eof && isASCIIAlpha(r) {
		p.tokenBuilder.Reset(endTag)
		return true, ScriptDataEndTagNameState
	}
	p.emit(p.tokenBuilder.CharacterToken('<'), p.tokenBuilder.CharacterToken('/'))
	return true, ScriptDataState
}

func (p *HTMLTokenizer) defaultScriptDataEndTagNameStateCase() (bool, State) {
	p.emit(p.tokenBuilder.CharacterToken('<'), p.tokenBuilder.CharacterToken('/'))
	p.emit(p.tokenBuilder.TempBufferCharTokens()...)
	return true, ScriptDataState
}

func (p *HTMLTokenizer) scriptDataEndTagNameStateParser(r rune, eof bool) (bool, State) {
	if eof {
		return p.defaultScriptDataEndTagNameStateCase()
	}
	switch {
	case isASCIIWhitespace(r):
		if p.isApprEndTagToken() {
			return false, BeforeAttributeNameState
		}
		return p.defaultScriptDataEndTagNameStateCase()
	case r == '/':
		if p.isApprEndTagToken() {
			return false, SelfClosingStartTagState
		}
		return p.defaultScriptDataEndTagNameStateCase()
	case r == '>':
		if p.isApprEndTagToken() {
			return false, p.emitCurrentTag()
		}
		return p.defaultScriptDataEndTagNameStateCase()
	case isASCIIAlpha(r):
		p.tokenBuilder.WriteTempBuffer(r)
		p.tokenBuilder.WriteName(toASCIILower(r))
		return false, ScriptDataEndTagNameState
	default:
		return p.defaultScriptDataEndTagNameStateCase()
	}
}

// a parserStateHandler is a func that takes in a rune and a bool representing the end of file
// and returns whether the rune must be reconsumed and the next state to transition to.
type parserStateHandler func(in rune, eof bool) (bool, State)

func (p *HTMLTokenizer) stateToParser(state State) parserStateHandler {
	switch state {
	case DataState:
		return p.dataStateParser
	case TagOpenState:
		return p.tagOpenStateParser
	case EndTagOpenState:
		return p.endTagOpenStateParser
	case TagNameState:
		return p.tagNameStateParser
	case BeforeAttributeNameState:
		return p.beforeAttributeNameStateParser
	case AttributeNameState:
		return p.attributeNameStateParser
	case AfterAttributeNameState:
		return p.afterAttributeNameStateParser
	case BeforeAttributeValueState:
		return p.beforeAttributeValueStateParser
	case AttributeValueDoubleQuotedState:
		return p.attributeValueQuotedStateParser('"', AttributeValueDoubleQuotedState)
	case AttributeValueSingleQuotedState:
		return p.attributeValueQuotedStateParser('\'', AttributeValueSingleQuotedState)
	case AttributeValueUnquotedState:
		return p.attributeValueUnquotedStateParser
	case AfterAttributeValueQuotedState:
		return p.afterAttributeValueQuotedStateParser
	case SelfClosingStartTagState:
		return p.selfClosingStartTagStateParser
	case ScriptDataState:
		return p.scriptDataStateParser
	case ScriptDataLessThanSignState:
		return p.scriptDataLessThanSignStateParser
	case ScriptDataEndTagOpenState:
		return p.scriptDataEndTagOpenStateParser
	case ScriptDataEndTagNameState:
		return p.scriptDataEndTagNameStateParser
	}

	// unknown states fall back to data so the machine keeps making progress.
	p.log.WithField("state", state).Warn("no handler for tokenizer state")
	return p.dataStateParser
}

// State names a mode of the tokenizer's state machine.
type State uint

const (
	DataState State = iota
	TagOpenState
	EndTagOpenState
	TagNameState
	BeforeAttributeNameState
	AttributeNameState
	AfterAttributeNameState
	BeforeAttributeValueState
	AttributeValueDoubleQuotedState
	AttributeValueSingleQuotedState
	AttributeValueUnquotedState
	AfterAttributeValueQuotedState
	SelfClosingStartTagState
	ScriptDataState
	ScriptDataLessThanSignState
	ScriptDataEndTagOpenState
	ScriptDataEndTagNameState
)

var stateNames = [...]string{
	DataState:                       "Data",
	TagOpenState:                    "TagOpen",
	EndTagOpenState:                 "EndTagOpen",
	TagNameState:                    "TagName",
	BeforeAttributeNameState:        "BeforeAttributeName",
	AttributeNameState:              "AttributeName",
	AfterAttributeNameState:         "AfterAttributeName",
	BeforeAttributeValueState:       "BeforeAttributeValue",
	AttributeValueDoubleQuotedState: "AttributeValueDoubleQuoted",
	AttributeValueSingleQuotedState: "AttributeValueSingleQuoted",
	AttributeValueUnquotedState:     "AttributeValueUnquoted",
	AfterAttributeValueQuotedState:  "AfterAttributeValueQuoted",
	SelfClosingStartTagState:        "SelfClosingStartTag",
	ScriptDataState:                 "ScriptData",
	ScriptDataLessThanSignState:     "ScriptDataLessThanSign",
	ScriptDataEndTagOpenState:       "ScriptDataEndTagOpen",
	ScriptDataEndTagNameState:       "ScriptDataEndTagName",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}
