package parser

import (
	"github.com/pkg/errors"
	"golang.org/x/net/html/atom"
)

// TokenSink consumes tokens downstream of the tokenizer, normally a tree
// builder. A non-nil state switches the tokenizer before it reads on.
type TokenSink interface {
	ProcessToken(t Token) (*State, error)
}

// TokenSinkFunc adapts a function to TokenSink.
type TokenSinkFunc func(t Token) (*State, error)

func (f TokenSinkFunc) ProcessToken(t Token) (*State, error) {
	return f(t)
}

// Parser pumps every token from Tokenizer into Sink.
type Parser struct {
	Tokenizer *HTMLTokenizer
	Sink      TokenSink
}

func NewParser(tokenizer *HTMLTokenizer, sink TokenSink) *Parser {
	return &Parser{
		Tokenizer: tokenizer,
		Sink:      sink,
	}
}

// Start runs until the tokenizer is exhausted or the sink fails. It returns
// how many tokens reached the sink.
func (p *Parser) Start() (int, error) {
	count := 0
	for token := range p.Tokenizer.All() {
		count++
		next, err := p.Sink.ProcessToken(token)
		if err != nil {
			return count, errors.Wrapf(err, "processing %s", &token)
		}
		// the tree constructor needs to be able to change the state of the tokenizer.
		if next != nil {
			p.Tokenizer.SetState(*next)
		}
	}
	return count, nil
}

// ScriptDataSwitch returns ScriptDataState for a <script> start tag and nil
// for everything else, the one state change this tokenizer supports.
func ScriptDataSwitch(t Token) *State {
	if t.TokenType == StartTagToken && t.DataAtom == atom.Script {
		s := ScriptDataState
		return &s
	}
	return nil
}
