package plugin

import (
	"errors"
	"plugin"
)

// Symbol is the name a tokenizer plugin exports its implementation under.
const Symbol = "Plugin"

var (
	ErrInvalidSymbol = errors.New("plugin symbol does not implement Tokenizer")
)

// Tokenizer is the contract of a tokenizer plugin. Split must be safe for
// concurrent use.
type Tokenizer interface {
	Version() string
	Split(line string) []string
}

func Load(path string) (Tokenizer, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}

	symbol, err := p.Lookup(Symbol)
	if err != nil {
		return nil, err
	}

	t, ok := symbol.(Tokenizer)
	if !ok {
		return nil, ErrInvalidSymbol
	}
	return t, nil
}
