package model

import "strings"

// Symbol is an uppercase ticker. It is the partition key for fetch and storage.
type Symbol string

// NewSymbol trims and upper-cases s.
func NewSymbol(s string) Symbol {
	return Symbol(strings.ToUpper(strings.TrimSpace(s)))
}

func (s Symbol) String() string { return string(s) }

// SymbolUniverse is the ordered list of symbols a process ingests.
// It is read once at startup and never changes afterwards.
type SymbolUniverse struct {
	symbols []Symbol
}

// NewSymbolUniverse keeps order and duplicates; blank entries are dropped.
func NewSymbolUniverse(list []string) SymbolUniverse {
	out := make([]Symbol, 0, len(list))
	for _, s := range list {
		sym := NewSymbol(s)
		if sym == "" {
			continue
		}
		out = append(out, sym)
	}
	return SymbolUniverse{symbols: out}
}

// ParseUniverse splits a comma-separated list such as "AAPL,MSFT,NVDA".
func ParseUniverse(csv string) SymbolUniverse {
	return NewSymbolUniverse(strings.Split(csv, ","))
}

// Symbols returns a copy of the universe in configured order.
func (u SymbolUniverse) Symbols() []Symbol {
	out := make([]Symbol, len(u.symbols))
	copy(out, u.symbols)
	return out
}

// Strings returns the universe as plain strings, for provider subscriptions.
func (u SymbolUniverse) Strings() []string {
	out := make([]string, len(u.symbols))
	for i, s := range u.symbols {
		out[i] = string(s)
	}
	return out
}

func (u SymbolUniverse) Len() int { return len(u.symbols) }
