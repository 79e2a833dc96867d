// Package bank extracts a counterparty and memo from the free-text transaction descriptions
// some banks put into the aggregator's "name" field.
package bank

import (
	"errors"
	"fmt"
	"strings"
)

// ID is a bank whose descriptions have a known structure. Unknown always parses as pass-through.
type ID int

const (
	Unknown ID = iota
	ABNAMRO
	ING
)

var ErrMalformed = errors.New("malformed description")

func (id ID) String() string {
	switch id {
	case ABNAMRO:
		return "abnamro"
	case ING:
		return "ing"
	default:
		return "unknown"
	}
}

// FromName resolves the institution display name reported by the aggregator.
func FromName(name string) ID {
	normalized := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '.', '-', '_':
			return -1
		}
		return r
	}, strings.ToLower(name))

	switch {
	case strings.HasPrefix(normalized, "abnamro"):
		return ABNAMRO
	case normalized == "ing" || strings.HasPrefix(normalized, "ingbank"):
		return ING
	default:
		return Unknown
	}
}

// Result of parsing one description. Matched is false on the pass-through path.
type Result struct {
	Payee   string
	Notes   string
	Matched bool
}

// Parse picks the parser registered for id. Descriptions without any of the bank's markers, and
// banks without a parser, pass through unchanged. A description whose marker is present but whose
// template is incomplete fails with ErrMalformed.
func Parse(id ID, desc string) (Result, error) {
	var (
		res Result
		ok  bool
		err error
	)

	switch id {
	case ABNAMRO:
		res, ok, err = parseABNAMRO(desc)
	case ING:
		res, ok, err = parseING(desc)
	case Unknown:
	}

	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", id, err)
	}
	if !ok {
		return passthrough(desc), nil
	}

	res.Matched = true
	return res, nil
}

func passthrough(desc string) Result {
	return Result{Payee: desc, Notes: desc}
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
