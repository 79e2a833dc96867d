package bank

import (
	"fmt"
	"strings"
)

const (
	ingNameLabel = "Naam:"
	ingDescLabel = "Omschrijving:"
)

// labels that terminate a value in ING's "Label: value Label: value" layout
var ingLabels = []string{
	ingNameLabel,
	ingDescLabel,
	"IBAN:",
	"Kenmerk:",
	"Machtiging ID:",
	"Incassant ID:",
	"Datum/Tijd:",
	"Pasvolgnr:",
	"Transactie:",
	"Term:",
	"Valutadatum:",
}

func parseING(desc string) (Result, bool, error) {
	if !strings.Contains(desc, ingNameLabel) {
		return Result{}, false, nil
	}

	name := ingLabelValue(desc, ingNameLabel)
	if name == "" {
		return Result{}, true, fmt.Errorf("%w: empty %s", ErrMalformed, ingNameLabel)
	}

	return Result{
		Payee: name,
		Notes: ingLabelValue(desc, ingDescLabel),
	}, true, nil
}

func ingLabelValue(desc, label string) string {
	_, rest, found := strings.Cut(desc, label)
	if !found {
		return ""
	}

	end := len(rest)
	for _, next := range ingLabels {
		if i := strings.Index(rest, next); i >= 0 && i < end {
			end = i
		}
	}

	return collapseSpaces(rest[:end])
}
