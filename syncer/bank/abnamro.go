package bank

import (
	"fmt"
	"strings"
)

const (
	abnTransferMarker    = "TRTP"
	abnIDEALMarker       = "iDEAL"
	abnSEPAMarker        = "SEPA OVERBOEKING"
	abnDirectDebitMarker = "SEPA Incasso"
	abnCardMarker        = "BEA"
	abnCashMarker        = "GEA"

	abnNameTag = "/NAME/"
	abnRemiTag = "/REMI/"

	// positions in a "/"-split iDEAL or SEPA transfer: /TRTP/<type>/IBAN/<iban>/BIC/<bic>/NAME/<name>/REMI/<remi>/...
	abnTransferNameField = 8
	abnTransferRemiField = 10
)

// card descriptor noise that ends up glued to the merchant name
var abnCardNoise = []string{"Betaalpas", "PAS544", " Apple Pay"}

// parseABNAMRO checks templates in a fixed order: iDEAL/SEPA transfer, SEPA direct debit,
// card payment (BEA), cash withdrawal (GEA).
func parseABNAMRO(desc string) (Result, bool, error) {
	switch {
	case strings.Contains(desc, abnTransferMarker) &&
		(strings.Contains(desc, abnIDEALMarker) || strings.Contains(desc, abnSEPAMarker)):
		res, err := abnTransfer(desc)
		return res, true, err
	case strings.Contains(desc, abnTransferMarker) && strings.Contains(desc, abnDirectDebitMarker):
		res, err := abnDirectDebit(desc)
		return res, true, err
	case strings.HasPrefix(strings.TrimSpace(desc), abnCardMarker),
		strings.HasPrefix(strings.TrimSpace(desc), abnCashMarker):
		res, err := abnCard(desc)
		return res, true, err
	default:
		return Result{}, false, nil
	}
}

func abnTransfer(desc string) (Result, error) {
	fields := strings.Split(desc, "/")
	if len(fields) <= abnTransferRemiField {
		return Result{}, fmt.Errorf("%w: transfer has %d fields, want at least %d",
			ErrMalformed, len(fields), abnTransferRemiField+1)
	}

	return Result{
		Payee: strings.TrimSpace(fields[abnTransferNameField]),
		Notes: strings.TrimSpace(fields[abnTransferRemiField]),
	}, nil
}

// abnDirectDebit reads the tagged values; /NAME/ is mandatory, /REMI/ may be absent.
func abnDirectDebit(desc string) (Result, error) {
	name, ok := abnTagValue(desc, abnNameTag)
	if !ok {
		return Result{}, fmt.Errorf("%w: direct debit without %s", ErrMalformed, abnNameTag)
	}
	remi, _ := abnTagValue(desc, abnRemiTag)

	return Result{Payee: name, Notes: remi}, nil
}

func abnTagValue(desc, tag string) (string, bool) {
	_, rest, found := strings.Cut(desc, tag)
	if !found {
		return "", false
	}
	value, _, _ := strings.Cut(rest, "/")
	return strings.TrimSpace(value), true
}

// abnCard handles "BEA, Betaalpas   Merchant,PAS544   NR:..., dd.mm.yy/hh:mm   CITY".
func abnCard(desc string) (Result, error) {
	fields := strings.Split(desc, ",")
	if len(fields) < 2 {
		return Result{}, fmt.Errorf("%w: card payment without comma separated details", ErrMalformed)
	}

	payee := fields[1]
	for _, noise := range abnCardNoise {
		payee = strings.ReplaceAll(payee, noise, "")
	}

	return Result{
		Payee: strings.TrimSpace(payee),
		Notes: collapseSpaces(strings.Join(fields[2:], ",")),
	}, nil
}
