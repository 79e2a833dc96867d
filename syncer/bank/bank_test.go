package bank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromName(t *testing.T) {
	assert.Equal(t, ABNAMRO, FromName("ABN AMRO"))
	assert.Equal(t, ABNAMRO, FromName("ABN AMRO Bank N.V."))
	assert.Equal(t, ING, FromName("ING"))
	assert.Equal(t, ING, FromName("ING Bank"))
	assert.Equal(t, Unknown, FromName("Ingenious Credit Union"))
	assert.Equal(t, Unknown, FromName("Chase"))
	assert.Equal(t, Unknown, FromName(""))
}

func TestParse_ABNAMRO(t *testing.T) {
	tests := []struct {
		name  string
		desc  string
		payee string
		notes string
	}{
		{
			name:  "ideal",
			desc:  "/TRTP/iDEAL/IBAN/NL27RABO0000000000/BIC/RABONL2U/NAME/Bol.com/REMI/1234 Bestelling 5678/EREF/24-01-2024 10:15",
			payee: "Bol.com",
			notes: "1234 Bestelling 5678",
		},
		{
			name:  "sepa transfer",
			desc:  "/TRTP/SEPA OVERBOEKING/IBAN/NL91ABNA0417164300/BIC/ABNANL2A/NAME/J Jansen /REMI/ Huur februari/EREF/NOTPROVIDED",
			payee: "J Jansen",
			notes: "Huur februari",
		},
		{
			name:  "positional fields",
			desc:  "TRTP/a/iDEAL/b/SEPA OVERBOEKING/c/d/e/NAME_AT_SPLIT8/f/MEMO_AT_SPLIT10",
			payee: "NAME_AT_SPLIT8",
			notes: "MEMO_AT_SPLIT10",
		},
		{
			name:  "direct debit",
			desc:  "/TRTP/SEPA Incasso algemeen doorlopend/CSID/NL00ZZZ000000000000/NAME/Vattenfall/MARF/123/REMI/Termijn januari/IBAN/NL00INGB0000000000",
			payee: "Vattenfall",
			notes: "Termijn januari",
		},
		{
			name:  "direct debit without remittance",
			desc:  "/TRTP/SEPA Incasso algemeen doorlopend/CSID/NL00ZZZ000000000000/NAME/Ziggo/MARF/123",
			payee: "Ziggo",
			notes: "",
		},
		{
			name:  "card payment",
			desc:  "BEA, Betaalpas                   Albert Heijn 1234,PAS544          NR:12AB34, 01.02.24/14:05        AMSTERDAM",
			payee: "Albert Heijn 1234",
			notes: "PAS544 NR:12AB34, 01.02.24/14:05 AMSTERDAM",
		},
		{
			name:  "apple pay",
			desc:  "BEA, Apple Pay                   Jumbo Amsterdam,PAS544          NR:9X8Y7Z, 03.02.24/09:41",
			payee: "Jumbo Amsterdam",
			notes: "PAS544 NR:9X8Y7Z, 03.02.24/09:41",
		},
		{
			name:  "cash withdrawal",
			desc:  "GEA, Betaalpas                   Geldmaat Utrecht,PAS544          NR:ABC123, 05.02.24/18:00",
			payee: "Geldmaat Utrecht",
			notes: "PAS544 NR:ABC123, 05.02.24/18:00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Parse(ABNAMRO, tt.desc)
			require.NoError(t, err)
			assert.True(t, res.Matched)
			assert.Equal(t, tt.payee, res.Payee)
			assert.Equal(t, tt.notes, res.Notes)
		})
	}
}

func TestParse_ABNAMRO_Malformed(t *testing.T) {
	for _, desc := range []string{
		"/TRTP/iDEAL/IBAN/NL27RABO0000000000/BIC",
		"/TRTP/SEPA Incasso algemeen doorlopend/CSID/NL00ZZZ000000000000/REMI/x",
		"BEA Albert Heijn zonder komma",
	} {
		_, err := Parse(ABNAMRO, desc)
		assert.ErrorIs(t, err, ErrMalformed, desc)
	}
}

func TestParse_ING(t *testing.T) {
	res, err := Parse(ING, "Naam: Vattenfall Klantenservice N.V. Omschrijving: Termijnbedrag 01-2024  IBAN: NL12INGB0001234567 Kenmerk: 123 Valutadatum: 01-02-2024")
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, "Vattenfall Klantenservice N.V.", res.Payee)
	assert.Equal(t, "Termijnbedrag 01-2024", res.Notes)

	res, err = Parse(ING, "Naam: J Jansen IBAN: NL12INGB0001234567")
	require.NoError(t, err)
	assert.Equal(t, "J Jansen", res.Payee)
	assert.Empty(t, res.Notes)

	_, err = Parse(ING, "Naam:  Omschrijving: leeg")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParse_Passthrough(t *testing.T) {
	tests := []struct {
		id   ID
		desc string
	}{
		{Unknown, "/TRTP/iDEAL/IBAN/x/BIC/y/NAME/z/REMI/w"},
		{ABNAMRO, "Rente"},
		{ABNAMRO, "Correctie BEA, Betaalpas Albert Heijn,PAS544"},
		{ING, "Albert Heijn 1234 AMSTERDAM"},
		{ABNAMRO, ""},
	}

	for _, tt := range tests {
		res, err := Parse(tt.id, tt.desc)
		require.NoError(t, err)
		assert.Equal(t, Result{Payee: tt.desc, Notes: tt.desc}, res)
	}
}
