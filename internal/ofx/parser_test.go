package ofx

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Veraticus/settle/internal/common"
	"github.com/Veraticus/settle/internal/model"
	"github.com/aclindsa/ofxgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Sample OFX data for testing.
const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2024011501
<NAME>STARBUCKS STORE #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>-125.00
<FITID>2024012001
<NAME>Whole Foods Market
</STMTTRN>
<STMTTRN>
<TRNTYPE>CHECK
<DTPOSTED>20240125120000[0:GMT]
<TRNAMT>-500.00
<FITID>2024012501
<CHECKNUM>1234
<NAME>CHECK #1234
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

const sampleCreditCardOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>USD
<CCACCTFROM>
<ACCTID>4111111111111111
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240110120000[0:GMT]
<TRNAMT>-45.99
<FITID>CC2024011001
<NAME>AMAZON.COM*RT4Y7HG2
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-15.00
<FITID>CC2024011501
<NAME>NETFLIX.COM
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-500.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func TestParseFile(t *testing.T) {
	tests := []struct {
		name          string
		ofxData       string
		expectedCount int
		expectedError bool
	}{
		{
			name:          "valid bank statement",
			ofxData:       sampleBankOFX,
			expectedCount: 3,
		},
		{
			name:          "valid credit card statement",
			ofxData:       sampleCreditCardOFX,
			expectedCount: 2,
		},
		{
			name:          "invalid OFX data",
			ofxData:       "not valid OFX",
			expectedError: true,
		},
		{
			name:          "empty OFX",
			ofxData:       "",
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewParser(nil)

			accounts, err := parser.ParseFile(context.Background(), strings.NewReader(tt.ofxData))

			if tt.expectedError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, accounts, 1)
			assert.Len(t, accounts[0].Posted, tt.expectedCount)
			assert.Empty(t, accounts[0].Pending)
		})
	}
}

func TestParseBankTransactions(t *testing.T) {
	parser := NewParser(map[string]string{"1234567890": "Checking"})

	accounts, err := parser.ParseFile(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Checking", accounts[0].Name)

	records := accounts[0].Posted
	require.Len(t, records, 3)

	assert.Equal(t, model.RawPosted{
		Date:        "15/01/2024",
		Amount:      "25.5",
		Description: "STARBUCKS STORE #1234",
	}, records[0])
	assert.Equal(t, "125", records[1].Amount)
	assert.Equal(t, "Whole Foods Market", records[1].Description)
	assert.Equal(t, "25/01/2024", records[2].Date)
	assert.Equal(t, "500", records[2].Amount)
}

func TestParseCreditCardTransactions(t *testing.T) {
	parser := NewParser(nil)

	accounts, err := parser.ParseFile(context.Background(), strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "4111111111111111", accounts[0].Name, "unmapped accounts keep their ACCTID")

	records := accounts[0].Posted
	require.Len(t, records, 2)
	assert.Equal(t, "AMAZON.COM*RT4Y7HG2", records[0].Description)
	assert.Equal(t, "45.99", records[0].Amount)
	assert.Equal(t, "10/01/2024", records[0].Date)
	assert.Equal(t, "15", records[1].Amount)
}

func TestParsedAmountsNormalize(t *testing.T) {
	parser := NewParser(nil)

	accounts, err := parser.ParseFile(context.Background(), strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)

	for _, r := range accounts[0].Posted {
		assert.NotContains(t, r.Amount, "-", "debits become positive spend")
	}
}

func TestExtractMerchantName(t *testing.T) {
	parser := NewParser(nil)

	tests := []struct {
		name     string
		input    string
		memo     string
		expected string
	}{
		{
			name:     "remove POS prefix",
			input:    "POS PURCHASE STARBUCKS",
			expected: "STARBUCKS",
		},
		{
			name:     "remove DEBIT CARD prefix",
			input:    "DEBIT CARD PURCHASE WHOLE FOODS",
			expected: "WHOLE FOODS",
		},
		{
			name:     "keep clean name",
			input:    "NETFLIX.COM",
			expected: "NETFLIX.COM",
		},
		{
			name:     "trim whitespace",
			input:    "  AMAZON.COM  ",
			expected: "AMAZON.COM",
		},
		{
			name:     "strip authorization date",
			input:    "03/14 CORNER DELI",
			expected: "CORNER DELI",
		},
		{
			name:     "generic name falls back to memo",
			input:    "DEBIT",
			memo:     "CITY PARKING",
			expected: "CITY PARKING",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := ofxgo.Transaction{
				Name: ofxgo.String(tt.input),
				Memo: ofxgo.String(tt.memo),
			}
			assert.Equal(t, tt.expected, parser.extractMerchantName(tx))
		})
	}
}

func TestExtractMerchantNamePrefersPayee(t *testing.T) {
	parser := NewParser(nil)

	tx := ofxgo.Transaction{
		Name:  ofxgo.String("POS PURCHASE 1234"),
		Payee: &ofxgo.Payee{Name: ofxgo.String("Hardware Store")},
	}
	assert.Equal(t, "Hardware Store", parser.extractMerchantName(tx))
}

func TestPreprocessOFX(t *testing.T) {
	parser := NewParser(nil)

	got := parser.preprocessOFX("\n\n<SEVERITY>Info</SEVERITY>\n<CODE\n")
	assert.Equal(t, "<SEVERITY>INFO</SEVERITY>\n<CODE>\n", got)
}

func TestFeed_FetchAccounts(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "january.qfx")
	second := filepath.Join(dir, "card.ofx")
	require.NoError(t, os.WriteFile(first, []byte(sampleBankOFX), 0o600))
	require.NoError(t, os.WriteFile(second, []byte(sampleCreditCardOFX), 0o600))

	feed, err := NewFeed([]string{first, second, first}, map[string]string{
		"1234567890":       "Checking",
		"4111111111111111": "Visa",
	})
	require.NoError(t, err)

	accounts, err := feed.FetchAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	assert.Equal(t, "Checking", accounts[0].Name)
	assert.Len(t, accounts[0].Posted, 6, "statements of the same account are merged")
	assert.Equal(t, "Visa", accounts[1].Name)
	assert.Len(t, accounts[1].Posted, 2)
}

func TestFeed_Errors(t *testing.T) {
	_, err := NewFeed(nil, nil)
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	feed, err := NewFeed([]string{filepath.Join(t.TempDir(), "missing.ofx")}, nil)
	require.NoError(t, err)

	_, err = feed.FetchAccounts(context.Background())
	assert.Error(t, err)
}

func TestAccountName(t *testing.T) {
	parser := NewParser(map[string]string{"1234567890": "Checking", "xcard-01": "Visa"})

	assert.Equal(t, "Checking", parser.AccountName("1234567890"))
	assert.Equal(t, "Visa", parser.AccountName("XCARD-01"))
	assert.Equal(t, "UNKNOWN", parser.AccountName("UNKNOWN"))
}
