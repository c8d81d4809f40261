// Package ofx reads OFX/QFX statement downloads as a bank feed. Statements
// only carry settled transactions, so every record is posted.
package ofx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/Veraticus/settle/internal/common"
	"github.com/Veraticus/settle/internal/model"
	"github.com/Veraticus/settle/internal/service"
	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Parser implements OFX/QFX file parsing.
type Parser struct {
	accountNames map[string]string
	logger       *slog.Logger
}

// NewParser creates a parser that renames statement accounts through
// accountNames, keyed by ACCTID. Unmapped accounts keep their ACCTID.
func NewParser(accountNames map[string]string) *Parser {
	return &Parser{
		accountNames: accountNames,
		logger:       slog.Default().With("component", "ofx"),
	}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be upper case
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// SGML files sometimes drop the closing bracket of a bare tag
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// ParseFile parses one OFX/QFX file into feed accounts, one per statement,
// in file order.
func (p *Parser) ParseFile(_ context.Context, reader io.Reader) ([]model.FeedAccount, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var accounts []model.FeedAccount

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok {
			continue
		}
		account, err := p.convertStatement(string(stmt.BankAcctFrom.AcctID), stmt.BankTranList)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok {
			continue
		}
		account, err := p.convertStatement(string(stmt.CCAcctFrom.AcctID), stmt.BankTranList)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	p.logger.Info("Parsed OFX file", "statements", len(accounts))

	return accounts, nil
}

func (p *Parser) convertStatement(acctID string, list *ofxgo.TransactionList) (model.FeedAccount, error) {
	account := model.FeedAccount{Name: p.AccountName(acctID)}
	if list == nil {
		return account, nil
	}

	for _, tx := range list.Transactions {
		record, err := p.convertTransaction(tx)
		if err != nil {
			return account, &common.InputError{Account: account.Name, Field: "amount", Value: tx.TrnAmt.String(), Err: err}
		}
		account.Posted = append(account.Posted, record)
	}

	return account, nil
}

// AccountName maps an ACCTID to its configured feed account name.
func (p *Parser) AccountName(acctID string) string {
	if name, ok := p.accountNames[acctID]; ok && name != "" {
		return name
	}
	// Keys loaded through viper arrive lowercased.
	if name, ok := p.accountNames[strings.ToLower(acctID)]; ok && name != "" {
		return name
	}
	return acctID
}

// convertTransaction renders an OFX transaction in feed conventions. OFX
// signs debits negative, the feed signs spending positive.
func (p *Parser) convertTransaction(tx ofxgo.Transaction) (model.RawPosted, error) {
	amount, err := decimal.NewFromString(tx.TrnAmt.FloatString(4))
	if err != nil {
		return model.RawPosted{}, fmt.Errorf("%w: %v", common.ErrInvalidAmount, err)
	}

	return model.RawPosted{
		Date:        tx.DtPosted.Format(model.PostedDateLayout),
		Amount:      amount.Neg().String(),
		Description: p.extractMerchantName(tx),
	}, nil
}

var statementPrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"DEBIT PURCHASE ",
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func (p *Parser) extractMerchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	for _, prefix := range statementPrefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Drop a leading "MM/DD " authorization date
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(name) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}

// Feed is a service.FeedSource over a fixed set of statement files.
type Feed struct {
	parser *Parser
	files  []string
}

// Ensure Feed implements service.FeedSource.
var _ service.FeedSource = (*Feed)(nil)

// NewFeed creates a feed reading the given files on every fetch.
func NewFeed(files []string, accountNames map[string]string) (*Feed, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: at least one OFX file is required", common.ErrMissingConfig)
	}
	return &Feed{
		parser: NewParser(accountNames),
		files:  files,
	}, nil
}

// FetchAccounts parses every file. Statements for the same account across
// files are merged in file order.
func (f *Feed) FetchAccounts(ctx context.Context) ([]model.FeedAccount, error) {
	var accounts []model.FeedAccount
	index := make(map[string]int)

	for _, path := range f.files {
		parsed, err := f.parseFile(ctx, path)
		if err != nil {
			return nil, err
		}
		for _, a := range parsed {
			if i, ok := index[a.Name]; ok {
				accounts[i].Posted = append(accounts[i].Posted, a.Posted...)
				continue
			}
			index[a.Name] = len(accounts)
			accounts = append(accounts, a)
		}
	}

	return accounts, nil
}

func (f *Feed) parseFile(ctx context.Context, path string) ([]model.FeedAccount, error) {
	file, err := os.Open(path) // #nosec G304 -- statement paths come from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open OFX file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			f.parser.logger.Debug("Failed to close OFX file", "path", path, "error", closeErr)
		}
	}()

	accounts, err := f.parser.ParseFile(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return accounts, nil
}
