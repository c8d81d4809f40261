package ynab

// Wire types of the YNAB v1 API. Only the fields the reconciler uses are
// declared.

type errorResponse struct {
	Error struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Detail string `json:"detail"`
	} `json:"error"`
}

type accountsResponse struct {
	Data struct {
		Accounts []account `json:"accounts"`
	} `json:"data"`
}

type account struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Closed  bool   `json:"closed"`
	Deleted bool   `json:"deleted"`
}

type transactionsResponse struct {
	Data struct {
		Transactions []transactionDetail `json:"transactions"`
	} `json:"data"`
}

type transactionDetail struct {
	Memo            *string          `json:"memo"`
	FlagColor       *string          `json:"flag_color"`
	PayeeName       *string          `json:"payee_name"`
	ImportPayeeName *string          `json:"import_payee_name"`
	CategoryID      *string          `json:"category_id"`
	ImportID        *string          `json:"import_id"`
	ID              string           `json:"id"`
	Date            string           `json:"date"`
	Cleared         string           `json:"cleared"`
	AccountID       string           `json:"account_id"`
	AccountName     string           `json:"account_name"`
	Subtransactions []subTransaction `json:"subtransactions"`
	Amount          int64            `json:"amount"`
	Approved        bool             `json:"approved"`
	Deleted         bool             `json:"deleted"`
}

type subTransaction struct {
	Memo       *string `json:"memo"`
	PayeeID    *string `json:"payee_id"`
	PayeeName  *string `json:"payee_name"`
	CategoryID *string `json:"category_id"`
	Amount     int64   `json:"amount"`
	Deleted    bool    `json:"deleted"`
}

type saveTransactionsRequest struct {
	Transactions []saveTransaction `json:"transactions"`
}

type saveTransaction struct {
	PayeeName       *string              `json:"payee_name,omitempty"`
	CategoryID      *string              `json:"category_id,omitempty"`
	Memo            *string              `json:"memo,omitempty"`
	FlagColor       *string              `json:"flag_color,omitempty"`
	ImportID        *string              `json:"import_id,omitempty"`
	AccountID       string               `json:"account_id"`
	Date            string               `json:"date"`
	Cleared         string               `json:"cleared"`
	Subtransactions []saveSubTransaction `json:"subtransactions,omitempty"`
	Amount          int64                `json:"amount"`
	Approved        bool                 `json:"approved"`
}

type saveSubTransaction struct {
	PayeeID    *string `json:"payee_id,omitempty"`
	PayeeName  *string `json:"payee_name,omitempty"`
	CategoryID *string `json:"category_id,omitempty"`
	Memo       *string `json:"memo,omitempty"`
	Amount     int64   `json:"amount"`
}

type saveTransactionsResponse struct {
	Data struct {
		TransactionIDs     []string `json:"transaction_ids"`
		DuplicateImportIDs []string `json:"duplicate_import_ids"`
	} `json:"data"`
}

type updateTransactionRequest struct {
	Transaction updateTransaction `json:"transaction"`
}

type updateTransaction struct {
	FlagColor *string `json:"flag_color,omitempty"`
	Memo      *string `json:"memo,omitempty"`
}
