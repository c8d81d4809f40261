package model

// PostedDateLayout is the day/month/year layout of posted feed records.
const PostedDateLayout = "02/01/2006"

// RawPosted is a settled record as exported by the issuer.
// Amount uses the feed convention: positive is money spent.
type RawPosted struct {
	Amount      string
	Date        string // DD/MM/YYYY
	Description string
}

// RawPending is an authorized but unsettled record.
type RawPending struct {
	Amount      string
	ChargeDate  string // YYYY-MM-DD
	Description string
}

// FeedAccount groups the records fetched for one physical account.
type FeedAccount struct {
	Name    string
	Posted  []RawPosted
	Pending []RawPending
}

// RecordCount returns the total number of raw records.
func (f *FeedAccount) RecordCount() int {
	return len(f.Posted) + len(f.Pending)
}
