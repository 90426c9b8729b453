package domain

import "strings"

// IdentityPlaceholder is rendered in place of identity fields the statement did not carry.
const IdentityPlaceholder = "-"

// AccountIdentity holds the account metadata found above the transaction table
// of a broker statement. Both fields are optional.
type AccountIdentity struct {
	Name          *string `json:"name,omitempty"`
	AccountNumber *string `json:"account_number,omitempty"`
}

// DisplayName returns the account holder name or the placeholder.
func (a AccountIdentity) DisplayName() string {
	return valueOrPlaceholder(a.Name)
}

// DisplayAccount returns the account number or the placeholder.
func (a AccountIdentity) DisplayAccount() string {
	return valueOrPlaceholder(a.AccountNumber)
}

func valueOrPlaceholder(v *string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return IdentityPlaceholder
	}
	return *v
}

// RawRow is one row of a statement grid. Index is the zero-based position of the
// row in the parsed file, before the header was applied.
type RawRow struct {
	Index int      `json:"index"`
	Cells []string `json:"cells"`
}

// RawTable is the transaction table of a statement with no semantic interpretation.
// Empty strings stand for null cells. Labels are unique; duplicates in the file are
// renamed "Label.1", "Label.2" and blank labels become "Unnamed: <col>".
type RawTable struct {
	HeaderIndex int      `json:"header_index"`
	Labels      []string `json:"labels"`
	Rows        []RawRow `json:"rows"`
}

// Column returns the cells of column col for every row.
func (t *RawTable) Column(col int) []string {
	values := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		if col < len(row.Cells) {
			values[i] = row.Cells[col]
		}
	}
	return values
}
