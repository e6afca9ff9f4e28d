// Package ingest turns upstream statement exports into fixed-shape
// rows. Legacy spreadsheets and mobile-money exports disagree on
// header spellings ("Amount  Issued" vs "Principal Amount"), so every
// loader funnels through one alias-resolution step and the
// reconciliation core never sees a raw header name.
package ingest

import "strings"

// Row is the fixed shape handed to the reconciler. All values are the
// raw strings from the source; normalization happens downstream.
type Row struct {
	Name          string
	Phone         string
	Amount        string
	Date          string
	TransactionID string
	Method        string
	Principal     string
	TotalDue      string
}

// aliases maps canonical field names to the header spellings seen in
// the wild. Headers are compared after canonicalKey folding.
var aliases = map[string][]string{
	"name":          {"name", "full name", "customer name", "client name", "names", "account name"},
	"phone":         {"phone", "phone number", "phone no", "telephone", "contact", "msisdn", "mobile", "mobile number"},
	"amount":        {"amount", "amount paid", "paid", "deposit", "credit", "paid in", "amount received"},
	"date":          {"date", "payment date", "transaction date", "completion time", "date paid"},
	"transactionId": {"transaction id", "txn id", "trans id", "transid", "receipt no", "receipt number", "reference", "transaction ref"},
	"method":        {"method", "deposit details", "details", "mode of payment", "payment method", "channel"},
	"principal":     {"principal", "principal amount", "amount issued", "loan amount", "amount borrowed"},
	"totalDue":      {"total due", "total amount", "amount due", "payable", "total payable"},
}

// reverse lookup built once at init.
var headerIndex = func() map[string]string {
	idx := make(map[string]string)
	for field, names := range aliases {
		for _, n := range names {
			idx[canonicalKey(n)] = field
		}
	}
	return idx
}()

// canonicalKey folds a header to lowercase with single spaces and no
// punctuation, so "Amount  Issued" and "amount_issued" both resolve.
func canonicalKey(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Resolve maps a raw key-value row onto the fixed Row shape. Unknown
// headers are ignored; later duplicates do not overwrite earlier
// non-empty values.
func Resolve(raw map[string]string) Row {
	fields := make(map[string]string)
	for key, value := range raw {
		field, ok := headerIndex[canonicalKey(key)]
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, exists := fields[field]; !exists {
			fields[field] = value
		}
	}
	return Row{
		Name:          fields["name"],
		Phone:         fields["phone"],
		Amount:        fields["amount"],
		Date:          fields["date"],
		TransactionID: fields["transactionId"],
		Method:        fields["method"],
		Principal:     fields["principal"],
		TotalDue:      fields["totalDue"],
	}
}
