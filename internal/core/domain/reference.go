package domain

import "fmt"

// BuildOrderReference is the remote debit reference for an SSoT order payment.
func BuildOrderReference(prefix string, orderID int64, siteSlug string) string {
	return fmt.Sprintf("%s-ORDER-%d-%s", prefix, orderID, siteSlug)
}

// BuildOrderDebitReference keys the local ledger debit of an order so a
// second completion of the same order cannot debit again.
func BuildOrderDebitReference(prefix string, orderID int64) string {
	return fmt.Sprintf("%s-ORDER-%d", prefix, orderID)
}

// BuildRefundReference is the remote credit reference for the seq-th refund
// of an order. The first refund carries no suffix.
func BuildRefundReference(prefix string, orderID int64, siteSlug string, seq int) string {
	if seq <= 1 {
		return fmt.Sprintf("%s-REFUND-%d-%s", prefix, orderID, siteSlug)
	}
	return fmt.Sprintf("%s-REFUND-%d-%s-%d", prefix, orderID, siteSlug, seq)
}

// BuildSyncReference is the reference used when pushing a local transaction.
func BuildSyncReference(prefix string, transactionID int64) string {
	return fmt.Sprintf("%s-TXN-%d", prefix, transactionID)
}
