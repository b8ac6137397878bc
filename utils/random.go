package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

func GenerateCode(n int) (string, error) {
	// Make a slice of nBytes random bytes.
	byt := make([]byte, n)

	// Read into the slice.
	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	// Return the hexadecimal string.
	return strings.ToUpper(hex.EncodeToString(byt)), nil
}

// OrderNumber generates a candidate order number. Callers collision-check
// against the store and regenerate on a hit.
func OrderNumber() (string, error) {
	code, err := GenerateCode(4)
	if err != nil {
		return "", err
	}
	return "ORD-" + code, nil
}

// TransactionID generates a candidate provider transaction id with the
// given prefix ("TXN" for payments, "REF" for refunds).
func TransactionID(prefix string) (string, error) {
	code, err := GenerateCode(8)
	if err != nil {
		return "", err
	}
	return prefix + "-" + code, nil
}

// TicketCode derives the opaque QR payload for a ticket. It embeds the
// ticket id, so it can only be assigned after the id is known; the random
// tail keeps codes unguessable.
func TicketCode(ticketID, userID string) (string, error) {
	code, err := GenerateCode(8)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("TKT-%s-%s-%s", ticketID, userID, code), nil
}
