package amqp

import (
	"encoding/json"
	"time"

	"catatan/internal/core"
)

// TransactionCommittedMessage announces a newly committed transaction.
// Amount travels as a decimal string so no precision is lost.
type TransactionCommittedMessage struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Amount      string    `json:"amount"`
	Date        string    `json:"date"`
	Account     string    `json:"account"`
	Category    string    `json:"category"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewTransactionCommittedMessage(tx core.Transaction, at time.Time) *TransactionCommittedMessage {
	return &TransactionCommittedMessage{
		ID:          tx.ID,
		Description: tx.Description,
		Amount:      tx.Amount.String(),
		Date:        tx.Date.String(),
		Account:     tx.Account,
		Category:    tx.Category,
		Timestamp:   at,
	}
}

func (m *TransactionCommittedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionCommittedMessageFromJSON decodes a message body.
func TransactionCommittedMessageFromJSON(data []byte) (*TransactionCommittedMessage, error) {
	var msg TransactionCommittedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
