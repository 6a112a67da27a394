package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// ReferenceCurrency is the currency every report is expressed in.
const ReferenceCurrency = "VND"

// Currencies offered during the add-transaction flow.
var Currencies = []string{"VND", "USD", "EUR"}

type (
	TransactionType string

	User struct {
		ID              int64
		Username        string
		PIN             string
		DefaultCurrency string
	}

	Category struct {
		ID   int64
		Name string
		Type TransactionType
	}

	Transaction struct {
		ID         int64
		UserID     int64
		Date       time.Time
		CategoryID int64 // 0 when the row carries no category
		Amount     decimal.Decimal
		Currency   string
		Type       TransactionType
		Note       string
	}

	Budget struct {
		ID         int64
		UserID     int64
		CategoryID int64
		Amount     decimal.Decimal
		Currency   string
		Period     string
	}

	SavingGoal struct {
		ID            int64
		UserID        int64
		Name          string
		TargetAmount  decimal.Decimal
		CurrentAmount decimal.Decimal
		Currency      string
		Deadline      time.Time
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrInvalidCurrency = errors.New("invalid currency")
	ErrMissingUser     = errors.New("missing user id")
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// KnownCurrency reports whether code is one of the offered currencies.
func KnownCurrency(code string) bool {
	for _, c := range Currencies {
		if c == code {
			return true
		}
	}
	return false
}

func (tx Transaction) Validate() error {
	if tx.UserID == 0 {
		return ErrMissingUser
	}
	if !tx.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(tx.Currency) == "" {
		return ErrInvalidCurrency
	}
	return nil
}
