package domain

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

type Service interface {
	Next(ctx context.Context, tx *gorm.DB, scope string) (int64, error)
	NextOrderNumber(ctx context.Context, tx *gorm.DB) (string, error)
	NextInvoiceNumber(ctx context.Context, tx *gorm.DB, year int) (string, error)
}

var (
	ErrInvalidScope       = errors.New("invalid_scope")
	ErrInvalidOrderNumber = errors.New("invalid_order_number")
)

const orderPrefix = "ORD-"

func InvoiceScope(year int) string {
	return fmt.Sprintf("%s%d", scopeInvoicePrefix, year)
}

func FormatOrderNumber(seq int64) string {
	return fmt.Sprintf("%s%06d", orderPrefix, seq)
}

func FormatInvoiceNumber(year int, seq int64) string {
	return fmt.Sprintf("INV-%d-%04d", year, seq)
}

// ParseOrderSequence extracts the counter value from an order number such as ORD-000042.
func ParseOrderSequence(number string) (int64, error) {
	number = strings.TrimSpace(number)
	if !strings.HasPrefix(number, orderPrefix) {
		return 0, ErrInvalidOrderNumber
	}
	seq, err := strconv.ParseInt(strings.TrimPrefix(number, orderPrefix), 10, 64)
	if err != nil || seq <= 0 {
		return 0, ErrInvalidOrderNumber
	}
	return seq, nil
}

// InvoiceNumberForOrder mirrors an order number onto its companion invoice: ORD-000042 -> INV-000042.
func InvoiceNumberForOrder(orderNumber string) string {
	return "INV-" + strings.TrimPrefix(strings.TrimSpace(orderNumber), orderPrefix)
}
