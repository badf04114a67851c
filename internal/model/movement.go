package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementKind classifies a till movement.
type MovementKind string

const (
	KindSupply     MovementKind = "SUPPLY"
	KindWithdrawal MovementKind = "WITHDRAWAL"
	KindSaleCash   MovementKind = "SALE_CASH"
	KindSaleDebit  MovementKind = "SALE_DEBIT"
	KindSaleCredit MovementKind = "SALE_CREDIT"
	KindSalePix    MovementKind = "SALE_PIX"
)

// IsSale reports whether the kind is one of the SALE_* kinds.
func (k MovementKind) IsSale() bool {
	_, ok := saleMethods[k]
	return ok
}

// Valid reports whether k is a known kind.
func (k MovementKind) Valid() bool {
	return k == KindSupply || k == KindWithdrawal || k.IsSale()
}

// PaymentMethod of a sale.
type PaymentMethod string

const (
	MethodCash   PaymentMethod = "CASH"
	MethodDebit  PaymentMethod = "DEBIT"
	MethodCredit PaymentMethod = "CREDIT"
	MethodPix    PaymentMethod = "PIX"
)

// PaymentMethods lists every method in report order.
var PaymentMethods = []PaymentMethod{MethodCash, MethodDebit, MethodCredit, MethodPix}

var saleMethods = map[MovementKind]PaymentMethod{
	KindSaleCash:   MethodCash,
	KindSaleDebit:  MethodDebit,
	KindSaleCredit: MethodCredit,
	KindSalePix:    MethodPix,
}

// floor labels accepted besides the canonical names
var methodAliases = map[string]PaymentMethod{
	"CASH":     MethodCash,
	"DINHEIRO": MethodCash,
	"DEBIT":    MethodDebit,
	"DEBITO":   MethodDebit,
	"DÉBITO":   MethodDebit,
	"CREDIT":   MethodCredit,
	"CREDITO":  MethodCredit,
	"CRÉDITO":  MethodCredit,
	"PIX":      MethodPix,
}

// ParsePaymentMethod maps a free-form label to a PaymentMethod.
func ParsePaymentMethod(label string) (PaymentMethod, bool) {
	m, ok := methodAliases[strings.ToUpper(strings.TrimSpace(label))]
	return m, ok
}

// SaleKind returns the SALE_* kind recorded for a payment method.
func (m PaymentMethod) SaleKind() MovementKind {
	for k, pm := range saleMethods {
		if pm == m {
			return k
		}
	}
	return ""
}

// Method returns the payment method of a SALE_* kind.
func (k MovementKind) Method() (PaymentMethod, bool) {
	m, ok := saleMethods[k]
	return m, ok
}

// Movement is an immutable event in the till ledger.
// Amount is the face value (never negative); CashImpact is the signed change of
// physical cash in the drawer.
type Movement struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SessionID     int64           `gorm:"not null;index"`
	Kind          MovementKind    `gorm:"type:varchar(20);not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PaymentMethod *PaymentMethod  `gorm:"type:varchar(10)"`
	Description   string          `gorm:"not null"`
	CreatedAt     time.Time       `gorm:"not null;index"`
	Actor         string          `gorm:"type:varchar(100);not null"`
	CashImpact    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

func (Movement) TableName() string { return "till_movements" }

// CheckImpactSign verifies the sign rule between kind and cash impact.
func (m *Movement) CheckImpactSign() error {
	switch m.Kind {
	case KindSupply, KindSaleCash:
		if m.CashImpact.IsNegative() {
			return fmt.Errorf("%s movement with negative impact %s", m.Kind, m.CashImpact)
		}
	case KindWithdrawal:
		if m.CashImpact.IsPositive() {
			return fmt.Errorf("%s movement with positive impact %s", m.Kind, m.CashImpact)
		}
	default:
		if !m.CashImpact.IsZero() {
			return fmt.Errorf("%s movement must not move cash, got %s", m.Kind, m.CashImpact)
		}
	}
	return nil
}
