package domain

import "time"

type Session struct {
	Token    string    `json:"token"`
	UserID   string    `json:"user_id"`
	Email    string    `json:"email"`
	IssuedAt time.Time `json:"issued_at"`
}

type AuditEntry struct {
	EventID    string
	Kind       string
	ProductID  string
	StockDelta int
	Stock      int
	SaleID     string
	Actor      string
	OccurredAt time.Time
}

const (
	AuditStockFlush = "stock.flush"
	AuditSaleCommit = "sale.commit"
)
