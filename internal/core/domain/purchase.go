package domain

import "time"

type Purchase struct {
	ID          string
	UserID      string
	ProductID   int64
	Quantity    int64
	TotalPrice  int64
	PurchasedAt time.Time
}
