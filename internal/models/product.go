package models

import "time"

type Product struct {
	ID        int32     `json:"id"`
	Name      string    `json:"name"`
	Price     int32     `json:"price"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
}
