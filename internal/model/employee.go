package model

import "time"

// Employee is the directory entry keyed by email. Every submission
// refreshes it with the latest contact and store details.
type Employee struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Mobile    string    `json:"mobile"`
	Serial    string    `json:"serial"`
	StoreName string    `json:"storeName"`
	StoreCode string    `json:"storeCode"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BasicData is the employee part of an intake request.
type BasicData struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	Mobile    string `json:"mobile"`
	Serial    string `json:"serial"`
	StoreName string `json:"storeName"`
	StoreCode string `json:"storeCode"`
}
