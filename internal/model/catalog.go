package model

import "time"

// CatalogModel is a product model selectable on invoices.
type CatalogModel struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// DefaultCatalog is seeded into an empty catalog.
var DefaultCatalog = []CatalogModel{
	{ID: "model-1", Name: "RS68AB820B1/MR", Category: "ثلاجات", Description: "ثلاجة سامسونج 820 لتر", IsActive: true},
	{ID: "model-2", Name: "WW11B944DGB/AS", Category: "غسالات", Description: "غسالة سامسونج 11 كيلو", IsActive: true},
	{ID: "model-3", Name: "AR12TXHQASINMG", Category: "تكييفات", Description: "تكييف سامسونج 12 وحدة", IsActive: true},
	{ID: "model-4", Name: "UE55AU7000UXEG", Category: "تلفزيونات", Description: "تلفزيون سامسونج 55 بوصة", IsActive: true},
	{ID: "model-5", Name: "MS23K3513AS/EG", Category: "ميكروويف", Description: "ميكروويف سامسونج 23 لتر", IsActive: true},
}

// DemoEmployee is inserted by the test-data endpoint.
var DemoEmployee = BasicData{
	Email:     "test@example.com",
	Name:      "موظف تجريبي",
	Mobile:    "01000000000",
	Serial:    "EMP-123",
	StoreName: "فرع القاهرة",
	StoreCode: "CAI-01",
}
