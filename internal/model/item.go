package model

import "time"

// Item is a marketplace listing as stored in the document store.
// It is a per-operation projection of the stored document; nothing caches it.
// The JSON names double as the document field names.
type Item struct {
	ID                 string    `json:"id"`
	SiteID             string    `json:"siteId"`
	CategoryID         string    `json:"categoryId"`
	Title              string    `json:"title"`
	Subtitle           string    `json:"subtitle"`
	SellerID           string    `json:"sellerId"`
	Price              int64     `json:"price"`
	CurrencyID         string    `json:"currencyId"`
	AvailableQuantity  int       `json:"availableQuantity"`
	Condition          string    `json:"condition"`
	Pictures           []string  `json:"pictures"`
	AcceptsMercadopago bool      `json:"acceptsMercadopago"`
	Status             string    `json:"status"`
	DateCreated        time.Time `json:"dateCreated"`
	LastUpdated        time.Time `json:"lastUpdated"`
}

// ItemPatch is a partial Item for merge updates. A nil field was not
// submitted and leaves the stored value untouched. The id and timestamps
// are not patchable.
type ItemPatch struct {
	SiteID             *string   `json:"siteId,omitempty"`
	CategoryID         *string   `json:"categoryId,omitempty"`
	Title              *string   `json:"title,omitempty"`
	Subtitle           *string   `json:"subtitle,omitempty"`
	SellerID           *string   `json:"sellerId,omitempty"`
	Price              *int64    `json:"price,omitempty"`
	CurrencyID         *string   `json:"currencyId,omitempty"`
	AvailableQuantity  *int      `json:"availableQuantity,omitempty"`
	Condition          *string   `json:"condition,omitempty"`
	Pictures           *[]string `json:"pictures,omitempty"`
	AcceptsMercadopago *bool     `json:"acceptsMercadopago,omitempty"`
	Status             *string   `json:"status,omitempty"`
}

// IsEmpty reports whether no field was submitted.
func (p ItemPatch) IsEmpty() bool {
	return p == ItemPatch{}
}
