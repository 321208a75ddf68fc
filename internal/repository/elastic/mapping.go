package elastic

import (
	"bytes"
	"encoding/json"
	"errors"

	"itemdocs/internal/model"
	"itemdocs/internal/repository"
)

// toSource flattens every item field into the document field map.
func toSource(item *model.Item) map[string]any {
	return map[string]any{
		"id":                 item.ID,
		"siteId":             item.SiteID,
		"categoryId":         item.CategoryID,
		"title":              item.Title,
		"subtitle":           item.Subtitle,
		"sellerId":           item.SellerID,
		"price":              item.Price,
		"currencyId":         item.CurrencyID,
		"availableQuantity":  item.AvailableQuantity,
		"condition":          item.Condition,
		"pictures":           item.Pictures,
		"acceptsMercadopago": item.AcceptsMercadopago,
		"status":             item.Status,
		"dateCreated":        item.DateCreated,
		"lastUpdated":        item.LastUpdated,
	}
}

// patchSource keeps only the submitted fields.
func patchSource(p model.ItemPatch) map[string]any {
	doc := make(map[string]any)
	set := func(key string, ok bool, v any) {
		if ok {
			doc[key] = v
		}
	}
	set("siteId", p.SiteID != nil, deref(p.SiteID))
	set("categoryId", p.CategoryID != nil, deref(p.CategoryID))
	set("title", p.Title != nil, deref(p.Title))
	set("subtitle", p.Subtitle != nil, deref(p.Subtitle))
	set("sellerId", p.SellerID != nil, deref(p.SellerID))
	set("price", p.Price != nil, deref(p.Price))
	set("currencyId", p.CurrencyID != nil, deref(p.CurrencyID))
	set("availableQuantity", p.AvailableQuantity != nil, deref(p.AvailableQuantity))
	set("condition", p.Condition != nil, deref(p.Condition))
	set("pictures", p.Pictures != nil, deref(p.Pictures))
	set("acceptsMercadopago", p.AcceptsMercadopago != nil, deref(p.AcceptsMercadopago))
	set("status", p.Status != nil, deref(p.Status))
	return doc
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// fromSource decodes a stored document. Fields that do not fit the item
// shape, such as a fractional price, are a SerializationError. The document
// key wins over any id field inside the source.
func fromSource(op, id string, src json.RawMessage) (*model.Item, error) {
	if len(src) == 0 || bytes.Equal(src, []byte("null")) {
		return nil, &repository.SerializationError{Op: op, Err: errors.New("document has no source")}
	}
	var item model.Item
	if err := json.Unmarshal(src, &item); err != nil {
		return nil, &repository.SerializationError{Op: op, Err: err}
	}
	item.ID = id
	return &item, nil
}
