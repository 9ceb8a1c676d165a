package cart

import (
	"github.com/MarcGrol/storefront/services/catalog"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

type ProductBrief struct {
	ID    int           `json:"id"`
	Title string        `json:"title"`
	Price catalog.Price `json:"price"`
}

// Notification is the transient message shown after a cart action.
type Notification struct {
	Text    string        `json:"text"`
	Kind    Kind          `json:"type"`
	Count   *int          `json:"count,omitempty"`
	Product *ProductBrief `json:"product,omitempty"`
}

func (n Notification) IsError() bool {
	return n.Kind == KindError
}

// Line is a cart entry resolved against the catalog.
type Line struct {
	ProductID int             `json:"productId"`
	Quantity  int             `json:"quantity"`
	Known     bool            `json:"known"`
	Product   catalog.Product `json:"-"`
	Title     string          `json:"title"`
	UnitPrice float64         `json:"unitPrice"`
	LineTotal float64         `json:"lineTotal"`
}

type Summary struct {
	Items map[int]int `json:"items"`
	Count int         `json:"count"`
	Total float64     `json:"total"`
	Lines []Line      `json:"lines"`
}

type ActionResult struct {
	Accepted     bool          `json:"accepted"`
	Notification *Notification `json:"notification"`
	Count        int           `json:"count"`
}
