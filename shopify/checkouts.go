package shopify

import (
	"context"
	"net/url"
	"strconv"
)

// CartRecord is an abandoned checkout as returned by the Admin REST API.
type CartRecord struct {
	ID            int64      `json:"id"`
	Token         string     `json:"token"`
	Email         string     `json:"email,omitempty"`
	CreatedAt     string     `json:"created_at"`
	UpdatedAt     string     `json:"updated_at"`
	CompletedAt   *string    `json:"completed_at"`
	Customer      *Customer  `json:"customer,omitempty"`
	LineItems     []LineItem `json:"line_items"`
	TotalPrice    string     `json:"total_price"`
	SubtotalPrice string     `json:"subtotal_price"`
	TotalTax      string     `json:"total_tax"`
	Currency      string     `json:"currency"`
}

type Customer struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type LineItem struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
	VariantID int64  `json:"variant_id"`
	ProductID int64  `json:"product_id"`
}

// Abandoned reports whether the checkout never completed.
func (c *CartRecord) Abandoned() bool {
	return c.CompletedAt == nil || *c.CompletedAt == ""
}

type AbandonedCartsResponse struct {
	Checkouts []CartRecord `json:"checkouts"`
}

const DefaultCartLimit = 50

// FetchAbandonedCarts lists checkouts for the client's shop. sinceID pages
// forward from a known checkout id; an empty value starts from the oldest.
func FetchAbandonedCarts(ctx context.Context, client *Client, limit int, sinceID string) (*AbandonedCartsResponse, error) {
	if limit <= 0 {
		limit = DefaultCartLimit
	}
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	if sinceID != "" {
		query.Set("since_id", sinceID)
	}

	var resp AbandonedCartsResponse
	if err := client.Get(ctx, "checkouts.json", query, &resp); err != nil {
		return nil, err
	}
	if resp.Checkouts == nil {
		resp.Checkouts = []CartRecord{}
	}
	return &resp, nil
}

// GetAbandonedCart fetches a single checkout by id.
func GetAbandonedCart(ctx context.Context, client *Client, cartID string) (*CartRecord, error) {
	var resp struct {
		Checkout CartRecord `json:"checkout"`
	}
	if err := client.Get(ctx, "checkouts/"+url.PathEscape(cartID)+".json", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Checkout, nil
}
