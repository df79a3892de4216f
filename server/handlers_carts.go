package server

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/jrsteele09/cartcash/internal/errors"
	"github.com/jrsteele09/cartcash/shopify"
)

const defaultPageSize = 10

type pagination struct {
	Total       int `json:"total"`
	TotalPages  int `json:"totalPages"`
	CurrentPage int `json:"currentPage"`
	Limit       int `json:"limit"`
}

type abandonedCartsResponse struct {
	Checkouts  []shopify.CartRecord `json:"checkouts"`
	Pagination pagination           `json:"pagination"`
}

// AbandonedCartsHandler lists the tenant's abandoned checkouts, filtered by
// creation date and paginated.
func (s *Server) AbandonedCartsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := positiveInt(q.Get("page"), 1)
		limit := positiveInt(q.Get("limit"), defaultPageSize)
		tenantID := tenantFromRequest(r)

		client, err := s.clients.Client(tenantID)
		if errors.Is(err, errors.ErrNotAuthenticated) {
			// The live credential may not have been restored since a restart.
			if _, statusErr := s.auth.CheckStatus(r.Context(), tenantID); statusErr == nil {
				client, err = s.clients.Client(tenantID)
			}
		}
		if err != nil {
			s.writeError(w, err)
			return
		}

		resp, err := shopify.FetchAbandonedCarts(r.Context(), client, max(limit, shopify.DefaultCartLimit), q.Get("sinceId"))
		if err != nil {
			s.writeError(w, err)
			return
		}

		checkouts := filterByDate(resp.Checkouts, parseDate(q.Get("startDate"), false), parseDate(q.Get("endDate"), true))
		total := len(checkouts)
		offset := min((page-1)*limit, total)
		end := min(offset+limit, total)

		writeJSON(w, http.StatusOK, abandonedCartsResponse{
			Checkouts: checkouts[offset:end],
			Pagination: pagination{
				Total:       total,
				TotalPages:  int(math.Ceil(float64(total) / float64(limit))),
				CurrentPage: page,
				Limit:       limit,
			},
		})
	}
}

func positiveInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// parseDate accepts RFC 3339 timestamps and plain dates. A plain end date
// covers the whole day.
func parseDate(s string, endOfDay bool) *time.Time {
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t
}

func filterByDate(carts []shopify.CartRecord, start, end *time.Time) []shopify.CartRecord {
	if start == nil && end == nil {
		return carts
	}
	filtered := make([]shopify.CartRecord, 0, len(carts))
	for _, c := range carts {
		created, err := time.Parse(time.RFC3339, c.CreatedAt)
		if err != nil {
			continue
		}
		if start != nil && created.Before(*start) {
			continue
		}
		if end != nil && created.After(*end) {
			continue
		}
		filtered = append(filtered, c)
	}
	return filtered
}
