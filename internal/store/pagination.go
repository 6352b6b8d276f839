package store

import (
	"math"
	"strings"

	"github.com/safar/inventory-store/internal/database"
	"github.com/safar/inventory-store/internal/models"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type OffsetPage struct {
	Items      []models.InventoryItem `json:"items"`
	Total      int64                  `json:"total"`
	Page       int                    `json:"page"`
	PageSize   int                    `json:"page_size"`
	TotalPages int                    `json:"total_pages"`
}

func NewOffsetPage(items []models.InventoryItem, total int64, req PageRequest) *OffsetPage {
	totalPages := int(total) / req.PageSize
	if int(total)%req.PageSize > 0 {
		totalPages++
	}

	return &OffsetPage{
		Items:      items,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: totalPages,
	}
}

// PageRequest selects one page of inventory items. Page is 1-indexed.
type PageRequest struct {
	Page      int
	PageSize  int
	OrderBy   string
	Direction models.SortDirection
}

// orderColumns is the allow-list for ORDER BY. Keys are accepted caller
// spellings, values the column names interpolated into SQL.
var orderColumns = map[string]string{
	"id":                "id",
	"name":              "name",
	"description":       "description",
	"part_number":       "part_number",
	"partnumber":        "part_number",
	"serial_number":     "serial_number",
	"serialnumber":      "serial_number",
	"quantity_per_unit": "quantity_per_unit",
	"quantityperunit":   "quantity_per_unit",
	"unit_name":         "unit_name",
	"unitname":          "unit_name",
	"created_at":        "created_at",
	"createdat":         "created_at",
	"updated_at":        "updated_at",
	"updatedat":         "updated_at",
	"lamport_clock":     "lamport_clock",
	"lamportclock":      "lamport_clock",
}

// OrderColumn maps a caller-supplied sort key onto a known column.
// An empty key sorts by id.
func OrderColumn(key string) (string, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return "id", nil
	}
	col, ok := orderColumns[key]
	if !ok {
		return "", &database.ValidationError{Field: "order_by", Reason: "is not a sortable column"}
	}
	return col, nil
}

// Normalize clamps the page and page size and validates ordering.
func (p PageRequest) Normalize() (PageRequest, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	// Keep (Page-1)*PageSize within int. Such a page is past the end anyway.
	if maxPage := math.MaxInt / p.PageSize; p.Page > maxPage {
		p.Page = maxPage
	}

	col, err := OrderColumn(p.OrderBy)
	if err != nil {
		return p, err
	}
	p.OrderBy = col

	switch models.SortDirection(strings.ToLower(string(p.Direction))) {
	case "", models.SortAscending:
		p.Direction = models.SortAscending
	case models.SortDescending:
		p.Direction = models.SortDescending
	default:
		return p, &database.ValidationError{Field: "direction", Reason: "must be asc or desc"}
	}

	return p, nil
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// orderClause must only be called on a normalized request.
func (p PageRequest) orderClause() string {
	dir := "ASC"
	if p.Direction == models.SortDescending {
		dir = "DESC"
	}
	if p.OrderBy == "id" {
		return "id " + dir
	}
	return p.OrderBy + " " + dir + ", id " + dir
}
