package dashboard

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/mhrivnak/modeldash/pkg/client"
)

// Pagination bounds for list views
const (
	MaxPageSize     = 100
	DefaultPageSize = 25
	defaultSort     = "name"
)

type modelOrder func(a, b client.Model) int

// modelSortColumns whitelists the sortable model fields.
var modelSortColumns = map[string]modelOrder{
	"id":           func(a, b client.Model) int { return compareIDs(a.ID, b.ID) },
	"name":         func(a, b client.Model) int { return strings.Compare(a.Name, b.Name) },
	"model_type":   func(a, b client.Model) int { return strings.Compare(a.ModelType, b.ModelType) },
	"version":      func(a, b client.Model) int { return strings.Compare(a.Version, b.Version) },
	"status":       func(a, b client.Model) int { return strings.Compare(a.Status, b.Status) },
	"docker_image": func(a, b client.Model) int { return strings.Compare(a.DockerImage, b.DockerImage) },
	"created_at": func(a, b client.Model) int {
		switch {
		case a.CreatedAt == nil && b.CreatedAt == nil:
			return 0
		case a.CreatedAt == nil:
			return -1
		case b.CreatedAt == nil:
			return 1
		}
		return a.CreatedAt.Compare(*b.CreatedAt)
	},
}

// compareIDs orders numeric ids numerically and everything else as text.
func compareIDs(a, b client.ID) int {
	na, errA := strconv.ParseInt(string(a), 10, 64)
	nb, errB := strconv.ParseInt(string(b), 10, 64)
	if errA == nil && errB == nil {
		return cmp.Compare(na, nb)
	}
	return strings.Compare(string(a), string(b))
}

// parseSortOrder turns "status desc, name" into comparators. Unknown columns
// are dropped; an empty result falls back to sorting by name.
func parseSortOrder(sortOrder string) []modelOrder {
	var orders []modelOrder
	for _, part := range strings.Split(sortOrder, ",") {
		tokens := strings.Fields(part)
		if len(tokens) == 0 {
			continue
		}
		order, ok := modelSortColumns[strings.ToLower(tokens[0])]
		if !ok {
			continue
		}
		if len(tokens) > 1 && strings.EqualFold(tokens[1], "desc") {
			asc := order
			order = func(a, b client.Model) int { return -asc(a, b) }
		}
		orders = append(orders, order)
	}
	if len(orders) == 0 {
		orders = append(orders, modelSortColumns[defaultSort])
	}
	return orders
}

func sortModels(models []client.Model, sortOrder string) {
	orders := parseSortOrder(sortOrder)
	slices.SortStableFunc(models, func(a, b client.Model) int {
		for _, order := range orders {
			if c := order(a, b); c != 0 {
				return c
			}
		}
		return 0
	})
}

// clampPage keeps page and pageSize within safe bounds. Pages start at 1.
func clampPage(page, pageSize int) (int, int) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	} else if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page < 1 {
		page = 1
	}
	return page, pageSize
}

// PageInfo describes the slice of a list returned by a view.
type PageInfo struct {
	Page      int `json:"page"`
	PageSize  int `json:"page_size"`
	PageCount int `json:"page_count"`
	Total     int `json:"total"`
}

func paginate(models []client.Model, page, pageSize int) ([]client.Model, PageInfo) {
	page, pageSize = clampPage(page, pageSize)
	info := PageInfo{
		Page:      page,
		PageSize:  pageSize,
		PageCount: (len(models) + pageSize - 1) / pageSize,
		Total:     len(models),
	}

	if page-1 > len(models)/pageSize {
		return []client.Model{}, info
	}
	start := (page - 1) * pageSize
	if start >= len(models) {
		return []client.Model{}, info
	}
	end := min(start+pageSize, len(models))
	return models[start:end], info
}
