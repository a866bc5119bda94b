// Package query filters and orders the active campaign set for listing
// screens. Everything here is a pure function over an input slice: no
// mutation, no IO, identical input always yields identical output.
package query

import (
	"sort"
	"strings"

	"github.com/gyuwonk/chehum/internal/model"
)

// Sort is the requested result ordering.
type Sort string

const (
	SortLatest     Sort = "latest"     // created_at descending
	SortDeadline   Sort = "deadline"   // deadline ascending
	SortPopularity Sort = "popularity" // participants descending
)

// Query is the listing configuration. Every field is optional and
// composes independently with the others.
type Query struct {
	SearchText string
	SNS        []string
	Categories []string
	Regions    []string
	SortBy     Sort
}

// categoryLabels maps stored category values to the Korean labels the
// filter chips use. Both the raw value and the label are accepted as a
// filter selection.
var categoryLabels = map[model.StoreCategory]string{
	model.StoreCategoryCafe:       "카페",
	model.StoreCategoryRestaurant: "밥집",
	model.StoreCategoryBar:        "술집",
	model.StoreCategoryBakery:     "베이커리",
	model.StoreCategoryIzakaya:    "이자카야",
	model.StoreCategoryKorean:     "한식당",
	model.StoreCategoryChinese:    "중식당",
	model.StoreCategoryJapanese:   "일식당",
	model.StoreCategoryWestern:    "양식당",
}

// CategoryLabel returns the display label for a store category.
func CategoryLabel(category model.StoreCategory) string {
	if label, ok := categoryLabels[category]; ok {
		return label
	}
	return string(category)
}

// Run applies the query to the campaign set and returns the matches in
// the requested order. The input order is the tiebreaker, so the sort
// must stay stable.
func Run(campaigns []model.CampaignSummary, q Query) []model.CampaignSummary {
	result := make([]model.CampaignSummary, 0, len(campaigns))
	for _, c := range campaigns {
		if matches(c, q) {
			result = append(result, c)
		}
	}

	switch q.SortBy {
	case SortDeadline:
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].Deadline.Before(result[j].Deadline)
		})
	case SortPopularity:
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].Participants > result[j].Participants
		})
	case SortLatest:
		fallthrough
	default:
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		})
	}

	return result
}

func matches(c model.CampaignSummary, q Query) bool {
	return matchesText(c, q.SearchText) &&
		matchesSNS(c, q.SNS) &&
		matchesCategory(c, q.Categories) &&
		matchesRegion(c, q.Regions)
}

// matchesText is a case-insensitive substring match against campaign
// name, store name and benefit text. Empty search matches everything.
func matchesText(c model.CampaignSummary, search string) bool {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Name), search) ||
		strings.Contains(strings.ToLower(c.StoreName), search) ||
		strings.Contains(strings.ToLower(c.Benefit), search)
}

// matchesSNS passes when the campaign's required platforms intersect the
// selected ones. Empty selection passes everything.
func matchesSNS(c model.CampaignSummary, selected []string) bool {
	if len(selected) == 0 {
		return true
	}
	for _, want := range selected {
		for _, have := range c.RequiredSNS {
			if want == have {
				return true
			}
		}
	}
	return false
}

func matchesCategory(c model.CampaignSummary, selected []string) bool {
	if len(selected) == 0 {
		return true
	}
	label := CategoryLabel(c.StoreCategory)
	for _, want := range selected {
		if want == label || want == string(c.StoreCategory) {
			return true
		}
	}
	return false
}

// matchesRegion passes when the store address contains any selected
// region token. Plain substring match, not geocoded containment.
func matchesRegion(c model.CampaignSummary, selected []string) bool {
	if len(selected) == 0 {
		return true
	}
	for _, region := range selected {
		if region != "" && strings.Contains(c.StoreAddress, region) {
			return true
		}
	}
	return false
}
