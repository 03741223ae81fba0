package crawler

import (
	"fmt"
	"maps"

	"github.com/screwyprof/brawlstats/pkg/brawlhalla"
)

// FallbackPageCount applies to regions missing from both the table and the overrides
const FallbackPageCount = 1

// defaultPageCounts is the canonical per-region page table shared by every crawler.
// Busier regions get deeper leaderboards.
var defaultPageCounts = map[brawlhalla.Region]int{
	brawlhalla.USEast:        5,
	brawlhalla.Europe:        5,
	brawlhalla.Brazil:        5,
	brawlhalla.SouthEastAsia: 3,
	brawlhalla.Australia:     3,
	brawlhalla.USWest:        3,
	brawlhalla.Japan:         3,
	brawlhalla.SouthAfrica:   3,
	brawlhalla.MiddleEast:    3,
}

// DefaultPageCounts returns a copy of the canonical page table
func DefaultPageCounts() map[brawlhalla.Region]int {
	return maps.Clone(defaultPageCounts)
}

// Task is one leaderboard page to fetch
type Task struct {
	Region brawlhalla.Region
	Page   int
	Type   brawlhalla.RankingType
}

func (t Task) String() string {
	return fmt.Sprintf("%s/%s/%d", t.Type, t.Region, t.Page)
}

// TaskOptions narrows a sweep.
// A nil slice selects every known value, an empty non-nil slice selects nothing.
type TaskOptions struct {
	Types      []brawlhalla.RankingType
	Regions    []brawlhalla.Region
	PageCounts map[brawlhalla.Region]int
}

// PageCount resolves how many pages to crawl for region
func (o TaskOptions) PageCount(region brawlhalla.Region) int {
	if n, ok := o.PageCounts[region]; ok {
		return n
	}
	if n, ok := defaultPageCounts[region]; ok {
		return n
	}
	return FallbackPageCount
}

// GenerateTasks lists a sweep's work: regions outermost, then pages, then types.
// The order is stable for identical options.
func GenerateTasks(opts TaskOptions) []Task {
	types := opts.Types
	if types == nil {
		types = brawlhalla.RankingTypes
	}
	regions := opts.Regions
	if regions == nil {
		regions = brawlhalla.Regions
	}

	var tasks []Task
	for _, region := range regions {
		pages := opts.PageCount(region)
		for page := 1; page <= pages; page++ {
			for _, rt := range types {
				tasks = append(tasks, Task{Region: region, Page: page, Type: rt})
			}
		}
	}
	return tasks
}
