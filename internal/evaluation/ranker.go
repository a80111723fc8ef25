package evaluation

import "sort"

// DefaultCategoryLimit is how many best and worst categories a report lists.
const DefaultCategoryLimit = 3

// RankCategories returns up to limit tags with the highest and the lowest
// per-tag accuracy. Ties keep the order of stats.
func RankCategories(stats []CategoryStat, limit int) (best, worst []string) {
	if limit <= 0 {
		return []string{}, []string{}
	}

	desc := make([]CategoryStat, len(stats))
	copy(desc, stats)

	sort.SliceStable(desc, func(i, j int) bool {
		return desc[i].Accuracy() > desc[j].Accuracy()
	})

	asc := make([]CategoryStat, len(stats))
	copy(asc, stats)

	sort.SliceStable(asc, func(i, j int) bool {
		return asc[i].Accuracy() < asc[j].Accuracy()
	})

	return topTags(desc, limit), topTags(asc, limit)
}

func topTags(stats []CategoryStat, limit int) []string {
	if len(stats) > limit {
		stats = stats[:limit]
	}

	tags := make([]string, len(stats))
	for i, s := range stats {
		tags[i] = s.Tag
	}

	return tags
}
