package pipeline

import (
	"sort"

	"github.com/sells-group/address-geocoder/internal/model"
)

// Summarize aggregates records. SuccessRate is a percentage and 0 for an
// empty dataset. Groups are only reported when some record has one.
func Summarize(records []model.EnrichedRecord) model.RunSummary {
	s := model.RunSummary{Total: len(records)}

	groups := make(map[string]*model.GroupStat)
	for _, r := range records {
		switch {
		case r.Succeeded:
			s.Succeeded++
		case r.Error != "":
			s.Faulted++
		default:
			s.NotFound++
		}

		if r.Group == "" {
			continue
		}
		g, ok := groups[r.Group]
		if !ok {
			g = &model.GroupStat{Group: r.Group}
			groups[r.Group] = g
		}
		g.Count++
		if r.Succeeded {
			g.Succeeded++
		}
	}
	s.Failed = s.Total - s.Succeeded
	s.SuccessRate = rate(s.Succeeded, s.Total)

	if len(groups) > 0 {
		s.Groups = make([]model.GroupStat, 0, len(groups))
		for _, g := range groups {
			g.SuccessRate = rate(g.Succeeded, g.Count)
			s.Groups = append(s.Groups, *g)
		}
		sort.Slice(s.Groups, func(i, j int) bool { return s.Groups[i].Group < s.Groups[j].Group })
	}
	return s
}

func rate(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
