// Package analytics folds a user's interview history into dashboard figures.
package analytics

import (
	"sort"

	"github.com/spigell/mock-interviewer/internal/evaluation"
	"github.com/spigell/mock-interviewer/internal/interview"
	"github.com/spigell/mock-interviewer/internal/normalize"
)

// DateLayout formats trend dates.
const DateLayout = "2006-01-02"

// Stats is the dashboard view of a user's history. It is derived on demand
// and never stored.
type Stats struct {
	TotalInterviews     int            `json:"totalInterviews"`
	AverageScores       Averages       `json:"averageScores"`
	Trend               Trend          `json:"trendsOverTime"`
	RoleDistribution    map[string]int `json:"roleDistribution"`
	LevelDistribution   map[string]int `json:"levelDistribution"`
	CompanyDistribution map[string]int `json:"companyDistribution"`
}

// Averages holds the per-category means and their overall mean.
type Averages struct {
	Correctness         float64 `json:"correctness"`
	ClarityStructure    float64 `json:"clarityStructure"`
	Completeness        float64 `json:"completeness"`
	Relevance           float64 `json:"relevance"`
	ConfidenceTone      float64 `json:"confidenceTone"`
	CommunicationSkills float64 `json:"communicationSkills"`
	Overall             float64 `json:"overall"`
}

// Category returns the average of a canonical category name.
func (a Averages) Category(name string) float64 {
	switch name {
	case evaluation.Correctness:
		return a.Correctness
	case evaluation.ClarityStructure:
		return a.ClarityStructure
	case evaluation.Completeness:
		return a.Completeness
	case evaluation.Relevance:
		return a.Relevance
	case evaluation.ConfidenceTone:
		return a.ConfidenceTone
	case evaluation.CommunicationSkills:
		return a.CommunicationSkills
	}
	return 0
}

// Trend is a chronological series with one point per evaluated interview.
type Trend struct {
	Dates  []string  `json:"dates"`
	Scores []float64 `json:"scores"`
}

// Compute aggregates interviews. Zero interviews yield zero averages and
// empty, non-nil collections.
func Compute(interviews []*interview.Interview) Stats {
	stats := Stats{
		TotalInterviews:     len(interviews),
		Trend:               Trend{Dates: []string{}, Scores: []float64{}},
		RoleDistribution:    map[string]int{},
		LevelDistribution:   map[string]int{},
		CompanyDistribution: map[string]int{},
	}

	if len(interviews) == 0 {
		return stats
	}

	stats.AverageScores = averages(interviews)
	stats.Trend = trend(interviews)

	roles := map[string]int{}
	levels := map[string]int{}
	companies := map[string]int{}
	for _, iv := range interviews {
		roles[iv.Role]++
		levels[iv.Level]++
		companies[iv.Company]++
	}
	stats.RoleDistribution = normalize.Distribution(normalize.Role, roles)
	stats.LevelDistribution = normalize.Distribution(normalize.Level, levels)
	stats.CompanyDistribution = normalize.Distribution(normalize.Company, companies)

	return stats
}

func averages(interviews []*interview.Interview) Averages {
	totals := map[string]float64{}
	count := 0

	for _, iv := range interviews {
		for _, rec := range iv.Records {
			if !rec.Evaluated() {
				continue
			}
			for _, c := range evaluation.Categories {
				totals[c] += rec.Scores.Value(c)
			}
			count++
		}
	}

	if count == 0 {
		return Averages{}
	}

	n := float64(count)
	avg := Averages{
		Correctness:         totals[evaluation.Correctness] / n,
		ClarityStructure:    totals[evaluation.ClarityStructure] / n,
		Completeness:        totals[evaluation.Completeness] / n,
		Relevance:           totals[evaluation.Relevance] / n,
		ConfidenceTone:      totals[evaluation.ConfidenceTone] / n,
		CommunicationSkills: totals[evaluation.CommunicationSkills] / n,
	}

	var sum float64
	for _, c := range evaluation.Categories {
		sum += avg.Category(c)
	}
	avg.Overall = sum / float64(len(evaluation.Categories))

	return avg
}

func trend(interviews []*interview.Interview) Trend {
	ordered := make([]*interview.Interview, len(interviews))
	copy(ordered, interviews)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	out := Trend{Dates: []string{}, Scores: []float64{}}
	for _, iv := range ordered {
		var sum float64
		evaluated := 0
		for _, rec := range iv.Records {
			if !rec.Evaluated() {
				continue
			}
			sum += rec.Scores.Mean()
			evaluated++
		}
		if evaluated == 0 {
			continue
		}
		out.Dates = append(out.Dates, iv.CreatedAt.Format(DateLayout))
		out.Scores = append(out.Scores, sum/float64(evaluated))
	}

	return out
}
