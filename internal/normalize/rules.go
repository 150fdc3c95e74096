package normalize

import "strings"

// Rule maps a cleaned label to Canonical when it equals one of Equals or
// contains one of Contains.
type Rule struct {
	Canonical string
	Equals    []string
	Contains  []string
}

func (r Rule) Match(cleaned string) bool {
	for _, s := range r.Equals {
		if cleaned == s {
			return true
		}
	}
	for _, s := range r.Contains {
		if strings.Contains(cleaned, s) {
			return true
		}
	}
	return false
}

// Tables are evaluated top to bottom, first match wins. Narrower rules sit
// above broader ones and every canonical name matches its own cleaned form.
var rules = map[Vocabulary][]Rule{
	Level: {
		{Canonical: "Entry Level", Equals: []string{"1", "level 1", "entry level"}},
		{Canonical: "Junior", Equals: []string{"junior", "jjunior"}},
		{Canonical: "Mid-Level", Equals: []string{"mid", "mid-level", "middle"}},
		{Canonical: "Senior", Equals: []string{"senior", "sr"}},
		{Canonical: "Lead", Equals: []string{"lead", "tech lead"}},
	},
	Company: {
		{Canonical: "Google", Contains: []string{"google", "googl"}},
		{Canonical: "Microsoft", Contains: []string{"microsoft", "msft"}},
		{Canonical: "Amazon", Contains: []string{"amazon", "amzn"}},
		{Canonical: "Apple", Contains: []string{"apple", "appl"}},
		{Canonical: "Meta", Contains: []string{"meta", "facebook", "fb"}},
		{Canonical: "Netflix", Contains: []string{"netflix", "nflx"}},
		{Canonical: "Tesla", Contains: []string{"tesla", "tsla"}},
		{Canonical: "Uber", Contains: []string{"uber", "ubr"}},
		{Canonical: "Airbnb", Contains: []string{"airbnb", "abnb"}},
		{Canonical: "Spotify", Contains: []string{"spotify", "spot"}},
	},
	Role: {
		{Canonical: "Product Data Scientist", Contains: []string{"product data scientist", "pds"}},
		{Canonical: "DevOps Engineer", Contains: []string{"devops", "dev ops"}},
		{Canonical: "Software Engineer", Contains: []string{"software engineer", "swe", "software developer", "dev"}},
		{Canonical: "Data Scientist", Contains: []string{"data scientist", "ds"}},
		{Canonical: "Data Analyst", Contains: []string{"data analyst", "analyst"}},
		{Canonical: "Product Manager", Contains: []string{"product manager", "pm"}},
		{Canonical: "Frontend Engineer", Contains: []string{"frontend", "front-end", "front end"}},
		{Canonical: "Backend Engineer", Contains: []string{"backend", "back-end", "back end"}},
		{Canonical: "Full Stack Engineer", Contains: []string{"fullstack", "full-stack", "full stack"}},
		{Canonical: "ML Engineer", Contains: []string{"machine learning", "ml engineer"}},
		{Canonical: "UX Designer", Contains: []string{"ui/ux", "ux", "user experience"}},
	},
}
