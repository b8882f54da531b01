package main

import (
	"fmt"
	"math/rand/v2"
	"time"
)

var (
	topics        = []string{"Customer Feedback", "Employee Engagement", "Event Satisfaction", "Product Research", "Course Evaluation", "Onboarding", "Website Usability", "Support Experience"}
	adjectives    = []string{"Quarterly", "Annual", "Quick", "Detailed", "Post-launch", "Pilot"}
	choiceSets    = [][]string{{"Yes", "No"}, {"Poor", "Fair", "Good", "Excellent"}, {"Email", "Phone", "Chat", "In person"}, {"Daily", "Weekly", "Monthly", "Rarely"}}
	textAnswers   = []string{"Great service", "Could be faster", "Loved the new layout", "Not sure", "Pricing is unclear", "Keep it up"}
	browsers      = []string{"firefox", "chrome", "safari", "edge"}
	questionTypes = []string{"text", "textarea", "number", "select", "radio", "checkbox", "rating", "date"}
)

// surveyVersions builds between one and three version payloads in the shape
// the survey builder sends them.
func surveyVersions(rng *rand.Rand, start time.Time) []map[string]any {
	title := adjectives[rng.IntN(len(adjectives))] + " " + topics[rng.IntN(len(topics))]
	n := 1 + rng.IntN(3)
	versions := make([]map[string]any, n)
	for v := 0; v < n; v++ {
		versions[v] = map[string]any{
			"version":   v + 1,
			"config":    surveyConfig(rng, title),
			"prompt":    "Create a " + title + " survey",
			"timestamp": start.Add(time.Duration(v) * time.Hour).Format(time.RFC3339),
		}
	}
	return versions
}

func surveyConfig(rng *rand.Rand, title string) map[string]any {
	sections := make([]any, 1+rng.IntN(3))
	q := 0
	for s := range sections {
		questions := make([]any, 1+rng.IntN(4))
		for i := range questions {
			q++
			questions[i] = question(rng, q)
		}
		sections[s] = map[string]any{
			"id":        fmt.Sprintf("s%d", s+1),
			"title":     fmt.Sprintf("Part %d", s+1),
			"questions": questions,
		}
	}
	return map[string]any{
		"title":    title,
		"meta":     map[string]any{"generator": "surveyseed"},
		"sections": sections,
	}
}

func question(rng *rand.Rand, n int) map[string]any {
	typ := questionTypes[rng.IntN(len(questionTypes))]
	q := map[string]any{
		"id":    fmt.Sprintf("q%d", n),
		"type":  typ,
		"label": fmt.Sprintf("Question %d", n),
	}
	switch typ {
	case "select", "radio", "checkbox":
		set := choiceSets[rng.IntN(len(choiceSets))]
		opts := make([]any, len(set))
		for i, label := range set {
			opts[i] = map[string]any{"value": fmt.Sprintf("opt%d", i+1), "label": label}
		}
		q["options"] = opts
	case "rating":
		q["validation"] = map[string]any{"maxStars": 5}
	case "number":
		q["validation"] = map[string]any{"min": 0, "max": 100}
	}
	if n > 1 && rng.IntN(4) == 0 {
		q["visibleIf"] = map[string]any{
			"all": []any{map[string]any{"questionId": fmt.Sprintf("q%d", n-1), "operator": "isTruthy"}},
		}
	}
	return q
}

// answers fills in a plausible answer for every question of a version
// payload.
func answers(rng *rand.Rand, version map[string]any) map[string]any {
	out := map[string]any{}
	cfg, _ := version["config"].(map[string]any)
	sections, _ := cfg["sections"].([]any)
	for _, s := range sections {
		questions, _ := s.(map[string]any)["questions"].([]any)
		for _, raw := range questions {
			q := raw.(map[string]any)
			id := q["id"].(string)
			switch q["type"] {
			case "number":
				out[id] = rng.IntN(101)
			case "rating":
				out[id] = 1 + rng.IntN(5)
			case "date":
				out[id] = time.Date(2024, time.Month(1+rng.IntN(12)), 1+rng.IntN(28), 0, 0, 0, 0, time.UTC).Format("2006-01-02")
			case "select", "radio":
				opts := q["options"].([]any)
				out[id] = opts[rng.IntN(len(opts))].(map[string]any)["value"]
			case "checkbox":
				opts := q["options"].([]any)
				out[id] = []any{opts[0].(map[string]any)["value"]}
			default:
				out[id] = textAnswers[rng.IntN(len(textAnswers))]
			}
		}
	}
	return out
}

func respondentInfo(rng *rand.Rand) map[string]any {
	return map[string]any{"browser": browsers[rng.IntN(len(browsers))]}
}
