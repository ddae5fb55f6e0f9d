// Package scoring evaluates structured resume data deterministically.
// No AI, no database, no file parsing. Pure functions only.
package scoring

import (
	"strings"

	"cvforge-backend/internal/structure"
)

// Analysis is the outcome of an ATS evaluation.
type Analysis struct {
	Score           int      `json:"score"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

// Score performs a full ATS analysis on structured resume data. The result
// is deterministic for a given input and always lands in [0,100].
func Score(data *structure.StructuredResume) Analysis {
	issues := []string{}
	recommendations := []string{}
	score := 0

	// Contact information, max 20 points.
	if data.Contact != (structure.Contact{}) {
		if data.Contact.FullName != "" {
			score += 5
		}
		if data.Contact.Email != "" {
			score += 5
		}
		if data.Contact.Phone != "" {
			score += 4
		}
		if data.Contact.Location != "" {
			score += 3
		}
		if data.Contact.LinkedIn != "" || data.Contact.Website != "" || data.Contact.GitHub != "" {
			score += 3
		}
		if data.Contact.Phone == "" {
			issues = append(issues, "Missing phone number in contact information.")
		}
		if data.Contact.LinkedIn == "" {
			recommendations = append(recommendations, "Consider adding a LinkedIn profile for better visibility.")
		}
	} else {
		issues = append(issues, "Missing basic contact information.")
	}

	// Professional summary, max 10 points.
	summary := strings.TrimSpace(data.Summary)
	switch {
	case len(summary) > 50:
		score += 10
	case len(summary) > 0:
		score += 5
		recommendations = append(recommendations, "Your professional summary is a bit short. Aim for 2-3 impactful sentences.")
	default:
		issues = append(issues, "Missing professional summary or objective.")
		recommendations = append(recommendations, "Add a brief career summary to highlight your key value proposition.")
	}

	// Work experience, max 35 points.
	if len(data.Experience) > 0 {
		score += 10

		totalResponsibilities := 0
		hasCurrent := false
		for _, exp := range data.Experience {
			totalResponsibilities += len(exp.Responsibilities)
			if exp.IsCurrent {
				hasCurrent = true
			}
		}

		switch {
		case totalResponsibilities >= 10:
			score += 15
		case totalResponsibilities >= 5:
			score += 10
			recommendations = append(recommendations, "Add more detail to your work responsibilities using bullet points.")
		default:
			score += 5
			issues = append(issues, "Work experience descriptions are too brief.")
		}

		if hasCurrent {
			score += 10
		} else {
			issues = append(issues, "No current position listed in work history.")
		}
	} else {
		issues = append(issues, "No professional experience listed.")
		recommendations = append(recommendations, "If you are a student, include internships, volunteer roles, or key projects.")
	}

	// Education, max 15 points.
	if len(data.Education) > 0 {
		score += 10
		for _, edu := range data.Education {
			if edu.Degree != "" && edu.Institution != "" {
				score += 5
				break
			}
		}
	} else {
		issues = append(issues, "No education history found.")
		recommendations = append(recommendations, "Add your highest degree and the institution attended.")
	}

	// Skills, max 20 points.
	if len(data.Skills) > 0 {
		totalSkills := 0
		for _, group := range data.Skills {
			totalSkills += len(group.Skills)
		}
		switch {
		case totalSkills >= 15:
			score += 20
		case totalSkills >= 8:
			score += 15
			recommendations = append(recommendations, "Consider listing more technical or soft skills relevant to your industry.")
		default:
			score += 10
			issues = append(issues, "Very few skills listed.")
		}
	} else {
		issues = append(issues, "No skills section identified.")
		recommendations = append(recommendations, "Create a dedicated skills section to help ATS scanners find keywords.")
	}

	// Supplementary section bonuses.
	if len(data.Projects) > 0 {
		score += 3
	}
	if len(data.Certifications) > 0 {
		score += 3
	}
	if len(data.Languages) > 0 {
		score += 2
	}
	if len(data.Awards) > 0 {
		score += 2
	}

	return Analysis{
		Score:           clamp(score, 0, 100),
		Issues:          issues,
		Recommendations: recommendations,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
