package materials

import (
	"strings"

	"cvforge-backend/internal/structure"
)

// RenderPlainText flattens structured data into the plain-text CV the
// generation prompt consumes. Sections are emitted in reading order and
// empty ones are skipped.
func RenderPlainText(data *structure.StructuredResume) string {
	if data == nil {
		return ""
	}
	var b strings.Builder

	writeContact(&b, data.Contact)

	if s := strings.TrimSpace(data.Summary); s != "" {
		section(&b, "SUMMARY")
		line(&b, s)
	}

	if len(data.Experience) > 0 {
		section(&b, "EXPERIENCE")
		for _, exp := range data.Experience {
			header := exp.JobTitle
			if exp.Company != "" {
				header += " at " + exp.Company
			}
			if span := dateSpan(exp.StartDate, exp.EndDate, exp.IsCurrent); span != "" {
				header += " (" + span + ")"
			}
			line(&b, header)
			for _, r := range exp.Responsibilities {
				line(&b, "- "+r)
			}
			for _, a := range exp.Achievements {
				line(&b, "- "+a)
			}
		}
	}

	if len(data.Education) > 0 {
		section(&b, "EDUCATION")
		for _, edu := range data.Education {
			entry := edu.Degree
			if edu.Institution != "" {
				entry += ", " + edu.Institution
			}
			if edu.GraduationDate != "" {
				entry += " (" + edu.GraduationDate + ")"
			}
			line(&b, entry)
		}
	}

	if len(data.Skills) > 0 {
		section(&b, "SKILLS")
		for _, group := range data.Skills {
			if len(group.Skills) == 0 {
				continue
			}
			entry := strings.Join(group.Skills, ", ")
			if group.Category != "" {
				entry = group.Category + ": " + entry
			}
			line(&b, entry)
		}
	}

	if len(data.Projects) > 0 {
		section(&b, "PROJECTS")
		for _, p := range data.Projects {
			entry := p.Title
			if p.Description != "" {
				entry += " - " + p.Description
			}
			if len(p.Technologies) > 0 {
				entry += " [" + strings.Join(p.Technologies, ", ") + "]"
			}
			line(&b, entry)
		}
	}

	if len(data.Certifications) > 0 {
		section(&b, "CERTIFICATIONS")
		for _, cert := range data.Certifications {
			entry := cert.Name
			if cert.Issuer != "" {
				entry += ", " + cert.Issuer
			}
			line(&b, entry)
		}
	}

	if len(data.Languages) > 0 {
		section(&b, "LANGUAGES")
		for _, lang := range data.Languages {
			entry := lang.Language
			if lang.Proficiency != "" {
				entry += " (" + lang.Proficiency + ")"
			}
			line(&b, entry)
		}
	}

	if len(data.Awards) > 0 {
		section(&b, "AWARDS")
		for _, a := range data.Awards {
			line(&b, a)
		}
	}

	return strings.TrimSpace(b.String())
}

func writeContact(b *strings.Builder, c structure.Contact) {
	if c.FullName != "" {
		line(b, c.FullName)
	}
	details := []string{}
	for _, d := range []string{c.Email, c.Phone, c.Location, c.LinkedIn, c.Portfolio, c.GitHub, c.Website} {
		if d != "" {
			details = append(details, d)
		}
	}
	if len(details) > 0 {
		line(b, strings.Join(details, " | "))
	}
}

func section(b *strings.Builder, name string) {
	b.WriteString("\n")
	line(b, name)
}

func line(b *strings.Builder, s string) {
	b.WriteString(s)
	b.WriteString("\n")
}

func dateSpan(start, end string, current bool) string {
	if start == "" && end == "" && !current {
		return ""
	}
	if current {
		end = "Present"
	}
	switch {
	case start != "" && end != "":
		return start + " - " + end
	case start != "":
		return start
	default:
		return end
	}
}
