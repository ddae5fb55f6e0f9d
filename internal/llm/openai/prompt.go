package openai

import (
	"fmt"
	"strings"
)

// Message represents an OpenAI chat message.
type Message struct {
	Role    string
	Content string
}

const systemPromptParser = "You are an expert resume parser. Respond with JSON only. Never omit keys. Output must match the schema exactly."

const parserSchemaPrompt = `Extract all information from the provided raw resume text and return it as a structured JSON object.

IMPORTANT: Return ONLY valid JSON, no additional text, explanation, or markdown formatting.

The JSON MUST follow this exact structure:
{
    "contact": {
        "fullName": "string",
        "email": "string",
        "phone": "string (optional)",
        "location": "string (optional)",
        "linkedin": "string (optional)",
        "portfolio": "string (optional)",
        "github": "string (optional)",
        "website": "string (optional)"
    },
    "summary": "string (professional summary or objective, if present)",
    "experience": [
        {
            "jobTitle": "string",
            "company": "string",
            "location": "string (optional)",
            "startDate": "string (e.g., 'Jan 2020')",
            "endDate": "string (empty if current position)",
            "isCurrent": boolean,
            "responsibilities": ["string"],
            "achievements": ["string (optional)"]
        }
    ],
    "education": [
        {
            "degree": "string",
            "institution": "string",
            "location": "string (optional)",
            "graduationDate": "string (optional)",
            "gpa": "string (optional)",
            "honors": ["string (optional)"],
            "relevantCoursework": ["string (optional)"]
        }
    ],
    "skills": [
        {
            "category": "string (e.g., 'Programming Languages', 'Frameworks', 'Soft Skills')",
            "skills": ["string"]
        }
    ],
    "projects": [
        {
            "title": "string",
            "description": "string",
            "technologies": ["string (optional)"],
            "link": "string (optional)",
            "highlights": ["string (optional)"]
        }
    ],
    "certifications": [
        {
            "name": "string",
            "issuer": "string",
            "date": "string (optional)",
            "expirationDate": "string (optional)",
            "credentialId": "string (optional)",
            "credentialUrl": "string (optional)"
        }
    ],
    "languages": [
        {
            "language": "string",
            "proficiency": "Native | Fluent | Professional | Intermediate | Basic"
        }
    ],
    "awards": ["string"],
    "publications": ["string"],
    "volunteerWork": ["string"]
}

Guidelines:
1. Extract ALL information present in the text.
2. If a section is missing, use an empty array [] or null.
3. Preserve the original wording as much as possible for experience items.
4. Ensure the output is strictly valid JSON.`

// BuildStructurePrompt creates the chat messages for a structuring request.
func BuildStructurePrompt(resumeText, templateID string) []Message {
	var user strings.Builder
	user.WriteString(parserSchemaPrompt)
	if strings.TrimSpace(templateID) != "" {
		user.WriteString(fmt.Sprintf(
			"\n\nIMPORTANT: Standardize the output according to the following template style characteristics: %s.\nMap the raw text into the fields precisely as defined in the schema.",
			strings.TrimSpace(templateID)))
	}
	user.WriteString("\n\nRAW RESUME TEXT:\n")
	user.WriteString(resumeText)

	return []Message{
		{Role: "system", Content: systemPromptParser},
		{Role: "user", Content: user.String()},
	}
}
