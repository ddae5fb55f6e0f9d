package structure

// Contact holds identity and reachability details.
type Contact struct {
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Location  string `json:"location,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	Portfolio string `json:"portfolio,omitempty"`
	GitHub    string `json:"github,omitempty"`
	Website   string `json:"website,omitempty"`
}

// Experience is one employment entry.
type Experience struct {
	JobTitle         string   `json:"jobTitle"`
	Company          string   `json:"company"`
	Location         string   `json:"location,omitempty"`
	StartDate        string   `json:"startDate,omitempty"`
	EndDate          string   `json:"endDate,omitempty"`
	IsCurrent        bool     `json:"isCurrent"`
	Responsibilities []string `json:"responsibilities"`
	Achievements     []string `json:"achievements,omitempty"`
}

// Education is one education entry.
type Education struct {
	Degree             string   `json:"degree"`
	Institution        string   `json:"institution"`
	Location           string   `json:"location,omitempty"`
	GraduationDate     string   `json:"graduationDate,omitempty"`
	GPA                string   `json:"gpa,omitempty"`
	Honors             []string `json:"honors,omitempty"`
	RelevantCoursework []string `json:"relevantCoursework,omitempty"`
}

// SkillGroup is a named category of skills.
type SkillGroup struct {
	Category string   `json:"category"`
	Skills   []string `json:"skills"`
}

// Project is one project entry.
type Project struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies,omitempty"`
	Link         string   `json:"link,omitempty"`
	Highlights   []string `json:"highlights,omitempty"`
}

// Certification is one certification entry.
type Certification struct {
	Name           string `json:"name"`
	Issuer         string `json:"issuer"`
	Date           string `json:"date,omitempty"`
	ExpirationDate string `json:"expirationDate,omitempty"`
	CredentialID   string `json:"credentialId,omitempty"`
	CredentialURL  string `json:"credentialUrl,omitempty"`
}

// Language is one language proficiency entry.
type Language struct {
	Language    string `json:"language"`
	Proficiency string `json:"proficiency,omitempty"`
}

// StructuredResume is the canonical structured representation of a resume.
type StructuredResume struct {
	Contact        Contact         `json:"contact"`
	Summary        string          `json:"summary,omitempty"`
	Experience     []Experience    `json:"experience"`
	Education      []Education     `json:"education"`
	Skills         []SkillGroup    `json:"skills"`
	Projects       []Project       `json:"projects"`
	Certifications []Certification `json:"certifications"`
	Languages      []Language      `json:"languages"`
	Awards         []string        `json:"awards"`
	Publications   []string        `json:"publications"`
	VolunteerWork  []string        `json:"volunteerWork"`
}

// Normalize fills nil slices with empty ones and substitutes a placeholder
// contact when the model returned none. Downstream consumers can then rely
// on non-nil sections.
func (r *StructuredResume) Normalize() {
	if r.Experience == nil {
		r.Experience = []Experience{}
	}
	if r.Education == nil {
		r.Education = []Education{}
	}
	if r.Skills == nil {
		r.Skills = []SkillGroup{}
	}
	if r.Projects == nil {
		r.Projects = []Project{}
	}
	if r.Certifications == nil {
		r.Certifications = []Certification{}
	}
	if r.Languages == nil {
		r.Languages = []Language{}
	}
	if r.Awards == nil {
		r.Awards = []string{}
	}
	if r.Publications == nil {
		r.Publications = []string{}
	}
	if r.VolunteerWork == nil {
		r.VolunteerWork = []string{}
	}
	if r.Contact == (Contact{}) {
		r.Contact = Contact{FullName: "Unknown", Email: "Unknown"}
	}
	for i := range r.Experience {
		if r.Experience[i].Responsibilities == nil {
			r.Experience[i].Responsibilities = []string{}
		}
	}
	for i := range r.Skills {
		if r.Skills[i].Skills == nil {
			r.Skills[i].Skills = []string{}
		}
	}
}
