package canned

import "nau-assistant/pkg/followup"

const (
	KeyTuition   = "what are the tuition fees"
	KeyAdmission = "how do i apply for admission"
	KeyPrograms  = "what programs does nau offer"
	KeyPassword  = "how to reset my password"
	KeyCourses   = "how do i select the courses"
	KeyPortal    = "how do i access my nau portal"
)

var (
	UndergraduateTokens = []string{"undergraduate", "bachelor", "bachelors", "bs", "ba"}
	GraduateTokens      = []string{"graduate", "master", "masters", "mba", "ms", "phd"}
)

// DefaultEntries is the NAU registry in precedence order.
func DefaultEntries() []Entry {
	return []Entry{
		{
			Key:      KeyTuition,
			Patterns: []string{"what are the tuition fees", "tuition fees", "what are the tuition and fees", "how much is tuition"},
			Answer:   tuitionAnswer,
			Sources:  []string{"https://www.na.edu/admissions/tuition-and-fees/"},
			FollowUp: followup.Binary{
				Prompt:      "Are you planning to use on-campus housing as well?",
				YesResponse: tuitionYesResponse,
				NoResponse:  tuitionNoResponse,
			},
		},
		{
			Key:      KeyAdmission,
			Patterns: []string{"how do i apply for admission", "how do i apply", "application process", "how to apply"},
			Answer:   admissionAnswer,
			Sources:  []string{"https://www.na.edu/admissions/"},
			FollowUp: followup.Choice{
				Prompt: "Are you applying as an undergraduate or graduate student?",
				Branches: []followup.Branch{
					{Label: "undergraduate", Tokens: UndergraduateTokens, Response: admissionUndergraduateResponse},
					{Label: "graduate", Tokens: GraduateTokens, Response: admissionGraduateResponse},
				},
			},
		},
		{
			Key: KeyPrograms,
			// "majors" matches as a bare substring of the normalized query
			Patterns: []string{"what programs does nau offer", "programs offered", "available degrees", "majors", "degree programs"},
			Answer:   programsAnswer,
			Sources:  []string{"https://www.na.edu/academics/"},
			FollowUp: followup.Open{
				Prompt: "Which program are you most interested in learning more about?",
				Topics: []followup.Topic{
					{Keyword: "business", Response: programBusiness},
					{Keyword: "computer science", Response: programComputerScience},
					{Keyword: "education", Response: programEducation},
					{Keyword: "criminal justice", Response: programCriminalJustice},
				},
				Fallback: programFallback,
			},
		},
		{
			Key:      KeyPassword,
			Patterns: []string{"how to reset my password", "reset password", "forgot password", "change password"},
			Answer:   passwordAnswer,
			Sources:  []string{"https://www.na.edu/it-services/"},
		},
		{
			Key:      KeyCourses,
			Patterns: []string{"how do i select the courses", "select courses", "register for classes", "course registration"},
			Answer:   coursesAnswer,
			Sources:  []string{"https://www.na.edu/academics/registration/"},
			FollowUp: followup.Binary{
				Prompt:      "Do you need help with checking course availability for the upcoming semester?",
				YesResponse: coursesYesResponse,
				NoResponse:  coursesNoResponse,
			},
		},
		{
			Key:      KeyPortal,
			Patterns: []string{"how do i access my nau portal", "access portal", "login to portal", "student portal"},
			Answer:   portalAnswer,
			Sources:  []string{"https://www.na.edu/it-services/"},
			FollowUp: followup.Binary{
				Prompt:      "Are you having trouble logging in to your portal?",
				YesResponse: portalYesResponse,
				NoResponse:  portalNoResponse,
			},
		},
	}
}

// NewDefaultMatcher returns a matcher over the NAU registry.
func NewDefaultMatcher() *Matcher {
	return NewMatcher(DefaultEntries())
}
