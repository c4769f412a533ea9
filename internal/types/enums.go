package types

// JobFunctions is the closed set of function labels the model may return.
// "Other Commercial" and "Other" are the fallbacks.
var JobFunctions = []string{
	"Executive Decision Maker",
	"Finance",
	"Product",
	"Sales",
	"Customer success",
	"HR",
	"Marketing",
	"Communications",
	"Support",
	"Software Development",
	"Information Technology",
	"Manufacturing",
	"Engineering",
	"Logistics",
	"Operations",
	"Property Management",
	"Development",
	"Legal",
	"Sustainability",
	"HSEQ",
	"Project Management",
	"Other Commercial",
	"Administration",
	"Other",
}

// JobSeniorities is the closed set of seniority labels the model may return
var JobSeniorities = []string{
	"CEO",
	"Chief",
	"Managing Director",
	"Chairman of the Board",
	"Entrepreneur",
	"Founder",
	"Vice President",
	"President",
	"Director",
	"Head of",
	"Manager",
	"Lead",
	"Partner",
	"Executive",
	"Other",
}

// IsValidFunction reports whether f is one of JobFunctions
func IsValidFunction(f string) bool {
	return contains(JobFunctions, f)
}

// IsValidSeniority reports whether s is one of JobSeniorities
func IsValidSeniority(s string) bool {
	return contains(JobSeniorities, s)
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
