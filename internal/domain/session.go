package domain

// Role identifies the kind of authenticated principal.
type Role string

const (
	RoleOfficer Role = "OFFICER"
	RoleCitizen Role = "CITIZEN"
)

// Session is the active operator identity captured in the state snapshot.
type Session struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// DefaultLocale is the response language tag used when none was selected.
const DefaultLocale = "en"

// SupportedLocales lists the response language tags the portal offers.
var SupportedLocales = []string{"en", "hi", "te"}

// LocaleSupported reports whether the given language tag is offered.
func LocaleSupported(tag string) bool {
	for _, candidate := range SupportedLocales {
		if candidate == tag {
			return true
		}
	}
	return false
}
