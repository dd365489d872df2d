package domain

// Handler types route a category to the team that serves it.
const (
	HandlerCompSci      = "comp_sci_helpers"
	HandlerExternalSTEM = "external_stem_team"
	HandlerAIMisc       = "ai_misc"
)

// Category is static reference data used for specialization and routing.
type Category struct {
	ID          string `json:"id" yaml:"-"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	HandlerType string `json:"handler_type" yaml:"handler_type"`
	ChannelID   string `json:"channel_id,omitempty" yaml:"channel_id,omitempty"`
}

// ValidHandlerType reports whether t is a known handler classification.
func ValidHandlerType(t string) bool {
	switch t {
	case HandlerCompSci, HandlerExternalSTEM, HandlerAIMisc:
		return true
	}
	return false
}

// Settings is the process-wide singleton of feature toggles.
type Settings struct {
	HelperRegistrationOpen bool `json:"helper_registration_open"`
}
