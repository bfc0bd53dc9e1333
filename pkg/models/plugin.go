package models

// Plugin is an entry of the organization plugin catalog.
type Plugin struct {
	ID              string   `json:"id"                          validate:"required"`
	Name            string   `json:"name"                        validate:"required"`
	Description     string   `json:"description"`
	LongDescription string   `json:"long_description,omitempty"`
	Developer       string   `json:"developer"`
	Icon            string   `json:"icon,omitempty"`
	Installed       bool     `json:"installed"`
	Enabled         bool     `json:"enabled"`
	Core            bool     `json:"core,omitempty"`
	Paid            bool     `json:"paid,omitempty"`
	Pricing         string   `json:"pricing,omitempty"`
	InstallCount    string   `json:"install_count,omitempty"`
	ShowInMyPages   bool     `json:"show_in_my_pages"`
	Features        []string `json:"features,omitempty"`
	Dependencies    []string `json:"dependencies,omitempty"`
}

// Clone returns a deep copy so callers can't alias catalog slices.
func (p Plugin) Clone() Plugin {
	c := p
	c.Features = append([]string(nil), p.Features...)
	c.Dependencies = append([]string(nil), p.Dependencies...)

	return c
}
