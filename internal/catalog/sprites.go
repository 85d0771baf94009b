package catalog

// Sprites holds the sprite URLs of a species. An empty string means the
// catalog has no art for that variant.
type Sprites struct {
	FrontDefault     string `json:"front_default,omitempty"`
	FrontFemale      string `json:"front_female,omitempty"`
	FrontShiny       string `json:"front_shiny,omitempty"`
	FrontShinyFemale string `json:"front_shiny_female,omitempty"`
	BackDefault      string `json:"back_default,omitempty"`
	BackFemale       string `json:"back_female,omitempty"`
	BackShiny        string `json:"back_shiny,omitempty"`
	BackShinyFemale  string `json:"back_shiny_female,omitempty"`
}

// Variant picks one sprite. Female art falls back to the non-female art of
// the same shininess, and shiny art falls back to the default art.
func (s Sprites) Variant(back, shiny, female bool) string {
	def, fem, sh, shFem := s.FrontDefault, s.FrontFemale, s.FrontShiny, s.FrontShinyFemale
	if back {
		def, fem, sh, shFem = s.BackDefault, s.BackFemale, s.BackShiny, s.BackShinyFemale
	}

	switch {
	case shiny && female && shFem != "":
		return shFem
	case shiny && sh != "":
		return sh
	case !shiny && female && fem != "":
		return fem
	}
	return def
}
