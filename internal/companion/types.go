package companion

// SoundEffect describes one playable effect as listed by the companion app.
type SoundEffect struct {
	Name          string   `json:"name"`
	LocalizedName string   `json:"localizedName"`
	Category      string   `json:"category"`
	Icon          string   `json:"icon"`
	Filename      string   `json:"filename"`
	IsPremium     bool     `json:"isPremium"`
	PitchRange    *float64 `json:"pitchRange,omitempty"`
	Duration      float64  `json:"duration"`
}

// Title is the localized name, falling back to the raw name.
func (s SoundEffect) Title() string {
	if s.LocalizedName != "" {
		return s.LocalizedName
	}
	return s.Name
}

// Campaign groups scenes.
type Campaign struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Scene belongs to exactly one campaign.
type Scene struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PlayOptions are optional playback parameters; nil fields are not sent.
type PlayOptions struct {
	Volume *float64
	Reverb *float64
}
