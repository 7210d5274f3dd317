package relay

// Settings is the open-ended per-control configuration object the host persists.
type Settings map[string]any

// Well-known settings keys.
const (
	KeySFXName      = "sfxName"
	KeySFXTitle     = "sfxTitle"
	KeyCampaignID   = "campaignId"
	KeyCampaignName = "campaignName"
	KeySceneID      = "sceneId"
	KeySceneName    = "sceneName"
	KeyVolume       = "volume"
	KeyReverb       = "reverb"
)

// Clone returns a shallow copy; a nil receiver yields an empty map.
func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Merge returns s with partial laid over it. Keys absent from partial are kept;
// a nil value in partial removes the key.
func (s Settings) Merge(partial Settings) Settings {
	out := s.Clone()
	for k, v := range partial {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

// String returns the string stored at key, or "" when it is unset or not a string.
func (s Settings) String(key string) string {
	v, _ := s[key].(string)
	return v
}

// Float returns the number stored at key. Only JSON numbers count as set.
func (s Settings) Float(key string) (float64, bool) {
	switch v := s[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
