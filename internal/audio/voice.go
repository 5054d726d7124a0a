package audio

import (
	"strings"

	"golang.org/x/text/cases"
)

// VoiceMap resolves transcript speaker names to provider voices.
type VoiceMap struct {
	byName  map[string]string
	Default string
}

// NewVoiceMap builds a case-insensitive speaker lookup.
func NewVoiceMap(voices map[string]string, fallback string) VoiceMap {
	fold := cases.Fold()
	byName := make(map[string]string, len(voices))
	for speaker, voice := range voices {
		key := fold.String(strings.TrimSpace(speaker))
		if key == "" || strings.TrimSpace(voice) == "" {
			continue
		}
		byName[key] = strings.TrimSpace(voice)
	}
	return VoiceMap{byName: byName, Default: strings.TrimSpace(fallback)}
}

// Resolve returns the voice for speaker, or the default when unmapped.
func (m VoiceMap) Resolve(speaker string) string {
	key := cases.Fold().String(strings.TrimSpace(speaker))
	if voice, ok := m.byName[key]; ok {
		return voice
	}
	return m.Default
}
