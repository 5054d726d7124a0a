package agent

import (
	"errors"
	"fmt"
	"strings"

	"podstudio/internal/podcast"
	"podstudio/internal/services"
)

// HostSpeaker is the speaker label used for the show host.
const HostSpeaker = "Host"

// TranscriptPrompt instructs the model to write the conversation.
const TranscriptPrompt = `You write scripts for a conversational podcast.
The show has one host, labelled "Host", and the guests listed by the user.
Write a natural, engaging conversation that covers the episode topic.
The host opens and closes the episode. Every guest speaks at least once.
Use each guest's name exactly as given as the speaker label.
Respond with JSON only, no prose, using this shape:
{"segments":[{"speaker":"Host","content":"..."},{"speaker":"<guest name>","content":"..."}]}`

// BuildUserPrompt describes the episode and its guests.
func BuildUserPrompt(title, description string, guests []podcast.Guest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Episode title: %s\n", strings.TrimSpace(title))
	if description = strings.TrimSpace(description); description != "" {
		fmt.Fprintf(&b, "Episode description: %s\n", description)
	}
	b.WriteString("Guests:\n")
	for _, guest := range guests {
		name := strings.TrimSpace(guest.Name)
		if bio := strings.TrimSpace(guest.Bio); bio != "" {
			fmt.Fprintf(&b, "- %s: %s\n", name, bio)
			continue
		}
		fmt.Fprintf(&b, "- %s\n", name)
	}
	return strings.TrimSpace(b.String())
}

type transcriptPayload struct {
	Segments []podcast.TranscriptSegment `json:"segments"`
}

// ParseTranscript decodes the model payload into a GeneratedTranscript.
// Segments with an empty speaker or content are dropped.
func ParseTranscript(content string) (podcast.GeneratedTranscript, error) {
	var payload transcriptPayload
	if err := DecodeLLMJSON(content, &payload); err != nil {
		return podcast.GeneratedTranscript{}, services.Wrap(services.ErrExternal, "agent", "parse transcript", "invalid payload", err)
	}
	segments := make([]podcast.TranscriptSegment, 0, len(payload.Segments))
	lines := make([]string, 0, len(payload.Segments))
	for _, segment := range payload.Segments {
		speaker := strings.TrimSpace(segment.Speaker)
		text := strings.TrimSpace(segment.Content)
		if speaker == "" || text == "" {
			continue
		}
		segments = append(segments, podcast.TranscriptSegment{Speaker: speaker, Content: text})
		lines = append(lines, speaker+": "+text)
	}
	if len(segments) == 0 {
		return podcast.GeneratedTranscript{}, services.Wrap(services.ErrExternal, "agent", "parse transcript", "no segments", errors.New(summarizePayloadSnippet(content)))
	}
	text := strings.Join(lines, "\n")
	return podcast.GeneratedTranscript{
		Text:      text,
		Segments:  segments,
		WordCount: podcast.CountWords(text),
	}, nil
}
