package importer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"podstudio/internal/services"
)

// Research documents are markdown with three parts:
//
//	| Guest Name | Domain | Relevance Summary |
//	|---|---|---|
//	| Ada Lovelace | Computing | First programmer |
//
//	Detailed Guest Profiles
//	1. Ada Lovelace
//	* Rationale: Wrote the first published algorithm.
//	* Chemistry Tag: The Analyst
//
//	1. Thematic Pairing: Engines of Thought
//	* Concept: Machines that compose. More text.
//	* Proposed Pairing: Ada Lovelace (The Analyst) + Grace Hopper (The Admiral)
//
//	2. Thematic Arc: Debugging History
//	* Concept: How errors shaped computing.
//	* Guests: Grace Hopper (The Moth), Ada Lovelace (The Notes)
//	* Narrative Flow: Grace Hopper finds the moth. Ada Lovelace annotates.
//
// A pairing becomes one episode with every listed guest. An arc becomes one
// episode per guest.
const (
	guestTableHeader  = "| Guest Name | Domain | Relevance Summary |"
	profilesHeading   = "Detailed Guest Profiles"
	strategicHeading  = "IV. Strategic Analysis"
	firstPairingLabel = "1. Thematic Pairing:"

	maxEpisodeIDLength = 64
)

var (
	numberedHeader = regexp.MustCompile(`^\d+\.\s+(.*)$`)
	namedPair      = regexp.MustCompile(`(.+?)\s*\(([^)]+)\)`)
	pairSeparator  = regexp.MustCompile(`\s*\+|\s*,\s*|\s+and\s+`)
	leadingAnd     = regexp.MustCompile(`(?i)^\s*and\s+`)
)

type guestRow struct {
	domain  string
	summary string
}

type section struct {
	title  string
	fields map[string]string
}

// DecodeMarkdown converts a research document into an import Document. Guest
// profiles come from the guest table merged with the detailed profiles;
// episodes come from the thematic pairing and arc sections. Episode guests
// without a profile are left unlinked and reported in Document.Warnings.
func DecodeMarkdown(data []byte) (Document, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	names, rows, err := parseGuestTable(text)
	if err != nil {
		return Document{}, err
	}
	profiles := parseGuestProfiles(text)

	var doc Document
	byName := make(map[string]GuestRecord)
	addGuest := func(name string, row guestRow, fields map[string]string) {
		guest := GuestRecord{ID: GuestID(name), Name: name, Bio: guestBio(row, fields)}
		doc.Guests = append(doc.Guests, guest)
		byName[strings.ToLower(name)] = guest
	}
	for _, name := range names {
		addGuest(name, rows[name], profileFields(profiles, name))
	}
	for _, profile := range profiles {
		if _, ok := byName[strings.ToLower(profile.title)]; !ok {
			addGuest(profile.title, guestRow{}, profile.fields)
		}
	}

	for _, ep := range parseEpisodes(text) {
		record := EpisodeRecord{ID: episodeID(ep.title), Title: ep.title, Description: ep.description}
		linked := make(map[string]struct{}, len(ep.guests))
		for _, name := range ep.guests {
			guest, ok := byName[strings.ToLower(name)]
			if !ok {
				doc.Warnings = append(doc.Warnings, fmt.Sprintf("guest %q in episode %q has no profile; not linked", name, ep.title))
				continue
			}
			if _, dup := linked[guest.ID]; dup {
				continue
			}
			linked[guest.ID] = struct{}{}
			record.Guests = append(record.Guests, guest)
		}
		doc.Episodes = append(doc.Episodes, record)
	}
	if len(doc.Episodes) == 0 {
		return Document{}, services.Wrap(services.ErrDecode, "importer", "decode markdown",
			"no episode definitions found; expected a section starting with "+strconv.Quote(firstPairingLabel), nil)
	}
	return doc, nil
}

func parseGuestTable(text string) ([]string, map[string]guestRow, error) {
	start := strings.Index(text, guestTableHeader)
	if start < 0 {
		return nil, nil, services.Wrap(services.ErrDecode, "importer", "decode markdown",
			"guest table header not found; expected "+guestTableHeader, nil)
	}
	start += len(guestTableHeader)
	end := strings.Index(text[start:], profilesHeading)
	if end < 0 {
		return nil, nil, services.Wrap(services.ErrDecode, "importer", "decode markdown",
			strconv.Quote(profilesHeading)+" section not found after the guest table", nil)
	}

	var names []string
	rows := make(map[string]guestRow)
	for _, line := range strings.Split(text[start:start+end], "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "|---") || !strings.Contains(line, "|") {
			continue
		}
		cells := strings.Split(line, "|")
		if len(cells) < 3 {
			continue
		}
		columns := cells[1 : len(cells)-1]
		for i := range columns {
			columns[i] = strings.TrimSpace(columns[i])
		}
		if len(columns) < 2 {
			continue
		}
		name := columns[0]
		if lower := strings.ToLower(name); strings.Trim(name, "-: ") == "" || lower == "guest name" || lower == "name" {
			continue
		}
		row := guestRow{domain: columns[1]}
		if len(columns) > 2 {
			row.summary = columns[2]
		}
		if _, seen := rows[name]; !seen {
			names = append(names, name)
		}
		rows[name] = row
	}
	if len(names) == 0 {
		return nil, nil, services.Wrap(services.ErrDecode, "importer", "decode markdown",
			"guest table has no rows before "+strconv.Quote(profilesHeading), nil)
	}
	return names, rows, nil
}

func parseGuestProfiles(text string) []section {
	_, body, ok := strings.Cut(text, profilesHeading)
	if !ok {
		return nil
	}
	for _, marker := range []string{strategicHeading, firstPairingLabel} {
		if i := strings.Index(body, marker); i >= 0 {
			body = body[:i]
		}
	}
	return splitSections(body, func(string) bool { return true })
}

func profileFields(profiles []section, name string) map[string]string {
	for _, profile := range profiles {
		if profile.title == name {
			return profile.fields
		}
	}
	return nil
}

// splitSections groups lines under numbered headers ("3. Title") accepted by
// keep. Lines before the first header are ignored.
func splitSections(body string, keep func(title string) bool) []section {
	var (
		sections []section
		lines    []string
		title    string
		open     bool
	)
	flush := func() {
		if open {
			sections = append(sections, section{title: title, fields: parseFields(lines)})
		}
	}
	for _, line := range strings.Split(body, "\n") {
		if match := numberedHeader.FindStringSubmatch(strings.TrimRight(line, " \t")); match != nil && keep(match[1]) {
			flush()
			title, lines, open = strings.TrimSpace(match[1]), nil, true
			continue
		}
		lines = append(lines, line)
	}
	flush()
	return sections
}

// parseFields reads "* Key: value" bullets. Unbulleted lines continue the
// previous value until a markdown heading.
func parseFields(lines []string) map[string]string {
	fields := make(map[string]string)
	current := ""
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			current = ""
			continue
		}
		if content, ok := strings.CutPrefix(line, "* "); ok {
			content = strings.TrimSpace(content)
			key, value, _ := strings.Cut(content, ":")
			if !strings.Contains(content, ": ") {
				current = ""
				continue
			}
			current = strings.TrimSpace(key)
			fields[current] = strings.TrimSpace(value)
			continue
		}
		if current != "" {
			fields[current] = strings.TrimSpace(fields[current] + " " + line)
		}
	}
	return fields
}

func guestBio(row guestRow, fields map[string]string) string {
	domain := fields["Domain"]
	if domain == "" {
		domain = row.domain
	}
	parts := []string{row.summary, fields["Rationale"]}
	if tag := fields["Chemistry Tag"]; tag != "" {
		parts = append(parts, "Chemistry Tag: "+tag)
	}
	if topic := fields["Potential Topic"]; topic != "" {
		parts = append(parts, "Potential Topic: "+topic)
	}
	if domain != "" {
		parts = append(parts, "Expertise: "+domain+".")
	}
	var background []string
	if audience := fields["Audience Type"]; audience != "" {
		background = append(background, "Audience: "+audience)
	}
	if influence := fields["Influence Level"]; influence != "" {
		background = append(background, "Influence: "+influence)
	}
	if len(background) > 0 {
		parts = append(parts, strings.Join(background, " | "))
	}
	return joinNonEmpty(parts, " ")
}

type episodeSpec struct {
	title       string
	description string
	guests      []string
}

func parseEpisodes(text string) []episodeSpec {
	start := strings.Index(text, firstPairingLabel)
	if start < 0 {
		return nil
	}
	body := text[start:]
	if end := strings.Index(body, strategicHeading); end >= 0 {
		body = body[:end]
	}
	sections := splitSections(body, func(title string) bool {
		return strings.HasPrefix(title, "Thematic")
	})

	var episodes []episodeSpec
	for _, s := range sections {
		kind, theme, _ := strings.Cut(s.title, ":")
		theme = strings.TrimSpace(theme)
		concept := s.fields["Concept"]
		switch {
		case strings.Contains(kind, "Thematic Pairing"):
			pairs := parsePairs(s.fields["Proposed Pairing"])
			title := theme
			if subtitle := firstSentence(concept); subtitle != "" {
				title = theme + ": " + subtitle
			}
			featuring := make([]string, len(pairs))
			for i, p := range pairs {
				featuring[i] = p.label()
			}
			description := []string{concept, s.fields["Engineered Dialogue"]}
			if len(featuring) > 0 {
				description = append(description, "Featuring "+strings.Join(featuring, " & ")+".")
			}
			episodes = append(episodes, episodeSpec{
				title:       title,
				description: joinNonEmpty(description, " "),
				guests:      pairNames(pairs),
			})
		case strings.Contains(kind, "Thematic Arc"):
			narrative := s.fields["Narrative Flow"]
			for i, p := range parsePairs(s.fields["Guests"]) {
				part := p.descriptor
				if part == "" {
					part = "Conversation with " + p.name
				}
				description := []string{concept, sentencesMentioning(narrative, p.name), "Featuring " + p.name + "."}
				episodes = append(episodes, episodeSpec{
					title:       fmt.Sprintf("%s (Part %d): %s", theme, i+1, part),
					description: joinNonEmpty(description, " "),
					guests:      []string{p.name},
				})
			}
		}
	}
	return episodes
}

type namePair struct {
	name       string
	descriptor string
}

func (p namePair) label() string {
	if p.descriptor == "" {
		return p.name
	}
	return p.name + " (" + p.descriptor + ")"
}

func pairNames(pairs []namePair) []string {
	names := make([]string, len(pairs))
	for i, p := range pairs {
		names[i] = p.name
	}
	return names
}

// parsePairs reads "Name (Descriptor)" lists joined by "+", commas or "and".
// Lists without descriptors are split on the separators alone.
func parsePairs(raw string) []namePair {
	var pairs []namePair
	for _, match := range namedPair.FindAllStringSubmatch(raw, -1) {
		if name := cleanName(match[1], ""); name != "" {
			pairs = append(pairs, namePair{name: name, descriptor: strings.TrimSpace(match[2])})
		}
	}
	if len(pairs) > 0 {
		return pairs
	}
	for _, token := range pairSeparator.Split(raw, -1) {
		if name := cleanName(token, "."); len([]rune(name)) > 2 {
			pairs = append(pairs, namePair{name: name})
		}
	}
	return pairs
}

func cleanName(raw, trailing string) string {
	name := strings.TrimLeft(strings.TrimSpace(raw), " \t+,")
	name = strings.TrimRight(name, " \t+,"+trailing)
	return strings.TrimSpace(leadingAnd.ReplaceAllString(name, ""))
}

// sentences splits after ".", "!" or "?" followed by whitespace.
func sentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var out []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes)-1; i++ {
		if strings.ContainsRune(".!?", runes[i]) && unicode.IsSpace(runes[i+1]) {
			out = append(out, strings.TrimSpace(string(runes[start:i+1])))
			start = i + 1
		}
	}
	if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
		out = append(out, rest)
	}
	return out
}

func firstSentence(text string) string {
	all := sentences(text)
	if len(all) == 0 {
		return ""
	}
	return strings.TrimRight(all[0], ". ")
}

func sentencesMentioning(text, name string) string {
	var relevant []string
	for _, s := range sentences(text) {
		if strings.Contains(s, name) {
			relevant = append(relevant, s)
		}
	}
	return strings.Join(relevant, " ")
}

func episodeID(title string) string {
	id := []rune(slug(title))
	if len(id) > maxEpisodeIDLength {
		id = id[:maxEpisodeIDLength]
	}
	return strings.TrimRight(string(id), "-")
}

func joinNonEmpty(parts []string, sep string) string {
	kept := parts[:0:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, sep)
}
