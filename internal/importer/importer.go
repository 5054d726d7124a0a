// Package importer loads episodes and their guest assignments from JSON or
// from a markdown research document.
//
// The JSON document is either {"episodes": [...]} or a bare array of
// episodes. Each episode carries its guests in speaking order; importing an
// episode replaces its previous guest assignments. A markdown document is
// converted into the same Document by DecodeMarkdown.
package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"podstudio/internal/logging"
	"podstudio/internal/podcast"
	"podstudio/internal/services"
)

// Document is the import file layout. Guests lists profiles that are
// upserted even when no episode references them.
type Document struct {
	Guests   []GuestRecord   `json:"guests,omitempty"`
	Episodes []EpisodeRecord `json:"episodes"`
	// Warnings carries decode notes that did not prevent the import.
	Warnings []string `json:"-"`
}

// Format selects the decoder for ReadFile.
type Format string

const (
	// FormatAuto picks markdown for .md and .markdown files and JSON otherwise.
	FormatAuto     Format = "auto"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a format name. Empty means FormatAuto.
func ParseFormat(value string) (Format, error) {
	switch format := Format(strings.ToLower(strings.TrimSpace(value))); format {
	case "", FormatAuto:
		return FormatAuto, nil
	case FormatJSON, FormatMarkdown:
		return format, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", services.Wrap(services.ErrValidation, "importer", "format", fmt.Sprintf("unknown format %q (want auto, json or markdown)", value), nil)
	}
}

// EpisodeRecord is one imported episode.
type EpisodeRecord struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      string        `json:"status"`
	Guests      []GuestRecord `json:"guests"`
}

// GuestRecord is one guest of an imported episode. A missing id is derived
// from the name.
type GuestRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Bio  string `json:"bio"`
}

// Repository is the persistence surface the importer writes through.
type Repository interface {
	GetEpisode(ctx context.Context, id string) (*podcast.Episode, error)
	UpsertEpisode(ctx context.Context, episode podcast.Episode) (bool, error)
	UpsertGuest(ctx context.Context, guest podcast.Guest) (bool, error)
	UnassignGuests(ctx context.Context, episodeID string) error
	AssignGuest(ctx context.Context, episodeID, guestID string, position int) error
}

// Problem describes a skipped record.
type Problem struct {
	Index     int    `json:"index"`
	EpisodeID string `json:"episode_id,omitempty"`
	Reason    string `json:"reason"`
}

// Report summarizes an import.
type Report struct {
	DryRun       bool      `json:"dry_run"`
	Created      int       `json:"created"`
	Updated      int       `json:"updated"`
	Skipped      int       `json:"skipped"`
	GuestsLinked int       `json:"guests_linked"`
	Profiles     int       `json:"profiles,omitempty"`
	Problems     []Problem `json:"problems,omitempty"`
	Warnings     []string  `json:"warnings,omitempty"`
}

// Importer applies documents to a repository.
type Importer struct {
	repo   Repository
	logger *slog.Logger
}

// New constructs an Importer.
func New(repo Repository, logger *slog.Logger) *Importer {
	return &Importer{repo: repo, logger: logging.NewComponentLogger(logger, "importer")}
}

// ReadFile decodes an import document from path using format.
func ReadFile(path string, format Format) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, services.Wrap(services.ErrNotFound, "importer", "read", path, err)
	}
	if format == FormatAuto || format == "" {
		format = FormatJSON
		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".markdown":
			format = FormatMarkdown
		}
	}
	if format == FormatMarkdown {
		return DecodeMarkdown(data)
	}
	return Decode(data)
}

// Decode parses either document layout.
func Decode(data []byte) (Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Document{}, services.Wrap(services.ErrDecode, "importer", "decode", "empty document", nil)
	}
	var doc Document
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &doc.Episodes); err != nil {
			return Document{}, services.Wrap(services.ErrDecode, "importer", "decode", "episode array", err)
		}
		return doc, nil
	}
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return Document{}, services.Wrap(services.ErrDecode, "importer", "decode", "episode document", err)
	}
	return doc, nil
}

// Import validates every record and, unless dryRun is set, writes the valid
// ones. Invalid records are skipped and reported; storage failures abort the
// import and return the report so far.
func (im *Importer) Import(ctx context.Context, doc Document, dryRun bool) (Report, error) {
	report := Report{DryRun: dryRun, Warnings: doc.Warnings}
	for _, warning := range doc.Warnings {
		im.logger.Warn("import warning", logging.String("detail", warning))
	}
	for _, guest := range doc.Guests {
		guest = normalizeGuest(guest)
		if guest.ID == "" {
			report.Warnings = append(report.Warnings, fmt.Sprintf("guest profile %q has no usable name; skipped", guest.Name))
			continue
		}
		if !dryRun {
			if _, err := im.repo.UpsertGuest(ctx, podcast.Guest{ID: guest.ID, Name: guest.Name, Bio: guest.Bio}); err != nil {
				return report, err
			}
		}
		report.Profiles++
	}

	seen := make(map[string]struct{}, len(doc.Episodes))

	for index, record := range doc.Episodes {
		record = normalize(record)
		if reason := validate(record, seen); reason != "" {
			report.Skipped++
			report.Problems = append(report.Problems, Problem{Index: index, EpisodeID: record.ID, Reason: reason})
			im.logger.Warn("import record skipped",
				logging.Int("index", index),
				logging.EpisodeID(record.ID),
				logging.String("reason", reason),
			)
			continue
		}
		seen[record.ID] = struct{}{}

		created, err := im.apply(ctx, record, dryRun)
		if err != nil {
			return report, err
		}
		if created {
			report.Created++
		} else {
			report.Updated++
		}
		report.GuestsLinked += len(record.Guests)
	}

	im.logger.Info("import finished",
		logging.Bool("dry_run", dryRun),
		logging.Int("created", report.Created),
		logging.Int("updated", report.Updated),
		logging.Int("skipped", report.Skipped),
		logging.Int("profiles", report.Profiles),
	)
	return report, nil
}

func (im *Importer) apply(ctx context.Context, record EpisodeRecord, dryRun bool) (bool, error) {
	if dryRun {
		existing, err := im.repo.GetEpisode(ctx, record.ID)
		if err != nil {
			return false, err
		}
		return existing == nil, nil
	}

	created, err := im.repo.UpsertEpisode(ctx, podcast.Episode{
		ID:          record.ID,
		Title:       record.Title,
		Description: record.Description,
		Status:      record.Status,
	})
	if err != nil {
		return false, err
	}
	if err := im.repo.UnassignGuests(ctx, record.ID); err != nil {
		return false, err
	}
	for position, guest := range record.Guests {
		if _, err := im.repo.UpsertGuest(ctx, podcast.Guest{ID: guest.ID, Name: guest.Name, Bio: guest.Bio}); err != nil {
			return false, err
		}
		if err := im.repo.AssignGuest(ctx, record.ID, guest.ID, position); err != nil {
			return false, err
		}
	}
	return created, nil
}

func normalize(record EpisodeRecord) EpisodeRecord {
	record.ID = strings.TrimSpace(record.ID)
	record.Title = strings.TrimSpace(record.Title)
	record.Description = strings.TrimSpace(record.Description)
	record.Status = strings.TrimSpace(record.Status)
	guests := make([]GuestRecord, 0, len(record.Guests))
	for _, guest := range record.Guests {
		guests = append(guests, normalizeGuest(guest))
	}
	record.Guests = guests
	return record
}

func normalizeGuest(guest GuestRecord) GuestRecord {
	guest.Name = strings.TrimSpace(guest.Name)
	guest.Bio = strings.TrimSpace(guest.Bio)
	guest.ID = strings.TrimSpace(guest.ID)
	if guest.ID == "" {
		guest.ID = GuestID(guest.Name)
	}
	return guest
}

func validate(record EpisodeRecord, seen map[string]struct{}) string {
	switch {
	case record.ID == "":
		return "missing id"
	case record.Title == "":
		return "missing title"
	}
	if _, dup := seen[record.ID]; dup {
		return "duplicate id in document"
	}
	guestIDs := make(map[string]struct{}, len(record.Guests))
	for i, guest := range record.Guests {
		if guest.Name == "" || guest.ID == "" {
			return fmt.Sprintf("guest %d has no name", i)
		}
		if _, dup := guestIDs[guest.ID]; dup {
			return fmt.Sprintf("guest %q listed twice", guest.ID)
		}
		guestIDs[guest.ID] = struct{}{}
	}
	return ""
}

// GuestID derives a stable identifier from a guest name.
func GuestID(name string) string {
	return slug(name)
}

// slug lowercases value and joins its letter and digit runs with dashes.
func slug(value string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
