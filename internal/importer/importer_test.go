package importer_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"podstudio/internal/importer"
	"podstudio/internal/services"
	"podstudio/internal/testsupport"
)

func sampleDocument() map[string]any {
	return map[string]any{
		"episodes": []map[string]any{
			{
				"id":          "E1",
				"title":       "Pilot",
				"description": "First episode",
				"guests": []map[string]any{
					{"id": "g-ada", "name": "Ada Lovelace", "bio": "Analyst"},
					{"name": "Grace Hopper"},
				},
			},
			{"id": "E2", "title": "Second"},
			{"id": "", "title": "No id"},
			{"id": "E1", "title": "Duplicate"},
		},
	}
}

func TestImportWritesEpisodesAndGuests(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	path := filepath.Join(testsupport.BaseDir(cfg), "episodes.json")
	testsupport.WriteJSON(t, path, sampleDocument())

	doc, err := importer.ReadFile(path, importer.FormatAuto)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	report, err := importer.New(st, nil).Import(context.Background(), doc, false)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.Created != 2 || report.Updated != 0 || report.Skipped != 2 || report.GuestsLinked != 2 {
		t.Fatalf("unexpected report %+v", report)
	}

	guests, err := st.ListGuestsForEpisode(context.Background(), "E1")
	if err != nil {
		t.Fatalf("ListGuestsForEpisode: %v", err)
	}
	if len(guests) != 2 || guests[0].ID != "g-ada" || guests[1].ID != "grace-hopper" {
		t.Fatalf("unexpected guests %+v", guests)
	}

	// A second import updates in place and replaces assignments.
	again := importer.Document{Episodes: []importer.EpisodeRecord{{
		ID: "E1", Title: "Pilot (remastered)",
		Guests: []importer.GuestRecord{{Name: "Grace Hopper"}},
	}}}
	report, err = importer.New(st, nil).Import(context.Background(), again, false)
	if err != nil {
		t.Fatalf("second Import: %v", err)
	}
	if report.Created != 0 || report.Updated != 1 {
		t.Fatalf("unexpected second report %+v", report)
	}
	guests, _ = st.ListGuestsForEpisode(context.Background(), "E1")
	if len(guests) != 1 || guests[0].Name != "Grace Hopper" {
		t.Fatalf("assignments were not replaced: %+v", guests)
	}
	episode, _ := st.GetEpisode(context.Background(), "E1")
	if episode == nil || episode.Title != "Pilot (remastered)" {
		t.Fatalf("episode not updated: %+v", episode)
	}
}

func TestImportDryRunWritesNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedEpisode(t, st, "E2", "Existing")

	path := filepath.Join(testsupport.BaseDir(cfg), "episodes.json")
	testsupport.WriteJSON(t, path, sampleDocument())
	doc, err := importer.ReadFile(path, importer.FormatAuto)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	report, err := importer.New(st, nil).Import(context.Background(), doc, true)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if !report.DryRun || report.Created != 1 || report.Updated != 1 || report.Skipped != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	if episode, _ := st.GetEpisode(context.Background(), "E1"); episode != nil {
		t.Fatal("dry run must not write episodes")
	}
	if len(report.Problems) != 2 || report.Problems[0].Index != 2 || report.Problems[1].Reason != "duplicate id in document" {
		t.Fatalf("unexpected problems %+v", report.Problems)
	}
}

func TestDecodeAcceptsBareArray(t *testing.T) {
	doc, err := importer.Decode([]byte(`[{"id":"E1","title":"Pilot"}]`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(doc.Episodes) != 1 || doc.Episodes[0].ID != "E1" {
		t.Fatalf("unexpected document %+v", doc)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "   ", "{not json"} {
		if _, err := importer.Decode([]byte(input)); !errors.Is(err, services.ErrDecode) {
			t.Errorf("Decode(%q) = %v, want ErrDecode", input, err)
		}
	}
}

func TestGuestID(t *testing.T) {
	cases := map[string]string{
		"Ada Lovelace":          "ada-lovelace",
		"  Dr. Grace  Hopper ": "dr-grace-hopper",
		"Zoë":                   "zoë",
		"---":                   "",
	}
	for input, want := range cases {
		if got := importer.GuestID(input); got != want {
			t.Errorf("GuestID(%q) = %q, want %q", input, got, want)
		}
	}
}
