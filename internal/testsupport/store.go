package testsupport

import (
	"context"
	"fmt"
	"testing"

	"podstudio/internal/config"
	"podstudio/internal/podcast"
	"podstudio/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SeedEpisode creates an episode and assigns the named guests in order.
// Guest ids are derived from their names.
func SeedEpisode(t testing.TB, st *store.Store, id, title string, guestNames ...string) {
	t.Helper()

	ctx := context.Background()
	if _, err := st.UpsertEpisode(ctx, podcast.Episode{ID: id, Title: title, Description: "About " + title}); err != nil {
		t.Fatalf("UpsertEpisode: %v", err)
	}
	for i, name := range guestNames {
		guest := podcast.Guest{ID: fmt.Sprintf("%s-%s", id, name), Name: name, Bio: name + " is a guest."}
		if _, err := st.UpsertGuest(ctx, guest); err != nil {
			t.Fatalf("UpsertGuest: %v", err)
		}
		if err := st.AssignGuest(ctx, id, guest.ID, i); err != nil {
			t.Fatalf("AssignGuest: %v", err)
		}
	}
}
