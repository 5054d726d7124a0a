package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"podstudio/internal/podcast"
	"podstudio/internal/services"
)

// DefaultEpisodeStatus is applied to episodes imported without a status.
const DefaultEpisodeStatus = "draft"

const episodeColumns = "id, title, description, status, created_at, updated_at"

func scanEpisode(row scanner) (*podcast.Episode, error) {
	var (
		episode    podcast.Episode
		createdRaw string
		updatedRaw string
	)
	if err := row.Scan(&episode.ID, &episode.Title, &episode.Description, &episode.Status, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	episode.CreatedAt = parseTime(createdRaw)
	episode.UpdatedAt = parseTime(updatedRaw)
	return &episode, nil
}

// UpsertEpisode inserts or updates an episode and reports whether it was new.
func (s *Store) UpsertEpisode(ctx context.Context, episode podcast.Episode) (bool, error) {
	episode.ID = strings.TrimSpace(episode.ID)
	episode.Title = strings.TrimSpace(episode.Title)
	if episode.ID == "" || episode.Title == "" {
		return false, services.Wrap(services.ErrValidation, "store", "upsert episode", "id and title required", nil)
	}
	if strings.TrimSpace(episode.Status) == "" {
		episode.Status = DefaultEpisodeStatus
	}
	now := formatTime(s.now())

	var created bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM episodes WHERE id = ?`, episode.ID).Scan(&exists); err != nil {
			return err
		}
		created = exists == 0
		_, err := tx.ExecContext(ctx,
			`INSERT INTO episodes (id, title, description, status, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?)
             ON CONFLICT(id) DO UPDATE SET
                 title = excluded.title,
                 description = excluded.description,
                 status = excluded.status,
                 updated_at = excluded.updated_at`,
			episode.ID, episode.Title, episode.Description, episode.Status, now, now,
		)
		return err
	})
	if err != nil {
		return false, storageError("upsert episode", err)
	}
	return created, nil
}

// GetEpisode returns the episode or nil when it does not exist.
func (s *Store) GetEpisode(ctx context.Context, id string) (*podcast.Episode, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, strings.TrimSpace(id))
	episode, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("get episode", err)
	}
	return episode, nil
}

// ListEpisodes returns every episode ordered by id.
func (s *Store) ListEpisodes(ctx context.Context) ([]*podcast.Episode, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT `+episodeColumns+` FROM episodes ORDER BY id`)
	if err != nil {
		return nil, storageError("list episodes", err)
	}
	defer rows.Close()

	var episodes []*podcast.Episode
	for rows.Next() {
		episode, err := scanEpisode(rows)
		if err != nil {
			return nil, storageError("list episodes", err)
		}
		episodes = append(episodes, episode)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list episodes", err)
	}
	return episodes, nil
}

// UpsertGuest inserts or updates a guest and reports whether it was new.
func (s *Store) UpsertGuest(ctx context.Context, guest podcast.Guest) (bool, error) {
	guest.ID = strings.TrimSpace(guest.ID)
	guest.Name = strings.TrimSpace(guest.Name)
	if guest.ID == "" || guest.Name == "" {
		return false, services.Wrap(services.ErrValidation, "store", "upsert guest", "id and name required", nil)
	}
	now := formatTime(s.now())

	var created bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM guests WHERE id = ?`, guest.ID).Scan(&exists); err != nil {
			return err
		}
		created = exists == 0
		_, err := tx.ExecContext(ctx,
			`INSERT INTO guests (id, name, bio, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?)
             ON CONFLICT(id) DO UPDATE SET
                 name = excluded.name,
                 bio = excluded.bio,
                 updated_at = excluded.updated_at`,
			guest.ID, guest.Name, guest.Bio, now, now,
		)
		return err
	})
	if err != nil {
		return false, storageError("upsert guest", err)
	}
	return created, nil
}

// AssignGuest links a guest to an episode at position. Reassigning updates the
// position.
func (s *Store) AssignGuest(ctx context.Context, episodeID, guestID string, position int) error {
	_, err := s.execWithRetry(ctx,
		`INSERT INTO episode_guests (episode_id, guest_id, position) VALUES (?, ?, ?)
         ON CONFLICT(episode_id, guest_id) DO UPDATE SET position = excluded.position`,
		strings.TrimSpace(episodeID), strings.TrimSpace(guestID), position,
	)
	if err != nil {
		return storageError("assign guest", err)
	}
	return nil
}

// UnassignGuests removes every guest assignment for an episode.
func (s *Store) UnassignGuests(ctx context.Context, episodeID string) error {
	if _, err := s.execWithRetry(ctx, `DELETE FROM episode_guests WHERE episode_id = ?`, strings.TrimSpace(episodeID)); err != nil {
		return storageError("unassign guests", err)
	}
	return nil
}

// ListGuestsForEpisode returns the assigned guests in position order.
func (s *Store) ListGuestsForEpisode(ctx context.Context, episodeID string) ([]podcast.Guest, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT g.id, g.name, g.bio
         FROM episode_guests eg
         JOIN guests g ON g.id = eg.guest_id
         WHERE eg.episode_id = ?
         ORDER BY eg.position, g.name`,
		strings.TrimSpace(episodeID),
	)
	if err != nil {
		return nil, storageError("list guests", err)
	}
	defer rows.Close()

	var guests []podcast.Guest
	for rows.Next() {
		var guest podcast.Guest
		if err := rows.Scan(&guest.ID, &guest.Name, &guest.Bio); err != nil {
			return nil, storageError("list guests", err)
		}
		guests = append(guests, guest)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list guests", err)
	}
	return guests, nil
}
