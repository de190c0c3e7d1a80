package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Session is one signed-in browser and the Strava grant behind it.
// ExpiresAt tracks the access token, not the session itself.
type Session struct {
	ID           string
	AthleteID    int64
	AthleteName  string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// SaveSession stores or replaces a session
func (s *Store) SaveSession(sess *Session) error {
	_, err := s.db.Exec(`
		INSERT INTO sessions (id, athlete_id, athlete_name, access_token, refresh_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			athlete_id = excluded.athlete_id,
			athlete_name = excluded.athlete_name,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = CURRENT_TIMESTAMP
	`, sess.ID, sess.AthleteID, sess.AthleteName, sess.AccessToken, sess.RefreshToken, sess.ExpiresAt.Unix())
	return err
}

// GetSession retrieves a session by its cookie value
func (s *Store) GetSession(id string) (*Session, error) {
	row := s.db.QueryRow(`
		SELECT id, athlete_id, athlete_name, access_token, refresh_token, expires_at
		FROM sessions
		WHERE id = ?
	`, id)

	var sess Session
	var expiresAt int64
	err := row.Scan(&sess.ID, &sess.AthleteID, &sess.AthleteName, &sess.AccessToken, &sess.RefreshToken, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	sess.ExpiresAt = time.Unix(expiresAt, 0)
	return &sess, nil
}

// UpdateSessionTokens updates just the tokens after a refresh
func (s *Store) UpdateSessionTokens(id, accessToken, refreshToken string, expiresAt time.Time) error {
	result, err := s.db.Exec(`
		UPDATE sessions
		SET access_token = ?, refresh_token = ?, expires_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, accessToken, refreshToken, expiresAt.Unix(), id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteSession removes a session, e.g. on logout
func (s *Store) DeleteSession(id string) error {
	result, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteStaleSessions removes sessions that have not been touched for
// olderThan and returns how many went away
func (s *Store) DeleteStaleSessions(olderThan time.Duration) (int64, error) {
	cutoff := fmt.Sprintf("-%d seconds", int64(olderThan.Seconds()))
	result, err := s.db.Exec(`DELETE FROM sessions WHERE updated_at < datetime('now', ?)`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
