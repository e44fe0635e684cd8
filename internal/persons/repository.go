// Package persons implements the /person resource the invitation service stores guests in.
package persons

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wedding-invite/backend/internal/models"
)

// ErrNotFound is returned when no person has the requested id.
var ErrNotFound = errors.New("person not found")

const columns = `id, name, gift, song_title, song_artist, song_link, assist_wedding, assist_ceremony`

// Repository handles person persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a persons repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanGuest(row pgx.Row) (*models.Guest, error) {
	var g models.Guest
	err := row.Scan(&g.ID, &g.Name, &g.Gift, &g.SongTitle, &g.SongArtist, &g.SongLink, &g.AssistWedding, &g.AssistCeremony)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// List returns all persons in creation order.
func (r *Repository) List(ctx context.Context) ([]models.Guest, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM persons ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Guest{}
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

// Get returns one person by id.
func (r *Repository) Get(ctx context.Context, id string) (*models.Guest, error) {
	return scanGuest(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM persons WHERE id = $1`, id))
}

// Create inserts a person; absent fields take column defaults. The id is always server-assigned.
func (r *Repository) Create(ctx context.Context, p models.GuestPatch) (*models.Guest, error) {
	const query = `INSERT INTO persons (name, gift, song_title, song_artist, song_link, assist_wedding, assist_ceremony)
		VALUES (COALESCE($1, ''), COALESCE($2, ''), COALESCE($3, ''), COALESCE($4, ''), COALESCE($5, ''),
			COALESCE($6, FALSE), COALESCE($7, FALSE))
		RETURNING ` + columns
	return scanGuest(r.pool.QueryRow(ctx, query,
		p.Name, p.Gift, p.SongTitle, p.SongArtist, p.SongLink, p.AssistWedding, p.AssistCeremony))
}

// Update sets only the fields present in p.
func (r *Repository) Update(ctx context.Context, id string, p models.GuestPatch) (*models.Guest, error) {
	const query = `UPDATE persons SET
			name = COALESCE($2, name),
			gift = COALESCE($3, gift),
			song_title = COALESCE($4, song_title),
			song_artist = COALESCE($5, song_artist),
			song_link = COALESCE($6, song_link),
			assist_wedding = COALESCE($7, assist_wedding),
			assist_ceremony = COALESCE($8, assist_ceremony)
		WHERE id = $1
		RETURNING ` + columns
	return scanGuest(r.pool.QueryRow(ctx, query,
		id, p.Name, p.Gift, p.SongTitle, p.SongArtist, p.SongLink, p.AssistWedding, p.AssistCeremony))
}

// Delete removes a person and returns the deleted record.
func (r *Repository) Delete(ctx context.Context, id string) (*models.Guest, error) {
	return scanGuest(r.pool.QueryRow(ctx, `DELETE FROM persons WHERE id = $1 RETURNING `+columns, id))
}
