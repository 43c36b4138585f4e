package sink

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/aotydata/album-crawler/internal/aoty"
	"github.com/aotydata/album-crawler/internal/crawler"
)

// DB is the slice of pgxpool.Pool the Postgres sink uses; pgxmock satisfies
// it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

const createAlbumsTable = `
CREATE TABLE IF NOT EXISTS albums (
    aoty_id             text PRIMARY KEY,
    url                 text NOT NULL,
    title               text,
    artist_name         text,
    release_date        text,
    critic_score        double precision,
    user_score          double precision,
    critic_review_count integer,
    user_review_count   integer,
    genres              text[],
    genre_tags          text[],
    cover_image_url     text,
    description         text,
    scrape_genre        text,
    scrape_year         integer,
    scraped_at          timestamptz NOT NULL
)`

const upsertAlbum = `
INSERT INTO albums (
    aoty_id, url, title, artist_name, release_date,
    critic_score, user_score, critic_review_count, user_review_count,
    genres, genre_tags, cover_image_url, description,
    scrape_genre, scrape_year, scraped_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
ON CONFLICT (aoty_id) DO UPDATE SET
    url = EXCLUDED.url,
    title = EXCLUDED.title,
    artist_name = EXCLUDED.artist_name,
    release_date = EXCLUDED.release_date,
    critic_score = EXCLUDED.critic_score,
    user_score = EXCLUDED.user_score,
    critic_review_count = EXCLUDED.critic_review_count,
    user_review_count = EXCLUDED.user_review_count,
    genres = EXCLUDED.genres,
    genre_tags = EXCLUDED.genre_tags,
    cover_image_url = EXCLUDED.cover_image_url,
    description = EXCLUDED.description,
    scrape_genre = EXCLUDED.scrape_genre,
    scrape_year = EXCLUDED.scrape_year,
    scraped_at = EXCLUDED.scraped_at`

// Postgres upserts album records keyed on the site's album id, so a resumed
// or repeated crawl refreshes rows instead of duplicating them.
type Postgres struct {
	db     DB
	logger *zap.Logger
}

// NewPostgres connects a pool, verifies it, and ensures the schema.
func NewPostgres(ctx context.Context, dsn string, logger *zap.Logger) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := NewPostgresWithDB(pool, logger)
	if _, err := pool.Exec(ctx, createAlbumsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure albums table: %w", err)
	}
	return s, nil
}

// NewPostgresWithDB wraps an existing pool or mock.
func NewPostgresWithDB(db DB, logger *zap.Logger) *Postgres {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Postgres{db: db, logger: logger}
}

// Emit upserts one album record.
func (s *Postgres) Emit(ctx context.Context, rec crawler.Record) error {
	album, ok := rec.(aoty.AlbumRecord)
	if !ok {
		return fmt.Errorf("postgres sink: unsupported record type %T", rec)
	}
	_, err := s.db.Exec(ctx, upsertAlbum,
		album.AOTYID, album.URL, album.Title, album.Artist, album.ReleaseDate,
		album.CriticScore, album.UserScore, album.CriticReviewCount, album.UserReviewCount,
		album.Genres, album.GenreTags, album.CoverImageURL, album.Description,
		album.ScrapeGenre, album.ScrapeYear, album.ScrapedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert album %s: %w", album.AOTYID, err)
	}
	s.logger.Debug("album upserted", zap.String("aoty_id", album.AOTYID))
	return nil
}

// Close releases the pool.
func (s *Postgres) Close() {
	s.db.Close()
}
