package db

import (
	"context"
	"fmt"
	"log/slog"

	"codeberg.org/anaseto/gruid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/outpost/internal/model"
)

// EncampmentRepository is the generation ledger: one row per committed
// encampment plus one row per spawned member.
type EncampmentRepository struct {
	pool *pgxpool.Pool
}

// NewEncampmentRepository creates a new encampment repository
func NewEncampmentRepository(pool *pgxpool.Pool) *EncampmentRepository {
	return &EncampmentRepository{pool: pool}
}

// Save inserts the encampment and its members in a single transaction and
// sets rec.ID.
func (r *EncampmentRepository) Save(ctx context.Context, rec *model.EncampmentRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction for encampment: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && err.Error() != "tx is closed" {
			slog.Error("rollback failed", "seed", rec.Seed, "error", err)
		}
	}()

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO encampments (seed, points, anchor_x, anchor_y, score, faction_id, dormant, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING encampment_id`,
		int64(rec.Seed), rec.Points, rec.Anchor.X, rec.Anchor.Y, rec.Score, rec.FactionID, rec.Dormant, rec.CreatedAt,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("inserting encampment: %w", err)
	}

	if len(rec.Members) > 0 {
		batch := &pgx.Batch{}
		for _, m := range rec.Members {
			batch.Queue(`
				INSERT INTO encampment_members (encampment_id, object_id, template_id, kind, x, y, rotation)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				id, int64(m.ObjectID), m.TemplateID, int16(m.Kind), m.Position.X, m.Position.Y, int16(m.Rotation),
			)
		}
		br := tx.SendBatch(ctx, batch)
		for range rec.Members {
			if _, err := br.Exec(); err != nil {
				br.Close() //nolint:errcheck
				return fmt.Errorf("save encampment %d member batch: %w", id, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("close member batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing encampment %d: %w", id, err)
	}

	rec.ID = id
	return nil
}

// LoadRecent loads up to limit encampments, newest first, with their members.
func (r *EncampmentRepository) LoadRecent(ctx context.Context, limit int) ([]*model.EncampmentRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT encampment_id, seed, points, anchor_x, anchor_y, score, faction_id, dormant, created_at
		FROM encampments
		ORDER BY created_at DESC, encampment_id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("loading recent encampments: %w", err)
	}
	defer rows.Close()

	var (
		records []*model.EncampmentRecord
		byID    = make(map[int64]*model.EncampmentRecord)
		ids     []int64
	)
	for rows.Next() {
		var (
			rec  model.EncampmentRecord
			seed int64
		)
		if err := rows.Scan(&rec.ID, &seed, &rec.Points, &rec.Anchor.X, &rec.Anchor.Y,
			&rec.Score, &rec.FactionID, &rec.Dormant, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning encampment row: %w", err)
		}
		rec.Seed = uint64(seed)
		records = append(records, &rec)
		byID[rec.ID] = &rec
		ids = append(ids, rec.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating encampment rows: %w", err)
	}
	if len(ids) == 0 {
		return records, nil
	}

	members, err := r.pool.Query(ctx, `
		SELECT encampment_id, object_id, template_id, kind, x, y, rotation
		FROM encampment_members
		WHERE encampment_id = ANY($1)
		ORDER BY encampment_id, object_id`, ids)
	if err != nil {
		return nil, fmt.Errorf("loading encampment members: %w", err)
	}
	defer members.Close()

	for members.Next() {
		var (
			encID, objectID int64
			m               model.MemberRecord
			kind, rot       int16
			x, y            int
		)
		if err := members.Scan(&encID, &objectID, &m.TemplateID, &kind, &x, &y, &rot); err != nil {
			return nil, fmt.Errorf("scanning encampment member row: %w", err)
		}
		m.ObjectID = uint32(objectID)
		m.Kind = model.EntityKind(kind)
		m.Rotation = model.Rotation(rot)
		m.Position = gruid.Point{X: x, Y: y}
		if rec, ok := byID[encID]; ok {
			rec.Members = append(rec.Members, m)
		}
	}
	if err := members.Err(); err != nil {
		return nil, fmt.Errorf("iterating encampment member rows: %w", err)
	}

	return records, nil
}
