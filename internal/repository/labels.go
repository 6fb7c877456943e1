package repository

import (
	"context"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/entity"
)

var labelColumns = []string{"id", "name", "color", "card_count", "created_at", "updated_at"}

type LabelRepository interface {
	Create(ctx context.Context, label *entity.Label) error
	Get(ctx context.Context, id string) (*entity.Label, error)
	List(ctx context.Context) ([]*entity.Label, error)
	Update(ctx context.Context, id, name, color string) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	AddCount(ctx context.Context, id string, delta int) (bool, error)
	SetCount(ctx context.Context, id string, n int) (bool, error)
}

type labelRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewLabelRepository(db *DB, logger *slog.Logger) LabelRepository {
	return &labelRepository{
		db:     db,
		logger: logger,
	}
}

func (r *labelRepository) Create(ctx context.Context, l *entity.Label) error {
	b := r.db.builder()
	now := time.Now()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now
	query, args := b.Insert(tableLabels).
		Columns(labelColumns...).
		Values(l.ID, l.Name, l.Color, l.CardCount, l.CreatedAt.UnixMilli(), l.UpdatedAt.UnixMilli()).
		Query()
	if _, err := r.db.SQL().ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("failed to create label", "label_id", l.ID, "error", err)
		return common.DatabaseError("failed to create label", err)
	}
	return nil
}

func (r *labelRepository) Get(ctx context.Context, id string) (*entity.Label, error) {
	b := r.db.builder()
	labels, err := r.scan(ctx, b.Select(labelColumns...).From(b.Table(tableLabels)).Where(entsql.EQ("id", id)))
	if err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, common.NotFoundf("label %s not found", id)
	}
	return labels[0], nil
}

// List returns labels ordered by name.
func (r *labelRepository) List(ctx context.Context) ([]*entity.Label, error) {
	b := r.db.builder()
	return r.scan(ctx, b.Select(labelColumns...).From(b.Table(tableLabels)).OrderBy("name", "id"))
}

func (r *labelRepository) Update(ctx context.Context, id, name, color string) (bool, error) {
	b := r.db.builder()
	u := b.Update(tableLabels).
		Set("name", name).
		Set("color", color).
		Set("updated_at", time.Now().UnixMilli()).
		Where(entsql.EQ("id", id))
	return r.exec(ctx, "update label", id, u)
}

func (r *labelRepository) Delete(ctx context.Context, id string) (bool, error) {
	b := r.db.builder()
	return r.exec(ctx, "delete label", id, b.Delete(tableLabels).Where(entsql.EQ("id", id)))
}

// AddCount adjusts card_count in place. A decrement that would go below zero
// matches no row and is reported as false.
func (r *labelRepository) AddCount(ctx context.Context, id string, delta int) (bool, error) {
	b := r.db.builder()
	where := entsql.EQ("id", id)
	if delta < 0 {
		where = entsql.And(where, entsql.GTE("card_count", -delta))
	}
	u := b.Update(tableLabels).
		Add("card_count", delta).
		Set("updated_at", time.Now().UnixMilli()).
		Where(where)
	return r.exec(ctx, "adjust label count", id, u)
}

func (r *labelRepository) SetCount(ctx context.Context, id string, n int) (bool, error) {
	b := r.db.builder()
	u := b.Update(tableLabels).
		Set("card_count", n).
		Set("updated_at", time.Now().UnixMilli()).
		Where(entsql.EQ("id", id))
	return r.exec(ctx, "set label count", id, u)
}

func (r *labelRepository) exec(ctx context.Context, op, id string, q execer) (bool, error) {
	query, args := q.Query()
	res, err := r.db.SQL().ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to "+op, "label_id", id, "error", err)
		return false, common.DatabaseError("failed to "+op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, common.DatabaseError("failed to "+op, err)
	}
	return n > 0, nil
}

func (r *labelRepository) scan(ctx context.Context, s *entsql.Selector) ([]*entity.Label, error) {
	query, args := s.Query()
	rows, err := r.db.SQL().QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query labels", "error", err)
		return nil, common.DatabaseError("failed to query labels", err)
	}
	defer rows.Close()

	var out []*entity.Label
	for rows.Next() {
		var (
			l                entity.Label
			created, updated int64
		)
		if err := rows.Scan(&l.ID, &l.Name, &l.Color, &l.CardCount, &created, &updated); err != nil {
			return nil, common.DatabaseError("failed to scan label", err)
		}
		l.CreatedAt = time.UnixMilli(created)
		l.UpdatedAt = time.UnixMilli(updated)
		out = append(out, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, common.DatabaseError("failed to read labels", err)
	}
	return out, nil
}

