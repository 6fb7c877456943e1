package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/entity"
)

const (
	tableCards  = "cards"
	tableLabels = "labels"
	tableProbe  = "store_probe"
)

// cardColumns excludes the image payload, which is loaded on demand.
var cardColumns = []string{
	"id", "name", "phone", "email", "company", "website", "designation",
	"country", "flag", "is_sorted", "label_id", "label_name",
	"event_name", "event_description", "event_host", "event_date", "event_location",
	"filename", "image_mime", "created_at", "updated_at",
}

// CardPatch is a partial update; nil fields are left unchanged.
type CardPatch struct {
	Name        *string
	Phone       *string
	Email       *string
	Company     *string
	Website     *string
	Designation *string
	Country     *string
	Flag        *string

	EventName        *string
	EventDescription *string
	EventHost        *string
	EventDate        *string
	EventLocation    *string
}

// Empty reports whether the patch sets nothing.
func (p CardPatch) Empty() bool {
	return len(p.columns()) == 0
}

func (p CardPatch) columns() map[string]string {
	m := map[string]string{}
	set := func(col string, v *string) {
		if v != nil {
			m[col] = *v
		}
	}
	set("name", p.Name)
	set("phone", p.Phone)
	set("email", p.Email)
	set("company", p.Company)
	set("website", p.Website)
	set("designation", p.Designation)
	set("country", p.Country)
	set("flag", p.Flag)
	set("event_name", p.EventName)
	set("event_description", p.EventDescription)
	set("event_host", p.EventHost)
	set("event_date", p.EventDate)
	set("event_location", p.EventLocation)
	return m
}

type CardRepository interface {
	Insert(ctx context.Context, card *entity.Card) error
	Get(ctx context.Context, id int64) (*entity.Card, error)
	Exists(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context) ([]*entity.Card, error)
	ListByLabel(ctx context.Context, labelID string) ([]*entity.Card, error)
	ListUnsorted(ctx context.Context) ([]*entity.Card, error)
	Search(ctx context.Context, term string) ([]*entity.Card, error)
	Recent(ctx context.Context, limit int) ([]*entity.Card, error)
	Update(ctx context.Context, id int64, patch CardPatch) (bool, error)
	SetLabel(ctx context.Context, id int64, prev *string, labelID, labelName string) (bool, error)
	ClearLabel(ctx context.Context, id int64, prev string) (bool, error)
	ClearLabelForAll(ctx context.Context, labelID string) (int64, error)
	RenameLabel(ctx context.Context, labelID, labelName string) (int64, error)
	CountByLabel(ctx context.Context, labelID string) (int, error)
	Delete(ctx context.Context, id int64) (bool, error)
	FindDuplicate(ctx context.Context, name, email, phone string) (*entity.Card, error)
	Image(ctx context.Context, id int64) ([]byte, string, error)
}

type cardRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewCardRepository(db *DB, logger *slog.Logger) CardRepository {
	return &cardRepository{
		db:     db,
		logger: logger,
	}
}

// Insert is a keyed upsert: an existing row with the same id is overwritten.
func (r *cardRepository) Insert(ctx context.Context, c *entity.Card) error {
	b := r.db.builder()
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	query, args := b.Insert(tableCards).
		Columns(append(cardColumns, "image")...).
		Values(
			c.ID, c.Name, c.Phone, c.Email, c.Company, c.Website, c.Designation,
			c.Country, c.Flag, c.IsSorted, nullable(c.LabelID), nullable(c.LabelName),
			c.Event.Name, c.Event.Description, c.Event.Host, c.Event.Date, c.Event.Location,
			c.Filename, c.ImageMime, c.CreatedAt.UnixMilli(), c.UpdatedAt.UnixMilli(), c.Image,
		).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := r.db.SQL().ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("failed to insert card", "card_id", c.ID, "error", err)
		return common.DatabaseError("failed to insert card", err)
	}
	r.logger.Debug("card persisted", "card_id", c.ID, "filename", c.Filename)
	return nil
}

func (r *cardRepository) Get(ctx context.Context, id int64) (*entity.Card, error) {
	cards, err := r.query(ctx, func(s *entsql.Selector) {
		s.Where(entsql.EQ("id", id))
	})
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, common.NotFoundf("card %d not found", id)
	}
	return cards[0], nil
}

func (r *cardRepository) Exists(ctx context.Context, id int64) (bool, error) {
	b := r.db.builder()
	query, args := b.Select("id").From(b.Table(tableCards)).Where(entsql.EQ("id", id)).Limit(1).Query()
	var got int64
	err := r.db.SQL().QueryRowContext(ctx, query, args...).Scan(&got)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, common.DatabaseError("failed to check card", err)
	}
	return true, nil
}

// List returns every card in creation order.
func (r *cardRepository) List(ctx context.Context) ([]*entity.Card, error) {
	return r.query(ctx, nil)
}

func (r *cardRepository) ListByLabel(ctx context.Context, labelID string) ([]*entity.Card, error) {
	return r.query(ctx, func(s *entsql.Selector) {
		s.Where(entsql.EQ("label_id", labelID))
	})
}

// ListUnsorted returns cards with no label.
func (r *cardRepository) ListUnsorted(ctx context.Context) ([]*entity.Card, error) {
	return r.query(ctx, func(s *entsql.Selector) {
		s.Where(entsql.IsNull("label_id"))
	})
}

// Search matches name, company, email or phone case-insensitively.
func (r *cardRepository) Search(ctx context.Context, term string) ([]*entity.Card, error) {
	return r.query(ctx, func(s *entsql.Selector) {
		s.Where(entsql.Or(
			entsql.ContainsFold("name", term),
			entsql.ContainsFold("company", term),
			entsql.ContainsFold("email", term),
			entsql.Contains("phone", term),
		))
	})
}

// Recent returns the newest cards first.
func (r *cardRepository) Recent(ctx context.Context, limit int) ([]*entity.Card, error) {
	b := r.db.builder()
	s := b.Select(cardColumns...).From(b.Table(tableCards)).OrderBy(entsql.Desc("id")).Limit(limit)
	return r.scan(ctx, s)
}

func (r *cardRepository) Update(ctx context.Context, id int64, patch CardPatch) (bool, error) {
	b := r.db.builder()
	u := b.Update(tableCards).Set("updated_at", time.Now().UnixMilli())
	for col, v := range patch.columns() {
		u.Set(col, v)
	}
	return r.execOne(ctx, "update card", id, u.Where(entsql.EQ("id", id)))
}

// labelIs matches cards whose label_id is prev; nil matches unlabeled cards.
func labelIs(prev *string) *entsql.Predicate {
	if prev == nil {
		return entsql.IsNull("label_id")
	}
	return entsql.EQ("label_id", *prev)
}

// SetLabel stores the label reference and its denormalized name, and marks the card sorted.
// The write only applies while the card still carries prev, so false means the
// card is gone or was relabeled since it was read.
func (r *cardRepository) SetLabel(ctx context.Context, id int64, prev *string, labelID, labelName string) (bool, error) {
	b := r.db.builder()
	u := b.Update(tableCards).
		Set("label_id", labelID).
		Set("label_name", labelName).
		Set("is_sorted", true).
		Set("updated_at", time.Now().UnixMilli()).
		Where(entsql.And(entsql.EQ("id", id), labelIs(prev)))
	return r.execOne(ctx, "set card label", id, u)
}

// ClearLabel unlabels the card if it still carries prev.
func (r *cardRepository) ClearLabel(ctx context.Context, id int64, prev string) (bool, error) {
	b := r.db.builder()
	u := b.Update(tableCards).
		SetNull("label_id").
		SetNull("label_name").
		Set("is_sorted", false).
		Set("updated_at", time.Now().UnixMilli()).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("label_id", prev)))
	return r.execOne(ctx, "clear card label", id, u)
}

// ClearLabelForAll unlabels every card referencing labelID and returns how many changed.
func (r *cardRepository) ClearLabelForAll(ctx context.Context, labelID string) (int64, error) {
	b := r.db.builder()
	query, args := b.Update(tableCards).
		SetNull("label_id").
		SetNull("label_name").
		Set("is_sorted", false).
		Set("updated_at", time.Now().UnixMilli()).
		Where(entsql.EQ("label_id", labelID)).
		Query()
	res, err := r.db.SQL().ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to clear label from cards", "label_id", labelID, "error", err)
		return 0, common.DatabaseError("failed to clear label from cards", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// RenameLabel rewrites the denormalized label name on every card referencing labelID.
func (r *cardRepository) RenameLabel(ctx context.Context, labelID, labelName string) (int64, error) {
	b := r.db.builder()
	query, args := b.Update(tableCards).
		Set("label_name", labelName).
		Where(entsql.EQ("label_id", labelID)).
		Query()
	res, err := r.db.SQL().ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to sync label name", "label_id", labelID, "error", err)
		return 0, common.DatabaseError("failed to sync label name", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *cardRepository) CountByLabel(ctx context.Context, labelID string) (int, error) {
	b := r.db.builder()
	query, args := b.Select(entsql.Count("*")).From(b.Table(tableCards)).Where(entsql.EQ("label_id", labelID)).Query()
	var n int
	if err := r.db.SQL().QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, common.DatabaseError("failed to count cards", err)
	}
	return n, nil
}

func (r *cardRepository) Delete(ctx context.Context, id int64) (bool, error) {
	b := r.db.builder()
	return r.execOne(ctx, "delete card", id, b.Delete(tableCards).Where(entsql.EQ("id", id)))
}

// FindDuplicate returns the first card matching name or email case-insensitively,
// or phone exactly. Empty values never match. It returns nil when there is none.
func (r *cardRepository) FindDuplicate(ctx context.Context, name, email, phone string) (*entity.Card, error) {
	var preds []*entsql.Predicate
	if name != "" {
		preds = append(preds, entsql.EqualFold("name", name))
	}
	if email != "" {
		preds = append(preds, entsql.EqualFold("email", email))
	}
	if phone != "" {
		preds = append(preds, entsql.EQ("phone", phone))
	}
	if len(preds) == 0 {
		return nil, nil
	}
	cards, err := r.query(ctx, func(s *entsql.Selector) {
		s.Where(entsql.Or(preds...)).Limit(1)
	})
	if err != nil || len(cards) == 0 {
		return nil, err
	}
	return cards[0], nil
}

func (r *cardRepository) Image(ctx context.Context, id int64) ([]byte, string, error) {
	b := r.db.builder()
	query, args := b.Select("image", "image_mime").From(b.Table(tableCards)).Where(entsql.EQ("id", id)).Query()
	var (
		img  []byte
		mime string
	)
	err := r.db.SQL().QueryRowContext(ctx, query, args...).Scan(&img, &mime)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, "", common.NotFoundf("card %d not found", id)
	case err != nil:
		return nil, "", common.DatabaseError("failed to load card image", err)
	}
	if len(img) == 0 {
		return nil, "", common.NotFoundf("card %d has no image", id)
	}
	return img, mime, nil
}

// execer is satisfied by ent's update and delete builders.
type execer interface {
	Query() (string, []any)
}

func (r *cardRepository) execOne(ctx context.Context, op string, id int64, q execer) (bool, error) {
	query, args := q.Query()
	res, err := r.db.SQL().ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to "+op, "card_id", id, "error", err)
		return false, common.DatabaseError("failed to "+op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, common.DatabaseError("failed to "+op, err)
	}
	return n > 0, nil
}

func (r *cardRepository) query(ctx context.Context, modify func(*entsql.Selector)) ([]*entity.Card, error) {
	b := r.db.builder()
	s := b.Select(cardColumns...).From(b.Table(tableCards))
	if modify != nil {
		modify(s)
	}
	return r.scan(ctx, s.OrderBy("id"))
}

func (r *cardRepository) scan(ctx context.Context, s *entsql.Selector) ([]*entity.Card, error) {
	query, args := s.Query()

	rows, err := r.db.SQL().QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query cards", "error", err)
		return nil, common.DatabaseError("failed to query cards", err)
	}
	defer rows.Close()

	var out []*entity.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, common.DatabaseError("failed to scan card", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, common.DatabaseError("failed to read cards", err)
	}
	return out, nil
}

func scanCard(rows *sql.Rows) (*entity.Card, error) {
	var (
		c                  entity.Card
		labelID, labelName sql.NullString
		created, updated   int64
	)
	err := rows.Scan(
		&c.ID, &c.Name, &c.Phone, &c.Email, &c.Company, &c.Website, &c.Designation,
		&c.Country, &c.Flag, &c.IsSorted, &labelID, &labelName,
		&c.Event.Name, &c.Event.Description, &c.Event.Host, &c.Event.Date, &c.Event.Location,
		&c.Filename, &c.ImageMime, &created, &updated,
	)
	if err != nil {
		return nil, fmt.Errorf("scan card: %w", err)
	}
	if labelID.Valid {
		c.LabelID = &labelID.String
	}
	if labelName.Valid {
		c.LabelName = &labelName.String
	}
	c.CreatedAt = time.UnixMilli(created)
	c.UpdatedAt = time.UnixMilli(updated)
	return &c, nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
