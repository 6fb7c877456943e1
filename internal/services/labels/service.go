// Package labels manages user-defined labels and keeps each label's
// card_count equal to the number of cards referencing it.
package labels

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/cardscan/constants"
	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/entity"
	"github.com/joseph-ayodele/cardscan/internal/repository"
)

// Service handles label business logic.
type Service struct {
	labelRepo repository.LabelRepository
	cardRepo  repository.CardRepository
	logger    *slog.Logger
}

// NewService creates a new label service.
func NewService(labelRepo repository.LabelRepository, cardRepo repository.CardRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		labelRepo: labelRepo,
		cardRepo:  cardRepo,
		logger:    logger,
	}
}

func validate(name, color string) error {
	v := common.NewValidator()
	v.Field("name", name, common.Required, common.MaxLength(constants.MaxLabelNameLength))
	v.Field("color", color, common.HexColor)
	return v.Err()
}

// CreateLabel creates a label with no cards. An empty color gets the default.
func (s *Service) CreateLabel(ctx context.Context, name, color string) (*entity.Label, error) {
	name = strings.TrimSpace(name)
	color = strings.TrimSpace(color)
	if err := validate(name, color); err != nil {
		return nil, err
	}
	if color == "" {
		color = constants.DefaultLabelColor
	}

	l := &entity.Label{
		ID:    uuid.NewString(),
		Name:  name,
		Color: color,
	}
	if err := s.labelRepo.Create(ctx, l); err != nil {
		return nil, err
	}
	s.logger.Info("label created", "label_id", l.ID, "name", l.Name)
	return l, nil
}

// UpdateLabel edits name and color and re-syncs the name on referencing cards.
// An empty color keeps the current one. A missing label reports false.
func (s *Service) UpdateLabel(ctx context.Context, id, name, color string) (bool, error) {
	name = strings.TrimSpace(name)
	color = strings.TrimSpace(color)
	if err := validate(name, color); err != nil {
		return false, err
	}

	current, err := s.labelRepo.Get(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if color == "" {
		color = current.Color
	}

	ok, err := s.labelRepo.Update(ctx, id, name, color)
	if err != nil || !ok {
		return ok, err
	}
	if _, err := s.SyncLabelNames(ctx, id); err != nil {
		return true, err
	}
	s.logger.Info("label updated", "label_id", id, "name", name)
	return true, nil
}

// SyncLabelNames rewrites label_name on every card referencing id.
func (s *Service) SyncLabelNames(ctx context.Context, id string) (int64, error) {
	l, err := s.labelRepo.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	n, err := s.cardRepo.RenameLabel(ctx, id, l.Name)
	if err != nil {
		return 0, err
	}
	s.logger.Debug("label names synced", "label_id", id, "cards", n)
	return n, nil
}

// DeleteLabel unlabels every card referencing id, then deletes the label.
// It returns how many cards were touched. A missing label reports false.
func (s *Service) DeleteLabel(ctx context.Context, id string) (int, bool, error) {
	_, err := s.labelRepo.Get(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	touched, err := s.cardRepo.ClearLabelForAll(ctx, id)
	if err != nil {
		return 0, true, err
	}
	if _, err := s.labelRepo.Delete(ctx, id); err != nil {
		return int(touched), true, err
	}
	s.logger.Info("label deleted", "label_id", id, "cards_unlabeled", touched)
	return int(touched), true, nil
}

// labelWriteAttempts bounds the read-then-conditional-write loop when another
// writer relabels the same card in between.
const labelWriteAttempts = 3

// AssignLabel puts cardID under labelID. Counts change only after the card
// update succeeds; a previous different label is decremented. A missing card
// or label reports false and leaves counts alone.
func (s *Service) AssignLabel(ctx context.Context, cardID int64, labelID, labelName string) (bool, error) {
	label, err := s.labelRepo.Get(ctx, labelID)
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(labelName) == "" {
		labelName = label.Name
	}

	for attempt := 1; attempt <= labelWriteAttempts; attempt++ {
		card, err := s.cardRepo.Get(ctx, cardID)
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}

		ok, err := s.cardRepo.SetLabel(ctx, cardID, card.LabelID, labelID, labelName)
		if err != nil {
			return false, err
		}
		if !ok {
			s.logger.Debug("card label changed during assign, retrying", "card_id", cardID, "attempt", attempt)
			continue
		}

		if card.HasLabel() && *card.LabelID == labelID {
			return true, nil
		}
		if _, err := s.labelRepo.AddCount(ctx, labelID, 1); err != nil {
			return true, err
		}
		if card.HasLabel() {
			s.decrement(ctx, *card.LabelID)
		}
		s.logger.Info("label assigned", "card_id", cardID, "label_id", labelID)
		return true, nil
	}
	s.logger.Warn("label not assigned, card kept changing", "card_id", cardID, "label_id", labelID)
	return false, nil
}

// RemoveLabel unlabels cardID. A card without a label is a successful no-op.
func (s *Service) RemoveLabel(ctx context.Context, cardID int64) (bool, error) {
	for attempt := 1; attempt <= labelWriteAttempts; attempt++ {
		card, err := s.cardRepo.Get(ctx, cardID)
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if !card.HasLabel() {
			return true, nil
		}

		ok, err := s.cardRepo.ClearLabel(ctx, cardID, *card.LabelID)
		if err != nil {
			return false, err
		}
		if !ok {
			s.logger.Debug("card label changed during remove, retrying", "card_id", cardID, "attempt", attempt)
			continue
		}
		s.decrement(ctx, *card.LabelID)
		s.logger.Info("label removed", "card_id", cardID, "label_id", *card.LabelID)
		return true, nil
	}
	s.logger.Warn("label not removed, card kept changing", "card_id", cardID)
	return false, nil
}

func (s *Service) decrement(ctx context.Context, labelID string) {
	ok, err := s.labelRepo.AddCount(ctx, labelID, -1)
	if err != nil {
		s.logger.Error("failed to decrement label count", "label_id", labelID, "error", err)
		return
	}
	if !ok {
		s.logger.Warn("label count not decremented", "label_id", labelID)
	}
}

// CardRemoved adjusts counts for a card that is being deleted.
func (s *Service) CardRemoved(ctx context.Context, card *entity.Card) {
	if card != nil && card.HasLabel() {
		s.decrement(ctx, *card.LabelID)
	}
}

// ReconcileCounts recomputes every label's card_count from the cards and
// returns how many labels were corrected.
func (s *Service) ReconcileCounts(ctx context.Context) (int, error) {
	list, err := s.labelRepo.List(ctx)
	if err != nil {
		return 0, err
	}
	fixed := 0
	for _, l := range list {
		n, err := s.cardRepo.CountByLabel(ctx, l.ID)
		if err != nil {
			return fixed, err
		}
		if n == l.CardCount {
			continue
		}
		if _, err := s.labelRepo.SetCount(ctx, l.ID, n); err != nil {
			return fixed, err
		}
		s.logger.Warn("label count corrected", "label_id", l.ID, "was", l.CardCount, "now", n)
		fixed++
	}
	return fixed, nil
}

func (s *Service) ListLabels(ctx context.Context) ([]*entity.Label, error) {
	return s.labelRepo.List(ctx)
}

func (s *Service) GetLabel(ctx context.Context, id string) (*entity.Label, error) {
	return s.labelRepo.Get(ctx, id)
}

func (s *Service) CardsByLabel(ctx context.Context, labelID string) ([]*entity.Card, error) {
	return s.cardRepo.ListByLabel(ctx, labelID)
}

func (s *Service) UnsortedCards(ctx context.Context) ([]*entity.Card, error) {
	return s.cardRepo.ListUnsorted(ctx)
}
