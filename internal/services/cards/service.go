// Package cards holds card operations outside the ingestion pipeline.
package cards

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/cardscan/constants"
	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/country"
	"github.com/joseph-ayodele/cardscan/internal/entity"
	"github.com/joseph-ayodele/cardscan/internal/repository"
)

// RecentLimit is the default size of the recent cards list.
const RecentLimit = 5

// LabelCounter is notified when a labeled card disappears.
type LabelCounter interface {
	CardRemoved(ctx context.Context, card *entity.Card)
}

type Resolver interface {
	Resolve(s string) (code, flag string)
}

// Service handles card business logic.
type Service struct {
	cardRepo repository.CardRepository
	labels   LabelCounter
	resolver Resolver
	ids      *repository.IDGenerator
	logger   *slog.Logger
}

func NewService(cardRepo repository.CardRepository, labels LabelCounter, resolver Resolver, ids *repository.IDGenerator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if ids == nil {
		ids = repository.NewIDGenerator()
	}
	return &Service{
		cardRepo: cardRepo,
		labels:   labels,
		resolver: resolver,
		ids:      ids,
		logger:   logger,
	}
}

// CardInput is the payload of a direct create.
type CardInput struct {
	Name        string
	Phone       string
	Email       string
	Company     string
	Website     string
	Designation string
	Country     string
	Event       entity.EventInfo
}

// CardUpdate is a partial edit; nil fields are left unchanged.
type CardUpdate struct {
	Name             *string `json:"name"`
	Phone            *string `json:"phone"`
	Email            *string `json:"email"`
	Company          *string `json:"company"`
	Website          *string `json:"website"`
	Designation      *string `json:"designation"`
	Country          *string `json:"country"`
	Flag             *string `json:"flag"`
	EventName        *string `json:"event_name"`
	EventDescription *string `json:"event_description"`
	EventHost        *string `json:"event_host"`
	EventDate        *string `json:"event_date"`
	EventLocation    *string `json:"event_location"`
}

// Create stores a card entered by hand. Country is resolved from the company
// when not given.
func (s *Service) Create(ctx context.Context, in CardInput) (*entity.Card, error) {
	fields := entity.CardFields{Name: in.Name, Phone: in.Phone, Email: in.Email, Company: in.Company}.Trimmed()
	if !fields.Usable() {
		return nil, common.Invalidf("one of name, email, phone or company is required")
	}
	v := common.NewValidator()
	v.Field("email", fields.Email, common.Email)
	if err := v.Err(); err != nil {
		return nil, err
	}

	code, flag := s.resolveCountry(fields.Company, in.Country)
	card := &entity.Card{
		ID:          s.ids.Next(),
		Name:        fields.Name,
		Phone:       fields.Phone,
		Email:       fields.Email,
		Company:     fields.Company,
		Website:     strings.TrimSpace(in.Website),
		Designation: strings.TrimSpace(in.Designation),
		Country:     code,
		Flag:        flag,
		Event:       in.Event,
		CreatedAt:   time.Now(),
	}
	if err := s.cardRepo.Insert(ctx, card); err != nil {
		return nil, err
	}
	s.logger.Info("card created", "card_id", card.ID)
	return card, nil
}

// resolveCountry prefers an explicit country, then the company text.
func (s *Service) resolveCountry(company, explicit string) (string, string) {
	explicit = strings.TrimSpace(explicit)
	if explicit != "" {
		if code, flag := s.resolver.Resolve(explicit); code != constants.UnknownCountry {
			return code, flag
		}
		if len(explicit) == 2 {
			code := strings.ToUpper(explicit)
			return code, country.FlagFor(code)
		}
	}
	return s.resolver.Resolve(company)
}

func (s *Service) Get(ctx context.Context, id int64) (*entity.Card, error) {
	return s.cardRepo.Get(ctx, id)
}

// List returns every card in creation order.
func (s *Service) List(ctx context.Context) ([]*entity.Card, error) {
	return s.cardRepo.List(ctx)
}

// Recent returns the newest cards first; limit <= 0 means RecentLimit.
func (s *Service) Recent(ctx context.Context, limit int) ([]*entity.Card, error) {
	if limit <= 0 {
		limit = RecentLimit
	}
	return s.cardRepo.Recent(ctx, limit)
}

// Search matches q against name, company, email, phone and designation.
func (s *Service) Search(ctx context.Context, q string) ([]*entity.Card, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return s.cardRepo.List(ctx)
	}
	found, err := s.cardRepo.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	all, err := s.cardRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]bool, len(found))
	for _, c := range found {
		seen[c.ID] = true
	}
	lq := strings.ToLower(q)
	out := make([]*entity.Card, 0, len(found))
	for _, c := range all {
		if seen[c.ID] || strings.Contains(strings.ToLower(c.Designation), lq) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Update applies u. When the company changes and no country is supplied the
// country is re-resolved. A missing card reports false.
func (s *Service) Update(ctx context.Context, id int64, u CardUpdate) (bool, error) {
	current, err := s.cardRepo.Get(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if u.Email != nil {
		v := common.NewValidator()
		v.Field("email", *u.Email, common.Email)
		if err := v.Err(); err != nil {
			return false, err
		}
	}

	patch := repository.CardPatch{
		Name:        trimmed(u.Name),
		Phone:       trimmed(u.Phone),
		Email:       trimmed(u.Email),
		Company:     trimmed(u.Company),
		Website:     trimmed(u.Website),
		Designation: trimmed(u.Designation),
		Flag:        trimmed(u.Flag),

		EventName:        trimmed(u.EventName),
		EventDescription: trimmed(u.EventDescription),
		EventHost:        trimmed(u.EventHost),
		EventDate:        trimmed(u.EventDate),
		EventLocation:    trimmed(u.EventLocation),
	}

	countryGiven := u.Country != nil && strings.TrimSpace(*u.Country) != ""
	companyChanged := patch.Company != nil && *patch.Company != current.Company
	switch {
	case countryGiven:
		code, flag := s.resolveCountry("", *u.Country)
		patch.Country = &code
		if patch.Flag == nil {
			patch.Flag = &flag
		}
	case companyChanged:
		code, flag := s.resolver.Resolve(*patch.Company)
		patch.Country = &code
		patch.Flag = &flag
	}

	ok, err := s.cardRepo.Update(ctx, id, patch)
	if err != nil || !ok {
		return ok, err
	}
	s.logger.Info("card updated", "card_id", id, "company_changed", companyChanged)
	return true, nil
}

// Delete removes the card and releases its label count.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	card, err := s.cardRepo.Get(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	ok, err := s.cardRepo.Delete(ctx, id)
	if err != nil || !ok {
		return ok, err
	}
	if s.labels != nil {
		s.labels.CardRemoved(ctx, card)
	}
	s.logger.Info("card deleted", "card_id", id)
	return true, nil
}

// Image returns the stored image bytes and mime type.
func (s *Service) Image(ctx context.Context, id int64) ([]byte, string, error) {
	return s.cardRepo.Image(ctx, id)
}

// IsDuplicate reports whether a card with the same name, email or phone exists.
func (s *Service) IsDuplicate(ctx context.Context, name, email, phone string) (bool, error) {
	dup, err := s.cardRepo.FindDuplicate(ctx,
		strings.TrimSpace(name), strings.TrimSpace(email), strings.TrimSpace(phone))
	if err != nil {
		return false, err
	}
	return dup != nil, nil
}

// BackfillCountries resolves country and flag for cards missing either and
// returns how many actually changed.
func (s *Service) BackfillCountries(ctx context.Context) (int, error) {
	all, err := s.cardRepo.List(ctx)
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, c := range all {
		if !country.NeedsBackfill(c.Country, c.Flag) {
			continue
		}
		code, flag := s.resolver.Resolve(c.Company)
		if c.Country != "" && c.Country != constants.UnknownCountry && code == constants.UnknownCountry {
			code, flag = c.Country, country.FlagFor(c.Country)
		}
		if code == c.Country && flag == c.Flag {
			continue
		}
		ok, err := s.cardRepo.Update(ctx, c.ID, repository.CardPatch{Country: &code, Flag: &flag})
		if err != nil {
			return updated, err
		}
		if ok {
			updated++
		}
	}
	s.logger.Info("country backfill done", "scanned", len(all), "updated", updated)
	return updated, nil
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}
