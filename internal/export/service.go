package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/entity"
)

// CardLister supplies the cards to export in store order.
type CardLister interface {
	List(ctx context.Context) ([]*entity.Card, error)
}

// Report is a rendered export.
type Report struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
}

// Service builds filtered exports and the analytics workbook.
type Service struct {
	cards        CardLister
	sink         Sink
	topCompanies int
	logger       *slog.Logger
}

func NewService(cards CardLister, sink Sink, topCompanies int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = XLSXSink{}
	}
	if topCompanies <= 0 {
		topCompanies = 20
	}
	return &Service{cards: cards, sink: sink, topCompanies: topCompanies, logger: logger}
}

// ExportAll exports every card with the full projection.
func (s *Service) ExportAll(ctx context.Context) (*Report, error) {
	return s.export(ctx, "all", All{}, func(rows []*entity.Card) []Sheet {
		return []Sheet{Project("Business Cards", rows, FullColumns)}
	})
}

// ByLabels exports cards carrying one of labelIDs, and unlabeled cards when asked.
func (s *Service) ByLabels(ctx context.Context, f LabelFilter) (*Report, error) {
	if len(f.IDs) == 0 && !f.IncludeUnlabeled {
		return nil, common.Invalidf("select at least one label or include unlabeled cards")
	}
	return s.export(ctx, "filtered_by_labels", f, func(rows []*entity.Card) []Sheet {
		return []Sheet{Project("Filtered by Labels", rows, LabelColumns)}
	})
}

// ByCountries exports cards whose country code is selected.
func (s *Service) ByCountries(ctx context.Context, f CountryFilter) (*Report, error) {
	if len(f.Codes) == 0 {
		return nil, common.Invalidf("select at least one country")
	}
	return s.export(ctx, "filtered_by_countries", f, func(rows []*entity.Card) []Sheet {
		return []Sheet{Project("Filtered by Countries", rows, CountryColumns)}
	})
}

// Analytics exports the complete data plus the analytics sheets.
func (s *Service) Analytics(ctx context.Context) (*Report, error) {
	return s.export(ctx, "analytics_report", All{}, func(rows []*entity.Card) []Sheet {
		sheets := []Sheet{Project("Complete Data", rows, FullColumns)}
		return append(sheets, Analyze(rows, s.topCompanies).Sheets()...)
	})
}

// Summary computes analytics without rendering a report.
func (s *Service) Summary(ctx context.Context) (Analytics, error) {
	cards, err := s.cards.List(ctx)
	if err != nil {
		return Analytics{}, err
	}
	return Analyze(cards, s.topCompanies), nil
}

func (s *Service) export(ctx context.Context, kind string, f Filter, build func([]*entity.Card) []Sheet) (*Report, error) {
	start := time.Now()
	cards, err := s.cards.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	rows := Rows(cards, f)
	if len(rows) == 0 {
		s.logger.Info("export.empty", "kind", kind, "cards", len(cards))
		return nil, common.NewAppError("NOTHING_TO_EXPORT", "no cards match the selection", common.ErrNothingToExport)
	}

	data, err := s.sink.Write(build(rows))
	if err != nil {
		s.logger.Error("export.write.failed", "kind", kind, "error", err)
		return nil, err
	}
	s.logger.Info("export."+s.sink.Extension()+".ok",
		"kind", kind,
		"rows", len(rows),
		"bytes", len(data),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &Report{
		Filename:    fmt.Sprintf("business_cards_%s_%s.%s", kind, start.Format("20060102_150405"), s.sink.Extension()),
		ContentType: s.sink.ContentType(),
		Data:        data,
		Rows:        len(rows),
	}, nil
}
