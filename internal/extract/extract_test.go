package extract

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/entity"
	"github.com/joseph-ayodele/cardscan/internal/llm"
)

func cardPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for i := 0; i < 40; i++ {
		img.Set(i, 10, color.Black)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestParseCardText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want entity.CardFields
	}{
		{
			name: "empty",
			text: " \n\n ",
			want: entity.CardFields{},
		},
		{
			name: "suffix company",
			text: "Jane Doe\nSenior Engineer\nAcme Widgets Pvt Ltd\n+91 98765 43210\njane.doe@acme.com",
			want: entity.CardFields{
				Name:    "Jane Doe",
				Phone:   "+919876543210",
				Email:   "jane.doe@acme.com",
				Company: "Acme Widgets Pvt Ltd",
			},
		},
		{
			name: "longest line fallback skips contact lines",
			text: "John Smith\nCTO\nGlobex Industrial Systems\nTel (555) 123-4567\nj.smith-longer-address@globex.example.com",
			want: entity.CardFields{
				Name:    "John Smith",
				Phone:   "5551234567",
				Email:   "j.smith-longer-address@globex.example.com",
				Company: "Globex Industrial Systems",
			},
		},
		{
			name: "company suffix is case insensitive and first wins",
			text: "A\nfoo INC\nbar llc",
			want: entity.CardFields{Name: "A", Company: "foo INC"},
		},
		{
			name: "co. suffix",
			text: "Ravi\nSmith & Co.\n",
			want: entity.CardFields{Name: "Ravi", Company: "Smith & Co."},
		},
		{
			name: "digits inside email are not a phone",
			text: "Sam\nsam1234567@mail.com",
			want: entity.CardFields{Name: "Sam", Email: "sam1234567@mail.com"},
		},
		{
			name: "postal code before the phone is skipped",
			text: "Jane Doe\nAcme Ltd\nMG Road, Bangalore 560 001\n+91 98450 12345",
			want: entity.CardFields{Name: "Jane Doe", Phone: "+919845012345", Company: "Acme Ltd"},
		},
		{
			name: "bare seven digit number",
			text: "Bob\nBob's Bakery Co.\n555-1234",
			want: entity.CardFields{Name: "Bob", Phone: "5551234", Company: "Bob's Bakery Co."},
		},
		{
			name: "over long digit run is not a phone",
			text: "Bob\nBobCorp Inc\n123456789012345",
			want: entity.CardFields{Name: "Bob", Company: "BobCorp Inc"},
		},
		{
			name: "six digit run does not hide the company line",
			text: "Kiran\nKoramangala 560034",
			want: entity.CardFields{Name: "Kiran", Company: "Koramangala 560034"},
		},
		{
			name: "single line",
			text: "Only Name",
			want: entity.CardFields{Name: "Only Name"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCardText(tt.text))
		})
	}
}

type mockRecognizer struct {
	mock.Mock
}

func (m *mockRecognizer) Recognize(ctx context.Context, img []byte) (string, error) {
	args := m.Called(ctx, img)
	return args.String(0), args.Error(1)
}

func TestHeuristicExtractor(t *testing.T) {
	rec := new(mockRecognizer)
	rec.On("Recognize", mock.Anything, mock.Anything).Return("Jane Doe\nAcme Ltd\njane@acme.com", nil).Once()

	got := NewHeuristicExtractor(rec, nil).Extract(context.Background(), cardPNG(t))
	assert.Equal(t, "Jane Doe", got.Name)
	assert.Equal(t, "Acme Ltd", got.Company)
	assert.Equal(t, "jane@acme.com", got.Email)
	rec.AssertExpectations(t)
}

func TestHeuristicExtractor_CorruptImage(t *testing.T) {
	rec := new(mockRecognizer)
	got := NewHeuristicExtractor(rec, nil).Extract(context.Background(), []byte("garbage"))
	assert.Equal(t, entity.CardFields{}, got)
	rec.AssertNotCalled(t, "Recognize", mock.Anything, mock.Anything)
}

func TestHeuristicExtractor_OCRFailure(t *testing.T) {
	rec := new(mockRecognizer)
	rec.On("Recognize", mock.Anything, mock.Anything).Return("", errors.New("tesseract missing"))

	got := NewHeuristicExtractor(rec, nil).Extract(context.Background(), cardPNG(t))
	assert.Equal(t, entity.CardFields{}, got)
}

type mockVision struct {
	mock.Mock
}

func (m *mockVision) Generate(ctx context.Context, req llm.VisionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockVision) Name() string { return "mock" }

func TestVisionExtractor(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
		want  entity.CardFields
	}{
		{
			name:  "fenced json",
			reply: "```json\n{\"name\":\" Jane \",\"phone\":\"+1 555\",\"email\":\"j@x.io\",\"company\":\"X Inc\",\"country\":\"USA\"}\n```",
			want:  entity.CardFields{Name: "Jane", Phone: "+1 555", Email: "j@x.io", Company: "X Inc", Country: "USA"},
		},
		{
			name:  "plain json with extra keys",
			reply: `{"name":"Jane","website":"x.io"}`,
			want:  entity.CardFields{Name: "Jane"},
		},
		{
			name:  "not json",
			reply: "I could not read this card.",
			want:  entity.CardFields{},
		},
		{
			name: "transport failure",
			err:  errors.New("connection reset"),
			want: entity.CardFields{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(mockVision)
			m.On("Generate", mock.Anything, mock.MatchedBy(func(r llm.VisionRequest) bool {
				return r.Instruction == llm.Instruction && r.MimeType == "image/jpeg" && len(r.Image) > 0
			})).Return(tt.reply, tt.err).Once()

			got := NewVisionExtractor(m, time.Second, nil).Extract(context.Background(), cardPNG(t))
			assert.Equal(t, tt.want, got)
			m.AssertExpectations(t)
		})
	}
}

func TestVisionExtractor_CorruptImageSkipsCall(t *testing.T) {
	m := new(mockVision)
	got := NewVisionExtractor(m, time.Second, nil).Extract(context.Background(), []byte{0xff, 0xd8, 0x00})
	assert.Equal(t, entity.CardFields{}, got)
	m.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestVisionExtractor_Timeout(t *testing.T) {
	m := new(mockVision)
	m.On("Generate", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		ctx := args.Get(0).(context.Context)
		<-ctx.Done()
	}).Return("", context.DeadlineExceeded)

	start := time.Now()
	got := NewVisionExtractor(m, 20*time.Millisecond, nil).Extract(context.Background(), cardPNG(t))
	assert.Equal(t, entity.CardFields{}, got)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNew_UnknownStrategy(t *testing.T) {
	cfg := &common.Config{Extract: common.ExtractConfig{Strategy: "magic"}}
	_, closeFn, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
	assert.NoError(t, closeFn())
}

func TestNew_Heuristic(t *testing.T) {
	cfg := &common.Config{Extract: common.ExtractConfig{Strategy: "heuristic", ScratchDir: t.TempDir()}}
	ex, closeFn, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &HeuristicExtractor{}, ex)
	assert.NoError(t, closeFn())
}

func TestNew_OpenAIVision(t *testing.T) {
	cfg := &common.Config{
		Extract: common.ExtractConfig{Strategy: "vision"},
		Vision:  common.VisionConfig{Provider: "openai", APIKey: "k"},
	}
	ex, _, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &VisionExtractor{}, ex)
}

func TestExtractorFunc(t *testing.T) {
	var f Extractor = ExtractorFunc(func(context.Context, []byte) entity.CardFields {
		return entity.CardFields{Name: "x"}
	})
	assert.Equal(t, "x", f.Extract(context.Background(), nil).Name)
}
