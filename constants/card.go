package constants

const (
	// UnknownCountry is stored when no country pattern matches.
	UnknownCountry = "UNKNOWN"
	// GlobeFlag is the display glyph paired with UnknownCountry.
	GlobeFlag = "🌐"

	// DefaultLabelColor is used when a label is created without a color.
	DefaultLabelColor = "#0891b2"
	// UnlabeledDisplay is shown in exports for cards without a label.
	UnlabeledDisplay = "Unlabeled"

	// MaxLabelNameLength bounds label names.
	MaxLabelNameLength = 64
)

// ExtractorStrategy selects the field extractor implementation.
type ExtractorStrategy string

const (
	ExtractorHeuristic ExtractorStrategy = "heuristic"
	ExtractorVision    ExtractorStrategy = "vision"
)

// VisionProvider selects the remote vision backend.
type VisionProvider string

const (
	VisionGemini VisionProvider = "gemini"
	VisionOpenAI VisionProvider = "openai"
)
