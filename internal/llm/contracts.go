package llm

import "context"

// Instruction is the fixed prompt sent with every card image.
const Instruction = "Extract name, phone number, email, company and country from this visiting card. " +
	"Return only JSON with fields: name, phone, email, company, country."

// VisionRequest is one image extraction call.
type VisionRequest struct {
	Instruction string
	Image       []byte
	MimeType    string
}

// VisionModel sends an image plus instruction to a multimodal model and returns
// the raw text of its answer. Implementations must honor ctx cancellation.
type VisionModel interface {
	Generate(ctx context.Context, req VisionRequest) (string, error)
	Name() string
}
