package types

// DefaultModel is used when a chat request does not name a model.
const DefaultModel = "mistral"

// DefaultVisionModel is used for image and video analysis when no model is given.
const DefaultVisionModel = "openai"

// ChatRequest is the inbound chat call. InputCode carries the prompt text.
type ChatRequest struct {
	InputCode    string `json:"inputCode"`
	Model        string `json:"model,omitempty"`
	SystemPrompt string `json:"systemPrompt,omitempty"`
	JSONMode     bool   `json:"jsonMode,omitempty"`

	// Stream asks the upstream for an SSE response. Omitted from the
	// upstream body when false.
	Stream bool `json:"stream,omitempty"`
}

// GetModel returns the requested model or DefaultModel.
func (r *ChatRequest) GetModel() string {
	if r.Model == "" {
		return DefaultModel
	}
	return r.Model
}

// UpstreamRequestBody is the JSON body posted to the upstream text API.
type UpstreamRequestBody struct {
	Messages []Message `json:"messages"`
	Model    string    `json:"model"`
	Seed     *int      `json:"seed,omitempty"`
	JSONMode bool      `json:"jsonMode"`
	Stream   bool      `json:"stream,omitempty"`
}
