package providerruntime

// NewDefaultRegistry builds a Registry with every built-in client kind
// wired. Provider-family variants that share an HTTP shape with a base
// kind (gemini-cli and antigravity both speak the same generateContent
// surface as gemini-chat; iflow, qwen and glm all speak the OpenAI Chat
// Completions shape) register against the same factory — what differs
// between them is credential handling in internal/oauth, not the wire
// format here.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterFactory("openai-standard", newOpenAIClient)
	r.RegisterFactory("responses", newResponsesClient)
	r.RegisterFactory("anthropic-messages", newAnthropicClient)
	r.RegisterFactory("gemini-chat", newGeminiClient)
	r.RegisterFactory("gemini-cli", newGeminiClient)
	r.RegisterFactory("antigravity", newGeminiClient)
	r.RegisterFactory("iflow", newOpenAIClient)
	r.RegisterFactory("qwen", newOpenAIClient)
	r.RegisterFactory("glm", newOpenAIClient)
	r.RegisterFactory("mock", newMockClient)
	return r
}
