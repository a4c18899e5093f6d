package llmswitch

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_PassthroughWhenSameFormat(t *testing.T) {
	body, err := Default().TranslateRequest(FormatOpenAIChat, FormatOpenAIChat, "gpt", []byte(`{"a":1}`), false)
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(body))
}

func TestRegistry_NoTranslatorError(t *testing.T) {
	r := NewRegistry()
	_, err := r.TranslateRequest(FormatOpenAIChat, FormatGemini, "m", []byte(`{}`), false)
	require.Error(t, err)
	var nt *ErrNoTranslator
	require.ErrorAs(t, err, &nt)
}

func TestOpenAIChatToAnthropicRequest_MapsSystemAndMessages(t *testing.T) {
	in := `{"model":"gpt-4","messages":[{"role":"system","content":"be terse"},{"role":"user","content":"hi"}],"max_tokens":100}`
	out, err := OpenAIChatToAnthropicRequest("claude-3", []byte(in), false)
	require.NoError(t, err)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &parsed))
	require.Equal(t, "be terse", parsed["system"])
	require.Equal(t, float64(100), parsed["max_tokens"])
	messages := parsed["messages"].([]interface{})
	require.Len(t, messages, 1)
}

func TestAnthropicToOpenAIChatResponse_MapsTextAndUsage(t *testing.T) {
	in := `{"id":"msg_1","type":"message","role":"assistant","content":[{"type":"text","text":"hello"}],"stop_reason":"end_turn","usage":{"input_tokens":5,"output_tokens":3}}`
	out, err := AnthropicToOpenAIChatResponse(context.Background(), "claude-3", []byte(in))
	require.NoError(t, err)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &parsed))
	choices := parsed["choices"].([]interface{})
	msg := choices[0].(map[string]interface{})["message"].(map[string]interface{})
	require.Equal(t, "hello", msg["content"])
	usage := parsed["usage"].(map[string]interface{})
	require.Equal(t, float64(8), usage["total_tokens"])
}

func TestOpenAIChatToGeminiRequest_MapsMessagesToContents(t *testing.T) {
	in := `{"model":"gpt-4","messages":[{"role":"system","content":"sys"},{"role":"user","content":"hi"}]}`
	out, err := OpenAIChatToGeminiRequest("gemini-pro", []byte(in), false)
	require.NoError(t, err)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &parsed))
	require.NotNil(t, parsed["systemInstruction"])
	contents := parsed["contents"].([]interface{})
	require.Len(t, contents, 1)
	first := contents[0].(map[string]interface{})
	require.Equal(t, "user", first["role"])
}

func TestGeminiToOpenAIChatResponse_MapsCandidates(t *testing.T) {
	in := `{"candidates":[{"content":{"role":"model","parts":[{"text":"hi there"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":2,"candidatesTokenCount":3}}`
	out, err := GeminiToOpenAIChatResponse(context.Background(), "gemini-pro", []byte(in))
	require.NoError(t, err)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &parsed))
	choices := parsed["choices"].([]interface{})
	require.Len(t, choices, 1)
	msg := choices[0].(map[string]interface{})["message"].(map[string]interface{})
	require.Equal(t, "hi there", msg["content"])
}

func TestGeminiToOpenAIChatStream_EmitsDoneAndContent(t *testing.T) {
	upstream := strings.NewReader(
		"data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"hi\"}]}}]}\n\n" +
			"data: {\"candidates\":[{\"finishReason\":\"STOP\"}]}\n\n" +
			"data: [DONE]\n\n",
	)
	reader, err := GeminiToOpenAIChatStream(context.Background(), "gemini-pro", upstream)
	require.NoError(t, err)
	out, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.Contains(t, string(out), `"content":"hi"`)
	require.Contains(t, string(out), "data: [DONE]")
}

func TestHubTranslate_RoutesAnthropicToGeminiViaChat(t *testing.T) {
	tr := NewTranslate(Default())
	in := `{"model":"claude-3","max_tokens":100,"messages":[{"role":"user","content":"hi"}]}`
	out, err := tr.Request("gemini-pro", []byte(in), false, FormatAnthropic, FormatGemini)
	require.NoError(t, err)
	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &parsed))
	require.NotNil(t, parsed["contents"])
}

func TestResponsesToOpenAIChatResponse_AggregatesOutputText(t *testing.T) {
	in := `{"id":"resp_1","output":[{"type":"message","content":[{"type":"output_text","text":"hello"}]}],"usage":{"input_tokens":1,"output_tokens":2,"total_tokens":3}}`
	out, err := ResponsesToOpenAIChatResponse(context.Background(), "gpt-4", []byte(in))
	require.NoError(t, err)
	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &parsed))
	choices := parsed["choices"].([]interface{})
	msg := choices[0].(map[string]interface{})["message"].(map[string]interface{})
	require.Equal(t, "hello", msg["content"])
}
