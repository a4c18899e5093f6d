package llmswitch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/tidwall/gjson"
)

func init() {
	Default().Register(FormatOpenAIChat, FormatOpenAIResponses, Pair{
		Request:  OpenAIChatToResponsesRequest,
		Response: OpenAIChatToResponsesResponse,
		Stream:   OpenAIChatToResponsesStream,
	})
	Default().Register(FormatOpenAIResponses, FormatOpenAIChat, Pair{
		Request:  ResponsesToOpenAIChatRequest,
		Response: ResponsesToOpenAIChatResponse,
		Stream:   ResponsesToOpenAIChatStream,
	})
}

// OpenAIChatToResponsesRequest rewrites a Chat Completions request into a
// Responses API request: "messages" becomes "input", and every upstream
// call is forced streaming (providerruntime.responsesClient also enforces
// this defensively; this is the semantic source of truth).
func OpenAIChatToResponsesRequest(model string, rawJSON []byte, stream bool) ([]byte, error) {
	root := gjson.ParseBytes(rawJSON)
	var input []map[string]interface{}
	for _, m := range root.Get("messages").Array() {
		input = append(input, map[string]interface{}{
			"role":    m.Get("role").String(),
			"content": m.Get("content").String(),
		})
	}
	out := map[string]interface{}{
		"model":  model,
		"input":  input,
		"stream": true,
	}
	if tools := root.Get("tools"); tools.Exists() {
		out["tools"] = tools.Value()
	}
	return json.Marshal(out)
}

// ResponsesToOpenAIChatRequest rewrites a Responses "input" request into a
// Chat Completions "messages" request, for the (rare) case of a
// Responses-shaped client hitting a Chat-speaking upstream.
func ResponsesToOpenAIChatRequest(model string, rawJSON []byte, stream bool) ([]byte, error) {
	root := gjson.ParseBytes(rawJSON)
	var messages []map[string]interface{}
	for _, item := range root.Get("input").Array() {
		messages = append(messages, map[string]interface{}{
			"role":    item.Get("role").String(),
			"content": item.Get("content").String(),
		})
	}
	out := map[string]interface{}{"model": model, "messages": messages, "stream": stream}
	return json.Marshal(out)
}

// ResponsesToOpenAIChatResponse aggregates a complete Responses API
// response object into a Chat Completions response, for callers that asked
// for a non-streaming Chat response even though the upstream always runs
// in streaming mode.
func ResponsesToOpenAIChatResponse(ctx context.Context, model string, body []byte) ([]byte, error) {
	root := gjson.ParseBytes(body)
	if root.Get("error").Exists() {
		return body, nil
	}
	var text string
	for _, item := range root.Get("output").Array() {
		if item.Get("type").String() != "message" {
			continue
		}
		for _, c := range item.Get("content").Array() {
			if c.Get("type").String() == "output_text" {
				text += c.Get("text").String()
			}
		}
	}
	out := map[string]interface{}{
		"id":      root.Get("id").String(),
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []map[string]interface{}{{
			"index":         0,
			"message":       map[string]interface{}{"role": "assistant", "content": text},
			"finish_reason": "stop",
		}},
		"usage": map[string]interface{}{
			"prompt_tokens":     root.Get("usage.input_tokens").Int(),
			"completion_tokens": root.Get("usage.output_tokens").Int(),
			"total_tokens":      root.Get("usage.total_tokens").Int(),
		},
	}
	return json.Marshal(out)
}

// OpenAIChatToResponsesResponse wraps a Chat Completions response as a
// Responses API response object.
func OpenAIChatToResponsesResponse(ctx context.Context, model string, body []byte) ([]byte, error) {
	root := gjson.ParseBytes(body)
	if root.Get("error").Exists() {
		return body, nil
	}
	text := root.Get("choices.0.message.content").String()
	out := map[string]interface{}{
		"id":     root.Get("id").String(),
		"object": "response",
		"model":  model,
		"output": []map[string]interface{}{{
			"type": "message",
			"role": "assistant",
			"content": []map[string]interface{}{{
				"type": "output_text",
				"text": text,
			}},
		}},
		"usage": map[string]interface{}{
			"input_tokens":  root.Get("usage.prompt_tokens").Int(),
			"output_tokens": root.Get("usage.completion_tokens").Int(),
			"total_tokens":  root.Get("usage.total_tokens").Int(),
		},
	}
	return json.Marshal(out)
}

// ResponsesToOpenAIChatStream re-emits a Responses API SSE stream
// (response.output_text.delta / response.completed events) as a Chat
// Completions SSE stream.
func ResponsesToOpenAIChatStream(ctx context.Context, model string, upstream io.Reader) (io.Reader, error) {
	pr, pw := io.Pipe()
	go func() {
		defer pw.Close()
		w := sseFrameWriter{pw: pw, from: FormatOpenAIResponses, to: FormatOpenAIChat}
		id := fmt.Sprintf("chatcmpl-%d", time.Now().UnixNano())
		first := true

		eachSSEDataLine(upstream, func(payload []byte) {
			evt := gjson.ParseBytes(payload)
			delta := map[string]interface{}{}
			var finish interface{}

			switch evt.Get("type").String() {
			case "response.created":
				delta["role"] = "assistant"
			case "response.output_text.delta":
				delta["content"] = evt.Get("delta").String()
			case "response.completed":
				finish = "stop"
			default:
				return
			}
			if first {
				delta["role"] = "assistant"
				first = false
			}
			chunk := map[string]interface{}{
				"id": id, "object": "chat.completion.chunk", "created": time.Now().Unix(), "model": model,
				"choices": []map[string]interface{}{{"index": 0, "delta": delta, "finish_reason": finish}},
			}
			data, _ := json.Marshal(chunk)
			w.writeData(data)
		}, w.writeDone)
	}()
	return pr, nil
}

// OpenAIChatToResponsesStream re-emits a Chat Completions SSE stream as a
// Responses API SSE stream.
func OpenAIChatToResponsesStream(ctx context.Context, model string, upstream io.Reader) (io.Reader, error) {
	pr, pw := io.Pipe()
	go func() {
		defer pw.Close()
		w := sseFrameWriter{pw: pw, from: FormatOpenAIChat, to: FormatOpenAIResponses}
		started := false

		eachSSEDataLine(upstream, func(payload []byte) {
			chunk := gjson.ParseBytes(payload)
			if !started {
				started = true
				created, _ := json.Marshal(map[string]interface{}{"type": "response.created", "response": map[string]interface{}{"model": model}})
				w.writeData(created)
			}
			if content := chunk.Get("choices.0.delta.content"); content.Exists() {
				data, _ := json.Marshal(map[string]interface{}{"type": "response.output_text.delta", "delta": content.String()})
				w.writeData(data)
			}
			if fr := chunk.Get("choices.0.finish_reason"); fr.Exists() && fr.String() != "" {
				done, _ := json.Marshal(map[string]interface{}{"type": "response.completed"})
				w.writeData(done)
			}
		}, func() {})
	}()
	return pr, nil
}
