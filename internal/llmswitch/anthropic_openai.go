package llmswitch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

func init() {
	Default().Register(FormatAnthropic, FormatOpenAIChat, Pair{
		Request:  AnthropicToOpenAIChatRequest,
		Response: AnthropicToOpenAIChatResponse,
		Stream:   AnthropicToOpenAIChatStream,
	})
	Default().Register(FormatOpenAIChat, FormatAnthropic, Pair{
		Request:  OpenAIChatToAnthropicRequest,
		Response: OpenAIChatToAnthropicResponse,
		Stream:   OpenAIChatToAnthropicStream,
	})
}

// anthropicStopReasonToFinish maps Anthropic's stop_reason vocabulary to
// OpenAI's finish_reason vocabulary.
func anthropicStopReasonToFinish(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	case "tool_use":
		return "tool_calls"
	default:
		return "stop"
	}
}

func finishToAnthropicStopReason(reason string) string {
	switch reason {
	case "length":
		return "max_tokens"
	case "tool_calls":
		return "tool_use"
	default:
		return "end_turn"
	}
}

// AnthropicToOpenAIChatRequest rewrites an Anthropic Messages request body
// into OpenAI Chat Completions shape.
func AnthropicToOpenAIChatRequest(model string, rawJSON []byte, stream bool) ([]byte, error) {
	root := gjson.ParseBytes(rawJSON)

	var messages []map[string]interface{}
	if system := root.Get("system"); system.Exists() {
		messages = append(messages, map[string]interface{}{"role": "system", "content": system.String()})
	}

	for _, m := range root.Get("messages").Array() {
		role := m.Get("role").String()
		content := m.Get("content")
		if content.IsArray() {
			var textParts []string
			var toolCalls []map[string]interface{}
			var toolResults []map[string]interface{}
			for _, block := range content.Array() {
				switch block.Get("type").String() {
				case "text":
					textParts = append(textParts, block.Get("text").String())
				case "tool_use":
					args, _ := json.Marshal(block.Get("input").Value())
					toolCalls = append(toolCalls, map[string]interface{}{
						"id":   block.Get("id").String(),
						"type": "function",
						"function": map[string]interface{}{
							"name":      block.Get("name").String(),
							"arguments": string(args),
						},
					})
				case "tool_result":
					toolResults = append(toolResults, map[string]interface{}{
						"role":         "tool",
						"tool_call_id": block.Get("tool_use_id").String(),
						"content":      block.Get("content").String(),
					})
				}
			}
			if len(toolCalls) > 0 {
				msg := map[string]interface{}{"role": role}
				if len(textParts) > 0 {
					msg["content"] = strings.Join(textParts, "\n")
				} else {
					msg["content"] = nil
				}
				msg["tool_calls"] = toolCalls
				messages = append(messages, msg)
			} else if len(textParts) > 0 || len(toolResults) == 0 {
				messages = append(messages, map[string]interface{}{"role": role, "content": strings.Join(textParts, "\n")})
			}
			messages = append(messages, toolResults...)
		} else {
			messages = append(messages, map[string]interface{}{"role": role, "content": content.String()})
		}
	}

	out := map[string]interface{}{
		"model":    model,
		"messages": messages,
		"stream":   stream,
	}
	if maxTok := root.Get("max_tokens"); maxTok.Exists() {
		out["max_tokens"] = maxTok.Int()
	}
	if temp := root.Get("temperature"); temp.Exists() {
		out["temperature"] = temp.Float()
	}
	if tools := root.Get("tools"); tools.Exists() {
		var converted []map[string]interface{}
		for _, tool := range tools.Array() {
			converted = append(converted, map[string]interface{}{
				"type": "function",
				"function": map[string]interface{}{
					"name":        tool.Get("name").String(),
					"description": tool.Get("description").String(),
					"parameters":  tool.Get("input_schema").Value(),
				},
			})
		}
		out["tools"] = converted
	}
	return json.Marshal(out)
}

// OpenAIChatToAnthropicRequest rewrites an OpenAI Chat Completions request
// body into Anthropic Messages shape.
func OpenAIChatToAnthropicRequest(model string, rawJSON []byte, stream bool) ([]byte, error) {
	root := gjson.ParseBytes(rawJSON)

	var system string
	var messages []map[string]interface{}
	for _, m := range root.Get("messages").Array() {
		role := m.Get("role").String()
		if role == "system" {
			system = m.Get("content").String()
			continue
		}
		if role == "tool" {
			messages = append(messages, map[string]interface{}{
				"role": "user",
				"content": []map[string]interface{}{{
					"type":        "tool_result",
					"tool_use_id": m.Get("tool_call_id").String(),
					"content":     m.Get("content").String(),
				}},
			})
			continue
		}
		if toolCalls := m.Get("tool_calls"); toolCalls.Exists() {
			var blocks []map[string]interface{}
			if txt := m.Get("content"); txt.Exists() && txt.String() != "" {
				blocks = append(blocks, map[string]interface{}{"type": "text", "text": txt.String()})
			}
			for _, tc := range toolCalls.Array() {
				var input interface{}
				_ = json.Unmarshal([]byte(tc.Get("function.arguments").String()), &input)
				blocks = append(blocks, map[string]interface{}{
					"type":  "tool_use",
					"id":    tc.Get("id").String(),
					"name":  tc.Get("function.name").String(),
					"input": input,
				})
			}
			messages = append(messages, map[string]interface{}{"role": role, "content": blocks})
			continue
		}
		messages = append(messages, map[string]interface{}{"role": role, "content": m.Get("content").String()})
	}

	out := map[string]interface{}{
		"model":      model,
		"messages":   messages,
		"stream":     stream,
		"max_tokens": 4096,
	}
	if system != "" {
		out["system"] = system
	}
	if maxTok := root.Get("max_tokens"); maxTok.Exists() {
		out["max_tokens"] = maxTok.Int()
	}
	if tools := root.Get("tools"); tools.Exists() {
		var converted []map[string]interface{}
		for _, tool := range tools.Array() {
			fn := tool.Get("function")
			converted = append(converted, map[string]interface{}{
				"name":         fn.Get("name").String(),
				"description":  fn.Get("description").String(),
				"input_schema": fn.Get("parameters").Value(),
			})
		}
		out["tools"] = converted
	}
	return json.Marshal(out)
}

// AnthropicToOpenAIChatResponse rewrites one complete Anthropic Messages
// response into an OpenAI Chat Completions response.
func AnthropicToOpenAIChatResponse(ctx context.Context, model string, body []byte) ([]byte, error) {
	root := gjson.ParseBytes(body)
	if root.Get("error").Exists() {
		return body, nil
	}

	var textParts []string
	var toolCalls []map[string]interface{}
	for _, block := range root.Get("content").Array() {
		switch block.Get("type").String() {
		case "text":
			textParts = append(textParts, block.Get("text").String())
		case "tool_use":
			args, _ := json.Marshal(block.Get("input").Value())
			toolCalls = append(toolCalls, map[string]interface{}{
				"id":   block.Get("id").String(),
				"type": "function",
				"function": map[string]interface{}{
					"name":      block.Get("name").String(),
					"arguments": string(args),
				},
			})
		}
	}

	message := map[string]interface{}{"role": "assistant"}
	if len(textParts) > 0 {
		message["content"] = strings.Join(textParts, "\n")
	} else {
		message["content"] = nil
	}
	if len(toolCalls) > 0 {
		message["tool_calls"] = toolCalls
	}

	out := map[string]interface{}{
		"id":      root.Get("id").String(),
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []map[string]interface{}{{
			"index":         0,
			"message":       message,
			"finish_reason": anthropicStopReasonToFinish(root.Get("stop_reason").String()),
		}},
		"usage": map[string]interface{}{
			"prompt_tokens":     root.Get("usage.input_tokens").Int(),
			"completion_tokens": root.Get("usage.output_tokens").Int(),
			"total_tokens":      root.Get("usage.input_tokens").Int() + root.Get("usage.output_tokens").Int(),
		},
	}
	return json.Marshal(out)
}

// OpenAIChatToAnthropicResponse rewrites one complete OpenAI Chat
// Completions response into an Anthropic Messages response.
func OpenAIChatToAnthropicResponse(ctx context.Context, model string, body []byte) ([]byte, error) {
	root := gjson.ParseBytes(body)
	if root.Get("error").Exists() {
		return body, nil
	}
	choice := root.Get("choices.0")
	message := choice.Get("message")

	var blocks []map[string]interface{}
	if content := message.Get("content"); content.Exists() && content.String() != "" {
		blocks = append(blocks, map[string]interface{}{"type": "text", "text": content.String()})
	}
	for _, tc := range message.Get("tool_calls").Array() {
		var input interface{}
		_ = json.Unmarshal([]byte(tc.Get("function.arguments").String()), &input)
		blocks = append(blocks, map[string]interface{}{
			"type":  "tool_use",
			"id":    tc.Get("id").String(),
			"name":  tc.Get("function.name").String(),
			"input": input,
		})
	}

	out := map[string]interface{}{
		"id":          root.Get("id").String(),
		"type":        "message",
		"role":        "assistant",
		"model":       model,
		"content":     blocks,
		"stop_reason": finishToAnthropicStopReason(choice.Get("finish_reason").String()),
		"usage": map[string]interface{}{
			"input_tokens":  root.Get("usage.prompt_tokens").Int(),
			"output_tokens": root.Get("usage.completion_tokens").Int(),
		},
	}
	return json.Marshal(out)
}

// AnthropicToOpenAIChatStream re-emits an Anthropic Messages SSE stream as
// an OpenAI Chat Completions SSE stream.
func AnthropicToOpenAIChatStream(ctx context.Context, model string, upstream io.Reader) (io.Reader, error) {
	pr, pw := io.Pipe()
	go func() {
		defer pw.Close()
		w := sseFrameWriter{pw: pw, from: FormatAnthropic, to: FormatOpenAIChat}
		chunkIndex := 0
		id := fmt.Sprintf("chatcmpl-%d", time.Now().UnixNano())

		eachSSEDataLine(upstream, func(payload []byte) {
			evt := gjson.ParseBytes(payload)
			delta := map[string]interface{}{}
			var finishReason interface{}

			switch evt.Get("type").String() {
			case "message_start":
				delta["role"] = "assistant"
			case "content_block_delta":
				d := evt.Get("delta")
				switch d.Get("type").String() {
				case "text_delta":
					delta["content"] = d.Get("text").String()
				case "input_json_delta":
					delta["tool_calls"] = []map[string]interface{}{{
						"index": 0,
						"function": map[string]interface{}{
							"arguments": d.Get("partial_json").String(),
						},
					}}
				}
			case "message_delta":
				if sr := evt.Get("delta.stop_reason"); sr.Exists() {
					finishReason = anthropicStopReasonToFinish(sr.String())
				}
			default:
				chunkIndex++
				return
			}

			chunk := map[string]interface{}{
				"id":      id,
				"object":  "chat.completion.chunk",
				"created": time.Now().Unix(),
				"model":   model,
				"choices": []map[string]interface{}{{
					"index":         0,
					"delta":         delta,
					"finish_reason": finishReason,
				}},
			}
			data, _ := json.Marshal(chunk)
			w.writeData(data)
			chunkIndex++
		}, w.writeDone)
	}()
	return pr, nil
}

// OpenAIChatToAnthropicStream re-emits an OpenAI Chat Completions SSE
// stream as an Anthropic Messages SSE stream.
func OpenAIChatToAnthropicStream(ctx context.Context, model string, upstream io.Reader) (io.Reader, error) {
	pr, pw := io.Pipe()
	go func() {
		defer pw.Close()
		w := sseFrameWriter{pw: pw, from: FormatOpenAIChat, to: FormatAnthropic}
		started := false

		eachSSEDataLine(upstream, func(payload []byte) {
			chunk := gjson.ParseBytes(payload)
			delta := chunk.Get("choices.0.delta")

			if !started {
				started = true
				start, _ := json.Marshal(map[string]interface{}{
					"type": "message_start",
					"message": map[string]interface{}{
						"id": fmt.Sprintf("msg_%d", time.Now().UnixNano()), "type": "message", "role": "assistant", "model": model,
						"content": []interface{}{}, "usage": map[string]interface{}{"input_tokens": 0, "output_tokens": 0},
					},
				})
				w.writeData(start)
			}

			if content := delta.Get("content"); content.Exists() {
				data, _ := json.Marshal(map[string]interface{}{
					"type":  "content_block_delta",
					"index": 0,
					"delta": map[string]interface{}{"type": "text_delta", "text": content.String()},
				})
				w.writeData(data)
			}

			if fr := chunk.Get("choices.0.finish_reason"); fr.Exists() && fr.String() != "" {
				data, _ := json.Marshal(map[string]interface{}{
					"type":  "message_delta",
					"delta": map[string]interface{}{"stop_reason": finishToAnthropicStopReason(fr.String())},
				})
				w.writeData(data)
				stop, _ := json.Marshal(map[string]interface{}{"type": "message_stop"})
				w.writeData(stop)
			}
		}, func() {})
	}()
	return pr, nil
}
