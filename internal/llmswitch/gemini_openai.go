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
	Default().Register(FormatGemini, FormatOpenAIChat, Pair{
		Request:  GeminiToOpenAIChatRequest,
		Response: GeminiToOpenAIChatResponse,
		Stream:   GeminiToOpenAIChatStream,
	})
	Default().Register(FormatOpenAIChat, FormatGemini, Pair{
		Request:  OpenAIChatToGeminiRequest,
		Response: OpenAIChatToGeminiResponse,
		Stream:   OpenAIChatToGeminiStream,
	})
}

func geminiFinishReason(reason string) string {
	switch reason {
	case "STOP":
		return "stop"
	case "MAX_TOKENS":
		return "length"
	case "SAFETY", "RECITATION":
		return "content_filter"
	default:
		return "stop"
	}
}

// GeminiToOpenAIChatRequest rewrites a Gemini generateContent request body
// into OpenAI Chat Completions request shape.
// (Named from the dialect it converts FROM per llmswitch's Registry
// convention: it runs when the inbound dialect is Gemini and the outbound
// target is OpenAI Chat — see the reverse direction below for the common
// case of an OpenAI-shaped client hitting a Gemini upstream.)
func GeminiToOpenAIChatRequest(model string, rawJSON []byte, stream bool) ([]byte, error) {
	// systemInstruction and contents become Chat messages; temperature and
	// maxOutputTokens are lifted out of generationConfig.
	root := gjson.ParseBytes(rawJSON)
	out := map[string]interface{}{
		"model":    model,
		"stream":   stream,
		"messages": geminiContentsToOpenAIMessages(root),
	}
	if gen := root.Get("generationConfig"); gen.Exists() {
		if t := gen.Get("temperature"); t.Exists() {
			out["temperature"] = t.Float()
		}
		if mt := gen.Get("maxOutputTokens"); mt.Exists() {
			out["max_tokens"] = mt.Int()
		}
	}
	return json.Marshal(out)
}

func geminiContentsToOpenAIMessages(root gjson.Result) []map[string]interface{} {
	var messages []map[string]interface{}
	if sys := root.Get("systemInstruction"); sys.Exists() {
		messages = append(messages, map[string]interface{}{"role": "system", "content": firstPartText(sys)})
	}
	for _, content := range root.Get("contents").Array() {
		role := content.Get("role").String()
		if role == "model" {
			role = "assistant"
		}
		var text strings.Builder
		var toolCalls []map[string]interface{}
		for _, part := range content.Get("parts").Array() {
			if t := part.Get("text"); t.Exists() {
				text.WriteString(t.String())
			}
			if fc := part.Get("functionCall"); fc.Exists() {
				args, _ := json.Marshal(fc.Get("args").Value())
				toolCalls = append(toolCalls, map[string]interface{}{
					"id":   fmt.Sprintf("call_%s", fc.Get("name").String()),
					"type": "function",
					"function": map[string]interface{}{
						"name":      fc.Get("name").String(),
						"arguments": string(args),
					},
				})
			}
		}
		msg := map[string]interface{}{"role": role, "content": text.String()}
		if len(toolCalls) > 0 {
			msg["tool_calls"] = toolCalls
		}
		messages = append(messages, msg)
	}
	return messages
}

func firstPartText(result gjson.Result) string {
	if parts := result.Get("parts"); parts.Exists() {
		arr := parts.Array()
		if len(arr) > 0 {
			return arr[0].Get("text").String()
		}
	}
	return result.Get("text").String()
}

// OpenAIChatToGeminiRequest rewrites an OpenAI Chat Completions request
// body into Gemini's generateContent request shape, grounded directly on
// the teacher's translateMessages.
func OpenAIChatToGeminiRequest(model string, rawJSON []byte, stream bool) ([]byte, error) {
	root := gjson.ParseBytes(rawJSON)

	var contents []map[string]interface{}
	var systemParts []map[string]interface{}

	for _, msg := range root.Get("messages").Array() {
		role := msg.Get("role").String()
		content := msg.Get("content")

		switch role {
		case "system":
			systemParts = append(systemParts, map[string]interface{}{"text": content.String()})
		case "tool":
			var responseContent interface{}
			if err := json.Unmarshal([]byte(content.String()), &responseContent); err != nil {
				responseContent = map[string]interface{}{"result": content.String()}
			}
			contents = append(contents, map[string]interface{}{
				"role": "user",
				"parts": []interface{}{map[string]interface{}{
					"functionResponse": map[string]interface{}{
						"name":     msg.Get("name").String(),
						"response": responseContent,
					},
				}},
			})
		case "assistant":
			var parts []interface{}
			if content.Exists() && content.String() != "" {
				parts = append(parts, map[string]interface{}{"text": content.String()})
			}
			for _, tc := range msg.Get("tool_calls").Array() {
				var args interface{}
				_ = json.Unmarshal([]byte(tc.Get("function.arguments").String()), &args)
				parts = append(parts, map[string]interface{}{
					"functionCall": map[string]interface{}{"name": tc.Get("function.name").String(), "args": args},
				})
			}
			if len(parts) > 0 {
				contents = append(contents, map[string]interface{}{"role": "model", "parts": parts})
			}
		default:
			contents = append(contents, map[string]interface{}{
				"role":  "user",
				"parts": []interface{}{map[string]interface{}{"text": content.String()}},
			})
		}
	}

	out := map[string]interface{}{"contents": contents}
	if len(systemParts) > 0 {
		out["systemInstruction"] = map[string]interface{}{"parts": systemParts}
	}

	genConfig := map[string]interface{}{}
	if t := root.Get("temperature"); t.Exists() {
		genConfig["temperature"] = t.Float()
	}
	if mt := root.Get("max_tokens"); mt.Exists() {
		genConfig["maxOutputTokens"] = mt.Int()
	}
	if len(genConfig) > 0 {
		out["generationConfig"] = genConfig
	}

	if tools := root.Get("tools"); tools.Exists() {
		var fnDecls []map[string]interface{}
		for _, tool := range tools.Array() {
			fn := tool.Get("function")
			fnDecls = append(fnDecls, map[string]interface{}{
				"name":        fn.Get("name").String(),
				"description": fn.Get("description").String(),
				"parameters":  fn.Get("parameters").Value(),
			})
		}
		out["tools"] = []map[string]interface{}{{"functionDeclarations": fnDecls}}
	}

	return json.Marshal(out)
}

// GeminiToOpenAIChatResponse rewrites a complete Gemini generateContent
// response into an OpenAI Chat Completions response.
func GeminiToOpenAIChatResponse(ctx context.Context, model string, body []byte) ([]byte, error) {
	root := gjson.ParseBytes(body)
	if root.Get("error").Exists() {
		return body, nil
	}

	var choices []map[string]interface{}
	var promptTokens, completionTokens int64
	for idx, candidate := range root.Get("candidates").Array() {
		var text strings.Builder
		var toolCalls []map[string]interface{}
		for _, part := range candidate.Get("content.parts").Array() {
			if t := part.Get("text"); t.Exists() {
				text.WriteString(t.String())
			}
			if fc := part.Get("functionCall"); fc.Exists() {
				args, _ := json.Marshal(fc.Get("args").Value())
				toolCalls = append(toolCalls, map[string]interface{}{
					"id":   fmt.Sprintf("call_%s_%d", fc.Get("name").String(), idx),
					"type": "function",
					"function": map[string]interface{}{
						"name":      fc.Get("name").String(),
						"arguments": string(args),
					},
				})
			}
		}
		message := map[string]interface{}{"role": "assistant", "content": text.String()}
		if len(toolCalls) > 0 {
			message["tool_calls"] = toolCalls
		}
		choices = append(choices, map[string]interface{}{
			"index":         idx,
			"message":       message,
			"finish_reason": geminiFinishReason(candidate.Get("finishReason").String()),
		})
	}
	promptTokens = root.Get("usageMetadata.promptTokenCount").Int()
	completionTokens = root.Get("usageMetadata.candidatesTokenCount").Int()

	out := map[string]interface{}{
		"id":      fmt.Sprintf("chatcmpl-%d", time.Now().UnixNano()),
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": choices,
		"usage": map[string]interface{}{
			"prompt_tokens":     promptTokens,
			"completion_tokens": completionTokens,
			"total_tokens":      promptTokens + completionTokens,
		},
	}
	return json.Marshal(out)
}

// OpenAIChatToGeminiResponse rewrites a complete OpenAI Chat Completions
// response into a Gemini generateContent response.
func OpenAIChatToGeminiResponse(ctx context.Context, model string, body []byte) ([]byte, error) {
	root := gjson.ParseBytes(body)
	if root.Get("error").Exists() {
		return body, nil
	}
	var candidates []map[string]interface{}
	for idx, choice := range root.Get("choices").Array() {
		message := choice.Get("message")
		var parts []interface{}
		if c := message.Get("content"); c.Exists() && c.String() != "" {
			parts = append(parts, map[string]interface{}{"text": c.String()})
		}
		for _, tc := range message.Get("tool_calls").Array() {
			var args interface{}
			_ = json.Unmarshal([]byte(tc.Get("function.arguments").String()), &args)
			parts = append(parts, map[string]interface{}{
				"functionCall": map[string]interface{}{"name": tc.Get("function.name").String(), "args": args},
			})
		}
		candidates = append(candidates, map[string]interface{}{
			"content":      map[string]interface{}{"role": "model", "parts": parts},
			"finishReason": strings.ToUpper(choice.Get("finish_reason").String()),
			"index":        idx,
		})
	}
	out := map[string]interface{}{
		"candidates": candidates,
		"usageMetadata": map[string]interface{}{
			"promptTokenCount":     root.Get("usage.prompt_tokens").Int(),
			"candidatesTokenCount": root.Get("usage.completion_tokens").Int(),
			"totalTokenCount":      root.Get("usage.total_tokens").Int(),
		},
		"modelVersion": model,
	}
	return json.Marshal(out)
}

// GeminiToOpenAIChatStream re-emits a Gemini streamGenerateContent SSE
// stream as an OpenAI Chat Completions SSE stream. Grounded near-verbatim
// on the teacher's GeminiToOpenAIStream.
func GeminiToOpenAIChatStream(ctx context.Context, model string, upstream io.Reader) (io.Reader, error) {
	pr, pw := io.Pipe()
	go func() {
		defer pw.Close()
		w := sseFrameWriter{pw: pw, from: FormatGemini, to: FormatOpenAIChat}
		id := fmt.Sprintf("chatcmpl-%d", time.Now().UnixNano())
		chunkIndex := 0

		eachSSEDataLine(upstream, func(payload []byte) {
			result := gjson.ParseBytes(payload)
			for _, candidate := range result.Get("candidates").Array() {
				delta := map[string]interface{}{}
				if chunkIndex == 0 {
					delta["role"] = "assistant"
				}
				for _, part := range candidate.Get("content.parts").Array() {
					if t := part.Get("text"); t.Exists() {
						delta["content"] = t.String()
					}
					if fc := part.Get("functionCall"); fc.Exists() {
						args, _ := json.Marshal(fc.Get("args").Value())
						delta["tool_calls"] = []map[string]interface{}{{
							"index": 0,
							"id":    fmt.Sprintf("call_%s_%d", fc.Get("name").String(), chunkIndex),
							"type":  "function",
							"function": map[string]interface{}{
								"name":      fc.Get("name").String(),
								"arguments": string(args),
							},
						}}
					}
				}
				var finishReason interface{}
				if fr := candidate.Get("finishReason"); fr.Exists() {
					finishReason = geminiFinishReason(fr.String())
				}
				chunk := map[string]interface{}{
					"id": id, "object": "chat.completion.chunk", "created": time.Now().Unix(), "model": model,
					"choices": []map[string]interface{}{{"index": 0, "delta": delta, "finish_reason": finishReason}},
				}
				data, _ := json.Marshal(chunk)
				w.writeData(data)
				chunkIndex++
			}
		}, w.writeDone)
	}()
	return pr, nil
}

// OpenAIChatToGeminiStream re-emits an OpenAI Chat Completions SSE stream
// as a Gemini streamGenerateContent SSE stream.
func OpenAIChatToGeminiStream(ctx context.Context, model string, upstream io.Reader) (io.Reader, error) {
	pr, pw := io.Pipe()
	go func() {
		defer pw.Close()
		w := sseFrameWriter{pw: pw, from: FormatOpenAIChat, to: FormatGemini}

		eachSSEDataLine(upstream, func(payload []byte) {
			chunk := gjson.ParseBytes(payload)
			delta := chunk.Get("choices.0.delta")
			var parts []interface{}
			if c := delta.Get("content"); c.Exists() {
				parts = append(parts, map[string]interface{}{"text": c.String()})
			}
			if len(parts) == 0 {
				return
			}
			finish := chunk.Get("choices.0.finish_reason").String()
			candidate := map[string]interface{}{
				"content": map[string]interface{}{"role": "model", "parts": parts},
				"index":   0,
			}
			if finish != "" {
				candidate["finishReason"] = strings.ToUpper(finish)
			}
			data, _ := json.Marshal(map[string]interface{}{"candidates": []map[string]interface{}{candidate}, "modelVersion": model})
			w.writeData(data)
		}, func() {})
	}()
	return pr, nil
}
