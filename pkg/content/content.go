// Package content derives plain-text signatures from serialized editor document trees
// Package content 从序列化的编辑器文档树中提取纯文本签名
//
// A document tree is a JSON object with a "root" node. Every node may carry a
// "children" array; nodes whose "text" field is a string contribute that string.
// The signature is used for equivalence checks only, never for rendering.
package content

import (
	"encoding/json"
	"strings"

	"github.com/bytedance/sonic"
)

// ExtractPlainText concatenates the text of every node under tree's root in
// depth-first pre-order. tree may be a decoded map, raw JSON bytes, a
// json.RawMessage or a JSON string (possibly holding serialized JSON itself).
// Malformed input yields "".
func ExtractPlainText(tree any) string {
	switch v := tree.(type) {
	case nil:
		return ""
	case map[string]any:
		return extractFromRoot(v)
	case json.RawMessage:
		return ExtractFromJSON(v)
	case []byte:
		return ExtractFromJSON(v)
	case string:
		return ExtractFromJSON([]byte(v))
	default:
		return ""
	}
}

// ExtractFromJSON decodes raw and extracts its plain text. A JSON string whose
// value is itself serialized JSON is decoded once more.
func ExtractFromJSON(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var decoded any
	if err := sonic.Unmarshal(raw, &decoded); err != nil {
		return ""
	}
	switch v := decoded.(type) {
	case map[string]any:
		return extractFromRoot(v)
	case string:
		var inner map[string]any
		if err := sonic.UnmarshalString(v, &inner); err != nil {
			return ""
		}
		return extractFromRoot(inner)
	default:
		return ""
	}
}

// Signature is ExtractFromJSON under the name the change detector uses
func Signature(raw []byte) string {
	return ExtractFromJSON(raw)
}

func extractFromRoot(doc map[string]any) string {
	root, ok := doc["root"].(map[string]any)
	if !ok {
		return ""
	}
	children, ok := root["children"].([]any)
	if !ok {
		return ""
	}
	return walk(children)
}

// walk visits nodes pre-order with an explicit stack, so nesting depth is unbounded.
// Any node carrying a string "text" field counts, whatever its "type".
// walk 使用显式栈前序遍历，嵌套深度不受限制；任何带字符串 "text" 字段的节点都计入，不论其 "type"
func walk(children []any) string {
	var b strings.Builder
	stack := make([]any, 0, len(children))
	for i := len(children) - 1; i >= 0; i-- {
		stack = append(stack, children[i])
	}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n, ok := node.(map[string]any)
		if !ok {
			continue
		}
		if text, ok := n["text"].(string); ok {
			b.WriteString(text)
		}
		kids, ok := n["children"].([]any)
		if !ok {
			continue
		}
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	return b.String()
}

// Normalize returns the document bytes to persist. Objects are kept verbatim;
// a JSON string holding a serialized document is unwrapped so both save paths
// store the same shape. ok is false for empty, null or invalid JSON.
func Normalize(raw []byte) (out []byte, ok bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, false
	}
	var decoded any
	if err := sonic.UnmarshalString(trimmed, &decoded); err != nil || decoded == nil {
		return nil, false
	}
	if s, isString := decoded.(string); isString {
		var inner any
		if err := sonic.UnmarshalString(s, &inner); err != nil || inner == nil {
			return nil, false
		}
		return []byte(strings.TrimSpace(s)), true
	}
	return []byte(trimmed), true
}
