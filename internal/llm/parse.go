package llm

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/fleveque/citysnap-gateway/internal/model"
)

var llmYearPattern = regexp.MustCompile(`1[0-9]{3}|20[0-9]{2}`)

// Whole-value answers meaning "don't know", compared lowercased.
var unknownSentinels = map[string]struct{}{
	"unknown":          {},
	"неизвестно":       {},
	"не удалось найти": {},
	"not found":        {},
	"n/a":              {},
}

// parseResponse normalises a raw model reply. Replies that are not a JSON
// object yield nil; that is an empty answer, not a failure.
func parseResponse(raw string) *model.LLMQueryResult {
	payload := extractJSON(raw)
	if payload == "" || !gjson.Valid(payload) {
		return nil
	}

	obj := gjson.Parse(payload)
	if !obj.IsObject() {
		return nil
	}

	return &model.LLMQueryResult{
		YearBuilt: normalizeYear(obj.Get("year")),
		Architect: normalizeString(obj.Get("architect")),
		History:   normalizeString(obj.Get("history")),
		Sources:   normalizeSources(obj.Get("sources")),
	}
}

// extractJSON trims markdown fences and surrounding prose some models add
// despite being asked for bare JSON.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

func normalizeYear(v gjson.Result) *int {
	switch v.Type {
	case gjson.Number:
		return model.IntPtr(int(v.Num))
	case gjson.String:
		lowered := strings.ToLower(strings.TrimSpace(v.Str))
		if lowered == "" || strings.Contains(lowered, "unknown") || strings.Contains(lowered, "неизвестно") {
			return nil
		}
		m := llmYearPattern.FindString(lowered)
		if m == "" {
			return nil
		}
		year, err := strconv.Atoi(m)
		if err != nil {
			return nil
		}
		return model.IntPtr(year)
	default:
		return nil
	}
}

func normalizeString(v gjson.Result) *string {
	if v.Type != gjson.String {
		return nil
	}
	s := strings.TrimSpace(v.Str)
	if _, unknown := unknownSentinels[strings.ToLower(s)]; unknown {
		return nil
	}
	return model.StringPtr(s)
}

func normalizeSources(v gjson.Result) []string {
	if !v.IsArray() {
		return nil
	}
	var out []string
	for _, item := range v.Array() {
		if item.Type != gjson.String {
			continue
		}
		if s := strings.TrimSpace(item.Str); s != "" {
			out = append(out, s)
		}
	}
	return out
}
