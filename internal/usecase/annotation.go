package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"PaperIngest/internal/domain"
)

var errNoTopic = errors.New("annotation has no topic")

type rawAnnotation struct {
	Topic        string          `json:"topic"`
	Findings     json.RawMessage `json:"findings"`
	Methodology  string          `json:"methodology"`
	Significance string          `json:"significance"`
	Keywords     json.RawMessage `json:"keywords"`
}

// ParseAnnotation decodes the model answer. Code fences around the JSON are
// ignored and list fields may be given as a single string.
func ParseAnnotation(raw string) (domain.Annotation, error) {
	text := stripFences(raw)
	if text == "" {
		return domain.Annotation{}, errors.New("empty answer")
	}
	if start, end := strings.IndexByte(text, '{'), strings.LastIndexByte(text, '}'); start >= 0 && end > start {
		text = text[start : end+1]
	}

	var parsed rawAnnotation
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return domain.Annotation{}, fmt.Errorf("decode annotation: %w", err)
	}
	if strings.TrimSpace(parsed.Topic) == "" {
		return domain.Annotation{}, errNoTopic
	}

	findings, err := stringList(parsed.Findings, false)
	if err != nil {
		return domain.Annotation{}, fmt.Errorf("findings: %w", err)
	}
	keywords, err := stringList(parsed.Keywords, true)
	if err != nil {
		return domain.Annotation{}, fmt.Errorf("keywords: %w", err)
	}

	return domain.Annotation{
		Topic:        strings.TrimSpace(parsed.Topic),
		Findings:     findings,
		Methodology:  strings.TrimSpace(parsed.Methodology),
		Significance: strings.TrimSpace(parsed.Significance),
		Keywords:     keywords,
	}, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// stringList accepts a JSON array or a single string; with splitCommas a
// single string is treated as a comma separated list.
func stringList(raw json.RawMessage, splitCommas bool) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return compact(list), nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, err
	}
	if strings.TrimSpace(single) == "" {
		return nil, nil
	}
	if splitCommas {
		return compact(strings.Split(single, ",")), nil
	}
	return []string{strings.TrimSpace(single)}, nil
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
