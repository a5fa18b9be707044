package storage

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"PaperIngest/internal/domain"
)

const jsonContentType = "application/json"

// blobPayload is what a blob sink stores: the downloaded document when the
// record carries one, otherwise the record as JSON.
func blobPayload(r domain.Record) ([]byte, string, error) {
	if len(r.Content) > 0 {
		ct := r.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		return r.Content, ct, nil
	}
	body, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("encode record: %w", err)
	}
	return body, jsonContentType, nil
}

// blobSidecar returns the JSON record stored next to a downloaded document
// so its annotation is kept. ok is false when there is no document or no
// annotation to keep.
func blobSidecar(key string, r domain.Record) (name string, body []byte, ok bool, err error) {
	if len(r.Content) == 0 || !r.Annotated() {
		return "", nil, false, nil
	}
	body, err = json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", nil, false, fmt.Errorf("encode record: %w", err)
	}
	return sidecarKey(key), body, true, nil
}

func sidecarKey(key string) string {
	if strings.HasSuffix(key, ".json") {
		return key + ".json"
	}
	return strings.TrimSuffix(key, path.Ext(key)) + ".json"
}

func parseISO(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse processed_at: %w", err)
	}
	return t, nil
}
