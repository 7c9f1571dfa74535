package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
)

type storedReport struct {
	contentType string
	body        []byte
}

// ReportBucket keeps uploaded reports in process memory.
type ReportBucket struct {
	mu      sync.RWMutex
	objects map[string]storedReport
}

func NewReportBucket() *ReportBucket {
	return &ReportBucket{objects: make(map[string]storedReport)}
}

func (b *ReportBucket) Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
	if key == "" {
		return "", errors.New("memory: report key required")
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	b.objects[key] = storedReport{contentType: contentType, body: body}
	b.mu.Unlock()
	return "memory://reports/" + key, nil
}

// Open returns a stored report and its content type.
func (b *ReportBucket) Open(key string) (io.Reader, string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	obj, ok := b.objects[key]
	if !ok {
		return nil, "", false
	}
	return bytes.NewReader(obj.body), obj.contentType, true
}
