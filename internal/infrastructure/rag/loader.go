package rag

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"strings"

	"chainforge/internal/domain/entity"
)

const defaultMaxBodyBytes = 10 << 20

type Loader struct {
	client       *http.Client
	maxBodyBytes int64
}

func NewLoader(client *http.Client) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Loader{client: client, maxBodyBytes: defaultMaxBodyBytes}
}

func (l *Loader) FromString(content, source string) *entity.Document {
	return entity.NewDocument(content, source)
}

func (l *Loader) FromFile(path string) (*entity.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	content := string(data)
	if strings.HasSuffix(strings.ToLower(path), ".html") || strings.HasSuffix(strings.ToLower(path), ".htm") {
		content = ExtractText(content, nil)
	}
	return entity.NewDocument(content, path), nil
}

// FromURL fetches url and keeps only the visible text of HTML responses.
func (l *Loader) FromURL(ctx context.Context, url string) (*entity.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}

	content := string(data)
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "text/html" || mediaType == "application/xhtml+xml" {
		content = ExtractText(content, nil)
	}

	doc := entity.NewDocument(content, url)
	doc.Metadata["content_type"] = mediaType
	return doc, nil
}
