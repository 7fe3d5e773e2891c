package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/FACorreiaa/venue-sales-report/internal/domain/import/parser"
	"github.com/FACorreiaa/venue-sales-report/internal/domain/import/service"
	"github.com/FACorreiaa/venue-sales-report/pkg/storage"
)

// CacheCollection names the stored copies of the sheet.
const CacheCollection = "sales-source"

// Loader fetches the configured sheet and normalizes it into a snapshot.
type Loader struct {
	url        string
	fetcher    *Fetcher
	normalizer *service.Normalizer
	cache      storage.Storage
	keep       int
	logger     *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithCache stores every good download and falls back to the newest stored
// copy when fetching fails. keep bounds how many copies are retained.
func WithCache(store storage.Storage, keep int) LoaderOption {
	return func(l *Loader) {
		l.cache = store
		l.keep = keep
	}
}

// NewLoader creates a loader for url.
func NewLoader(url string, fetcher *Fetcher, normalizer *service.Normalizer, logger *slog.Logger, opts ...LoaderOption) *Loader {
	l := &Loader{
		url:        url,
		fetcher:    fetcher,
		normalizer: normalizer,
		keep:       5,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Reload downloads the sheet and builds a fresh snapshot.
func (l *Loader) Reload(ctx context.Context) (*service.Snapshot, error) {
	doc, err := l.fetcher.Fetch(ctx, l.url)
	if err != nil {
		cached, cacheErr := l.cached(ctx)
		if cacheErr != nil {
			return nil, err
		}
		l.logger.Warn("using cached sales sheet",
			slog.Time("stored_at", cached.info.CreatedAt),
			slog.Any("error", err),
		)
		doc = cached.doc
	}

	snap, err := l.LoadBytes(ctx, doc.Body, doc.ContentType)
	if err != nil {
		return nil, err
	}

	if !doc.FromCache {
		l.store(ctx, doc)
	}
	return snap, nil
}

// LoadBytes normalizes an already retrieved payload.
func (l *Loader) LoadBytes(ctx context.Context, data []byte, contentType string) (*service.Snapshot, error) {
	table, err := parser.Read(data, parser.DetectFormat(data, contentType))
	if err != nil {
		return nil, fmt.Errorf("failed to read sales sheet: %w", err)
	}
	return l.normalizer.LoadTable(ctx, table)
}

type cachedDoc struct {
	doc  *Document
	info *storage.FileInfo
}

func (l *Loader) cached(ctx context.Context) (*cachedDoc, error) {
	if l.cache == nil {
		return nil, errors.New("no cache configured")
	}
	rc, info, err := l.cache.Latest(ctx, CacheCollection)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached sheet: %w", err)
	}
	return &cachedDoc{
		doc:  &Document{URL: l.url, ContentType: info.ContentType, Body: body, FromCache: true},
		info: info,
	}, nil
}

func (l *Loader) store(ctx context.Context, doc *Document) {
	if l.cache == nil {
		return
	}
	if _, err := l.cache.Save(ctx, CacheCollection, doc.ContentType, bytes.NewReader(doc.Body)); err != nil {
		l.logger.Warn("failed to cache sales sheet", slog.Any("error", err))
		return
	}
	if err := l.cache.Prune(ctx, CacheCollection, l.keep); err != nil {
		l.logger.Warn("failed to prune cached sheets", slog.Any("error", err))
	}
}
