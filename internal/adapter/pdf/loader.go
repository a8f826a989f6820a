// Package pdf loads PDF files from a directory into one document per page.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"

	"ragchat/internal/domain"
	"ragchat/internal/logger"
	"ragchat/internal/port"
)

var _ port.DocumentLoader = (*Loader)(nil)

type Loader struct {
	walker      port.FileWalker
	extractor   port.PageExtractor
	skipInvalid bool
}

// NewLoader creates a loader. With skipInvalid set, files that fail to parse
// are logged and skipped; otherwise the first failure aborts the whole batch.
func NewLoader(walker port.FileWalker, extractor port.PageExtractor, skipInvalid bool) *Loader {
	return &Loader{
		walker:      walker,
		extractor:   extractor,
		skipInvalid: skipInvalid,
	}
}

// Load reads every matching file under dir. It returns an error wrapping
// domain.ErrNotFound when dir is missing and an empty slice when no file matches.
func (l *Loader) Load(ctx context.Context, dir string) ([]domain.Document, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("data path %s: %w", dir, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: stat %s: %w", domain.ErrIngestion, dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data path %s is not a directory: %w", dir, domain.ErrNotFound)
	}

	logger.Info("loading files", "dir", dir)

	files, err := l.walker.Walk(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: walk %s: %w", domain.ErrIngestion, dir, err)
	}

	docs := []domain.Document{}
	if len(files) == 0 {
		logger.Warn("no pdfs were found", "dir", dir)
		return docs, nil
	}

	skipped := 0
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pages, err := l.extractor.ExtractPages(file.Path)
		if err != nil {
			if l.skipInvalid {
				logger.Warn("skipping unreadable file", "path", file.Path, "err", err)
				skipped++
				continue
			}
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrIngestion, file.Path, err)
		}

		for i, text := range pages {
			docs = append(docs, domain.Document{
				Source: file.Path,
				Page:   i + 1,
				Text:   text,
			})
		}
		logger.Debug("loaded file", "path", file.Path, "pages", len(pages))
	}

	logger.Info("fetched documents", "files", len(files)-skipped, "skipped", skipped, "pages", len(docs))
	return docs, nil
}
