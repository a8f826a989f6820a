package port

import (
	"context"

	"ragchat/internal/domain"
)

// DocumentLoader reads every matching file under a directory into page documents.
type DocumentLoader interface {
	Load(ctx context.Context, dir string) ([]domain.Document, error)
}

type FileWalker interface {
	Walk(root string) ([]FileInfo, error)
}

type FileInfo struct {
	Path    string
	ModTime int64
	Size    int64
}

// PageExtractor returns the plain text of every page of one file, in order.
type PageExtractor interface {
	ExtractPages(path string) ([]string, error)
}
