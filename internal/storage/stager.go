package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/cliprelay/relay-server-go/internal/errors"
)

const stagedSuffix = ".part"

// StagedFile is a fully materialized local copy of an asset.
type StagedFile struct {
	Path string
	Size int64
}

// Stager writes asset streams to uniquely named files under one directory.
type Stager struct {
	dir string
}

func NewStager(dir string) (*Stager, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &Stager{dir: dir}, nil
}

func (s *Stager) Dir() string {
	return s.dir
}

// Stage copies r to disk. On any error the partial file is removed before
// returning.
func (s *Stager) Stage(ctx context.Context, assetID string, r io.Reader) (*StagedFile, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("%s-%s%s", assetID, uuid.NewString(), stagedSuffix))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, apperrors.Internal("failed to create staging file").WithCause(err)
	}

	n, copyErr := io.Copy(f, &ctxReader{ctx: ctx, r: r})
	closeErr := f.Close()

	if copyErr != nil {
		s.Remove(path)
		return nil, classifyFetchError(copyErr)
	}
	if closeErr != nil {
		s.Remove(path)
		return nil, apperrors.Internal("failed to write staging file").WithCause(closeErr)
	}

	return &StagedFile{Path: path, Size: n}, nil
}

func (s *Stager) Remove(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", path).Msg("failed to remove staged file")
	}
}

// Sweep deletes staged files older than maxAge. Only files left behind by a
// crashed process should ever match.
func (s *Stager) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), stagedSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// ctxReader stops a copy as soon as ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
