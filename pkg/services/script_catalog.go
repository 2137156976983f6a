package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/models"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/sql"
)

// ScriptExtension is the file extension of catalog scripts.
const ScriptExtension = ".sql"

// ScriptCatalog lists and analyzes the scripts in the configured folder.
type ScriptCatalog interface {
	List(ctx context.Context) ([]string, error)
	Analyze(ctx context.Context, name string) (*models.QueryInfo, error)
	AnalyzeAll(ctx context.Context) ([]*models.QueryInfo, error)
}

type scriptCatalog struct {
	dir    string
	logger *zap.Logger
}

// NewScriptCatalog creates a catalog over dir. The folder is read on every
// call, so scripts can be added or edited while the server runs.
func NewScriptCatalog(dir string, logger *zap.Logger) ScriptCatalog {
	return &scriptCatalog{
		dir:    dir,
		logger: logger.Named("script-catalog"),
	}
}

var _ ScriptCatalog = (*scriptCatalog)(nil)

// List returns the sorted file names of all scripts. A missing folder is an
// empty catalog, not an error.
func (c *scriptCatalog) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("Script folder does not exist", zap.String("dir", c.dir))
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read script folder: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ScriptExtension) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Analyze reads one script and returns its parameters and executable text.
// Names that are not plain file names inside the folder report ErrNotFound.
func (c *scriptCatalog) Analyze(ctx context.Context, name string) (*models.QueryInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, ok := c.resolve(name)
	if !ok {
		return nil, fmt.Errorf("script %q: %w", name, apperrors.ErrNotFound)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("script %q: %w", name, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read script %q: %w", name, err)
	}

	text, err := decodeScript(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode script %q: %w", name, err)
	}

	info := &models.QueryInfo{
		FileName:           name,
		FullPath:           path,
		Parameters:         sql.ParseScript(text),
		SQLContent:         text,
		SQLWithoutDeclares: sql.RemoveDeclareBlock(text),
		Warnings:           sql.Lint(text),
	}

	if len(info.Warnings) > 0 {
		c.logger.Debug("Script has warnings",
			zap.String("file", name),
			zap.Strings("warnings", info.Warnings))
	}
	return info, nil
}

// AnalyzeAll analyzes every script concurrently. Results follow List order.
func (c *scriptCatalog) AnalyzeAll(ctx context.Context) ([]*models.QueryInfo, error) {
	names, err := c.List(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*models.QueryInfo, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, name := range names {
		g.Go(func() error {
			info, err := c.Analyze(gctx, name)
			if err != nil {
				return err
			}
			results[i] = info
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// resolve maps a script name to a path inside the folder.
func (c *scriptCatalog) resolve(name string) (string, bool) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", false
	}
	if !strings.EqualFold(filepath.Ext(name), ScriptExtension) {
		return "", false
	}
	return filepath.Join(c.dir, name), true
}

// decodeScript returns the script as UTF-8. A byte order mark selects UTF-16
// (the SQL Server Management Studio default) or is dropped for UTF-8.
func decodeScript(raw []byte) (string, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
