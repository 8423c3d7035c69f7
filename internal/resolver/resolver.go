// Package resolver orchestrates a configuration resolution: it builds the
// precedence chain for a scope, materializes the remote tree, parses every
// matching file and folds the layers into one document.
package resolver

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eugenenazirov/config-server/internal/format"
	"github.com/eugenenazirov/config-server/internal/merge"
	"github.com/eugenenazirov/config-server/internal/pattern"
	"github.com/eugenenazirov/config-server/internal/source"
)

const parseConcurrency = 8

// Service resolves configuration for (application, label) scopes against
// one remote tree.
type Service struct {
	materializer source.Materializer
	remote       source.Descriptor
	format       format.Format
	logger       *zap.Logger
}

// New creates a Service. The remote descriptor is fixed for the lifetime
// of the Service.
func New(materializer source.Materializer, remote source.Descriptor, f format.Format, logger *zap.Logger) *Service {
	return &Service{
		materializer: materializer,
		remote:       remote,
		format:       f,
		logger:       logger,
	}
}

// Remote returns the descriptor of the tree this Service reads.
func (s *Service) Remote() source.Descriptor {
	return s.remote
}

// Resolve returns the merged configuration for application and label.
// Any failure aborts the resolution; no partial document is returned.
func (s *Service) Resolve(ctx context.Context, application, label string) (merge.Resolved, error) {
	chain, err := pattern.Resolve(application, label, s.format)
	if err != nil {
		return nil, fmt.Errorf("resolve %q/%q: %w", application, label, err)
	}

	layers, err := s.load(ctx, chain)
	if err != nil {
		return nil, fmt.Errorf("resolve %q/%q: %w", application, label, err)
	}

	resolved := merge.Merge(layers)
	s.logger.Debug("configuration resolved",
		zap.String("application", application),
		zap.String("label", label),
		zap.Int("files", countPresent(layers)),
		zap.Int("keys", len(resolved)),
	)
	return resolved, nil
}

// Bootstrap materializes the remote tree and folds every top-level file
// of the configured format, in name order, on top of the GIT_* environment
// view. It is run once at start to verify the remote is usable; failures
// are logged and returned, never fatal.
func (s *Service) Bootstrap(ctx context.Context) (merge.Resolved, error) {
	start := time.Now()
	chain := pattern.Chain{{Pattern: "*." + s.format.Extension(), Format: s.format}}

	layers, err := s.load(ctx, chain)
	if err != nil {
		s.logger.Error("config error",
			zap.Stringer("source", s.remote),
			zap.Error(err),
		)
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	base := merge.Layer{Tree: environmentTree(s.remote)}
	resolved := merge.Merge(append([]merge.Layer{base}, layers...))
	s.logger.Info("configuration loaded",
		zap.Stringer("source", s.remote),
		zap.Int("files", countPresent(layers)),
		zap.Int("keys", len(resolved)),
		zap.Duration("duration", time.Since(start)),
	)
	return resolved, nil
}

// load materializes the tree and returns one layer per matching file,
// grouped by chain entry in chain order. Entries without matches yield a
// single absent layer.
func (s *Service) load(ctx context.Context, chain pattern.Chain) ([]merge.Layer, error) {
	files, err := s.materializer.Materialize(ctx, s.remote)
	if err != nil {
		return nil, err
	}
	defer files.Close()

	var layers []merge.Layer
	for _, entry := range chain {
		matches, err := files.Glob(entry.Pattern)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			layers = append(layers, merge.Layer{Entry: entry})
			continue
		}
		for _, match := range matches {
			layers = append(layers, merge.Layer{Entry: entry, File: match})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parseConcurrency)
	for i := range layers {
		layer := &layers[i]
		if layer.File == "" {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := files.ReadFile(layer.File)
			if err != nil {
				return fmt.Errorf("%w: read %s: %v", source.ErrSourceCorrupt, layer.File, err)
			}
			tree, err := format.Parse(layer.Entry.Format, data)
			if err != nil {
				return fmt.Errorf("%s: %w", layer.File, err)
			}
			layer.Tree = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return layers, nil
}

// environmentTree is the GIT_* view the remote descriptor was built from.
// The password never enters the tree and the URL is redacted.
func environmentTree(d source.Descriptor) format.Tree {
	tree := format.Tree{
		"GIT_URL":    d.RedactedURL(),
		"GIT_BRANCH": d.Branch,
	}
	if d.User != "" {
		tree["GIT_USER"] = d.User
	}
	return tree
}

func countPresent(layers []merge.Layer) int {
	n := 0
	for _, layer := range layers {
		if layer.Present() {
			n++
		}
	}
	return n
}
