package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"surveyseed/internal/catalog"
	"surveyseed/internal/fixture"
)

// Options carries what the CLI resolved from flags and environment.
type Options struct {
	StartDir    string
	CatalogPath string
	Out         io.Writer
	Log         *zap.Logger
	Now         func() time.Time
}

// ResolveStartDir returns dir, or the working directory when dir is empty.
func ResolveStartDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("working directory: %w", err)
	}
	return wd, nil
}

// LoadCatalog loads the catalog at path (embedded when empty) and logs its
// source and shape warnings.
func LoadCatalog(path string, log *zap.Logger) (*catalog.Catalog, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	source := path
	if source == "" {
		source = "embedded"
	}
	log.Debug("catalog loaded", zap.String("source", source), zap.Int("surveys", len(c.Surveys)))
	for _, w := range c.Warnings() {
		log.Warn("catalog shape", zap.String("detail", w))
	}
	return c, nil
}

// Generate runs one generation: load catalog, resolve the output root from
// the start dir, build and write public/db.json.
func Generate(opts Options) (fixture.Result, error) {
	start, err := ResolveStartDir(opts.StartDir)
	if err != nil {
		return fixture.Result{}, err
	}
	c, err := LoadCatalog(opts.CatalogPath, opts.Log)
	if err != nil {
		return fixture.Result{}, err
	}
	b := fixture.New(c, opts.Log)
	if opts.Now != nil {
		b.Now = opts.Now
	}
	if opts.Out != nil {
		b.Out = opts.Out
	}
	return b.Run(start)
}
