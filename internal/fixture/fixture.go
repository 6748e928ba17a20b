package fixture

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"surveyseed/internal/catalog"
	"surveyseed/internal/domain"
)

const (
	PublicDir = "public"
	FileName  = "db.json"
)

// Candidates returns the directories probed for a public/ folder, nearest
// first: startDir, its parent and its grandparent. The search never goes
// further up.
func Candidates(startDir string) []string {
	here := filepath.Clean(startDir)
	parent := filepath.Dir(here)
	return []string{here, parent, filepath.Dir(parent)}
}

// ResolveOutputRoot picks the first candidate holding a public/ directory,
// falling back to startDir itself.
func ResolveOutputRoot(startDir string) string {
	root, _ := resolve(startDir, zap.NewNop())
	return root
}

func resolve(startDir string, log *zap.Logger) (string, bool) {
	for _, base := range Candidates(startDir) {
		ok := isDir(filepath.Join(base, PublicDir))
		log.Debug("probe output root", zap.String("dir", base), zap.Bool("has_public", ok))
		if ok {
			return base, true
		}
	}
	return filepath.Clean(startDir), false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// BuildDocument stamps every definition with the same generation time.
// Survey, item and option order follow defs.
func BuildDocument(defs []catalog.Definition, nowMillis int64) domain.Document {
	doc := domain.Document{
		Users:   []domain.User{},
		Surveys: make([]domain.Survey, 0, len(defs)),
	}
	for _, d := range defs {
		items := make([]domain.Question, len(d.Items))
		for i, it := range d.Items {
			opts := make([]string, len(it.Options))
			copy(opts, it.Options)
			items[i] = domain.Question{Prompt: it.Prompt, Options: opts}
		}
		doc.Surveys = append(doc.Surveys, domain.Survey{
			ID:          d.ID,
			Name:        d.Name,
			Description: d.Description,
			Payout:      d.Payout,
			Currency:    d.Currency,
			Premium:     d.Premium,
			Status:      d.Status,
			Items:       items,
			CreatedAt:   nowMillis,
			UpdatedAt:   nowMillis,
		})
	}
	return doc
}

// Encode writes doc as two-space indented JSON. Non-ASCII text and <, >, &
// are written literally.
func Encode(w io.Writer, doc domain.Document) error {
	if doc.Users == nil {
		doc.Users = []domain.User{}
	}
	if doc.Surveys == nil {
		doc.Surveys = []domain.Survey{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// WriteDocument creates baseDir/public if needed and replaces
// baseDir/public/db.json with doc. It returns the written path.
func WriteDocument(doc domain.Document, baseDir string) (string, error) {
	dir := filepath.Join(baseDir, PublicDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// Result describes one generation run.
type Result struct {
	Root        string `json:"root"`
	Path        string `json:"path"`
	Surveys     int    `json:"surveys"`
	GeneratedAt int64  `json:"generated_at"`
	Fallback    bool   `json:"fallback"`
}

// Builder runs resolve, build and write against one catalog.
type Builder struct {
	Catalog *catalog.Catalog
	Now     func() time.Time
	Out     io.Writer
	Log     *zap.Logger
}

func New(c *catalog.Catalog, log *zap.Logger) Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return Builder{Catalog: c, Now: time.Now, Out: os.Stdout, Log: log}
}

// Run captures the clock once, then resolves the output root from startDir,
// builds the document and writes it. The confirmation line goes to Out.
func (b Builder) Run(startDir string) (Result, error) {
	if b.Now == nil {
		b.Now = time.Now
	}
	if b.Out == nil {
		b.Out = os.Stdout
	}
	if b.Log == nil {
		b.Log = zap.NewNop()
	}
	if b.Catalog == nil {
		return Result{}, fmt.Errorf("no catalog loaded")
	}
	nowMillis := b.Now().UnixMilli()

	abs, err := filepath.Abs(startDir)
	if err != nil {
		return Result{}, fmt.Errorf("resolve start dir: %w", err)
	}
	root, found := resolve(abs, b.Log)
	if !found {
		b.Log.Debug("no public dir within two levels, using start dir", zap.String("dir", root))
	}
	b.Log.Info("output root resolved", zap.String("root", root), zap.Bool("fallback", !found))

	doc := BuildDocument(b.Catalog.Surveys, nowMillis)
	path, err := WriteDocument(doc, root)
	if err != nil {
		return Result{}, err
	}
	b.Log.Info("fixture written", zap.String("path", path), zap.Int("surveys", len(doc.Surveys)), zap.Int64("generated_at", nowMillis))
	if _, err := fmt.Fprintf(b.Out, "✓ Wrote %s with %d surveys\n", path, len(doc.Surveys)); err != nil {
		return Result{}, err
	}
	return Result{
		Root:        root,
		Path:        path,
		Surveys:     len(doc.Surveys),
		GeneratedAt: nowMillis,
		Fallback:    !found,
	}, nil
}
