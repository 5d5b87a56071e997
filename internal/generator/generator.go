package generator

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"

	"lickey/internal/infrastructure"
	"lickey/internal/license"
)

// LicenseFileExt is the extension of batch output files.
const LicenseFileExt = ".lic"

// Generator writes signed license files.
type Generator struct {
	codec    *license.Codec
	fs       afero.Fs
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithFs sets the filesystem for input and output files.
func WithFs(fs afero.Fs) Option {
	return func(g *Generator) { g.fs = fs }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// WithClock sets the clock that supplies the issue date.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New returns a generator that signs with codec.
func New(codec *license.Codec, opts ...Option) (*Generator, error) {
	if codec == nil {
		return nil, errors.New("codec is required")
	}
	g := &Generator{
		codec:    codec,
		fs:       afero.NewOsFs(),
		logger:   slog.Default(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = infrastructure.WithComponent(g.logger, "generator")
	return g, nil
}

// BatchResult describes a file written by Batch.
type BatchResult struct {
	Path        string
	Vendor      string
	Application string
	HardwareKey license.HardwareKey
	Issued      license.Date
	Expires     license.Date
	Features    []license.Feature
}

// Batch reads the document at input and writes
// {outputDir}/{base}.{hardwareKey}.{expire}.lic, base being the input file
// name without extension. Every feature is issued today and expires on expire.
func (g *Generator) Batch(input, expire, outputDir string) (*BatchResult, error) {
	expires, err := license.ParseDate(expire)
	if err != nil {
		return nil, fmt.Errorf("invalid expire date %q: %w", expire, err)
	}

	doc, err := ReadDocument(g.fs, input, g.validate)
	if err != nil {
		return nil, err
	}
	key, err := license.ParseHardwareKey(doc.MAC)
	if err != nil {
		return nil, fmt.Errorf("invalid mac %q: %w", doc.MAC, err)
	}

	mgr, err := license.NewManager(doc.VendorName, doc.AppName, g.codec, license.WithFs(g.fs))
	if err != nil {
		return nil, err
	}

	issued := license.DateOf(g.now())
	lic := license.NewLicense()
	for _, f := range doc.Features {
		if err := mgr.Add(f.Name, f.Version, issued, expires.String(), f.NumLics, lic); err != nil {
			return nil, fmt.Errorf("failed to add feature name=%s, version=%s, num_lics=%d: %w", f.Name, f.Version, f.NumLics, err)
		}
		g.logger.Debug("feature added",
			slog.String("feature", license.NormalizeFeatureName(f.Name)),
			slog.String("version", f.Version),
			slog.Uint64("num_lics", uint64(f.NumLics)))
	}

	if err := g.fs.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	out := filepath.Join(outputDir, fmt.Sprintf("%s.%s.%s%s", base, key, expires, LicenseFileExt))
	if err := mgr.Save(out, key, lic); err != nil {
		return nil, err
	}

	g.logger.Info("license written",
		slog.String("path", out),
		slog.String("identity", mgr.Identity()),
		slog.String("hardware_key", key.String()),
		slog.Int("features", lic.Features().Len()))

	return &BatchResult{
		Path:        out,
		Vendor:      mgr.Vendor(),
		Application: mgr.Application(),
		HardwareKey: key,
		Issued:      issued,
		Expires:     expires,
		Features:    lic.Features().Features(),
	}, nil
}
