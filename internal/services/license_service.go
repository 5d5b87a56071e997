package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"lickey/internal/infrastructure"
	"lickey/internal/license"
	"lickey/pkg/contracts/domain"
)

// LicenseFileExt is the extension scanned for in the license directory.
const LicenseFileExt = ".lic"

const startupLoadConcurrency = 4

// LicenseService is the verifier side of the license engine: it loads signed
// license files bound to this device and answers feature queries.
type LicenseService interface {
	// LoadFile verifies path and caches its license. When vendor and
	// application are non-empty the file must have been issued for them.
	LoadFile(ctx context.Context, path, vendor, application string) (*domain.LoadResult, error)
	// LoadStartup loads every configured file and every license in the
	// license directory. Failures are logged and returned joined; the
	// licenses that verified are cached regardless.
	LoadStartup(ctx context.Context) ([]domain.LoadResult, error)
	Verify(ctx context.Context, vendor, application, feature string, minVersion license.FeatureVersion) (*domain.VerifyResult, error)
	List(ctx context.Context) []domain.LicenseSummary
	Status(ctx context.Context) (*domain.LoaderStatus, error)
}

// HardwareKeySource yields the candidate hardware keys of this device.
type HardwareKeySource interface {
	Keys() ([]license.HardwareKey, error)
}

// LicenseServiceConfig holds the dependencies of the license service.
type LicenseServiceConfig struct {
	Codec  *license.Codec
	Loader *license.Loader
	Keys   HardwareKeySource
	Fs     afero.Fs
	// Dir is scanned for *.lic files at startup. Empty disables the scan.
	Dir string
	// Files are loaded at startup before the directory scan.
	Files  []string
	Tracer trace.Tracer
	Meter  metric.Meter
	Logger *slog.Logger
	// Now defaults to time.Now and must match the loader's clock.
	Now func() time.Time
}

type loadInfo struct {
	source   string
	loadedAt time.Time
}

type openedLicense struct {
	identity string
	source   string
	lic      *license.License
}

type licenseService struct {
	codec   *license.Codec
	loader  *license.Loader
	keys    HardwareKeySource
	fs      afero.Fs
	dir     string
	files   []string
	tracer  trace.Tracer
	metrics *LicenseMetrics
	logger  *slog.Logger
	now     func() time.Time
	group   singleflight.Group

	mu      sync.RWMutex
	sources map[string]loadInfo
}

// NewLicenseService validates cfg and returns the service.
func NewLicenseService(cfg LicenseServiceConfig) (LicenseService, error) {
	if cfg.Codec == nil || cfg.Loader == nil || cfg.Keys == nil {
		return nil, errors.New("license service requires a codec, a loader and a hardware key source")
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &licenseService{
		codec:   cfg.Codec,
		loader:  cfg.Loader,
		keys:    cfg.Keys,
		fs:      cfg.Fs,
		dir:     cfg.Dir,
		files:   append([]string(nil), cfg.Files...),
		tracer:  cfg.Tracer,
		logger:  cfg.Logger.With(slog.String("service", "license")),
		now:     cfg.Now,
		sources: make(map[string]loadInfo),
	}

	if s.tracer == nil {
		s.tracer = tracenoop.NewTracerProvider().Tracer(infrastructure.InstrumentationName)
	}
	if cfg.Meter != nil {
		metrics, err := NewLicenseMetrics(cfg.Meter, cfg.Loader)
		if err != nil {
			return nil, fmt.Errorf("failed to create license metrics: %w", err)
		}
		s.metrics = metrics
	}
	return s, nil
}

func (s *licenseService) LoadFile(ctx context.Context, path, vendor, application string) (*domain.LoadResult, error) {
	ctx, span := s.tracer.Start(ctx, "license.load", trace.WithAttributes(attribute.String("license.path", path)))
	defer span.End()
	logger := s.logger.With(infrastructure.TraceIDKey, infrastructure.GetTraceID(ctx))

	start := time.Now()
	key := filepath.Clean(path) + "\x00" + vendor + "\x00" + application
	v, err, shared := s.group.Do(key, func() (interface{}, error) {
		opened, err := s.open(ctx, path, vendor, application)
		if err != nil {
			return nil, err
		}
		return s.store(opened), nil
	})
	s.metrics.recordLoad(ctx, time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "license load failed")
		logger.WarnContext(ctx, "license load failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, err
	}

	result := v.(domain.LoadResult)
	span.SetAttributes(attribute.String("license.identity", result.Identity))
	logger.InfoContext(ctx, "license loaded",
		slog.String("path", path),
		slog.String("identity", result.Identity),
		slog.Int("features", result.Features),
		slog.Bool("shared", shared))
	return &result, nil
}

func (s *licenseService) LoadStartup(ctx context.Context) ([]domain.LoadResult, error) {
	ctx, span := s.tracer.Start(ctx, "license.load_startup")
	defer span.End()

	paths, err := s.startupPaths()
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	if len(paths) == 0 {
		s.logger.WarnContext(ctx, "no license files to load",
			slog.String("dir", s.dir))
		return nil, nil
	}

	opened := make([]*openedLicense, len(paths))
	failures := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(startupLoadConcurrency)
	for i, path := range paths {
		g.Go(func() error {
			start := time.Now()
			o, err := s.open(gctx, path, "", "")
			s.metrics.recordLoad(gctx, time.Since(start), err)
			if err != nil {
				failures[i] = fmt.Errorf("%s: %w", path, err)
				return nil
			}
			opened[i] = o
			return nil
		})
	}
	_ = g.Wait()

	// Stored in path order so that a later file for the same identity wins
	// deterministically.
	var results []domain.LoadResult
	seen := make(map[string]string)
	for i, o := range opened {
		if o == nil {
			s.logger.WarnContext(ctx, "license skipped",
				slog.String("path", paths[i]),
				slog.String("error", failures[i].Error()))
			continue
		}
		if prev, ok := seen[o.identity]; ok {
			s.logger.WarnContext(ctx, "license replaces earlier file for the same identity",
				slog.String("identity", o.identity),
				slog.String("path", o.source),
				slog.String("replaced", prev))
		}
		seen[o.identity] = o.source
		results = append(results, s.store(o))
	}

	err = errors.Join(failures...)
	if err != nil {
		span.SetStatus(codes.Error, "some licenses failed to load")
	}
	s.logger.InfoContext(ctx, "startup license load completed",
		slog.Int("files", len(paths)),
		slog.Int("loaded", len(results)),
		slog.Int("identities", s.loader.Len()))
	return results, err
}

func (s *licenseService) Verify(ctx context.Context, vendor, application, feature string, minVersion license.FeatureVersion) (*domain.VerifyResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	identity := license.Identity(vendor, application)
	name := license.NormalizeFeatureName(feature)
	valid := s.loader.IsValidVersion(identity, name, minVersion)

	result := &domain.VerifyResult{
		Identity:  identity,
		Feature:   name,
		Valid:     valid,
		CheckedAt: s.now().UTC(),
	}
	if v, ok := minVersion.Value(); ok {
		result.MinVersion = &v
	}

	s.metrics.recordVerification(ctx, valid)
	s.logger.DebugContext(ctx, "feature verified",
		slog.String(infrastructure.TraceIDKey, infrastructure.GetTraceID(ctx)),
		slog.String("identity", identity),
		slog.String("feature", name),
		slog.String("min_version", minVersion.String()),
		slog.Bool("valid", valid))
	return result, nil
}

func (s *licenseService) List(ctx context.Context) []domain.LicenseSummary {
	today := license.DateOf(s.now())

	s.mu.RLock()
	sources := make(map[string]loadInfo, len(s.sources))
	for k, v := range s.sources {
		sources[k] = v
	}
	s.mu.RUnlock()

	var out []domain.LicenseSummary
	for _, identity := range s.loader.Identities() {
		lic, ok := s.loader.Lookup(identity)
		if !ok {
			continue
		}
		summary := domain.LicenseSummary{
			Identity:    identity,
			Vendor:      lic.Vendor(),
			Application: lic.Application(),
			Source:      sources[identity].source,
			LoadedAt:    sources[identity].loadedAt,
			Features:    []domain.FeatureInfo{},
		}
		if key, bound := lic.HardwareKey(); bound {
			summary.HardwareKey = key.String()
		}
		fm := lic.Features()
		for _, f := range fm.Features() {
			info := domain.FeatureInfo{
				Name:    f.Name,
				Issued:  f.Issued.String(),
				Expires: f.Expires.String(),
				Count:   f.Count,
				Expired: fm.IsExpired(f.Name, today),
			}
			if v, ok := f.Version.Value(); ok {
				info.Version = &v
			}
			summary.Features = append(summary.Features, info)
		}
		out = append(out, summary)
	}
	s.logger.DebugContext(ctx, "licenses listed", slog.Int("count", len(out)))
	return out
}

func (s *licenseService) Status(ctx context.Context) (*domain.LoaderStatus, error) {
	keys, err := s.keys.Keys()
	if err != nil {
		return nil, fmt.Errorf("failed to read hardware keys: %w", err)
	}
	status := &domain.LoaderStatus{
		Licenses:     s.loader.Len(),
		Identities:   s.loader.Identities(),
		HardwareKeys: make([]string, len(keys)),
	}
	for i, k := range keys {
		status.HardwareKeys[i] = k.String()
	}
	return status, nil
}

// open verifies path without touching the cache. When no identity is pinned
// the identity is read from the file itself; the signature and hardware
// binding are still checked by the manager.
func (s *licenseService) open(ctx context.Context, path, vendor, application string) (*openedLicense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if strings.TrimSpace(vendor) == "" || strings.TrimSpace(application) == "" {
		data, err := afero.ReadFile(s.fs, path)
		if err != nil {
			return nil, &license.Error{Op: "load license", Kind: license.ErrIO, Value: path, Err: err}
		}
		doc, err := s.codec.Decode(data)
		if err != nil {
			return nil, err
		}
		vendor, application = doc.Vendor, doc.Application
	}

	keys, err := s.keys.Keys()
	if err != nil {
		return nil, fmt.Errorf("failed to read hardware keys: %w", err)
	}

	mgr, err := license.NewManager(vendor, application, s.codec, license.WithFs(s.fs))
	if err != nil {
		return nil, err
	}
	lic := license.NewLicense()
	if err := mgr.Load(path, keys, lic); err != nil {
		return nil, err
	}
	return &openedLicense{identity: mgr.Identity(), source: path, lic: lic}, nil
}

func (s *licenseService) store(o *openedLicense) domain.LoadResult {
	loadedAt := s.now().UTC()
	s.loader.Store(o.identity, o.lic)

	s.mu.Lock()
	s.sources[o.identity] = loadInfo{source: o.source, loadedAt: loadedAt}
	s.mu.Unlock()

	return domain.LoadResult{
		Identity: o.identity,
		Source:   o.source,
		Features: o.lic.Features().Len(),
		LoadedAt: loadedAt,
	}
}

// startupPaths lists the configured files followed by the sorted *.lic files
// of the license directory, without duplicates.
func (s *licenseService) startupPaths() ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	add := func(p string) {
		clean := filepath.Clean(p)
		if !seen[clean] {
			seen[clean] = true
			paths = append(paths, clean)
		}
	}

	for _, f := range s.files {
		add(f)
	}
	if s.dir != "" {
		matches, err := afero.Glob(s.fs, filepath.Join(s.dir, "*"+LicenseFileExt))
		if err != nil {
			return nil, fmt.Errorf("failed to scan license directory: %w", err)
		}
		sort.Strings(matches)
		for _, m := range matches {
			add(m)
		}
	}
	return paths, nil
}
