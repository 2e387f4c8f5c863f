package attachment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"attachr/internal/domain"
	"attachr/internal/metrics"
	"attachr/internal/port"
	"attachr/internal/transform"
)

// Options tunes an Attacher.
type Options struct {
	// Concurrency bounds in-flight versions per call. Values below 1 mean 1.
	Concurrency int
	// VersionTimeout bounds transform plus upload of one version. Zero leaves
	// cancellation to the caller's context.
	VersionTimeout time.Duration
	Observer       metrics.Observer
}

// Ref identifies a stored attachment: its basename within its scope.
type Ref struct {
	Basename string
	Scope    any
}

// URLOptions selects the version and signing of a URL.
type URLOptions struct {
	// Version defaults to the first declared version.
	Version string
	Signed  bool
	// TTL of a signed URL. Zero uses the definition's SignedURLTTL.
	TTL time.Duration
}

// VersionResult is the outcome of storing one version.
type VersionResult struct {
	Version string
	Bucket  string
	Key     string
	Skipped bool
	Err     error
}

// StoreResult reports every version of a Store call.
type StoreResult struct {
	Basename string
	Versions []VersionResult
}

// Keys returns the object keys that were written.
func (r *StoreResult) Keys() []string {
	var keys []string
	for _, v := range r.Versions {
		if !v.Skipped && v.Err == nil {
			keys = append(keys, v.Key)
		}
	}
	return keys
}

// DeleteReport lists what a Delete call did per version. Every non-skipped
// version is attempted regardless of earlier failures.
type DeleteReport struct {
	Deleted []string
	Skipped []string
	Failed  map[string]error
}

// Err joins the per-version failures, or returns nil.
func (r *DeleteReport) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for version, err := range r.Failed {
		errs = append(errs, fmt.Errorf("version %s: %w", version, err))
	}
	return errors.Join(errs...)
}

// Attacher stores, addresses and deletes the files of one definition.
type Attacher struct {
	def      *Definition
	backend  port.Backend
	pipeline *transform.Pipeline
	opts     Options
	newName  func(ext string) string
}

// NewAttacher creates an Attacher for def.
func NewAttacher(def *Definition, backend port.Backend, pipeline *transform.Pipeline, opts Options) *Attacher {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Observer == nil {
		opts.Observer = metrics.Nop{}
	}
	return &Attacher{
		def:      def,
		backend:  backend,
		pipeline: pipeline,
		opts:     opts,
		newName: func(ext string) string {
			if ext == "" {
				return uuid.NewString()
			}
			return uuid.NewString() + "." + ext
		},
	}
}

// Definition returns the definition this Attacher serves.
func (a *Attacher) Definition() *Definition {
	return a.def
}

// Store stages src and writes every non-skipped version. Versions run
// concurrently and independently; when any fails the result still describes
// every version and the error wraps domain.ErrStoreFailed. Keys already
// written by succeeding versions are left in place.
func (a *Attacher) Store(ctx context.Context, src Source, scope any) (*StoreResult, error) {
	file, err := Stage(src)
	if err != nil {
		return nil, err
	}
	if a.def.Validate != nil && !a.def.Validate(file) {
		return nil, domain.ErrInvalidFile
	}

	basename := file.Filename
	if a.def.RandomizeBasename {
		basename = a.newName(file.Extension())
	}

	versions := a.def.VersionList()
	result := &StoreResult{Basename: basename, Versions: make([]VersionResult, len(versions))}

	log.Printf("attacher.Store: storing %s (%d bytes, %d versions) for %s via %s",
		basename, file.Size(), len(versions), a.def.Name, a.backend.Name())

	var g errgroup.Group
	g.SetLimit(a.opts.Concurrency)
	for i, version := range versions {
		g.Go(func() error {
			result.Versions[i] = a.storeVersion(ctx, file, basename, version, scope)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, v := range result.Versions {
		if v.Err != nil {
			log.Printf("attacher.Store: version %s of %s failed: %v", v.Version, basename, v.Err)
			errs = append(errs, fmt.Errorf("version %s: %w", v.Version, v.Err))
		}
	}
	if len(errs) > 0 {
		return result, fmt.Errorf("%w: %w", domain.ErrStoreFailed, errors.Join(errs...))
	}
	return result, nil
}

func (a *Attacher) storeVersion(ctx context.Context, file *StagedFile, basename, version string, scope any) VersionResult {
	start := time.Now()
	res := VersionResult{Version: version}

	if a.opts.VersionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.VersionTimeout)
		defer cancel()
	}

	spec := a.def.TransformSpec(version, file, scope)
	artifact, err := a.pipeline.Run(ctx, version, spec, file)
	if err != nil {
		res.Err = err
		a.opts.Observer.RecordStore(a.def.Name, version, metrics.OutcomeFailed, time.Since(start), 0)
		return res
	}
	if artifact.Skipped {
		res.Skipped = true
		a.opts.Observer.RecordStore(a.def.Name, version, metrics.OutcomeSkipped, 0, 0)
		return res
	}

	res.Bucket = BucketFor(a.def, scope)
	res.Key = KeyFor(a.def, version, basename, artifact.Ext, scope)
	err = a.backend.Put(ctx, port.PutInput{
		Bucket:  res.Bucket,
		Key:     res.Key,
		Body:    artifact.Data,
		ACL:     a.def.aclFor(version, scope),
		Headers: a.def.headersFor(version, file, scope),
	})
	if err != nil {
		res.Err = a.annotate(err)
		a.opts.Observer.RecordStore(a.def.Name, version, metrics.OutcomeFailed, time.Since(start), 0)
		return res
	}

	a.opts.Observer.RecordStore(a.def.Name, version, metrics.OutcomeStored, time.Since(start), len(artifact.Data))
	return res
}

// URL returns the URL of one version, or nil when the version is skipped or
// there is no basename and no default URL.
func (a *Attacher) URL(ctx context.Context, ref Ref, opts URLOptions) (*string, error) {
	version := opts.Version
	if version == "" {
		version = a.def.VersionList()[0]
	}
	if !a.def.HasVersion(version) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownVersion, version)
	}

	if ref.Basename == "" {
		if a.def.DefaultURL == nil {
			return nil, nil
		}
		u := a.def.DefaultURL(version, ref.Scope)
		return &u, nil
	}

	bucket, key, skip := Locate(a.def, version, ref.Basename, ref.Scope)
	if skip {
		return nil, nil
	}

	urlOpts := port.URLOptions{
		VirtualHost: a.def.VirtualHost.Resolve(ref.Scope),
		AssetHost:   AssetHostFor(a.def, ref.Scope),
	}
	a.opts.Observer.RecordURL(a.def.Name, opts.Signed)
	if !opts.Signed {
		u := a.backend.BuildURL(bucket, key, urlOpts)
		return &u, nil
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = a.def.SignedURLTTL
	}
	u, err := a.backend.BuildSignedURL(ctx, bucket, key, port.SignOptions{URLOptions: urlOpts, TTL: ttl})
	if err != nil {
		return nil, a.annotate(err)
	}
	return &u, nil
}

// URLs returns the URL of every version keyed by version name.
func (a *Attacher) URLs(ctx context.Context, ref Ref, signed bool) (map[string]*string, error) {
	out := make(map[string]*string, len(a.def.VersionList()))
	for _, version := range a.def.VersionList() {
		u, err := a.URL(ctx, ref, URLOptions{Version: version, Signed: signed})
		if err != nil {
			return nil, err
		}
		out[version] = u
	}
	return out, nil
}

// Delete removes every non-skipped version of ref. Missing objects count as
// deleted. Failures are collected in the report and do not stop the others.
func (a *Attacher) Delete(ctx context.Context, ref Ref) (*DeleteReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ref.Basename == "" {
		return nil, domain.ErrEmptySource
	}

	versions := a.def.VersionList()
	type outcome struct {
		key  string
		skip bool
		err  error
	}
	outcomes := make([]outcome, len(versions))

	var g errgroup.Group
	g.SetLimit(a.opts.Concurrency)
	for i, version := range versions {
		g.Go(func() error {
			bucket, key, skip := Locate(a.def, version, ref.Basename, ref.Scope)
			if skip {
				outcomes[i] = outcome{skip: true}
				return nil
			}
			outcomes[i] = outcome{key: key, err: a.backend.Delete(ctx, bucket, key)}
			return nil
		})
	}
	_ = g.Wait()

	report := &DeleteReport{Failed: map[string]error{}}
	for i, o := range outcomes {
		version := versions[i]
		switch {
		case o.skip:
			report.Skipped = append(report.Skipped, version)
			a.opts.Observer.RecordDelete(a.def.Name, version, metrics.OutcomeSkipped)
		case o.err != nil:
			report.Failed[version] = a.annotate(o.err)
			log.Printf("attacher.Delete: failed to delete %s of %s: %v", version, ref.Basename, o.err)
			a.opts.Observer.RecordDelete(a.def.Name, version, metrics.OutcomeFailed)
		default:
			report.Deleted = append(report.Deleted, o.key)
			a.opts.Observer.RecordDelete(a.def.Name, version, metrics.OutcomeDeleted)
		}
	}
	return report, nil
}

// annotate attributes configuration errors raised by a backend to this
// definition.
func (a *Attacher) annotate(err error) error {
	var cfgErr *domain.ConfigurationError
	if errors.As(err, &cfgErr) && cfgErr.Definition == "" {
		return &domain.ConfigurationError{Definition: a.def.Name, Field: cfgErr.Field}
	}
	return err
}

