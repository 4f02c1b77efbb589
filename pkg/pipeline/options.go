package pipeline

import (
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/drawsync/pkg/errors"
	"github.com/matzehuels/drawsync/pkg/plan"
)

// Options contains all configuration for one sync run.
// This struct supports JSON serialization for HTTP trigger requests.
type Options struct {
	// Input
	Document  string `json:"document"`
	OutputDir string `json:"output_dir,omitempty"` // empty means next to the document

	// Selection: exactly one of All and Page must be set.
	All  bool `json:"all,omitempty"`
	Page *int `json:"page,omitempty"`

	// Export
	Format  string   `json:"format,omitempty"`
	Extra   []string `json:"extra,omitempty"` // passed verbatim to the exporter
	Workers int      `json:"workers,omitempty"`
	Force   bool     `json:"force,omitempty"`

	// Manifest handling
	ManifestPolicy string `json:"manifest_policy,omitempty"`
	RetryFailed    bool   `json:"retry_failed,omitempty"`
	DryRun         bool   `json:"dry_run,omitempty"`

	// Runtime options (not serialized)
	JobTimeout time.Duration `json:"-"`
	Logger     *log.Logger   `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Selection returns the page selection described by o.
func (o *Options) Selection() plan.Selection {
	return plan.Selection{All: o.All, Page: o.Page}
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if strings.TrimSpace(o.Document) == "" {
		return errors.New(errors.ErrCodeInvalidInput, "document is required")
	}
	if err := o.Selection().Validate(); err != nil {
		return err
	}
	if o.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "workers must be positive, got %d", o.Workers)
	}
	o.SetDefaults()
	if err := errors.ValidateFormat(o.Format); err != nil {
		return err
	}
	if err := ValidateManifestPolicy(o.ManifestPolicy); err != nil {
		return err
	}

	abs, err := filepath.Abs(o.Document)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "resolve document path %s", o.Document)
	}
	o.Document = abs

	o.validated = true
	return nil
}

// SetDefaults fills in zero values.
func (o *Options) SetDefaults() {
	if o.Workers == 0 {
		o.Workers = DefaultWorkers
	}
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	if o.ManifestPolicy == "" {
		o.ManifestPolicy = DefaultManifestPolicy
	}
	if o.JobTimeout == 0 {
		o.JobTimeout = DefaultJobTimeout
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateManifestPolicy checks that a manifest policy is valid.
func ValidateManifestPolicy(policy string) error {
	if !ValidManifestPolicies[policy] {
		return errors.New(errors.ErrCodeInvalidInput,
			"invalid manifest policy: %q (must be one of: merge, replace)", policy)
	}
	return nil
}
