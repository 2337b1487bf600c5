// Package runner exposes the Hive, Hive-over-HTTP and Impala engines behind
// one query-runner contract. The variants share query execution and schema
// discovery; each one supplies its own connection factory, type table and
// error classifier.
package runner

import (
	"context"
	"time"

	"github.com/koustreak/hiverunner/internal/config"
	"github.com/koustreak/hiverunner/internal/database"
	"github.com/koustreak/hiverunner/internal/errs"
	"github.com/koustreak/hiverunner/internal/logger"
	"github.com/koustreak/hiverunner/internal/metastore"
	"github.com/koustreak/hiverunner/internal/result"
)

// Runner is the contract a host drives.
type Runner interface {
	// Type is the stable identifier the host registers the runner under.
	Type() string

	// Name is the display name.
	Name() string

	// ConfigurationSchema declares the settings the host must collect.
	ConfigurationSchema() config.Schema

	// RunQuery executes query and returns the canonical result as JSON.
	// Cancelling ctx interrupts the query.
	RunQuery(ctx context.Context, query, user string) (string, error)

	// GetTables discovers the tables of the configured database through
	// the metastore.
	GetTables(ctx context.Context) ([]*metastore.Entry, error)

	// TestConnection runs the variant's no-op query.
	TestConnection(ctx context.Context) error
}

// Variant describes one engine flavour. Everything that differs between
// engines lives here; Adapter holds the shared behaviour.
type Variant struct {
	Type   string
	Name   string
	Schema config.Schema

	Connect  database.Factory
	Types    result.Mapper
	Classify database.Classifier

	// NoopQuery is what TestConnection runs.
	NoopQuery string

	// MetastorePassword is the settings key holding the metastore password.
	MetastorePassword string
}

// Adapter implements Runner for a Variant and one configuration.
type Adapter struct {
	variant  Variant
	settings config.Settings
	log      *logger.Logger

	// MaxRows caps fetched rows per query. Zero means unlimited.
	MaxRows int

	newWalker func(config.Settings, string) (*metastore.Walker, error)
}

// NewAdapter validates settings against the variant's schema and fills in
// defaults. A missing required setting is reported as a connection failure.
func NewAdapter(v Variant, settings config.Settings, log *logger.Logger) (*Adapter, error) {
	if err := v.Schema.Validate(settings); err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, errs.Message(err), err)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Adapter{
		variant:   v,
		settings:  v.Schema.ApplyDefaults(settings),
		log:       log.With().Str("runner", v.Type).Logger(),
		newWalker: metastore.NewWalker,
	}, nil
}

func (a *Adapter) Type() string                       { return a.variant.Type }
func (a *Adapter) Name() string                       { return a.variant.Name }
func (a *Adapter) ConfigurationSchema() config.Schema { return a.variant.Schema }

// Settings returns the effective configuration with secrets masked.
func (a *Adapter) Settings() config.Settings {
	return a.settings.Redacted(a.variant.Schema.Secret)
}

func (a *Adapter) RunQuery(ctx context.Context, query, user string) (string, error) {
	start := time.Now()
	log := a.log.With().Str("user", user).Logger()
	log.Debugf("running query: %s", query)

	sess, err := a.variant.Connect(ctx, a.settings)
	if err != nil {
		log.ErrorWith("connection failed", err, nil)
		return "", err
	}

	res, err := database.Execute(ctx, sess, query, database.ExecOptions{
		Types:    a.variant.Types,
		Classify: a.variant.Classify,
		MaxRows:  a.MaxRows,
	})
	if err != nil {
		if errs.IsCancelled(err) {
			log.Info("query cancelled")
		} else {
			log.ErrorWith("query failed", err, map[string]interface{}{
				"kind":        errs.KindOf(err).String(),
				"duration_ms": time.Since(start).Milliseconds(),
			})
		}
		return "", err
	}

	out, err := result.Marshal(res)
	if err != nil {
		return "", errs.Wrap(errs.ErrKindUnknown, "could not serialize result", err)
	}

	log.InfoWith("query finished", map[string]interface{}{
		"rows":        len(res.Rows),
		"columns":     len(res.Columns),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return out, nil
}

func (a *Adapter) GetTables(ctx context.Context) ([]*metastore.Entry, error) {
	w, err := a.newWalker(a.settings, a.variant.MetastorePassword)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindSchemaFailed, metastore.MsgSchemaFailed, err)
	}
	log := a.log
	if l, ok := logger.Ctx(ctx); ok {
		log = l.With().Str("runner", a.variant.Type).Logger()
	}
	return w.Tables(log.WithContext(ctx), a.settings.String("database", "default"))
}

func (a *Adapter) TestConnection(ctx context.Context) error {
	_, err := a.RunQuery(ctx, a.variant.NoopQuery, "")
	return err
}
