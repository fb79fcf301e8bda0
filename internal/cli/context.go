package cli

import (
	"fmt"
	"os"

	"github.com/studydesk/storedoctor/internal/audit"
	"github.com/studydesk/storedoctor/internal/health"
	"github.com/studydesk/storedoctor/internal/lock"
	"github.com/studydesk/storedoctor/internal/schema"
	"github.com/studydesk/storedoctor/internal/store"
	"github.com/studydesk/storedoctor/internal/sweep"
	"github.com/studydesk/storedoctor/pkg/color"
	"github.com/studydesk/storedoctor/pkg/config"
	"github.com/studydesk/storedoctor/pkg/logging"
	"github.com/studydesk/storedoctor/pkg/metrics"
)

// app is what every command needs after flags are parsed.
type app struct {
	cfg        *config.Config
	configFile string
	logger     *logging.Logger
	registry   *schema.Registry
}

// setup loads configuration, applies flag overrides and installs the logger.
func setup() (*app, error) {
	color.Init(noColor)

	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if storeFlag != "" {
		cfg.Store.Path = storeFlag
	}
	if backendFlag != "" {
		cfg.Store.Backend = backendFlag
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{
		Level:      level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		return nil, err
	}
	logging.SetGlobal(logger)

	reg := schema.Default()
	for _, sc := range cfg.Services {
		if _, err := reg.Service(sc.Name); err != nil {
			return nil, err
		}
	}
	return &app{cfg: cfg, configFile: path, logger: logger, registry: reg}, nil
}

func (a *app) openStore() (store.Backend, error) {
	return store.Open(a.cfg.Store.Backend, a.cfg.Store.Path)
}

// checker builds the HTTP prober, pointing each registry service at its
// configured endpoint.
func (a *app) checker() health.Checker {
	endpoints := make(map[string]health.Endpoint, len(a.registry.Services))
	for _, svc := range a.registry.Services {
		ep := health.Endpoint{BaseURL: svc.DefaultBaseURL, Path: svc.Endpoint}
		if sc, ok := a.cfg.Service(svc.Name); ok {
			if sc.BaseURL != "" {
				ep.BaseURL = sc.BaseURL
			}
			if sc.Endpoint != "" {
				ep.Path = sc.Endpoint
			}
			if sc.APIKeyEnv != "" {
				ep.APIKey = os.Getenv(sc.APIKeyEnv)
			}
		}
		endpoints[svc.Name] = ep
	}
	return health.NewHTTPChecker(endpoints, a.cfg.Sweep.HealthTimeout, Version)
}

// engine assembles a sweep engine from configuration.
func (a *app) engine(s store.Store, checker health.Checker, skipHealth bool, reg *metrics.Registry, extra ...sweep.Option) *sweep.Engine {
	opts := []sweep.Option{
		sweep.WithLogger(a.logger),
		sweep.WithCapacity(a.cfg.Sweep.CapacityBytes, a.cfg.Sweep.WarnRatio),
		sweep.WithHistorySize(a.cfg.Sweep.HistorySize),
		sweep.WithChecker(checker),
	}
	if skipHealth || a.cfg.Sweep.SkipHealth {
		opts = append(opts, sweep.WithPhases(sweep.PhasesExcept(sweep.PhaseServiceHealth)))
	}
	if a.cfg.Audit.Path != "" {
		opts = append(opts, sweep.WithAuditor(audit.NewFileAppender(a.cfg.Audit.Path)))
	}
	if reg != nil {
		opts = append(opts, sweep.WithMetrics(reg))
	}
	return sweep.New(s, a.registry, append(opts, extra...)...)
}

// lease takes the cross-process sweep lease for file-backed stores and
// returns its release function.
func (a *app) lease(purpose string) (func(), error) {
	if a.cfg.Store.Backend == store.BackendMemory {
		return func() {}, nil
	}
	mgr := lock.NewManager(a.cfg.Store.Path, a.cfg.Lock.TTL)
	rec, err := mgr.Acquire(purpose)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := mgr.Release(rec.HolderNonce); err != nil {
			a.logger.ErrorErr("release sweep lease", err)
		}
	}, nil
}

func fmtErr(format string, args ...any) {
	prefix := "storedoctor: "
	if color.Enabled() {
		prefix = color.Redf("storedoctor:") + " "
	}
	fmt.Fprintf(os.Stderr, prefix+format+"\n", args...)
}
