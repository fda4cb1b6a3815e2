package ufs2

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Option configures an Engine at Open time (spec §1 "Configuration").
type Option func(e *Engine) error

// WithLogger injects a logrus.FieldLogger; the default is logrus's
// standard logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) error {
		e.log = l
		return nil
	}
}

// WithMetrics registers Engine's optional prometheus counters against reg.
// Without this option, Engine never touches a prometheus registry.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Engine) error {
		m, err := newMetrics(reg)
		if err != nil {
			return err
		}
		e.metrics = m
		return nil
	}
}

// WithInodeCacheSize overrides the bounded inode-record LRU's capacity.
func WithInodeCacheSize(n int) Option {
	return func(e *Engine) error {
		e.inodeCacheSize = n
		return nil
	}
}

// WithBlockCacheSize overrides the bounded device-block LRU's capacity.
func WithBlockCacheSize(n int) Option {
	return func(e *Engine) error {
		e.blockCacheSize = n
		return nil
	}
}

// WithNameCacheSize overrides the bounded directory-name LRU's capacity.
func WithNameCacheSize(n int) Option {
	return func(e *Engine) error {
		e.nameCacheSize = n
		return nil
	}
}

// ReadOnly opens the filesystem without permitting any mutating operation;
// every write-path call returns ErrReadOnly (spec §4.10 "Non-goals").
func ReadOnly() Option {
	return func(e *Engine) error {
		e.readOnly = true
		return nil
	}
}
