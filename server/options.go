package server

import (
	"log/slog"

	"github.com/pennyfx/penny/archive"
	"github.com/pennyfx/penny/server/config"
)

type Option func(s *Server)

// WithLogger specifies the logger for the server
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithConfig specifies the config for the server
func WithConfig(c *config.Config) Option {
	return func(s *Server) {
		s.config = c
	}
}

// WithArchive enables the rate history endpoints,
// backed by the given archive
func WithArchive(a archive.Archive) Option {
	return func(s *Server) {
		s.archive = a
	}
}

// WithCache enables the cache maintenance endpoints,
// backed by the given cache
func WithCache(c CacheStore) Option {
	return func(s *Server) {
		s.cache = c
	}
}
