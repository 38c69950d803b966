package db

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/SedlarDavid/sqltools-mcp/internal/config"
)

// OpenFunc returns a fresh database handle.
type OpenFunc func(ctx context.Context) (*sql.DB, error)

// Provider opens one Session per operation. It holds no connections
// between calls.
type Provider struct {
	cfg     *config.Config
	dialect Dialect
	schemas []string
	open    OpenFunc
	log     *slog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithOpenFunc replaces how handles are created. Tests use it to hand out
// sqlmock connections.
func WithOpenFunc(fn OpenFunc) Option {
	return func(p *Provider) { p.open = fn }
}

// WithDialect overrides the dialect chosen from cfg.Driver.
func WithDialect(d Dialect) Option {
	return func(p *Provider) { p.dialect = d }
}

// WithLogger sets the logger used for connection failures.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.log = l }
}

// NewProvider returns a provider for cfg.Driver.
func NewProvider(cfg *config.Config, opts ...Option) (*Provider, error) {
	p := &Provider{cfg: cfg, log: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.dialect == nil {
		d, err := DialectFor(cfg.Driver)
		if err != nil {
			return nil, err
		}
		p.dialect = d
	}
	if p.open == nil {
		p.open = func(context.Context) (*sql.DB, error) { return p.dialect.Open(p.cfg) }
	}
	p.schemas = p.dialect.SearchPath(cfg.Schema)
	return p, nil
}

// Dialect returns the provider's dialect.
func (p *Provider) Dialect() Dialect { return p.dialect }

// Open connects, pins a single connection and applies the dialect's session
// settings. On failure everything opened so far is closed and the error has
// KindConnection.
func (p *Provider) Open(ctx context.Context) (*Session, error) {
	db, err := p.open(ctx)
	if err != nil {
		return nil, p.connectionError(err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, p.connectionError(err)
	}
	for _, stmt := range p.dialect.SessionInit(p.schemas) {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			conn.Close()
			db.Close()
			return nil, p.connectionError(err)
		}
	}
	return &Session{dialect: p.dialect, schemas: p.schemas, db: db, conn: conn}, nil
}

// Ping opens and closes one session.
func (p *Provider) Ping(ctx context.Context) error {
	s, err := p.Open(ctx)
	if err != nil {
		return err
	}
	return s.Close()
}

func (p *Provider) connectionError(err error) error {
	p.log.Error("database connection failed",
		slog.String("driver", p.dialect.Name()),
		slog.String("target", p.cfg.Target()),
		slog.Any("error", err))
	var dbErr *Error
	if errors.As(err, &dbErr) {
		return err
	}
	return NewError(KindConnection, "open", "Database connection failed", err)
}
