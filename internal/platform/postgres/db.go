package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/solhart/mediakit-api/internal/pool"
	"github.com/solhart/mediakit-api/internal/resilience"
)

// validateTimeout bounds the liveness ping run on checkout.
const validateTimeout = 2 * time.Second

// ConnPool is a bounded pool of raw pgx connections. Stores acquire a
// connection per operation and release it when the query completes.
type ConnPool = pool.Pool[*pgx.Conn]

// NewConnPool creates a connection pool for the given database URL. The URL
// is parsed eagerly so a malformed DSN fails at startup rather than on the
// first acquire.
func NewConnPool(dbURL string, cfg pool.Config, logger *slog.Logger) (*ConnPool, error) {
	connCfg, err := pgx.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	factory := func(ctx context.Context) (*pgx.Conn, error) {
		conn, err := pgx.ConnectConfig(ctx, connCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", classifyConnectError(err))
		}
		return conn, nil
	}

	validate := func(ctx context.Context, conn *pgx.Conn) bool {
		if conn.IsClosed() {
			return false
		}
		pingCtx, cancel := context.WithTimeout(ctx, validateTimeout)
		defer cancel()
		return conn.Ping(pingCtx) == nil
	}

	closeFn := func(conn *pgx.Conn) {
		ctx, cancel := context.WithTimeout(context.Background(), validateTimeout)
		defer cancel()
		if err := conn.Close(ctx); err != nil {
			logger.Debug("error closing database connection", "error", err)
		}
	}

	return pool.New("postgres", cfg, factory, validate, closeFn, logger)
}

// classifyConnectError maps connection failures onto the retryability
// taxonomy so the pool's creation backoff kicks in. Dial-level failures
// (refused connection, DNS, timeout) are transient; a server that answered
// with an authentication or catalog error is permanent.
func classifyConnectError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return resilience.Permanent(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Transient(fmt.Errorf("database unreachable: %w", err))
	}
	return err
}
