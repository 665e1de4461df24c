package db

//nolint:golint,revive
import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"runtime"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/gobridge/bridge-points/config"
)

const (
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

//go:embed migrations
var migrations embed.FS

// Querier is implemented by both DB and Tx, so repositories can run
// either inside or outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	PlaceholderFormat() sq.PlaceholderFormat
}

type DB struct {
	cfg    *config.DBConfig
	driver string
	db     *sqlx.DB
}

func driverName(cfg *config.DBConfig) string {
	if cfg.Driver == "" {
		return DriverPgx
	}
	return cfg.Driver
}

func (db *DB) Driver() string {
	return db.driver
}

func (db *DB) PlaceholderFormat() sq.PlaceholderFormat {
	return placeholderFormat(db.driver)
}

func placeholderFormat(driver string) sq.PlaceholderFormat {
	if driver == DriverSQLite {
		return sq.Question
	}
	return sq.Dollar
}

func (db *DB) Migrate() error {
	src, err := iofs.New(migrations, "migrations/"+migrationsDir(db.driver))
	if err != nil {
		return fmt.Errorf("can't open embedded migrations: %w", err)
	}
	var driver database.Driver
	switch db.driver {
	case DriverSQLite:
		driver, err = migratesqlite.WithInstance(db.db.DB, &migratesqlite.Config{})
	case DriverPostgres:
		driver, err = migratepostgres.WithInstance(db.db.DB, &migratepostgres.Config{})
	default:
		driver, err = migratepgx.WithInstance(db.db.DB, &migratepgx.Config{})
	}
	if err != nil {
		return fmt.Errorf("can't init %s migration driver: %w", db.driver, err)
	}
	m, err := migrate.NewWithInstance("iofs", src, db.driver, driver)
	if err != nil {
		return fmt.Errorf("can't create migrator: %w", err)
	}
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("can't apply %s database migrations: %w", db.driver, err)
	}
	return nil
}

func migrationsDir(driver string) string {
	if driver == DriverSQLite {
		return "sqlite"
	}
	return "postgres"
}

func (db *DB) dsn() string {
	if db.driver == DriverSQLite {
		return db.cfg.Path
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", db.cfg.User, db.cfg.Password, db.cfg.Host, db.cfg.Port, db.cfg.DB)
}

func NewDB(cfg *config.DBConfig) (*DB, error) {
	db := &DB{
		cfg:    cfg,
		driver: driverName(cfg),
	}
	switch db.driver {
	case DriverPgx, DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", db.driver)
	}
	conn, err := sqlx.ConnectContext(context.Background(), db.driver, db.dsn())
	if err != nil {
		return nil, fmt.Errorf("can't connect to %s database: %w", db.driver, err)
	}
	if db.driver == DriverSQLite {
		// sqlite allows a single writer, pragmas are per connection
		conn.SetMaxOpenConns(1)
		if err = configureSQLite(conn); err != nil {
			conn.Close()
			return nil, err
		}
	} else {
		conn.SetMaxIdleConns(3)
		conn.SetMaxOpenConns(10)
	}
	db.db = conn
	return db, nil
}

func configureSQLite(conn *sqlx.DB) error {
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			return fmt.Errorf("can't set %q: %w", pragma, err)
		}
	}
	return nil
}

func ConnectToDBAndMigrate(cfg *config.DBConfig) (*DB, error) {
	db, err := NewDB(cfg)
	if err != nil {
		return nil, err
	}
	err = db.Migrate()
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) PingContext(ctx context.Context) error {
	return db.db.PingContext(ctx)
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	defer ObserveDuration(getCurrentFuncName(2))()
	return db.db.ExecContext(ctx, query, args...)
}

func (db *DB) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	defer ObserveDuration(getCurrentFuncName(2))()
	return wrapNoRows(db.db.GetContext(ctx, dest, query, args...))
}

func (db *DB) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	defer ObserveDuration(getCurrentFuncName(2))()
	return db.db.SelectContext(ctx, dest, query, args...)
}

// RunInTx executes fn inside a single transaction. The transaction is
// committed when fn returns nil and rolled back otherwise.
func (db *DB) RunInTx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	sqlTx, err := db.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("can't begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()
	if err = fn(&Tx{tx: sqlTx, driver: db.driver}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("can't rollback transaction after %v: %w", err, rbErr)
		}
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("can't commit transaction: %w", err)
	}
	return nil
}

type Tx struct {
	tx     *sqlx.Tx
	driver string
}

func (tx *Tx) PlaceholderFormat() sq.PlaceholderFormat {
	return placeholderFormat(tx.driver)
}

func (tx *Tx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	defer ObserveDuration(getCurrentFuncName(2))()
	return tx.tx.ExecContext(ctx, query, args...)
}

func (tx *Tx) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	defer ObserveDuration(getCurrentFuncName(2))()
	return wrapNoRows(tx.tx.GetContext(ctx, dest, query, args...))
}

func (tx *Tx) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	defer ObserveDuration(getCurrentFuncName(2))()
	return tx.tx.SelectContext(ctx, dest, query, args...)
}

func wrapNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func getCurrentFuncName(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	details := runtime.FuncForPC(pc)
	if details == nil {
		return "unknown"
	}
	name := details.Name()
	name = name[strings.LastIndex(name, ".")+1:]
	name = strings.TrimPrefix(name, "(*")
	name = strings.Replace(name, ")", "", 1)
	return name
}
