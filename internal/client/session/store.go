package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/webtoz/internal/client/migrations"
	"github.com/dmitrijs2005/webtoz/internal/client/models"
	"github.com/dmitrijs2005/webtoz/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/webtoz/internal/common"
	"github.com/dmitrijs2005/webtoz/internal/dbx"
	"github.com/dmitrijs2005/webtoz/internal/filex"

	_ "modernc.org/sqlite"
)

const (
	keyToken = "token"
	keyUser  = "user"
)

// Store persists the session between CLI runs. Load returns
// common.ErrorNotFound when no complete session is stored.
type Store interface {
	Load(ctx context.Context) (string, *models.User, error)
	Save(ctx context.Context, token string, user *models.User) error
	SaveUser(ctx context.Context, user *models.User) error
	Clear(ctx context.Context) error
	Close() error
}

// SQLiteStore keeps the token and the user snapshot as two rows of the
// metadata table.
type SQLiteStore struct {
	db *sql.DB
}

// RunMigrations applies the embedded SQLite schema.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// OpenSQLiteStore opens (creating if needed) the database at path and
// migrates it.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn, err := filex.EnsureParentDir(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one connection keeps SQLite writes serialized
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate session store: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (string, *models.User, error) {
	repo := metadata.NewSQLiteRepository(s.db)

	token, err := repo.Get(ctx, keyToken)
	if err != nil {
		return "", nil, err
	}
	raw, err := repo.Get(ctx, keyUser)
	if err != nil {
		return "", nil, err
	}

	var u models.User
	if err := json.Unmarshal(raw, &u); err != nil {
		// a corrupt snapshot is treated as no session
		return "", nil, fmt.Errorf("%w: stored user: %v", common.ErrorNotFound, err)
	}
	if len(token) == 0 {
		return "", nil, common.ErrorNotFound
	}
	return string(token), &u, nil
}

func (s *SQLiteStore) Save(ctx context.Context, token string, user *models.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, keyToken, []byte(token)); err != nil {
			return err
		}
		return repo.Set(ctx, keyUser, raw)
	})
}

func (s *SQLiteStore) SaveUser(ctx context.Context, user *models.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return metadata.NewSQLiteRepository(s.db).Set(ctx, keyUser, raw)
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).Clear(ctx)
	})
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// IsEmpty reports whether err from Load means "nothing stored".
func IsEmpty(err error) bool {
	return errors.Is(err, common.ErrorNotFound)
}
