package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite" // sqlite driver

	"github.com/leadscout/leadscout/web"
)

type repo struct {
	db *sql.DB
}

func New(path string) (web.SessionRepository, error) {
	db, err := initDatabase(path)
	if err != nil {
		return nil, err
	}

	return &repo{db: db}, nil
}

func (repo *repo) Get(ctx context.Context, id string) (web.Session, error) {
	const q = `SELECT * from sessions WHERE id = ?`

	row := repo.db.QueryRowContext(ctx, q, id)

	session, err := rowToSession(row)
	if err == sql.ErrNoRows {
		return web.Session{}, web.ErrNotFound
	}

	return session, err
}

func (repo *repo) Create(ctx context.Context, session *web.Session) error {
	item, err := sessionToRow(session)
	if err != nil {
		return err
	}

	const q = `INSERT INTO sessions (id, name, status, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`

	_, err = repo.db.ExecContext(ctx, q, item.ID, item.Name, item.Status, item.Data, item.CreatedAt, item.UpdatedAt)

	return err
}

func (repo *repo) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM sessions WHERE id = ?`

	_, err := repo.db.ExecContext(ctx, q, id)

	return err
}

func (repo *repo) Select(ctx context.Context, params web.SelectParams) ([]web.Session, error) {
	q := `SELECT * from sessions`

	var args []any

	if params.Status != "" {
		q += ` WHERE status = ?`

		args = append(args, params.Status)
	}

	q += " ORDER BY created_at ASC"

	if params.Limit > 0 {
		q += " LIMIT ?"

		args = append(args, params.Limit)
	}

	rows, err := repo.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var ans []web.Session

	for rows.Next() {
		session, err := rowToSession(rows)
		if err != nil {
			return nil, err
		}

		ans = append(ans, session)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ans, nil
}

func (repo *repo) Update(ctx context.Context, session *web.Session) error {
	item, err := sessionToRow(session)
	if err != nil {
		return err
	}

	const q = `UPDATE sessions SET name = ?, status = ?, data = ?, updated_at = ? WHERE id = ?`

	_, err = repo.db.ExecContext(ctx, q, item.Name, item.Status, item.Data, item.UpdatedAt, item.ID)

	return err
}

type scannable interface {
	Scan(dest ...any) error
}

func rowToSession(row scannable) (web.Session, error) {
	var s session

	err := row.Scan(&s.ID, &s.Name, &s.Status, &s.Data, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return web.Session{}, err
	}

	ans := web.Session{
		ID:     s.ID,
		Name:   s.Name,
		Status: s.Status,
		Date:   time.Unix(s.CreatedAt, 0).UTC(),
	}

	err = json.Unmarshal([]byte(s.Data), &ans.Data)
	if err != nil {
		return web.Session{}, err
	}

	return ans, nil
}

func sessionToRow(item *web.Session) (session, error) {
	data, err := json.Marshal(item.Data)
	if err != nil {
		return session{}, err
	}

	return session{
		ID:        item.ID,
		Name:      item.Name,
		Status:    item.Status,
		Data:      string(data),
		CreatedAt: item.Date.Unix(),
		UpdatedAt: time.Now().UTC().Unix(),
	}, nil
}

type session struct {
	ID        string
	Name      string
	Status    string
	Data      string
	CreatedAt int64
	UpdatedAt int64
}

func initDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=1000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, err
		}
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, createSchema(db)
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			status TEXT NOT NULL,
			data TEXT NOT NULL,
			created_at INT NOT NULL,
			updated_at INT NOT NULL
		)
	`)

	return err
}
