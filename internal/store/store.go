package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"replyforge/internal/model"
)

var (
	// ErrDuplicateEngagement is the storage-level idempotency guarantee: a
	// second engagement for the same target post id is rejected here, not
	// merely avoided by application logic.
	ErrDuplicateEngagement = errors.New("engagement already exists for target post")
	ErrNoCredential        = errors.New("no active credential")
	ErrNoAccount           = errors.New("account not found")
)

// Store wraps the SQLite database holding engagement records, credentials,
// strategy context, query outcomes and budget actions.
type Store struct{ sql *sql.DB }

func Open(path string) (*Store, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		return nil, err
	}
	s := &Store{sql: d}
	if err := s.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.sql.Close() }

func (s *Store) migrate() error {
	_, err := s.sql.Exec(`
	CREATE TABLE IF NOT EXISTS accounts (
	  id TEXT PRIMARY KEY,
	  username TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS credentials (
	  account_id TEXT NOT NULL,
	  platform TEXT NOT NULL,
	  consumer_key TEXT NOT NULL,
	  consumer_secret TEXT NOT NULL,
	  access_token TEXT NOT NULL,
	  access_secret TEXT NOT NULL,
	  active INTEGER NOT NULL DEFAULT 1,
	  PRIMARY KEY (account_id, platform)
	);
	CREATE TABLE IF NOT EXISTS strategy (
	  account_id TEXT PRIMARY KEY,
	  strategy_text TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS content_samples (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  account_id TEXT NOT NULL,
	  body TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS history_posts (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  account_id TEXT NOT NULL,
	  body TEXT NOT NULL,
	  engagement INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS engagements (
	  id TEXT PRIMARY KEY,
	  account_id TEXT NOT NULL,
	  platform TEXT NOT NULL,
	  target_post_id TEXT NOT NULL UNIQUE,
	  target_text TEXT,
	  target_likes INTEGER NOT NULL DEFAULT 0,
	  target_replies INTEGER NOT NULL DEFAULT 0,
	  author_id TEXT NOT NULL,
	  author_username TEXT,
	  author_followers INTEGER NOT NULL DEFAULT 0,
	  reply_content TEXT,
	  reply_id TEXT,
	  reply_url TEXT,
	  relevance REAL NOT NULL DEFAULT 0,
	  matched_signals TEXT,
	  source_query TEXT,
	  status TEXT NOT NULL,
	  fu_replied INTEGER NOT NULL DEFAULT 0,
	  fu_liked INTEGER NOT NULL DEFAULT 0,
	  fu_followed INTEGER NOT NULL DEFAULT 0,
	  fu_conversation_length INTEGER NOT NULL DEFAULT 0,
	  conv_thread_id TEXT,
	  conv_last_checked INTEGER,
	  conv_auto_enabled INTEGER NOT NULL DEFAULT 0,
	  conv_max_auto INTEGER NOT NULL DEFAULT 0,
	  conv_auto_count INTEGER NOT NULL DEFAULT 0,
	  dry_run INTEGER NOT NULL DEFAULT 0,
	  created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_eng_author ON engagements(account_id, author_id, created_at);
	CREATE TABLE IF NOT EXISTS conversation_messages (
	  engagement_id TEXT NOT NULL,
	  message_id TEXT NOT NULL,
	  author TEXT,
	  content TEXT,
	  ts INTEGER NOT NULL,
	  inbound INTEGER NOT NULL DEFAULT 0,
	  url TEXT,
	  PRIMARY KEY (engagement_id, message_id)
	);
	CREATE TABLE IF NOT EXISTS query_outcomes (
	  account_id TEXT NOT NULL,
	  query TEXT NOT NULL,
	  sends INTEGER NOT NULL DEFAULT 0,
	  engaged INTEGER NOT NULL DEFAULT 0,
	  PRIMARY KEY (account_id, query)
	);
	CREATE TABLE IF NOT EXISTS actions (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  ts INTEGER NOT NULL,
	  type TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_actions_ts ON actions(ts);
	CREATE TABLE IF NOT EXISTS cursors (
	  key TEXT PRIMARY KEY,
	  value TEXT NOT NULL
	);
	`)
	return err
}

// UpsertAccount registers an account.
func (s *Store) UpsertAccount(ctx context.Context, id, username string) error {
	_, err := s.sql.ExecContext(ctx,
		`INSERT INTO accounts(id, username) VALUES(?,?) ON CONFLICT(id) DO UPDATE SET username=excluded.username`,
		id, username)
	return err
}

// Account returns the username for an account id, or ErrNoAccount.
func (s *Store) Account(ctx context.Context, id string) (string, error) {
	row := s.sql.QueryRowContext(ctx, `SELECT username FROM accounts WHERE id=?`, id)
	var username string
	if err := row.Scan(&username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNoAccount
		}
		return "", err
	}
	return username, nil
}

// SaveCredential stores a credential set. Used by setup tooling and tests;
// the pipeline itself never writes here.
func (s *Store) SaveCredential(ctx context.Context, cred model.Credential) error {
	_, err := s.sql.ExecContext(ctx, `
	INSERT INTO credentials(account_id, platform, consumer_key, consumer_secret, access_token, access_secret, active)
	VALUES(?,?,?,?,?,?,1)
	ON CONFLICT(account_id, platform) DO UPDATE SET
	  consumer_key=excluded.consumer_key, consumer_secret=excluded.consumer_secret,
	  access_token=excluded.access_token, access_secret=excluded.access_secret, active=1`,
		cred.AccountID, cred.Platform, cred.ConsumerKey, cred.ConsumerSecret, cred.AccessToken, cred.AccessSecret)
	return err
}

// ActiveCredential reads the active credential for an account+platform.
// Callers must re-read immediately before any write: the token is owned by
// an external refresh process and can rotate mid-run.
func (s *Store) ActiveCredential(ctx context.Context, accountID, platform string) (model.Credential, error) {
	row := s.sql.QueryRowContext(ctx,
		`SELECT consumer_key, consumer_secret, access_token, access_secret
		 FROM credentials WHERE account_id=? AND platform=? AND active=1`,
		accountID, platform)
	cred := model.Credential{AccountID: accountID, Platform: platform}
	if err := row.Scan(&cred.ConsumerKey, &cred.ConsumerSecret, &cred.AccessToken, &cred.AccessSecret); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cred, ErrNoCredential
		}
		return cred, err
	}
	return cred, nil
}

// SetStrategy stores the declared content strategy text.
func (s *Store) SetStrategy(ctx context.Context, accountID, text string) error {
	_, err := s.sql.ExecContext(ctx,
		`INSERT INTO strategy(account_id, strategy_text) VALUES(?,?) ON CONFLICT(account_id) DO UPDATE SET strategy_text=excluded.strategy_text`,
		accountID, text)
	return err
}

func (s *Store) StrategyText(ctx context.Context, accountID string) (string, error) {
	row := s.sql.QueryRowContext(ctx, `SELECT strategy_text FROM strategy WHERE account_id=?`, accountID)
	var text string
	if err := row.Scan(&text); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return text, nil
}

func (s *Store) AddContentSample(ctx context.Context, accountID, body string) error {
	_, err := s.sql.ExecContext(ctx, `INSERT INTO content_samples(account_id, body) VALUES(?,?)`, accountID, body)
	return err
}

func (s *Store) ContentSamples(ctx context.Context, accountID string, limit int) ([]string, error) {
	rows, err := s.sql.QueryContext(ctx,
		`SELECT body FROM content_samples WHERE account_id=? ORDER BY id DESC LIMIT ?`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// HistoryPost is one historical post with its engagement count.
type HistoryPost struct {
	Body       string
	Engagement int
}

func (s *Store) AddHistoryPost(ctx context.Context, accountID, body string, engagement int) error {
	_, err := s.sql.ExecContext(ctx,
		`INSERT INTO history_posts(account_id, body, engagement) VALUES(?,?,?)`, accountID, body, engagement)
	return err
}

// TopHistoryPosts returns the N highest-engagement historical posts.
func (s *Store) TopHistoryPosts(ctx context.Context, accountID string, n int) ([]HistoryPost, error) {
	rows, err := s.sql.QueryContext(ctx,
		`SELECT body, engagement FROM history_posts WHERE account_id=? ORDER BY engagement DESC LIMIT ?`, accountID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []HistoryPost
	for rows.Next() {
		var p HistoryPost
		if err := rows.Scan(&p.Body, &p.Engagement); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PutAction logs one budget-relevant action.
func (s *Store) PutAction(ctx context.Context, ts time.Time, typ string) error {
	_, err := s.sql.ExecContext(ctx, `INSERT INTO actions(ts, type) VALUES(?,?)`, ts.Unix(), typ)
	return err
}

// CountActionsWithin counts actions of a type in [start, end).
func (s *Store) CountActionsWithin(ctx context.Context, start, end time.Time, typ string) (int, error) {
	row := s.sql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM actions WHERE ts>=? AND ts<? AND type=?`, start.Unix(), end.Unix(), typ)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) SaveCursor(ctx context.Context, key, value string) error {
	_, err := s.sql.ExecContext(ctx,
		`INSERT INTO cursors(key, value) VALUES(?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	return err
}

func (s *Store) LoadCursor(ctx context.Context, key string) (string, error) {
	row := s.sql.QueryRowContext(ctx, `SELECT value FROM cursors WHERE key=?`, key)
	var v string
	if err := row.Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return v, nil
}

// isUniqueViolation detects the sqlite unique-constraint error shape.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
