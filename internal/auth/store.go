package auth

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/nao1215/authgate/pkg/migration"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// デモ用ユーザー。新規環境ですぐにログインを試せるよう起動時に投入する。
const (
	DemoUsername = "Azure Developer"
	DemoEmail    = "demo@azure.com"
	DemoPassword = "Testing123"
)

var (
	// ErrUserNotFound は指定したメールアドレスのユーザーが存在しないことを表す。
	ErrUserNotFound = errors.New("ユーザーが見つかりません")
	// ErrStorage はデータベース操作に失敗したことを表す。
	ErrStorage = errors.New("データベース操作に失敗しました")
)

// User はユーザーレコード。
type User struct {
	// ID はユーザーの一意識別子。
	ID int64
	// Username は表示名。
	Username string
	// Email はログインIDとして使うメールアドレス。
	Email string
	// Password は平文のパスワード。
	Password string
	// CreatedAt は作成日時。
	CreatedAt time.Time
}

// Store はSQLiteに保存されたユーザーレコードへのアクセスを提供する。
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// FileDSN はSQLiteファイルパスからmodernc.org/sqlite用のDSNを組み立てる。
// 同じファイルを複数プロセスが同時に初期化してもよいよう、トランザクションは開始時に書き込みロックを取る。
func FileDSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate", path)
}

// OpenStore はSQLiteデータベースを開き、接続を確認する。
// SQLiteは書き込みが単一のため接続は1本に制限する。
func OpenStore(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("データベース疎通確認に失敗: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Init はスキーマを適用し、デモ用ユーザーを投入する。
func (s *Store) Init(ctx context.Context) error {
	migrations, err := migration.Load(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}
	if _, err := migration.New(s.db, s.logger).Up(ctx, migrations); err != nil {
		return fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}
	if err := s.Seed(ctx); err != nil {
		return err
	}
	return nil
}

// Seed はデモ用ユーザーを投入する。
// 既に同じメールアドレスのユーザーが存在する場合は何もしないため、何度実行してもよい。
func (s *Store) Seed(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO users (username, email, password) VALUES (?, ?, ?)",
		DemoUsername, DemoEmail, DemoPassword,
	)
	if err != nil {
		return fmt.Errorf("デモユーザーの投入に失敗: %w", err)
	}
	return nil
}

// FindByEmail はメールアドレスの完全一致でユーザーを1件取得する。
// 該当するユーザーがいない場合はErrUserNotFoundを返す。
func (s *Store) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, username, email, password, created_at FROM users WHERE email = ?",
		email,
	)

	var (
		u         User
		createdAt string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	u.CreatedAt = parseTimestamp(createdAt)
	return &u, nil
}

// List は全ユーザーをID順に取得する。パスワードは読み出さない。
func (s *Store) List(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, username, email, created_at FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	defer func() { _ = rows.Close() }()

	users := make([]User, 0)
	for rows.Next() {
		var (
			u         User
			createdAt string
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorage, err)
		}
		u.CreatedAt = parseTimestamp(createdAt)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return users, nil
}

// Ping はデータベースにクエリを発行できることを確認する。
func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}

// Close はデータベース接続を閉じる。
func (s *Store) Close() error {
	return s.db.Close()
}

// timestampLayouts はcreated_at列として受け付ける書式。
// ドライバーが時刻型に変換した場合はRFC3339、文字列のままの場合はSQLiteのCURRENT_TIMESTAMP形式になる。
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp はcreated_at列の値をUTCの時刻に変換する。解釈できない場合はゼロ値を返す。
func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
