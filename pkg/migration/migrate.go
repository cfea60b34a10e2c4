// Package migration はSQLiteデータベースのマイグレーションを管理する。
// embed.FSからSQLファイルを読み込み、バージョン管理テーブルで適用状態と内容のチェックサムを追跡する。
package migration

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const upSuffix = ".up.sql"

var (
	// ErrChecksumMismatch は適用済みのマイグレーションファイルが後から書き換えられたことを表す。
	ErrChecksumMismatch = errors.New("適用済みマイグレーションの内容が変更されています")
	// ErrDuplicateVersion は同じバージョン番号のファイルが複数存在することを表す。
	ErrDuplicateVersion = errors.New("マイグレーションのバージョンが重複しています")
)

// Migration は1つのup.sqlファイル。
type Migration struct {
	// Version はファイル名先頭の連番。
	Version int
	// Name はファイル名のバージョン以降の部分（拡張子なし）。
	Name string
	// SQL は適用するSQL文。
	SQL string
	// Checksum はSQLのSHA-256（16進）。
	Checksum string
}

// Load はfsysのdir直下から "000001_description.up.sql" 形式のファイルを読み込み、バージョン順に返す。
// 形式に合わないファイルは無視する。
func Load(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("マイグレーションディレクトリの読み込みに失敗: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		version, name, ok := parseFileName(entry)
		if !ok {
			continue
		}

		content, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s の読み込みに失敗: %w", entry.Name(), err)
		}
		sum := sha256.Sum256(content)
		migrations = append(migrations, Migration{
			Version:  version,
			Name:     name,
			SQL:      string(content),
			Checksum: hex.EncodeToString(sum[:]),
		})
	}

	slices.SortFunc(migrations, func(a, b Migration) int { return a.Version - b.Version })
	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version == migrations[i-1].Version {
			return nil, fmt.Errorf("%w: %06d", ErrDuplicateVersion, migrations[i].Version)
		}
	}
	return migrations, nil
}

// parseFileName はファイル名からバージョンと名前を取り出す。
func parseFileName(entry fs.DirEntry) (int, string, bool) {
	if entry.IsDir() {
		return 0, "", false
	}
	base, ok := strings.CutSuffix(entry.Name(), upSuffix)
	if !ok {
		return 0, "", false
	}
	prefix, name, ok := strings.Cut(base, "_")
	if !ok {
		return 0, "", false
	}
	version, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, "", false
	}
	return version, name, true
}

// Migrator はマイグレーションをデータベースに適用する。
type Migrator struct {
	db     *sql.DB
	logger *zap.Logger
}

// New は新しいMigratorを生成する。
func New(db *sql.DB, logger *zap.Logger) *Migrator {
	return &Migrator{db: db, logger: logger}
}

// Up は未適用のマイグレーションを順に適用し、適用した件数を返す。
// 適用済みのものは記録済みのチェックサムと照合し、一致しなければErrChecksumMismatchを返す。
func (m *Migrator) Up(ctx context.Context, migrations []Migration) (int, error) {
	if err := m.ensureVersionTable(ctx); err != nil {
		return 0, fmt.Errorf("マイグレーション管理テーブルの作成に失敗: %w", err)
	}

	applied, err := m.appliedChecksums(ctx)
	if err != nil {
		return 0, fmt.Errorf("適用済みバージョンの取得に失敗: %w", err)
	}

	count := 0
	for _, mig := range migrations {
		if sum, ok := applied[mig.Version]; ok {
			if sum != mig.Checksum {
				return count, fmt.Errorf("%w: %06d_%s", ErrChecksumMismatch, mig.Version, mig.Name)
			}
			continue
		}

		done, err := m.apply(ctx, mig)
		if err != nil {
			return count, fmt.Errorf("マイグレーション %06d の適用に失敗: %w", mig.Version, err)
		}
		if !done {
			continue
		}
		m.logger.Info("マイグレーションを適用しました",
			zap.Int("version", mig.Version),
			zap.String("name", mig.Name),
		)
		count++
	}
	return count, nil
}

// ensureVersionTable はバージョン管理テーブルを作成する。
func (m *Migrator) ensureVersionTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			checksum TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
		)
	`)
	return err
}

// appliedChecksums は適用済みバージョンとそのチェックサムを返す。
func (m *Migrator) appliedChecksums(ctx context.Context) (map[int]string, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version, checksum FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	applied := make(map[int]string)
	for rows.Next() {
		var (
			version  int
			checksum string
		)
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, err
		}
		applied[version] = checksum
	}
	return applied, rows.Err()
}

// apply はSQLの実行とバージョンの記録を同じトランザクションで行い、適用した場合にtrueを返す。
// 複数プロセスが同時に起動した場合に備え、トランザクション内で適用済みかどうかを再確認する。
// 書き込みロックをBEGIN時に取るには、DSNで _txlock=immediate を指定しておく必要がある。
func (m *Migrator) apply(ctx context.Context, mig Migration) (bool, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var recorded string
	err = tx.QueryRowContext(ctx, "SELECT checksum FROM schema_migrations WHERE version = ?", mig.Version).Scan(&recorded)
	switch {
	case err == nil:
		// 他のプロセスが先に適用した
		if recorded != mig.Checksum {
			return false, fmt.Errorf("%w: %06d_%s", ErrChecksumMismatch, mig.Version, mig.Name)
		}
		return false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("適用状態の確認に失敗: %w", err)
	}

	if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
		return false, fmt.Errorf("SQL実行に失敗: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO schema_migrations (version, name, checksum) VALUES (?, ?, ?)",
		mig.Version, mig.Name, mig.Checksum,
	)
	if err != nil {
		return false, fmt.Errorf("バージョン記録に失敗: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return false, nil
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("コミットに失敗: %w", err)
	}
	return true, nil
}
