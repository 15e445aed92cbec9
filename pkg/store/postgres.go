package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// PostgresPersister PostgreSQL持久化实现
// 表结构见 scripts/setup_db.go：store_records(user_id, collection, record_id, fields)
type PostgresPersister struct {
	db *sql.DB
}

// NewPostgresPersister 创建PostgreSQL持久化实例
func NewPostgresPersister(dsn string) (*PostgresPersister, error) {
	// Sanitize DSN to avoid stray CR/LF from env values
	dsn = strings.TrimSpace(dsn)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	// 设置连接池参数
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	fmt.Printf("✅ PostgreSQL connection established\n")
	return &PostgresPersister{db: db}, nil
}

// LoadUser 加载用户子树
func (p *PostgresPersister) LoadUser(uid string) (map[string]map[string]Record, error) {
	query := `
        SELECT collection, record_id, fields
        FROM store_records
        WHERE user_id = $1
        ORDER BY collection, record_id
    `
	rows, err := p.db.Query(query, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	defer rows.Close()

	tree := map[string]map[string]Record{}
	for rows.Next() {
		var collection, recordID string
		var fieldsJSON []byte
		if err := rows.Scan(&collection, &recordID, &fieldsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		var fields Record
		if err := json.Unmarshal(fieldsJSON, &fields); err != nil {
			return nil, fmt.Errorf("failed to decode record %s/%s: %w", collection, recordID, err)
		}

		if tree[collection] == nil {
			tree[collection] = map[string]Record{}
		}
		tree[collection][recordID] = fields
	}
	if len(tree) == 0 {
		return nil, rows.Err()
	}
	return tree, rows.Err()
}

// SaveUser 保存用户子树（整体替换，事务内删除后重插）
func (p *PostgresPersister) SaveUser(uid string, tree map[string]map[string]Record) error {
	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM store_records WHERE user_id = $1`, uid); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}

	insert := `
        INSERT INTO store_records (user_id, collection, record_id, fields, updated_at)
        VALUES ($1, $2, $3, $4, NOW())
    `
	for collection, records := range tree {
		for recordID, fields := range records {
			fieldsJSON, err := json.Marshal(fields)
			if err != nil {
				return fmt.Errorf("failed to encode record %s/%s: %w", collection, recordID, err)
			}
			if _, err := tx.Exec(insert, uid, collection, recordID, fieldsJSON); err != nil {
				return fmt.Errorf("failed to insert record %s/%s: %w", collection, recordID, err)
			}
		}
	}

	return tx.Commit()
}

// Close 关闭连接
func (p *PostgresPersister) Close() error {
	return p.db.Close()
}
