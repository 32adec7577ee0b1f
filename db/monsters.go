package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"monsterlab/dataset"
	"monsterlab/monster"
)

var monsterSchemas = map[string]string{
	"sqlite3": `
    CREATE TABLE IF NOT EXISTS monsters (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name TEXT NOT NULL,
        type TEXT NOT NULL,
        level INTEGER NOT NULL,
        rarity TEXT NOT NULL,
        damage TEXT,
        health REAL NOT NULL,
        energy REAL NOT NULL,
        sanity REAL NOT NULL,
        timestamp DATETIME NOT NULL
    )`,
	"mysql": `
    CREATE TABLE IF NOT EXISTS monsters (
        id BIGINT AUTO_INCREMENT PRIMARY KEY,
        name VARCHAR(100) NOT NULL,
        type VARCHAR(50) NOT NULL,
        level INT NOT NULL,
        rarity VARCHAR(20) NOT NULL,
        damage VARCHAR(20),
        health DOUBLE NOT NULL,
        energy DOUBLE NOT NULL,
        sanity DOUBLE NOT NULL,
        timestamp DATETIME NOT NULL
    )`,
}

// MonsterStore keeps monsters in a relational database (SQLite or MySQL).
type MonsterStore struct {
	database *sql.DB
	driver   string
}

func NewMonsterStore(driver, dsn string) (*MonsterStore, error) {
	schema, ok := monsterSchemas[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
	database, err := Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if _, err := database.Exec(schema); err != nil {
		database.Close()
		return nil, fmt.Errorf("create monsters table: %w", err)
	}
	return &MonsterStore{database: database, driver: driver}, nil
}

func (s *MonsterStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.database.QueryRowContext(ctx, `SELECT COUNT(*) FROM monsters`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count monsters: %w", err)
	}
	return n, nil
}

// Table returns every monster as a row keyed like the document store, with
// the row id rendered as a string under "_id".
func (s *MonsterStore) Table(ctx context.Context) (*dataset.Table, error) {
	rows, err := s.database.QueryContext(ctx, `
        SELECT id, name, type, level, rarity, damage, health, energy, sanity, timestamp
        FROM monsters
        ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query monsters: %w", err)
	}
	defer rows.Close()

	var out []dataset.Row
	for rows.Next() {
		var (
			id     int64
			m      monster.Monster
			damage sql.NullString
		)
		if err := rows.Scan(&id, &m.Name, &m.Type, &m.Level, &m.Rarity, &damage,
			&m.Health, &m.Energy, &m.Sanity, &m.Timestamp); err != nil {
			return nil, err
		}
		m.Damage = damage.String
		row := m.Row()
		row["_id"] = strconv.FormatInt(id, 10)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return dataset.NewTable(append([]string{"_id"}, monster.Columns()...), out), nil
}

func (s *MonsterStore) Insert(ctx context.Context, monsters []monster.Monster) (int, error) {
	if len(monsters) == 0 {
		return 0, nil
	}
	tx, err := s.database.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO monsters (name, type, level, rarity, damage, health, energy, sanity, timestamp)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	for _, m := range monsters {
		ts := m.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, strings.TrimSpace(m.Name), m.Type, m.Level, m.Rarity,
			m.Damage, m.Health, m.Energy, m.Sanity, ts.UTC()); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("insert monster %q: %w", m.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(monsters), nil
}

func (s *MonsterStore) Close() error {
	return s.database.Close()
}
