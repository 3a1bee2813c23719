package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"
)

// Applies the SQL files under migrations/ in lexical order, one transaction
// per file. Files are idempotent (IF NOT EXISTS), so rerunning is safe.
// With --list it prints the CRM tables that already exist instead.
func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	dir := "migrations"
	listOnly := false
	for _, a := range os.Args[1:] {
		if a == "--list" {
			listOnly = true
		} else {
			dir = a
		}
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("ping: %v", err)
	}
	log.Println("[Migrate] Connected to database")

	if listOnly {
		if err := listTables(db); err != nil {
			log.Fatalf("list tables: %v", err)
		}
		return
	}

	applied, err := applyDir(db, dir)
	if err != nil {
		log.Fatalf("[Migrate] %v", err)
	}
	log.Printf("[Migrate] Applied %d file(s) from %s", applied, dir)
}

func listTables(db *sql.DB) error {
	rows, err := db.Query("SELECT tablename FROM pg_tables WHERE schemaname='public' AND tablename LIKE 'crm_%' ORDER BY tablename")
	if err != nil {
		return err
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return err
		}
		fmt.Println(" ", t)
		n++
	}
	fmt.Printf("Total: %d CRM tables\n", n)
	return rows.Err()
}

// applyDir runs every .sql file in dir in lexical order and stops at the
// first failure so a broken migration never leaves later ones half-applied.
func applyDir(db *sql.DB, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read migrations dir %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	applied := 0
	for _, f := range files {
		path := filepath.Join(dir, f)
		data, err := os.ReadFile(path)
		if err != nil {
			return applied, fmt.Errorf("read %s: %w", path, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return applied, fmt.Errorf("begin %s: %w", f, err)
		}
		if _, err := tx.Exec(string(data)); err != nil {
			tx.Rollback()
			return applied, fmt.Errorf("apply %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return applied, fmt.Errorf("commit %s: %w", f, err)
		}
		log.Printf("[Migrate] %s OK", f)
		applied++
	}
	return applied, nil
}
