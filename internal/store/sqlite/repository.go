package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"tutorledger/internal/core"
	"tutorledger/internal/store"
)

// Repository is the SQLite-backed document store.
type Repository struct {
	db *sql.DB
}

var _ store.Store = (*Repository)(nil)

func New(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, category, student_id, amount, currency, tx_date, description, subject
		 FROM transactions ORDER BY tx_date, id`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			id               int64
			t                core.Transaction
			amount, currency string
			txDate           string
		)
		if err := rows.Scan(&id, (*string)(&t.Kind), &t.Category, &t.StudentID,
			&amount, &currency, &txDate, &t.Description, &t.Subject); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.ID = strconv.FormatInt(id, 10)
		t.Amount = parseAmount(amount)
		t.Currency = core.Currency(currency)
		if d, err := core.ParseDate(txDate); err == nil {
			t.Date = d
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) (string, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (kind, category, student_id, amount, currency, tx_date, description, subject)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(t.Kind), t.Category, t.StudentID, t.Amount.String(), string(t.Currency),
		t.Date.ISO(), t.Description, t.Subject)
	if err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("transaction insert id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", id, "kind", t.Kind, "category", t.Category, "date", t.Date.ISO())
	return strconv.FormatInt(id, 10), nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	id, err := parseID(t.ID)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET kind = ?, category = ?, student_id = ?, amount = ?, currency = ?, tx_date = ?, description = ?, subject = ?
		 WHERE id = ?`,
		string(t.Kind), t.Category, t.StudentID, t.Amount.String(), string(t.Currency),
		t.Date.ISO(), t.Description, t.Subject, id)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireHit(res, "transaction", t.ID)
}

func (r *Repository) DeleteTransaction(ctx context.Context, id string) error {
	nid, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, nid)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireHit(res, "transaction", id)
}

func (r *Repository) ListStudents(ctx context.Context) ([]core.Student, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, subjects, price, currency FROM students ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var out []core.Student
	for rows.Next() {
		var (
			id                        int64
			s                         core.Student
			subjects, price, currency string
		)
		if err := rows.Scan(&id, &s.Name, &subjects, &price, &currency); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		s.ID = strconv.FormatInt(id, 10)
		s.Price = parseAmount(price)
		s.Currency = core.Currency(currency)
		if subjects != "" {
			if err := json.Unmarshal([]byte(subjects), &s.Subjects); err != nil {
				slog.WarnContext(ctx, "Unreadable subjects column", "student", s.Name, "error", err)
			}
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return out, nil
}

func (r *Repository) CreateStudent(ctx context.Context, s core.Student) (string, error) {
	subjects, err := json.Marshal(s.Subjects)
	if err != nil {
		return "", fmt.Errorf("marshal subjects: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO students (name, subjects, price, currency) VALUES (?, ?, ?, ?)`,
		s.Name, string(subjects), s.Price.String(), string(s.Currency))
	if err != nil {
		return "", fmt.Errorf("create student: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("student insert id: %w", err)
	}

	slog.InfoContext(ctx, "Student saved", "id", id, "name", s.Name)
	return strconv.FormatInt(id, 10), nil
}

func (r *Repository) UpdateStudent(ctx context.Context, s core.Student) error {
	id, err := parseID(s.ID)
	if err != nil {
		return err
	}
	subjects, err := json.Marshal(s.Subjects)
	if err != nil {
		return fmt.Errorf("marshal subjects: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE students SET name = ?, subjects = ?, price = ?, currency = ? WHERE id = ?`,
		s.Name, string(subjects), s.Price.String(), string(s.Currency), id)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return requireHit(res, "student", s.ID)
}

func (r *Repository) DeleteStudent(ctx context.Context, id string) error {
	nid, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, nid)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return requireHit(res, "student", id)
}

func (r *Repository) GetSetting(ctx context.Context, key string) (core.Setting, bool, error) {
	var amount, currency string
	err := r.db.QueryRowContext(ctx,
		`SELECT amount, currency FROM settings WHERE key = ?`, key).Scan(&amount, &currency)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Setting{}, false, nil
	}
	if err != nil {
		return core.Setting{}, false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return core.Setting{Amount: parseAmount(amount), Currency: core.Currency(currency)}, true, nil
}

func (r *Repository) PutSetting(ctx context.Context, key string, s core.Setting) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (key, amount, currency) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET amount = excluded.amount, currency = excluded.currency`,
		key, s.Amount.String(), string(s.Currency))
	if err != nil {
		return fmt.Errorf("put setting %s: %w", key, err)
	}
	return nil
}

func (r *Repository) LoadRates(ctx context.Context) (core.RateTable, time.Time, error) {
	var fetchedAt, rates string
	err := r.db.QueryRowContext(ctx,
		`SELECT fetched_at, rates FROM rate_snapshots WHERE id = 1`).Scan(&fetchedAt, &rates)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("load rate snapshot: %w", err)
	}

	var table core.RateTable
	if err := json.Unmarshal([]byte(rates), &table); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode rate snapshot: %w", err)
	}
	at, err := time.Parse(time.RFC3339, fetchedAt)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("parse snapshot timestamp: %w", err)
	}
	return table, at, nil
}

func (r *Repository) SaveRates(ctx context.Context, rates core.RateTable, fetchedAt time.Time) error {
	body, err := json.Marshal(rates)
	if err != nil {
		return fmt.Errorf("encode rate snapshot: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO rate_snapshots (id, fetched_at, rates) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET fetched_at = excluded.fetched_at, rates = excluded.rates`,
		fetchedAt.UTC().Format(time.RFC3339), string(body))
	if err != nil {
		return fmt.Errorf("save rate snapshot: %w", err)
	}
	return nil
}

// parseAmount decodes a stored decimal column. An unreadable value counts as
// zero rather than failing the whole load.
func parseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad id %q", store.ErrNotFound, id)
	}
	return n, nil
}

func requireHit(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", kind, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s", store.ErrNotFound, kind, id)
	}
	return nil
}
