package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"net"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"unicode"
)

// CosineSimilarity returns 1 - cosine distance between a and b.
// Mismatched or zero vectors score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SortByScore orders records by score, then creation time, then id, all descending.
func SortByScore(records []*Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

// Truncate returns at most limit records.
func Truncate(records []*Record, limit int) []*Record {
	if limit > 0 && len(records) > limit {
		return records[:limit]
	}
	return records
}

// KeywordQuery is a parsed keyword query. A match contains every Include
// term and no Exclude term, case-insensitively.
type KeywordQuery struct {
	Include []string
	Exclude []string
}

// ParseKeywordQuery splits query into lowercase terms following websearch
// syntax: a word prefixed with "-" is excluded, "or" and punctuation are dropped.
func ParseKeywordQuery(query string) KeywordQuery {
	var q KeywordQuery
	for _, word := range strings.Fields(strings.ToLower(query)) {
		negated := strings.HasPrefix(word, "-")
		for _, t := range splitTerms(word) {
			if negated {
				q.Exclude = append(q.Exclude, t)
			} else {
				q.Include = append(q.Include, t)
			}
		}
	}
	return q
}

func splitTerms(word string) []string {
	fields := strings.FieldsFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if f == "" || f == "or" {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

// Empty reports whether the query has nothing to match. A query made only
// of exclusions is empty.
func (q KeywordQuery) Empty() bool {
	return len(q.Include) == 0
}

// Matches reports whether text satisfies q.
func (q KeywordQuery) Matches(text string) bool {
	if q.Empty() {
		return false
	}
	lower := strings.ToLower(text)
	for _, t := range q.Include {
		if !strings.Contains(lower, t) {
			return false
		}
	}
	for _, t := range q.Exclude {
		if strings.Contains(lower, t) {
			return false
		}
	}
	return true
}

// EscapeLike escapes LIKE wildcards in s using backslash.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// IsConnectionError reports whether err means the database cannot be reached.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	// database/sql does not export its closed-pool error.
	return strings.Contains(err.Error(), "sql: database is closed")
}

// Wrap annotates err with op. Connection failures are marked ErrUnavailable
// and vectors the driver rejects for their size ErrDimensionMismatch.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsConnectionError(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	if !errors.Is(err, ErrDimensionMismatch) && IsDimensionError(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrDimensionMismatch, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsDimensionError reports whether err is a driver rejecting a vector of the
// wrong size, e.g. pgvector's "expected 64 dimensions, not 32".
func IsDimensionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDimensionMismatch) {
		return true
	}
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "dimension") {
		return false
	}
	for _, hint := range []string{"expected", "different", "inconsistent", "mismatch", "not match"} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

// DimensionMismatch reports a vector or table of got dimensions where want is configured.
func DimensionMismatch(got, want int) error {
	return fmt.Errorf("%w: got %d dimensions, want %d", ErrDimensionMismatch, got, want)
}

// CheckDimensions compares the dimension persisted in an existing table with
// the configured one. Zero on either side means unknown and passes.
func CheckDimensions(op string, stored, configured int) error {
	if stored > 0 && configured > 0 && stored != configured {
		return fmt.Errorf("%s: %w: table holds %d dimensions, configured %d", op, ErrDimensionMismatch, stored, configured)
	}
	return nil
}

// ParseVectorDims reads N from a column type such as "vector(N)" or "VECTOR(N)".
// It returns 0 when the type carries no dimension.
func ParseVectorDims(columnType string) int {
	t := strings.ToLower(strings.TrimSpace(columnType))
	open := strings.Index(t, "(")
	if !strings.HasPrefix(t, "vector") || open < 0 || !strings.HasSuffix(t, ")") {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(t[open+1 : len(t)-1]))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Unavailable marks err as ErrUnavailable regardless of its cause.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Rollback aborts tx, ignoring the error returned once tx has been committed.
func Rollback(tx *sql.Tx) {
	_ = tx.Rollback()
}

// NullableID converts an optional id to a database value.
func NullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

// NullableString converts an empty string to NULL.
func NullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// FromNullInt64 converts a scanned nullable id.
func FromNullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}
