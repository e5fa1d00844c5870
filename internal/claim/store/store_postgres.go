package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"credvault/internal/claim/models"
	"credvault/pkg/platform/sentinel"
)

// PostgresClaimStore persists claims in PostgreSQL. Insertion order is
// preserved through a bigserial position column so listings match the
// in-memory store exactly.
type PostgresClaimStore struct {
	db *sql.DB
}

func NewPostgresClaimStore(db *sql.DB) *PostgresClaimStore {
	return &PostgresClaimStore{db: db}
}

// Schema returns the DDL for the claims table. Applied by integration tests
// and deployment migrations.
func Schema() string {
	return `
CREATE TABLE IF NOT EXISTS claims (
	position            BIGSERIAL,
	id                  TEXT PRIMARY KEY,
	holder_id           TEXT NOT NULL,
	kind                TEXT NOT NULL,
	value               TEXT NOT NULL,
	issuer              TEXT NOT NULL,
	issued_on           TIMESTAMPTZ NOT NULL,
	status              TEXT NOT NULL,
	visible             BOOLEAN NOT NULL,
	revocation_reason   TEXT NOT NULL DEFAULT '',
	revoked_at          TIMESTAMPTZ,
	previous_version_id TEXT NOT NULL DEFAULT '',
	next_version_id     TEXT NOT NULL DEFAULT '',
	external_anchor_id  TEXT NOT NULL DEFAULT '',
	record_hash         TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS claims_holder_idx ON claims (holder_id);
CREATE INDEX IF NOT EXISTS claims_status_idx ON claims (status);
`
}

const claimColumns = `id, holder_id, kind, value, issuer, issued_on, status, visible,
	revocation_reason, revoked_at, previous_version_id, next_version_id,
	external_anchor_id, record_hash`

func (s *PostgresClaimStore) Insert(ctx context.Context, claim models.Claim) error {
	if claim.Status != models.StatusActive {
		return fmt.Errorf("new claim must be active: %w", sentinel.ErrInvalidState)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO claims (`+claimColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		claim.ID, claim.HolderID, string(claim.Kind), claim.Value, claim.Issuer,
		claim.IssuedOn, string(claim.Status), claim.Visible,
		claim.RevocationReason, nullTime(claim.RevokedAt),
		claim.PreviousVersionID, claim.NextVersionID,
		claim.ExternalAnchorID, claim.RecordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("claim %s: %w", claim.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

// InsertVersion runs the insert and the predecessor flip in one transaction
// so a failure between the two statements cannot leave two active versions.
func (s *PostgresClaimStore) InsertVersion(ctx context.Context, claim models.Claim, previousID string) error {
	if claim.Status != models.StatusActive {
		return fmt.Errorf("new claim must be active: %w", sentinel.ErrInvalidState)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert version: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	row := tx.QueryRowContext(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE id = $1 FOR UPDATE`, previousID)
	old, err := scanClaim(row, previousID)
	if err != nil {
		return err
	}

	next := old
	next.Status = models.StatusSuperseded
	next.NextVersionID = claim.ID
	if err := checkTransition(old, next); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO claims (`+claimColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		claim.ID, claim.HolderID, string(claim.Kind), claim.Value, claim.Issuer,
		claim.IssuedOn, string(claim.Status), claim.Visible,
		claim.RevocationReason, nullTime(claim.RevokedAt),
		claim.PreviousVersionID, claim.NextVersionID,
		claim.ExternalAnchorID, claim.RecordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("claim %s: %w", claim.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert claim version: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE claims SET status = $2, next_version_id = $3 WHERE id = $1`,
		previousID, string(next.Status), next.NextVersionID,
	)
	if err != nil {
		return fmt.Errorf("supersede previous version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert version: %w", err)
	}
	return nil
}

func (s *PostgresClaimStore) Get(ctx context.Context, id string) (models.Claim, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE id = $1`, id)
	return scanClaim(row, id)
}

func (s *PostgresClaimStore) ListByHolder(ctx context.Context, holderID string) ([]models.Claim, error) {
	return s.query(ctx, `holder_id = $1`, holderID)
}

func (s *PostgresClaimStore) ListByIssuer(ctx context.Context, issuer string) ([]models.Claim, error) {
	return s.query(ctx, `LOWER(issuer) = LOWER($1)`, issuer)
}

func (s *PostgresClaimStore) ListByStatus(ctx context.Context, status models.Status) ([]models.Claim, error) {
	return s.query(ctx, `status = $1`, string(status))
}

func (s *PostgresClaimStore) query(ctx context.Context, where string, arg any) ([]models.Claim, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE `+where+` ORDER BY position`, arg)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var out []models.Claim
	for rows.Next() {
		c, err := scanClaim(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update reads the claim under a row lock, applies the mutator, re-checks the
// lifecycle invariants, and commits. Failure at any step rolls back.
func (s *PostgresClaimStore) Update(ctx context.Context, id string, mutate Mutator) (models.Claim, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Claim{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	row := tx.QueryRowContext(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE id = $1 FOR UPDATE`, id)
	old, err := scanClaim(row, id)
	if err != nil {
		return models.Claim{}, err
	}

	next := old
	if err := mutate(&next); err != nil {
		return models.Claim{}, err
	}
	if err := checkTransition(old, next); err != nil {
		return models.Claim{}, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE claims SET
			value = $2, status = $3, visible = $4,
			revocation_reason = $5, revoked_at = $6,
			previous_version_id = $7, next_version_id = $8,
			external_anchor_id = $9, record_hash = $10
		WHERE id = $1`,
		next.ID, next.Value, string(next.Status), next.Visible,
		next.RevocationReason, nullTime(next.RevokedAt),
		next.PreviousVersionID, next.NextVersionID,
		next.ExternalAnchorID, next.RecordHash,
	)
	if err != nil {
		return models.Claim{}, fmt.Errorf("update claim: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Claim{}, fmt.Errorf("commit update: %w", err)
	}
	return next, nil
}

// PostgresHolderStore persists holder display records.
type PostgresHolderStore struct {
	db *sql.DB
}

func NewPostgresHolderStore(db *sql.DB) *PostgresHolderStore {
	return &PostgresHolderStore{db: db}
}

// HolderSchema returns the DDL for the holders table.
func HolderSchema() string {
	return `
CREATE TABLE IF NOT EXISTS holders (
	id    TEXT PRIMARY KEY,
	name  TEXT NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	batch TEXT NOT NULL DEFAULT '',
	dept  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS holders_email_idx ON holders (LOWER(email));
`
}

func (s *PostgresHolderStore) Save(ctx context.Context, holder models.Holder) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holders (id, name, email, batch, dept)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, email = EXCLUDED.email,
			batch = EXCLUDED.batch, dept = EXCLUDED.dept`,
		holder.ID, holder.Name, holder.Email, holder.Batch, holder.Dept,
	)
	if err != nil {
		return fmt.Errorf("save holder: %w", err)
	}
	return nil
}

func (s *PostgresHolderStore) FindByID(ctx context.Context, id string) (models.Holder, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, batch, dept FROM holders WHERE id = $1`, id)
	return scanHolder(row, id)
}

func (s *PostgresHolderStore) FindByEmail(ctx context.Context, email string) (models.Holder, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, batch, dept FROM holders WHERE LOWER(email) = LOWER($1)`, email)
	return scanHolder(row, email)
}

func scanHolder(row rowScanner, key string) (models.Holder, error) {
	var h models.Holder
	err := row.Scan(&h.ID, &h.Name, &h.Email, &h.Batch, &h.Dept)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Holder{}, fmt.Errorf("holder %s: %w", key, sentinel.ErrNotFound)
		}
		return models.Holder{}, fmt.Errorf("scan holder: %w", err)
	}
	return h, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner, id string) (models.Claim, error) {
	var (
		c         models.Claim
		kind      string
		status    string
		revokedAt sql.NullTime
	)
	err := row.Scan(&c.ID, &c.HolderID, &kind, &c.Value, &c.Issuer, &c.IssuedOn,
		&status, &c.Visible, &c.RevocationReason, &revokedAt,
		&c.PreviousVersionID, &c.NextVersionID, &c.ExternalAnchorID, &c.RecordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Claim{}, fmt.Errorf("claim %s: %w", id, sentinel.ErrNotFound)
		}
		return models.Claim{}, fmt.Errorf("scan claim: %w", err)
	}
	c.Kind = models.Kind(kind)
	c.Status = models.Status(status)
	if revokedAt.Valid {
		c.RevokedAt = revokedAt.Time
	}
	return c, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// isUniqueViolation matches the Postgres unique_violation SQLSTATE without
// depending on the driver's error type at every call site.
func isUniqueViolation(err error) bool {
	type coder interface{ SQLState() string }
	var c coder
	if errors.As(err, &c) {
		return c.SQLState() == "23505"
	}
	return false
}
