package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gyuwonk/chehum/internal/model"
)

type tokenImpl struct {
}

// NewToken creates a QR token repository
func NewToken() Token {
	return &tokenImpl{}
}

const tokenColumns = `id, application_id, code, issued_at, expires_at,
	is_used, used_at, scanned_by, created_at`

// Insert creates a new token and sets token.ID
func (t *tokenImpl) Insert(ctx context.Context, token *model.QRToken) error {
	query := `
INSERT INTO qr_tokens (application_id, code, issued_at, expires_at, is_used, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id
`
	err := GetTx(ctx).GetContext(ctx, &token.ID, query,
		token.ApplicationID, token.Code, token.IssuedAt, token.ExpiresAt,
		token.IsUsed, token.CreatedAt)
	return wrapError("insert qr token", err)
}

// Latest returns the most recently issued token for an application.
// Superseded tokens stay behind it as audit history.
func (t *tokenImpl) Latest(ctx context.Context, applicationID int64) (model.QRToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM qr_tokens
WHERE application_id = $1
ORDER BY issued_at DESC, id DESC
LIMIT 1`

	var token model.QRToken
	err := GetReadonly(ctx).GetContext(ctx, &token, query, applicationID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.QRToken{}, model.ErrTokenNotFound
	}
	return token, wrapError("get latest qr token", err)
}

// LockByCode retrieves a token by code with FOR UPDATE so two concurrent
// scans of the same code serialize, and the second observes is_used.
func (t *tokenImpl) LockByCode(ctx context.Context, code string) (model.QRToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM qr_tokens WHERE code = $1 FOR UPDATE`

	var token model.QRToken
	err := GetTx(ctx).GetContext(ctx, &token, query, code)
	if errors.Is(err, sql.ErrNoRows) {
		return model.QRToken{}, model.ErrTokenNotFound
	}
	return token, wrapError("lock qr token", err)
}

// MarkUsed flips a token to used. The is_used predicate makes the flip
// first-writer-wins even without the row lock.
func (t *tokenImpl) MarkUsed(ctx context.Context, id int64, usedAt time.Time, scannedBy string) error {
	query := `
UPDATE qr_tokens
SET is_used = TRUE, used_at = $1, scanned_by = $2
WHERE id = $3 AND is_used = FALSE
`
	result, err := GetTx(ctx).ExecContext(ctx, query, usedAt, scannedBy, id)
	if err != nil {
		return wrapError("mark qr token used", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return wrapError("mark qr token used", err)
	}
	if affected == 0 {
		return model.ErrTokenAlreadyUsed
	}
	return nil
}
