package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const returnColumns = `id, return_number, order_id, user_id, return_type, reason,
description, status, admin_note, refund_amount, processed_by,
created_at, updated_at, approved_at, completed_at`

func scanReturn(row interface{ Scan(dest ...any) error }) (ReturnRequest, error) {
	var r ReturnRequest
	err := row.Scan(&r.ID, &r.ReturnNumber, &r.OrderID, &r.UserID, &r.ReturnType,
		&r.Reason, &r.Description, &r.Status, &r.AdminNote, &r.RefundAmount,
		&r.ProcessedBy, &r.CreatedAt, &r.UpdatedAt, &r.ApprovedAt, &r.CompletedAt)
	return r, err
}

// CreateReturnRequestParams opens a return for a completed order.
type CreateReturnRequestParams struct {
	ReturnNumber string
	OrderID      pgtype.UUID
	UserID       pgtype.UUID
	ReturnType   string
	Reason       string
	Description  pgtype.Text
	RefundAmount int64
}

func (q *Queries) CreateReturnRequest(ctx context.Context, arg CreateReturnRequestParams) (ReturnRequest, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO return_requests
  (return_number, order_id, user_id, return_type, reason, description, status, refund_amount)
VALUES ($1, $2, $3, $4, $5, $6, 'PENDING', $7)
RETURNING `+returnColumns,
		arg.ReturnNumber, arg.OrderID, arg.UserID, arg.ReturnType,
		arg.Reason, arg.Description, arg.RefundAmount)
	return scanReturn(row)
}

func (q *Queries) GetReturnByID(ctx context.Context, id pgtype.UUID) (ReturnRequest, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+returnColumns+` FROM return_requests WHERE id = $1`, id)
	return scanReturn(row)
}

// CountOpenReturnsForOrder counts non-terminal returns, one open return per
// order at a time.
func (q *Queries) CountOpenReturnsForOrder(ctx context.Context, orderID pgtype.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `
SELECT count(*) FROM return_requests
WHERE order_id = $1 AND status NOT IN ('REJECTED', 'COMPLETED')`, orderID).Scan(&n)
	return n, err
}

// ListReturnsForUserParams pages a customer's return history.
type ListReturnsForUserParams struct {
	UserID pgtype.UUID
	Limit  int32
	Offset int32
}

func (q *Queries) ListReturnsForUser(ctx context.Context, arg ListReturnsForUserParams) ([]ReturnRequest, error) {
	rows, err := q.db.Query(ctx, `
SELECT `+returnColumns+` FROM return_requests
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`, arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ReturnRequest
	for rows.Next() {
		r, err := scanReturn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListReturnsParams pages the staff queue, optionally filtered by status.
type ListReturnsParams struct {
	Status pgtype.Text
	Limit  int32
	Offset int32
}

func (q *Queries) ListReturns(ctx context.Context, arg ListReturnsParams) ([]ReturnRequest, error) {
	rows, err := q.db.Query(ctx, `
SELECT `+returnColumns+` FROM return_requests
WHERE ($1::text IS NULL OR status = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ReturnRequest
	for rows.Next() {
		r, err := scanReturn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateReturnStatusParams carries a staff decision on a return.
type UpdateReturnStatusParams struct {
	ID           pgtype.UUID
	Status       ReturnStatus
	AdminNote    pgtype.Text
	RefundAmount int64
	ProcessedBy  pgtype.UUID
}

// UpdateReturnStatus applies a staff decision and stamps the matching
// milestone timestamp.
func (q *Queries) UpdateReturnStatus(ctx context.Context, arg UpdateReturnStatusParams) (ReturnRequest, error) {
	row := q.db.QueryRow(ctx, `
UPDATE return_requests
SET status = $2,
    admin_note = $3,
    refund_amount = $4,
    processed_by = $5,
    approved_at = CASE WHEN $2 = 'APPROVED' THEN now() ELSE approved_at END,
    completed_at = CASE WHEN $2 = 'COMPLETED' THEN now() ELSE completed_at END,
    updated_at = now()
WHERE id = $1
RETURNING `+returnColumns,
		arg.ID, arg.Status, arg.AdminNote, arg.RefundAmount, arg.ProcessedBy)
	return scanReturn(row)
}
