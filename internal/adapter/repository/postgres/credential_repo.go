package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/spareledger/internal/domain"
	"github.com/iho/spareledger/internal/usecase"
)

const credentialColumns = `id, access_token, item_id, institution_id, institution_name, sync_cursor, created_at, updated_at`

// CredentialRepository implements usecase.CredentialRepository.
type CredentialRepository struct {
	db DB
}

// NewCredentialRepository creates a new CredentialRepository.
func NewCredentialRepository(db DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Create inserts a credential.
func (r *CredentialRepository) Create(ctx context.Context, tx usecase.Tx, c *domain.Credential) error {
	query := `
		INSERT INTO credentials (` + credentialColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := conn(r.db, tx).Exec(ctx, query,
		c.ID,
		c.AccessToken,
		c.ItemID,
		c.InstitutionID,
		c.InstitutionName,
		c.Cursor,
		c.CreatedAt,
		c.UpdatedAt,
	)

	return err
}

// GetByID retrieves a credential by ID.
func (r *CredentialRepository) GetByID(ctx context.Context, id string) (*domain.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE id = $1`

	c, err := scanCredential(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCredentialNotFound
	}

	return c, err
}

// List returns every credential ordered by creation time.
func (r *CredentialRepository) List(ctx context.Context) ([]*domain.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var credentials []*domain.Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		credentials = append(credentials, c)
	}

	return credentials, rows.Err()
}

// UpdateCursor stores the credential's sync cursor.
func (r *CredentialRepository) UpdateCursor(ctx context.Context, tx usecase.Tx, id, cursor string, updatedAt time.Time) error {
	query := `UPDATE credentials SET sync_cursor = $2, updated_at = $3 WHERE id = $1`

	tag, err := conn(r.db, tx).Exec(ctx, query, id, cursor, updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCredentialNotFound
	}

	return nil
}

// Delete removes a credential. Its accounts and their transactions go with it.
func (r *CredentialRepository) Delete(ctx context.Context, tx usecase.Tx, id string) error {
	tag, err := conn(r.db, tx).Exec(ctx, `DELETE FROM credentials WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCredentialNotFound
	}

	return nil
}

func scanCredential(row pgx.Row) (*domain.Credential, error) {
	var c domain.Credential
	err := row.Scan(
		&c.ID,
		&c.AccessToken,
		&c.ItemID,
		&c.InstitutionID,
		&c.InstitutionName,
		&c.Cursor,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &c, nil
}
