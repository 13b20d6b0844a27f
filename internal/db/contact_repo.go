package db

import (
	"context"

	"carewatch/internal/types"
)

// ContactRepository reads the emergency_contacts table. Contacts are managed
// elsewhere; this service never writes them.
type ContactRepository struct {
	db DBTX
}

// NewContactRepository creates a new ContactRepository.
func NewContactRepository(db DBTX) *ContactRepository {
	return &ContactRepository{db: db}
}

// GetByIDs returns the contacts whose IDs are listed, primary contacts first.
// Unknown IDs are skipped silently.
func (r *ContactRepository) GetByIDs(ctx context.Context, ids []string) ([]types.EmergencyContact, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, name, COALESCE(email, ''), COALESCE(phone, ''), is_primary
		 FROM emergency_contacts
		 WHERE id = ANY($1)
		 ORDER BY is_primary DESC, name`,
		ids,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load emergency contacts", err)
	}
	defer rows.Close()

	var out []types.EmergencyContact
	for rows.Next() {
		var c types.EmergencyContact
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.IsPrimary); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan emergency contact", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating emergency contacts", err)
	}
	return out, nil
}
