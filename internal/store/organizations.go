package store

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/npmregistry/registryd/internal/models"
)

type OrganizationStore struct{ db *sqlx.DB }

func NewOrganizationStore(db *sqlx.DB) *OrganizationStore { return &OrganizationStore{db: db} }

func (s *OrganizationStore) GetByName(name string) (*models.Organization, error) {
	var o models.Organization
	err := s.db.Get(&o, `SELECT id, name, display_name, created_at FROM organizations WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateWithOwner creates an organization and adds userID as its owner in
// one transaction, for auto-provisioning a scope on first publish.
func (s *OrganizationStore) CreateWithOwner(name string, userID int64) (*models.Organization, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO organizations (name) VALUES (?)`, name)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(
		`INSERT INTO organization_members (user_id, organization_id, role) VALUES (?, ?, ?)`,
		userID, id, models.OrgRoleOwner,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetByName(name)
}

func (s *OrganizationStore) IsMember(orgID, userID int64) (bool, error) {
	var exists int
	err := s.db.Get(&exists, `SELECT 1 FROM organization_members WHERE organization_id = ? AND user_id = ? LIMIT 1`, orgID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return exists == 1, nil
}

func (s *OrganizationStore) AddMember(orgID, userID int64, role models.OrgRole) error {
	_, err := s.db.Exec(
		`INSERT INTO organization_members (user_id, organization_id, role) VALUES (?, ?, ?)`,
		userID, orgID, role,
	)
	return err
}
