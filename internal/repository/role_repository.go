package repository

import (
	"database/sql"

	"github.com/balkarbucket/backend/internal/models"
)

type RoleRepository struct {
	db *sql.DB
}

func NewRoleRepository(db *sql.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

const roleColumns = `id, name, description, permissions, user_count, created_at`

func scanRole(row interface{ Scan(...any) error }) (*models.Role, error) {
	role := &models.Role{}
	var permissions string
	err := row.Scan(&role.ID, &role.Name, &role.Description, &permissions, &role.UserCount, &role.CreatedAt)
	if err != nil {
		return nil, err
	}
	role.Permissions, err = unmarshalStrings(permissions)
	if err != nil {
		return nil, err
	}
	return role, nil
}

func (r *RoleRepository) Create(role *models.Role) error {
	permissions, err := marshalStrings(role.Permissions)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`
		INSERT INTO roles (id, name, description, permissions, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, role.ID, role.Name, role.Description, permissions, role.CreatedAt)
	return err
}

func (r *RoleRepository) GetByID(id string) (*models.Role, error) {
	return scanRole(r.db.QueryRow(`SELECT `+roleColumns+` FROM roles WHERE id = ?`, id))
}

func (r *RoleRepository) GetByName(name string) (*models.Role, error) {
	return scanRole(r.db.QueryRow(`SELECT `+roleColumns+` FROM roles WHERE name = ?`, name))
}

func (r *RoleRepository) List() ([]*models.Role, error) {
	rows, err := r.db.Query(`SELECT ` + roleColumns + ` FROM roles ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []*models.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *RoleRepository) Update(role *models.Role) error {
	permissions, err := marshalStrings(role.Permissions)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`
		UPDATE roles SET name = ?, description = ?, permissions = ? WHERE id = ?
	`, role.Name, role.Description, permissions, role.ID)
	return err
}

func (r *RoleRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM roles WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AdjustUserCount moves the denormalized member counter by delta, clamping
// at zero on decrements.
func (r *RoleRepository) AdjustUserCount(id string, delta int) error {
	_, err := r.db.Exec(`UPDATE roles SET user_count = MAX(0, user_count + ?) WHERE id = ?`, delta, id)
	return err
}

// CountUsers counts actual members, used before deletes so a role with
// assigned users is never removed.
func (r *RoleRepository) CountUsers(id string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM users WHERE role_id = ?`, id).Scan(&count)
	return count, err
}
