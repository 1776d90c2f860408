package repository

import (
	"database/sql"
	"time"

	"github.com/balkarbucket/backend/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `u.id, u.name, u.email, u.password_hash, u.avatar, u.role_id, u.status, u.last_login_at, u.created_at,
	r.id, r.name, r.description, r.permissions, r.user_count, r.created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	user := &models.User{}
	var roleID, roleName, roleDescription, rolePermissions sql.NullString
	var roleUserCount sql.NullInt64
	var roleCreatedAt sql.NullTime
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Avatar,
		&user.RoleID, &user.Status, &user.LastLoginAt, &user.CreatedAt,
		&roleID, &roleName, &roleDescription, &rolePermissions, &roleUserCount, &roleCreatedAt)
	if err != nil {
		return nil, err
	}
	if roleID.Valid {
		role := &models.Role{
			ID:        roleID.String,
			Name:      roleName.String,
			UserCount: int(roleUserCount.Int64),
			CreatedAt: roleCreatedAt.Time,
		}
		if roleDescription.Valid {
			role.Description = &roleDescription.String
		}
		role.Permissions, err = unmarshalStrings(rolePermissions.String)
		if err != nil {
			return nil, err
		}
		user.Role = role
	}
	return user, nil
}

func (r *UserRepository) Create(user *models.User) error {
	_, err := r.db.Exec(`
		INSERT INTO users (id, name, email, password_hash, avatar, role_id, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, user.ID, user.Name, user.Email, user.PasswordHash, user.Avatar, user.RoleID, user.Status, user.CreatedAt)
	return err
}

func (r *UserRepository) GetByID(id string) (*models.User, error) {
	return scanUser(r.db.QueryRow(`
		SELECT `+userColumns+`
		FROM users u LEFT JOIN roles r ON r.id = u.role_id
		WHERE u.id = ?
	`, id))
}

func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	return scanUser(r.db.QueryRow(`
		SELECT `+userColumns+`
		FROM users u LEFT JOIN roles r ON r.id = u.role_id
		WHERE u.email = ?
	`, email))
}

func (r *UserRepository) List(search, roleID, status string, limit, offset int) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users u LEFT JOIN roles r ON r.id = u.role_id
		WHERE 1 = 1`
	args := []any{}
	if search != "" {
		query += ` AND (u.name LIKE ? OR u.email LIKE ?)`
		args = append(args, "%"+search+"%", "%"+search+"%")
	}
	if roleID != "" {
		query += ` AND u.role_id = ?`
		args = append(args, roleID)
	}
	if status != "" {
		query += ` AND u.status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY u.created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) Count(search, roleID, status string) (int, error) {
	query := `SELECT COUNT(*) FROM users u WHERE 1 = 1`
	args := []any{}
	if search != "" {
		query += ` AND (u.name LIKE ? OR u.email LIKE ?)`
		args = append(args, "%"+search+"%", "%"+search+"%")
	}
	if roleID != "" {
		query += ` AND u.role_id = ?`
		args = append(args, roleID)
	}
	if status != "" {
		query += ` AND u.status = ?`
		args = append(args, status)
	}
	var count int
	err := r.db.QueryRow(query, args...).Scan(&count)
	return count, err
}

func (r *UserRepository) Update(user *models.User) error {
	_, err := r.db.Exec(`
		UPDATE users SET name = ?, email = ?, avatar = ?, role_id = ?, status = ?
		WHERE id = ?
	`, user.Name, user.Email, user.Avatar, user.RoleID, user.Status, user.ID)
	return err
}

func (r *UserRepository) UpdatePasswordHash(id string, hash string) error {
	_, err := r.db.Exec(`UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
	return err
}

func (r *UserRepository) UpdateLastLogin(id string, now time.Time) error {
	_, err := r.db.Exec(`UPDATE users SET last_login_at = ? WHERE id = ?`, now, id)
	return err
}

func (r *UserRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM users WHERE id = ?`, id)
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
