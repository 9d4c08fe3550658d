package model

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	Password           string    `json:"-"`
	Name               string    `json:"name,omitempty"`
	CurrencyPreference string    `json:"currencyPreference"`
	AuthProvider       string    `json:"-"`
	IsEmailVerified    bool      `json:"isEmailVerified"`
	CreatedAt          time.Time `json:"createdAt"`
}

type Session struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"user_id"`
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	UserAgent    string    `json:"user_agent"`
	ClientIP     string    `json:"client_ip"`
	IsBlocked    bool      `json:"is_blocked"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// HashPassword hashes the user's password using bcrypt.
func (u *User) HashPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a given password with the user's hashed password.
func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
}

// CreateUser inserts a new user, assigning a fresh UUID as the primary key.
func (u *User) CreateUser(db *sql.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CurrencyPreference == "" {
		u.CurrencyPreference = "USD"
	}
	if u.AuthProvider == "" {
		u.AuthProvider = "local"
	}
	u.CreatedAt = time.Now()

	query := `
	INSERT INTO users (id, email, password, name, currency_preference, auth_provider, is_email_verified, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(u.ID, u.Email, u.Password, u.Name, u.CurrencyPreference, u.AuthProvider, u.IsEmailVerified, u.CreatedAt)
	return err
}

func scanUser(row *sql.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Email, &user.Password, &user.Name, &user.CurrencyPreference, &user.AuthProvider, &user.IsEmailVerified, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

const userColumns = `id, email, password, COALESCE(name, ''), currency_preference, auth_provider, is_email_verified, created_at`

// GetUserByEmail retrieves a user by their email address.
func GetUserByEmail(db *sql.DB, email string) (*User, error) {
	row := db.QueryRow(`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// GetUserByID retrieves a user by their UUID.
func GetUserByID(db *sql.DB, id string) (*User, error) {
	row := db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// SetVerificationToken stores an email verification token with its expiry.
func SetVerificationToken(db *sql.DB, userID, token string, expiresAt time.Time) error {
	_, err := db.Exec(`UPDATE users SET email_verification_token = ?, email_verification_token_expires_at = ? WHERE id = ?`,
		token, expiresAt, userID)
	return err
}

// VerifyEmailByToken marks the matching user's email as verified. Returns
// ErrUserNotFound when the token is unknown or expired.
func VerifyEmailByToken(db *sql.DB, token string) error {
	result, err := db.Exec(`
	UPDATE users
	SET is_email_verified = TRUE, email_verification_token = NULL, email_verification_token_expires_at = NULL
	WHERE email_verification_token = ? AND email_verification_token_expires_at > ?`,
		token, time.Now())
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// HasTransactions reports whether the user has recorded any transactions yet.
func HasTransactions(db *sql.DB, userID string) (bool, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(1) FROM transactions WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateSession inserts a new session into the database.
func CreateSession(db *sql.DB, session *Session) error {
	query := `
	INSERT INTO sessions (user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	session.CreatedAt = time.Now()
	_, err = stmt.Exec(
		session.UserID,
		session.Token,
		session.RefreshToken,
		session.UserAgent,
		session.ClientIP,
		session.IsBlocked,
		session.ExpiresAt,
		session.CreatedAt,
	)
	return err
}

// GetSessionByToken retrieves an active, non-blocked session by its access token.
func GetSessionByToken(db *sql.DB, token string) (*Session, error) {
	query := `
	SELECT id, user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at
	FROM sessions
	WHERE token = ? AND is_blocked = FALSE AND expires_at > ?`

	row := db.QueryRow(query, token, time.Now())
	var session Session
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.RefreshToken,
		&session.UserAgent,
		&session.ClientIP,
		&session.IsBlocked,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("session not found, expired, or blocked")
		}
		return nil, err
	}
	return &session, nil
}

// GetSessionByRefreshToken retrieves a session eligible for refresh.
func GetSessionByRefreshToken(db *sql.DB, refreshToken string) (*Session, error) {
	query := `
	SELECT id, user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at
	FROM sessions
	WHERE refresh_token = ? AND is_blocked = FALSE AND expires_at > ?`

	row := db.QueryRow(query, refreshToken, time.Now())
	var session Session
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.RefreshToken,
		&session.UserAgent,
		&session.ClientIP,
		&session.IsBlocked,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("session not found, expired, or blocked")
		}
		return nil, err
	}
	return &session, nil
}

// UpdateSessionToken swaps the access token on an existing session after a refresh.
func UpdateSessionToken(db *sql.DB, sessionID int64, newToken string) error {
	_, err := db.Exec(`UPDATE sessions SET token = ? WHERE id = ?`, newToken, sessionID)
	return err
}

// DeleteSessionByToken removes a session based on the access token. A missing
// session is not an error for logout purposes.
func DeleteSessionByToken(db *sql.DB, token string) error {
	_, err := db.Exec(`DELETE FROM sessions WHERE token = ?`, token)
	return err
}
