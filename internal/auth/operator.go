package auth

import (
	"errors"
	"sync"
)

// ErrBadCredentials is returned when a login attempt fails. The message is
// identical for unknown user and wrong password.
var ErrBadCredentials = errors.New("invalid username or password")

// OperatorAuth authenticates the single operator account and issues API
// tokens. Only the hash of the latest refresh token is held, in memory, so
// restarting the agent invalidates outstanding refresh tokens.
type OperatorAuth struct {
	username     string
	passwordHash string
	passwords    *PasswordManager
	jwt          *JWTManager

	mu          sync.Mutex
	refreshHash string
}

// NewOperatorAuth creates the operator auth service. passwordHash is a
// bcrypt hash of the operator password.
func NewOperatorAuth(username, passwordHash string, passwords *PasswordManager, jwt *JWTManager) *OperatorAuth {
	return &OperatorAuth{
		username:     username,
		passwordHash: passwordHash,
		passwords:    passwords,
		jwt:          jwt,
	}
}

// Login verifies the operator credentials and issues a token pair.
func (a *OperatorAuth) Login(username, password string) (*TokenPair, error) {
	if username != a.username || !a.passwords.VerifyPassword(password, a.passwordHash) {
		return nil, ErrBadCredentials
	}
	return a.issue()
}

// Refresh rotates the token pair. The presented refresh token must match
// the latest one issued.
func (a *OperatorAuth) Refresh(refreshToken string) (*TokenPair, error) {
	a.mu.Lock()
	ok := a.refreshHash != "" && a.refreshHash == HashRefreshToken(refreshToken)
	a.mu.Unlock()
	if !ok {
		return nil, ErrInvalidToken
	}
	return a.issue()
}

func (a *OperatorAuth) issue() (*TokenPair, error) {
	pair, err := a.jwt.GenerateTokenPair(UserClaims{UserID: a.username, IsAdmin: true})
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.refreshHash = HashRefreshToken(pair.RefreshToken)
	a.mu.Unlock()
	return pair, nil
}
