package mocks

import (
	"strings"
	"sync"

	"github.com/you/trainerauth/domain"
)

const mockHashPrefix = "mockhash$"

// MockPasswordService is a reversible stand-in for bcrypt. Hashes are
// prefixed so tests can tell a stored hash from a plaintext password.
type MockPasswordService struct {
	HashFunc   func(password string) (string, error)
	VerifyFunc func(hashedPassword, password string) bool

	mu     sync.Mutex
	hashed int
}

// NewMockPasswordService creates a MockPasswordService
func NewMockPasswordService() *MockPasswordService {
	return &MockPasswordService{}
}

// Hash returns the prefixed password
func (m *MockPasswordService) Hash(password string) (string, error) {
	m.mu.Lock()
	m.hashed++
	m.mu.Unlock()
	if m.HashFunc != nil {
		return m.HashFunc(password)
	}
	return mockHashPrefix + password, nil
}

// Verify checks password against a hash produced by Hash
func (m *MockPasswordService) Verify(hashedPassword, password string) bool {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(hashedPassword, password)
	}
	plain, ok := strings.CutPrefix(hashedPassword, mockHashPrefix)
	return ok && plain == password
}

// HashCalls reports how many passwords were hashed
func (m *MockPasswordService) HashCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hashed
}

var _ domain.PasswordService = (*MockPasswordService)(nil)
