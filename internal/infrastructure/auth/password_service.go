package auth

import (
	"fmt"

	"github.com/you/trainerauth/domain"
	"golang.org/x/crypto/bcrypt"
)

const (
	// MinCostProduction is the lowest bcrypt cost accepted when running in production
	MinCostProduction = 12
	// MinCostDefault is the lowest bcrypt cost accepted elsewhere
	MinCostDefault = 10
)

// MinCost returns the cost floor for the environment
func MinCost(production bool) int {
	if production {
		return MinCostProduction
	}
	return MinCostDefault
}

// PasswordServiceImpl implements domain.PasswordService
type PasswordServiceImpl struct {
	cost int
}

// NewPasswordService creates a bcrypt password service. It refuses costs below the
// environment floor instead of silently hashing with a weaker setting.
func NewPasswordService(cost int, production bool) (*PasswordServiceImpl, error) {
	if floor := MinCost(production); cost < floor {
		return nil, fmt.Errorf("bcrypt cost %d is below the minimum of %d", cost, floor)
	}
	if cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d exceeds the maximum of %d", cost, bcrypt.MaxCost)
	}
	return &PasswordServiceImpl{cost: cost}, nil
}

var _ domain.PasswordService = (*PasswordServiceImpl)(nil)

// Hash implements domain.PasswordService
func (p *PasswordServiceImpl) Hash(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// Verify implements domain.PasswordService
func (p *PasswordServiceImpl) Verify(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}
