package app

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"service-queue/internal/models"
)

type OperatorInput struct {
	Name        string
	Email       string
	Password    string
	Permissions string
}

// CreateOperator hashes the password with bcrypt and stores the operator.
func (a *App) CreateOperator(ctx context.Context, in OperatorInput) (models.Operator, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" {
		return models.Operator{}, fmt.Errorf("name wajib diisi")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return models.Operator{}, fmt.Errorf("email tidak valid: %w", err)
	}
	if len(in.Password) < 8 {
		return models.Operator{}, fmt.Errorf("password minimal 8 karakter")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.Operator{}, fmt.Errorf("hash password: %w", err)
	}

	operator, err := a.Store.CreateOperator(ctx, models.Operator{
		Name:        in.Name,
		Email:       in.Email,
		Password:    string(hash),
		Permissions: strings.ToUpper(strings.TrimSpace(in.Permissions)),
	})
	if err != nil {
		return models.Operator{}, err
	}

	a.Logger.Info("operator created", zap.Int64("operator_id", operator.ID), zap.String("email", operator.Email))
	return operator, nil
}
