package service

import (
	"context"
	"strings"

	"github.com/campus-nfc/card-service/internal/domain"
	"github.com/campus-nfc/card-service/internal/repository"
	apperrors "github.com/campus-nfc/card-service/pkg/util/errorutil"
)

var uniqueMessages = map[string]string{
	"users_card_number_key":      "card number already registered",
	"users_email_lower_key":      "email already registered",
	"users_nfc_id_key":           "nfc id already assigned",
	"departments_name_lower_key": "department already exists",
}

// mapUserError turns unique-index violations into CONFLICT errors with a
// readable message and everything else into the shared mapping.
func mapUserError(err error) error {
	if err == nil {
		return nil
	}
	if constraint, ok := apperrors.IsUniqueViolation(err); ok {
		msg, known := uniqueMessages[constraint]
		if !known {
			msg = "resource already exists"
		}
		return apperrors.NewConflict(msg, map[string]any{"constraint": constraint})
	}
	return apperrors.MapError(err)
}

// resolveDepartment returns the catalog spelling of name. An empty catalog
// accepts any non-blank label.
func resolveDepartment(ctx context.Context, departments repository.DepartmentRepository, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.NewValidationError("department is required", map[string]any{"field": "department"})
	}
	if departments == nil {
		return name, nil
	}
	catalog, err := departments.List(ctx, false)
	if err != nil {
		return "", apperrors.MapError(err)
	}
	if len(catalog) == 0 {
		return name, nil
	}
	for _, d := range catalog {
		if domain.SameDepartment(d.Name, name) {
			return d.Name, nil
		}
	}
	return "", apperrors.NewValidationError("unknown department", map[string]any{"field": "department", "department": name})
}

// ensureUnused reports a CONFLICT when the card number or email is taken.
func ensureUnused(ctx context.Context, users repository.UserRepository, email, cardNumber string) error {
	if _, err := users.GetByCardNumber(ctx, cardNumber); err == nil {
		return apperrors.NewConflict(uniqueMessages["users_card_number_key"], map[string]any{"field": "card_number"})
	} else if !apperrors.IsNoRows(err) {
		return apperrors.MapError(err)
	}
	if _, err := users.GetByEmail(ctx, email); err == nil {
		return apperrors.NewConflict(uniqueMessages["users_email_lower_key"], map[string]any{"field": "email"})
	} else if !apperrors.IsNoRows(err) {
		return apperrors.MapError(err)
	}
	return nil
}
