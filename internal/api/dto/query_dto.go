package dto

import (
	"strconv"
	"strings"

	"github.com/campus-nfc/card-service/internal/domain"
	apperrors "github.com/campus-nfc/card-service/pkg/util/errorutil"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

// Offset returns the row offset of the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// ParsePage reads page and page_size query values.
func ParsePage(page, size string) (Page, error) {
	p := Page{Number: 1, Size: defaultPageSize}
	if page != "" {
		n, err := strconv.Atoi(page)
		if err != nil || n < 1 {
			return Page{}, apperrors.NewValidationError("invalid page", map[string]any{"page": page})
		}
		p.Number = n
	}
	if size != "" {
		n, err := strconv.Atoi(size)
		if err != nil || n < 1 {
			return Page{}, apperrors.NewValidationError("invalid page_size", map[string]any{"page_size": size})
		}
		if n > maxPageSize {
			n = maxPageSize
		}
		p.Size = n
	}
	return p, nil
}

// ParseState reads an optional account state filter.
func ParseState(raw string) (*domain.AccountState, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return nil, nil
	}
	s := domain.AccountState(raw)
	if !s.Valid() {
		return nil, apperrors.NewValidationError("invalid state", map[string]any{"state": raw})
	}
	return &s, nil
}

// ParseRole reads an optional role filter.
func ParseRole(raw string) (*domain.Role, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return nil, nil
	}
	r := domain.Role(raw)
	if !r.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": raw})
	}
	return &r, nil
}
