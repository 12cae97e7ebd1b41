package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/campus-nfc/card-service/pkg/util/errorutil"
)

func TestValidateUsesJSONFieldNames(t *testing.T) {
	err := Validate(RegisterRequest{Email: "not-an-email", Role: "admin"})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	details := apperrors.ToDomainError(err).Details
	assert.Equal(t, "is required", details["first_name"])
	assert.Equal(t, "must be a valid email", details["email"])
	assert.Equal(t, "must be one of: student, staff", details["role"])
	assert.Contains(t, details, "card_number")
}

func TestValidateAcceptsCompleteRequest(t *testing.T) {
	req := RegisterRequest{
		FirstName:       "Ana",
		LastName:        "Lima",
		Email:           "ana@campus.test",
		CardNumber:      "C-1001",
		Department:      "CS",
		Role:            "student",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	}
	assert.NoError(t, Validate(req))
}

func TestBulkRequestAllowsEmptySelection(t *testing.T) {
	assert.NoError(t, Validate(BulkTransitionRequest{Transition: "approve"}))
	assert.Error(t, Validate(BulkTransitionRequest{UserIDs: []string{"u-1"}}))
}

func TestParsePage(t *testing.T) {
	p, err := ParsePage("", "")
	require.NoError(t, err)
	assert.Equal(t, Page{Number: 1, Size: 50}, p)

	p, err = ParsePage("3", "1000")
	require.NoError(t, err)
	assert.Equal(t, 200, p.Size)
	assert.Equal(t, 400, p.Offset())

	_, err = ParsePage("0", "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestParseFilters(t *testing.T) {
	s, err := ParseState(" Pending ")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "pending", string(*s))

	_, err = ParseState("rejected")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	r, err := ParseRole("")
	require.NoError(t, err)
	assert.Nil(t, r)
}
