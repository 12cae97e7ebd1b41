package dto

import (
	"time"

	"github.com/campus-nfc/card-service/internal/domain"
	"github.com/campus-nfc/card-service/internal/service"
)

// UserResponse is the public view of an account. is_approved and is_active
// are derived from state for clients that still read the boolean pair.
type UserResponse struct {
	ID                 string    `json:"id"`
	FirstName          string    `json:"first_name"`
	LastName           string    `json:"last_name"`
	FullName           string    `json:"full_name"`
	Email              string    `json:"email"`
	CardNumber         string    `json:"card_number"`
	NFCID              *string   `json:"nfc_id"`
	Role               string    `json:"role"`
	Department         string    `json:"department"`
	State              string    `json:"state"`
	IsApproved         bool      `json:"is_approved"`
	IsActive           bool      `json:"is_active"`
	CanApproveStudents bool      `json:"can_approve_students"`
	HasPhoto           bool      `json:"has_photo"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:                 u.ID,
		FirstName:          u.FirstName,
		LastName:           u.LastName,
		FullName:           u.FullName(),
		Email:              u.Email,
		CardNumber:         u.CardNumber,
		NFCID:              u.NFCID,
		Role:               string(u.Role),
		Department:         u.Department,
		State:              string(u.State),
		IsApproved:         u.IsApproved(),
		IsActive:           u.IsActive(),
		CanApproveStudents: u.CanApproveStudents,
		HasPhoto:           u.ImageKey != nil && *u.ImageKey != "",
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

// UserListResponse is one page of users.
type UserListResponse struct {
	Items    []UserResponse `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// NewUserListResponse maps a page of users.
func NewUserListResponse(users []domain.User, total int, page Page) UserListResponse {
	items := make([]UserResponse, 0, len(users))
	for i := range users {
		items = append(items, NewUserResponse(&users[i]))
	}
	return UserListResponse{Items: items, Total: total, Page: page.Number, PageSize: page.Size}
}

// CreateUserRequest is the admin add-user form.
type CreateUserRequest struct {
	FirstName   string `json:"first_name" validate:"required,max=100"`
	LastName    string `json:"last_name" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email,max=255"`
	CardNumber  string `json:"card_number" validate:"required,cardnumber"`
	Department  string `json:"department" validate:"required,max=120"`
	Role        string `json:"role" validate:"required,oneof=student staff"`
	Password    string `json:"password" validate:"required"`
	ImageBase64 string `json:"image_base64,omitempty"`
}

// AssignNFCRequest binds a reader tag to a user.
type AssignNFCRequest struct {
	NFCID string `json:"nfc_id" validate:"required,max=64"`
}

// ApprovalPermissionRequest toggles the staff approval permission.
type ApprovalPermissionRequest struct {
	Allowed *bool `json:"allowed" validate:"required"`
}

// CardResponse is the digital card.
type CardResponse struct {
	FullName   string `json:"full_name"`
	CardNumber string `json:"card_number"`
	Department string `json:"department"`
	Role       string `json:"role"`
	NFCID      string `json:"nfc_id"`
	PhotoURL   string `json:"photo_url,omitempty"`
}

// NewCardResponse maps a card view.
func NewCardResponse(v service.CardView) CardResponse {
	return CardResponse{
		FullName:   v.FullName,
		CardNumber: v.CardNumber,
		Department: v.Department,
		Role:       string(v.Role),
		NFCID:      v.NFCID,
		PhotoURL:   v.PhotoURL,
	}
}
