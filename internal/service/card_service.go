package service

import (
	"context"
	"errors"
	"io"
	"path"

	"go.uber.org/zap"

	"github.com/campus-nfc/card-service/internal/domain"
	"github.com/campus-nfc/card-service/internal/storage"
	apperrors "github.com/campus-nfc/card-service/pkg/util/errorutil"
)

// PhotoPath is where the caller's own photo is served.
const PhotoPath = "/me/photo"

// CardView is what the digital card screen renders.
type CardView struct {
	FullName   string
	CardNumber string
	Department string
	Role       domain.Role
	NFCID      string
	PhotoURL   string
}

// CardService builds the digital card and serves profile photos.
type CardService struct {
	photos storage.ObjectStorage
	logger *zap.Logger
}

// NewCardService builds the service. photos may be nil.
func NewCardService(photos storage.ObjectStorage, logger *zap.Logger) *CardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CardService{photos: photos, logger: logger}
}

// Card returns the card of a usable user.
func (s *CardService) Card(user *domain.User) (CardView, error) {
	if user == nil {
		return CardView{}, apperrors.NewUnauthorized("authentication required")
	}
	if !user.Usable() {
		return CardView{}, apperrors.NewForbidden("account is awaiting approval")
	}
	view := CardView{
		FullName:   user.FullName(),
		CardNumber: user.CardNumber,
		Department: user.Department,
		Role:       user.Role,
		NFCID:      user.CardID(),
	}
	if user.ImageKey != nil && *user.ImageKey != "" {
		view.PhotoURL = PhotoPath
	}
	return view, nil
}

// Photo opens the stored profile photo of user. The caller closes the reader.
func (s *CardService) Photo(ctx context.Context, user *domain.User) (io.ReadCloser, string, error) {
	if user == nil {
		return nil, "", apperrors.NewUnauthorized("authentication required")
	}
	if user.ImageKey == nil || *user.ImageKey == "" || s.photos == nil {
		return nil, "", apperrors.NewNotFound("photo", nil)
	}
	rc, err := s.photos.Get(ctx, *user.ImageKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) || errors.Is(err, storage.ErrDisabled) {
			return nil, "", apperrors.NewNotFound("photo", nil)
		}
		s.logger.Error("read profile photo", zap.String("user_id", user.ID), zap.Error(err))
		return nil, "", apperrors.NewInternalError(err)
	}
	return rc, contentTypeOf(*user.ImageKey), nil
}

func contentTypeOf(key string) string {
	switch path.Ext(key) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
