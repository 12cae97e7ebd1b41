package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/campus-nfc/card-service/internal/storage"
	apperrors "github.com/campus-nfc/card-service/pkg/util/errorutil"
)

var photoExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// Photo is a decoded profile image.
type Photo struct {
	Data        []byte
	ContentType string
}

// DecodePhoto accepts raw base64 or a data URI and checks the image type and size.
func DecodePhoto(encoded string, maxBytes int) (Photo, error) {
	encoded = strings.TrimSpace(encoded)
	if i := strings.Index(encoded, ","); strings.HasPrefix(encoded, "data:") && i > 0 {
		encoded = encoded[i+1:]
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
	}
	if err != nil || len(data) == 0 {
		return Photo{}, apperrors.NewValidationError("image is not valid base64", map[string]any{"field": "image_base64"})
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return Photo{}, apperrors.NewValidationError("image is too large", map[string]any{"field": "image_base64", "max_bytes": maxBytes})
	}

	contentType := http.DetectContentType(data)
	if _, ok := photoExtensions[contentType]; !ok {
		return Photo{}, apperrors.NewValidationError("image must be jpeg, png or webp", map[string]any{"field": "image_base64", "content_type": contentType})
	}
	return Photo{Data: data, ContentType: contentType}, nil
}

// storePhoto uploads p under a fresh key. A disabled store yields an empty key.
func storePhoto(ctx context.Context, photos storage.ObjectStorage, p Photo) (string, error) {
	if photos == nil {
		return "", nil
	}
	key := fmt.Sprintf("profiles/%s.%s", uuid.NewString(), photoExtensions[p.ContentType])
	if err := photos.Put(ctx, key, bytes.NewReader(p.Data), int64(len(p.Data)), p.ContentType); err != nil {
		if errors.Is(err, storage.ErrDisabled) {
			return "", nil
		}
		return "", apperrors.NewInternalError(fmt.Errorf("upload photo: %w", err))
	}
	return key, nil
}
