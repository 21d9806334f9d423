package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
)

// Виды фирменных изображений.
const (
	AssetLogo    = "logo"
	AssetFavicon = "favicon"
)

// GetGlobalSettings — GET /api/global-settings.
func (c *Client) GetGlobalSettings(ctx context.Context) (*model.GlobalSettings, error) {
	var out model.GlobalSettings
	if err := c.do(ctx, http.MethodGet, "/api/global-settings", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateGlobalSettings — PUT /api/global-settings.
func (c *Client) UpdateGlobalSettings(ctx context.Context, patch model.GlobalSettingsPatch) (*model.GlobalSettings, error) {
	var out model.GlobalSettings
	if err := c.do(ctx, http.MethodPut, "/api/global-settings", nil, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadAsset — POST /api/global-settings/{logo|favicon}, multipart-поле "file".
// Возвращает обновлённые настройки.
func (c *Client) UploadAsset(ctx context.Context, kind, filename, contentType string, data io.Reader) (*model.GlobalSettings, error) {
	if kind != AssetLogo && kind != AssetFavicon {
		return nil, fmt.Errorf("неизвестный вид изображения %q", kind)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("создание multipart-части: %w", err)
	}
	if _, err := io.Copy(part, data); err != nil {
		return nil, fmt.Errorf("запись файла в multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("завершение multipart: %w", err)
	}

	var out model.GlobalSettings
	if err := c.send(ctx, http.MethodPost, "/api/global-settings/"+kind, nil, &buf, mw.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
