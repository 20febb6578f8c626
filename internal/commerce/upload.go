package commerce

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/fjod/go_travel/internal/domain"
	"github.com/tidwall/gjson"
)

// UploadImage sends the image bytes as multipart field "image" and returns the
// URL the API stored them under.
func (c *Client) UploadImage(ctx context.Context, img domain.Image) (string, error) {
	if err := img.Validate(); err != nil {
		return "", err
	}

	filename := img.Filename
	if filename == "" {
		filename = "proof"
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("mw.CreatePart: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return "", fmt.Errorf("part.Write: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("mw.Close: %w", err)
	}

	raw, err := c.do(ctx, http.MethodPost, "/upload-image", buf.Bytes(), mw.FormDataContentType())
	if err != nil {
		return "", err
	}

	for _, path := range []string{"data.imageUrl", "data.url", "url"} {
		if u := gjson.GetBytes(raw, path).String(); u != "" {
			return u, nil
		}
	}
	return "", ErrMissingImageURL
}
