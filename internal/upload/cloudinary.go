// Package upload stores profile pictures on Cloudinary.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strconv"
	"strings"

	"feedback-service/internal/config"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

var ErrNotConfigured = errors.New("upload: cloudinary credentials are not configured")

type Client struct {
	cld    *cloudinary.Cloudinary
	folder string
	logger *slog.Logger
}

func NewClient(cfg config.UploadConfig, logger *slog.Logger) (*Client, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("upload: failed to configure cloudinary: %w", err)
	}
	if cfg.BaseURL != "" {
		cld.Config.API.UploadPrefix = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &Client{
		cld:    cld,
		folder: cfg.Folder,
		logger: logger,
	}, nil
}

// Upload sends an image and returns its HTTPS URL.
func (c *Client) Upload(ctx context.Context, file io.Reader, publicID string) (string, error) {
	res, err := c.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		PublicID:  publicID,
		Folder:    c.folder,
		Overwrite: api.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("upload: request failed: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("upload: cloudinary rejected %s: %s", publicID, res.Error.Message)
	}
	if res.SecureURL == "" {
		return "", errors.New("upload: response has no secure_url")
	}

	c.logger.InfoContext(ctx, "image uploaded", "public_id", res.PublicID)
	return res.SecureURL, nil
}

// Delete removes the image behind a URL previously returned by Upload.
func (c *Client) Delete(ctx context.Context, imageURL string) error {
	publicID, err := PublicIDFromURL(imageURL)
	if err != nil {
		return err
	}

	res, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("upload: destroy request failed: %w", err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("upload: destroy %s: %s", publicID, res.Error.Message)
	}
	if res.Result != "ok" {
		return fmt.Errorf("upload: destroy %s returned %q", publicID, res.Result)
	}
	return nil
}

// PublicIDFromURL extracts the public id (folder included) from a delivery
// URL such as https://res.cloudinary.com/demo/image/upload/v123/profiles/user_1_x.jpg.
func PublicIDFromURL(imageURL string) (string, error) {
	u, err := url.Parse(imageURL)
	if err != nil {
		return "", fmt.Errorf("upload: invalid image url: %w", err)
	}

	_, rest, ok := strings.Cut(u.Path, "/upload/")
	if !ok || rest == "" {
		return "", fmt.Errorf("upload: %q is not a cloudinary delivery url", imageURL)
	}

	segments := strings.Split(rest, "/")
	if len(segments) > 1 && isVersion(segments[0]) {
		segments = segments[1:]
	}
	id := strings.Join(segments, "/")
	return strings.TrimSuffix(id, path.Ext(id)), nil
}

func isVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	_, err := strconv.Atoi(s[1:])
	return err == nil
}
