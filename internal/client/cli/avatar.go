package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/webtoz/internal/client/api"
	"github.com/dmitrijs2005/webtoz/internal/netx"
)

var avatarContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Avatar uploads an image file straight to object storage through a
// presigned URL and points the profile's avatar at it.
func (a *App) Avatar(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("avatar <file>")
	}
	path := args[0]

	contentType, ok := avatarContentTypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return userError("Avatar must be a jpeg, png, gif or webp image")
	}

	f, err := os.Open(path)
	if err != nil {
		return userError(fmt.Sprintf("Cannot open %s: %v", path, err))
	}
	defer f.Close()

	up, err := a.api.AvatarUpload(ctx, contentType)
	if err != nil {
		return err
	}
	if err := netx.UploadToPresignedURL(ctx, a.api.HTTPClient(), up.UploadURL, contentType, f); err != nil {
		return userError("Upload failed: " + err.Error())
	}

	u, err := a.api.UpdateProfile(ctx, api.ProfileUpdate{Avatar: &up.PublicURL})
	if err != nil {
		return err
	}
	if err := a.session.UpdateUser(ctx, u); err != nil {
		return err
	}

	a.println("Avatar updated:", up.PublicURL)
	return nil
}
