package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"shipconf/internal/config"
	"shipconf/internal/deps"
	"shipconf/internal/services/acumatica"
)

const remoteCheckTimeout = 30 * time.Second

// CheckRemote logs in and out once to prove the credentials and base URL work.
func CheckRemote(ctx context.Context, cfg *config.Config) Result {
	const name = "Order service"

	checkCtx, cancel := context.WithTimeout(ctx, remoteCheckTimeout)
	defer cancel()

	client, err := acumatica.NewClient(cfg.API.BaseURL, acumatica.WithTimeout(remoteCheckTimeout))
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	creds := acumatica.Credentials{Name: cfg.API.User, Password: cfg.API.Password}
	if err := client.Login(checkCtx, creds); err != nil {
		return Result{Name: name, Detail: "login failed: " + summarizeRemoteError(err)}
	}
	if err := client.Logout(checkCtx, creds); err != nil {
		return Result{Name: name, Detail: "logout failed: " + summarizeRemoteError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (login/logout ok)", client.BaseURL())}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps reports the imaging binaries used for barcode documents,
// looked up on the PATH the tools are run with, so a configured
// ghostscript_dir is searched first.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "ImageMagick",
			Command:     cfg.Tools.Magick,
			Description: "Required to rasterize barcode documents",
		},
		{
			Name:        "zbarimg",
			Command:     cfg.Tools.Zbarimg,
			Description: "Required to decode barcodes",
		},
		{
			Name:        "Ghostscript",
			Command:     "gs",
			Description: "Used by ImageMagick to read PDF input",
			Optional:    true,
		},
	}
	return deps.CheckBinaries(requirements, cfg.ToolEnv())
}

func summarizeRemoteError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out (service unreachable)"
	}
	var authErr *acumatica.AuthError
	if errors.As(err, &authErr) {
		return authErr.Error()
	}
	return err.Error()
}
