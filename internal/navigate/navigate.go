// Package navigate builds the external maps handoff for "start navigation".
package navigate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/keilo/waytrack/internal/models"
)

// Platform is the shell's platform family, reported with the navigate
// command. Android gets the native maps intent; everything else gets the
// universal web URL.
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
	PlatformWeb     Platform = "web"
)

// Launcher hands a URL to the OS-level link opener. Failures are reported to
// the user, never retried.
type Launcher interface {
	OpenURL(ctx context.Context, rawURL string) error
}

// BuildDirectionsURL constructs the driving-directions handoff URL for the
// given destination.
func BuildDirectionsURL(platform Platform, dest models.GeoPoint) string {
	lat := models.FormatCoord(dest.Latitude)
	lng := models.FormatCoord(dest.Longitude)

	if platform == PlatformAndroid {
		return fmt.Sprintf("google.navigation:q=%s,%s&mode=d", lat, lng)
	}
	return fmt.Sprintf("https://www.google.com/maps/dir/?api=1&destination=%s,%s&travelmode=driving", lat, lng)
}

// LogLauncher records the handoff and leaves the actual open to the shell,
// which receives the URL in the command response.
type LogLauncher struct {
	logger *zap.Logger
}

func NewLogLauncher(logger *zap.Logger) *LogLauncher {
	return &LogLauncher{logger: logger}
}

func (l *LogLauncher) OpenURL(ctx context.Context, rawURL string) error {
	l.logger.Info("Navigation handoff", zap.String("url", rawURL))
	return nil
}
