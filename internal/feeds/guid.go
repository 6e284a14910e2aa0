package feeds

import (
	"strings"

	"github.com/google/uuid"

	"podcaster/internal/config"
)

var guidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("podcaster/feed"))

// DeriveGUID returns the feed GUID for an identity mode. IdentityNone yields
// the empty GUID, which selects the un-keyed single feed.
func DeriveGUID(mode, workspace, podcastName string) string {
	workspace = strings.TrimSpace(workspace)
	switch mode {
	case config.IdentityNone:
		return ""
	case config.IdentityPremise:
		return uuid.NewSHA1(guidNamespace, []byte(workspace+"\x00"+strings.TrimSpace(podcastName))).String()
	default:
		return uuid.NewSHA1(guidNamespace, []byte(workspace)).String()
	}
}
