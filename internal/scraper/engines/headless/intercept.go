package headless

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

var resourceTypes = map[string]proto.NetworkResourceType{
	"document":   proto.NetworkResourceTypeDocument,
	"stylesheet": proto.NetworkResourceTypeStylesheet,
	"image":      proto.NetworkResourceTypeImage,
	"media":      proto.NetworkResourceTypeMedia,
	"font":       proto.NetworkResourceTypeFont,
	"script":     proto.NetworkResourceTypeScript,
	"xhr":        proto.NetworkResourceTypeXHR,
	"fetch":      proto.NetworkResourceTypeFetch,
	"websocket":  proto.NetworkResourceTypeWebSocket,
	"manifest":   proto.NetworkResourceTypeManifest,
	"ping":       proto.NetworkResourceTypePing,
	"other":      proto.NetworkResourceTypeOther,
}

// parseBlockList maps configured names to CDP resource types. Unknown names
// are returned separately so the caller can warn about them.
func parseBlockList(names []string) (map[proto.NetworkResourceType]bool, []string) {
	blocked := make(map[proto.NetworkResourceType]bool, len(names))
	var unknown []string
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		t, ok := resourceTypes[key]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		blocked[t] = true
	}
	return blocked, unknown
}

// blockResources fails matching requests with BlockedByClient and lets every
// other request continue unmodified. The returned router must be stopped.
func blockResources(page *rod.Page, blocked map[proto.NetworkResourceType]bool) (*rod.HijackRouter, error) {
	router := page.HijackRequests()
	err := router.Add("*", "", func(h *rod.Hijack) {
		if blocked[h.Request.Type()] {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	if err != nil {
		return nil, err
	}
	go router.Run()
	return router, nil
}
