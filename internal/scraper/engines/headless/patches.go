package headless

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PatchSet is the anti-detection payload installed on every new document
// before navigation. Version is logged with each session so a change in
// site behaviour can be matched to a payload revision.
type PatchSet struct {
	Version             string
	Languages           []string
	Plugins             int
	HardwareConcurrency int
	ScreenWidth         int
	ScreenHeight        int
}

func DefaultPatchSet() PatchSet {
	return PatchSet{
		Version:             "2025.05",
		Languages:           []string{"es-ES", "es", "en"},
		Plugins:             5,
		HardwareConcurrency: 8,
		ScreenWidth:         1920,
		ScreenHeight:        1080,
	}
}

// Script renders the patch set as a self-invoking function
func (p PatchSet) Script() string {
	languages, _ := json.Marshal(p.Languages)
	if len(p.Languages) == 0 {
		languages = []byte(`["es-ES","es"]`)
	}

	var b strings.Builder
	b.WriteString("(() => {\n")
	b.WriteString("  const define = (obj, prop, value) => { try { Object.defineProperty(obj, prop, { get: () => value, configurable: true }); } catch (e) {} };\n")
	b.WriteString("  define(navigator, 'webdriver', undefined);\n")
	fmt.Fprintf(&b, "  define(navigator, 'languages', %s);\n", languages)
	fmt.Fprintf(&b, "  define(navigator, 'plugins', Array.from({ length: %d }, (_, i) => ({ name: 'Plugin ' + i })));\n", p.Plugins)
	if p.HardwareConcurrency > 0 {
		fmt.Fprintf(&b, "  define(navigator, 'hardwareConcurrency', %d);\n", p.HardwareConcurrency)
	}
	if p.ScreenWidth > 0 && p.ScreenHeight > 0 {
		fmt.Fprintf(&b, "  define(screen, 'width', %d);\n  define(screen, 'height', %d);\n", p.ScreenWidth, p.ScreenHeight)
		fmt.Fprintf(&b, "  define(screen, 'availWidth', %d);\n  define(screen, 'availHeight', %d);\n", p.ScreenWidth, p.ScreenHeight-30)
	}
	b.WriteString("  window.chrome = window.chrome || {};\n")
	b.WriteString("  window.chrome.runtime = window.chrome.runtime || {};\n")
	b.WriteString("  if (navigator.permissions && navigator.permissions.query) {\n")
	b.WriteString("    const originalQuery = navigator.permissions.query.bind(navigator.permissions);\n")
	b.WriteString("    navigator.permissions.query = (parameters) => (\n")
	b.WriteString("      parameters && parameters.name === 'notifications'\n")
	b.WriteString("        ? Promise.resolve({ state: Notification.permission })\n")
	b.WriteString("        : originalQuery(parameters)\n")
	b.WriteString("    );\n")
	b.WriteString("  }\n")
	b.WriteString("})();")
	return b.String()
}
