// Package doctor runs readiness diagnostics for config, the companion app, and the plugin socket.
package doctor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rbright/stonedeck/internal/companion"
	"github.com/rbright/stonedeck/internal/config"
	"github.com/rbright/stonedeck/internal/ipc"
)

const probeTimeout = 250 * time.Millisecond

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Companion is the slice of the API client the checks call.
type Companion interface {
	BaseURL() string
	ListSoundEffects(ctx context.Context) ([]companion.SoundEffect, error)
	FetchIcon(ctx context.Context, name string) (string, error)
	ListCampaigns(ctx context.Context) ([]companion.Campaign, error)
}

// Run executes config, companion, and socket checks. socketPath may be empty
// when no runtime dir is available.
func Run(ctx context.Context, cfg config.Loaded, api Companion, socketPath string) Report {
	checks := []Check{checkConfig(cfg)}
	checks = append(checks, checkEffects(ctx, api)...)
	checks = append(checks, checkCampaigns(ctx, api))
	checks = append(checks, checkSocket(ctx, socketPath))
	return Report{Checks: checks}
}

func checkConfig(cfg config.Loaded) Check {
	message := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		message = fmt.Sprintf("using defaults (%q not found)", cfg.Path)
	}
	if n := len(cfg.Warnings); n > 0 {
		message += fmt.Sprintf(", %d warning(s)", n)
	}
	return Check{Name: "config", Pass: true, Message: message}
}

// checkEffects lists effects and, when any exist, fetches the first icon.
func checkEffects(ctx context.Context, api Companion) []Check {
	items, err := api.ListSoundEffects(ctx)
	if err != nil {
		return []Check{{
			Name:    "companion.sfx",
			Pass:    false,
			Message: fmt.Sprintf("%s: %s", api.BaseURL(), companion.Describe(err, "SFX")),
		}}
	}

	checks := []Check{{
		Name:    "companion.sfx",
		Pass:    true,
		Message: fmt.Sprintf("%s effects at %s", humanize.Comma(int64(len(items))), api.BaseURL()),
	}}
	if len(items) == 0 {
		return checks
	}

	name := items[0].Name
	icon, err := api.FetchIcon(ctx, name)
	if err != nil {
		return append(checks, Check{Name: "companion.icon", Pass: false, Message: fmt.Sprintf("%q: %v", name, err)})
	}
	return append(checks, Check{
		Name:    "companion.icon",
		Pass:    true,
		Message: fmt.Sprintf("%q renders as a %s image payload", name, humanize.Bytes(uint64(len(icon)))),
	})
}

func checkCampaigns(ctx context.Context, api Companion) Check {
	campaigns, err := api.ListCampaigns(ctx)
	if err != nil {
		return Check{Name: "companion.campaigns", Pass: false, Message: companion.Describe(err, "scenes")}
	}
	return Check{
		Name:    "companion.campaigns",
		Pass:    true,
		Message: fmt.Sprintf("%s campaign(s)", humanize.Comma(int64(len(campaigns)))),
	}
}

// checkSocket reports whether a plugin process owns the status socket.
// Not running is informational; an unreadable socket fails.
func checkSocket(ctx context.Context, socketPath string) Check {
	if socketPath == "" {
		return Check{Name: "plugin.socket", Pass: true, Message: "no runtime dir; plugin status unavailable"}
	}
	alive, err := ipc.Probe(ctx, socketPath, probeTimeout)
	if err != nil {
		return Check{Name: "plugin.socket", Pass: false, Message: err.Error()}
	}
	if !alive {
		return Check{Name: "plugin.socket", Pass: true, Message: "plugin not running"}
	}
	return Check{Name: "plugin.socket", Pass: true, Message: fmt.Sprintf("plugin running at %s", socketPath)}
}
