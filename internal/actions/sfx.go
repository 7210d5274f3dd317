package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/rbright/stonedeck/internal/companion"
	"github.com/rbright/stonedeck/internal/eventloop"
	"github.com/rbright/stonedeck/internal/relay"
)

const titlePickSFX = "Pick SFX"

func playHandler(deps Deps) Handler {
	render := func(c *Control, s relay.Settings) {
		refreshTitle(deps, c, s)
		refreshIcon(deps, c, s.String(relay.KeySFXName))
	}

	return Handler{
		OnAppear:          render,
		OnSettingsChanged: render,
		OnPress: func(c *Control, s relay.Settings) {
			name := s.String(relay.KeySFXName)
			if name == "" {
				c.logger.Debug("play pressed without an effect")
				return
			}

			opts := playOptions(s)
			run(deps, c, "play sound effect failed", func(ctx context.Context) error {
				return deps.API.PlaySoundEffect(ctx, name, opts)
			}, "sfx", name)
		},
	}
}

// playOptions copies volume and reverb only when they hold numbers.
func playOptions(s relay.Settings) companion.PlayOptions {
	var opts companion.PlayOptions
	if v, ok := s.Float(relay.KeyVolume); ok {
		opts.Volume = &v
	}
	if v, ok := s.Float(relay.KeyReverb); ok {
		opts.Reverb = &v
	}
	return opts
}

// refreshTitle prefers the saved title, then the effect's localized name.
func refreshTitle(deps Deps, c *Control, s relay.Settings) {
	name := s.String(relay.KeySFXName)
	c.titleName = name

	if title := s.String(relay.KeySFXTitle); title != "" && name != "" {
		c.setTitle(title)
		return
	}
	if name == "" {
		c.setTitle(titlePickSFX)
		return
	}

	eventloop.Await(deps.Loop, deps.Context, func(ctx context.Context) (string, error) {
		item, found, err := deps.API.FindSoundEffect(ctx, name)
		if err != nil || !found {
			return name, err
		}
		return item.Title(), nil
	}, func(title string, err error) {
		if c.gone || c.titleName != name {
			return
		}
		if err != nil {
			c.logger.Warn("sound effect title lookup failed", "sfx", name, "error", err.Error())
			title = name
		}
		c.setTitle(title)
	})
}

// refreshIcon fetches an icon only when the effect differs from the one shown.
func refreshIcon(deps Deps, c *Control, name string) {
	if name == "" {
		c.iconPending = ""
		if c.iconName != "" {
			c.setImage("")
			c.iconName = ""
		}
		return
	}
	if name == c.iconName {
		// A fetch for some other effect may still be in flight; its result is stale now.
		c.iconPending = ""
		return
	}
	if name == c.iconPending {
		return
	}

	c.iconPending = name
	eventloop.Await(deps.Loop, deps.Context, func(ctx context.Context) (string, error) {
		return loadIcon(ctx, deps.API, name)
	}, func(image string, err error) {
		if c.gone || c.iconPending != name {
			return
		}
		c.iconPending = ""
		if err != nil {
			c.logger.Debug("sound effect icon unavailable", "sfx", name, "error", err.Error())
			return
		}
		c.setImage(image)
		c.iconName = name
	})
}

// loadIcon asks the icon endpoint first and falls back to the effect's own
// icon field (inline data, a URL, or a server path).
func loadIcon(ctx context.Context, api API, name string) (string, error) {
	image, err := api.FetchIcon(ctx, name)
	if err == nil {
		return image, nil
	}

	item, found, findErr := api.FindSoundEffect(ctx, name)
	if findErr != nil || !found || strings.TrimSpace(item.Icon) == "" {
		return "", err
	}
	resolved, resolveErr := api.ResolveIcon(ctx, item.Icon)
	if resolveErr != nil {
		return "", resolveErr
	}
	if !strings.HasPrefix(resolved, "data:") {
		return "", fmt.Errorf("icon for %q is not an image: %w", name, err)
	}
	return resolved, nil
}
