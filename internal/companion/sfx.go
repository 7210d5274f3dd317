package companion

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ListSoundEffects returns the effect list, served from cache while it is
// younger than the TTL. Concurrent misses share one request.
func (c *Client) ListSoundEffects(ctx context.Context) ([]SoundEffect, error) {
	if items, ok := c.cachedSFX(); ok {
		return items, nil
	}

	v, err, _ := c.sfxGroup.Do("sfx", func() (any, error) {
		if items, ok := c.cachedSFX(); ok {
			return items, nil
		}

		var items []SoundEffect
		if err := c.getJSON(ctx, "/sfx", &items); err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.sfxCache = &sfxCache{fetchedAt: c.now(), items: items}
		c.mu.Unlock()
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]SoundEffect), nil
}

func (c *Client) cachedSFX() ([]SoundEffect, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sfxCache == nil || c.now().Sub(c.sfxCache.fetchedAt) >= c.cacheTTL {
		return nil, false
	}
	return c.sfxCache.items, true
}

// FindSoundEffect looks name up in the (cached) effect list.
func (c *Client) FindSoundEffect(ctx context.Context, name string) (SoundEffect, bool, error) {
	items, err := c.ListSoundEffects(ctx)
	if err != nil {
		return SoundEffect{}, false, err
	}
	for _, item := range items {
		if item.Name == name {
			return item, true, nil
		}
	}
	return SoundEffect{}, false, nil
}

// FetchIcon downloads one effect's icon as a data URL.
func (c *Client) FetchIcon(ctx context.Context, name string) (string, error) {
	body, header, err := c.call(ctx, http.MethodGet, "/sfx/"+url.PathEscape(name)+"/icon")
	if err != nil {
		return "", err
	}
	return dataURL(imageType(header, body), body), nil
}

// PlaySoundEffect triggers playback. Volume and reverb are sent only when set.
func (c *Client) PlaySoundEffect(ctx context.Context, name string, opts PlayOptions) error {
	path := "/sfx/" + url.PathEscape(name) + "/play"

	query := url.Values{}
	if opts.Volume != nil {
		query.Set("volume", strconv.FormatFloat(*opts.Volume, 'f', -1, 64))
	}
	if opts.Reverb != nil {
		query.Set("reverb", strconv.FormatFloat(*opts.Reverb, 'f', -1, 64))
	}
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	return c.post(ctx, path)
}
