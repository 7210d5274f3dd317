package companion

import (
	"context"
	"net/url"
)

// ListCampaigns returns every campaign.
func (c *Client) ListCampaigns(ctx context.Context) ([]Campaign, error) {
	var campaigns []Campaign
	if err := c.getJSON(ctx, "/campaigns", &campaigns); err != nil {
		return nil, err
	}
	return campaigns, nil
}

// ListScenes returns the scenes of one campaign.
func (c *Client) ListScenes(ctx context.Context, campaignID string) ([]Scene, error) {
	var scenes []Scene
	if err := c.getJSON(ctx, "/campaigns/"+url.PathEscape(campaignID)+"/scenes", &scenes); err != nil {
		return nil, err
	}
	return scenes, nil
}

// StartScene begins sceneID within campaignID.
func (c *Client) StartScene(ctx context.Context, campaignID, sceneID string) error {
	return c.post(ctx, "/campaigns/"+url.PathEscape(campaignID)+"/scenes/"+url.PathEscape(sceneID)+"/start")
}

// StopScene ends whatever scene is playing.
func (c *Client) StopScene(ctx context.Context) error {
	return c.post(ctx, "/scenes/stop")
}
