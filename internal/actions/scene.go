package actions

import (
	"context"

	"github.com/rbright/stonedeck/internal/eventloop"
	"github.com/rbright/stonedeck/internal/relay"
)

const (
	titleStartScene = "Start Scene"
	titleStopScene  = "Stop Scene"
)

func startHandler(deps Deps) Handler {
	render := func(c *Control, s relay.Settings) {
		title := s.String(relay.KeySceneName)
		if title == "" {
			title = titleStartScene
		}
		c.setTitle(title)
	}

	return Handler{
		OnAppear:          render,
		OnSettingsChanged: render,
		OnPress: func(c *Control, s relay.Settings) {
			campaignID := s.String(relay.KeyCampaignID)
			sceneID := s.String(relay.KeySceneID)
			if campaignID == "" || sceneID == "" {
				c.logger.Info("start scene pressed before a scene was chosen")
				c.alert()
				return
			}

			run(deps, c, "start scene failed", func(ctx context.Context) error {
				return deps.API.StartScene(ctx, campaignID, sceneID)
			}, "campaign_id", campaignID, "scene_id", sceneID)
		},
	}
}

func stopHandler(deps Deps) Handler {
	render := func(c *Control, _ relay.Settings) {
		c.setTitle(titleStopScene)
	}

	return Handler{
		OnAppear:          render,
		OnSettingsChanged: render,
		OnPress: func(c *Control, _ relay.Settings) {
			run(deps, c, "stop scene failed", deps.API.StopScene)
		},
	}
}

// run issues one companion command off the loop and alerts on failure.
func run(deps Deps, c *Control, failure string, command func(context.Context) error, attrs ...any) {
	eventloop.Await(deps.Loop, deps.Context, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, command(ctx)
	}, func(_ struct{}, err error) {
		if err == nil {
			return
		}
		c.logger.Error(failure, append(attrs, "error", err.Error())...)
		if !c.gone {
			c.alert()
		}
	})
}
