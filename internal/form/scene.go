package form

import (
	"context"

	"github.com/rbright/stonedeck/internal/companion"
	"github.com/rbright/stonedeck/internal/eventloop"
	"github.com/rbright/stonedeck/internal/fsm"
	"github.com/rbright/stonedeck/internal/relay"
)

// SceneCatalog lists campaigns and their scenes.
type SceneCatalog interface {
	ListCampaigns(context.Context) ([]companion.Campaign, error)
	ListScenes(ctx context.Context, campaignID string) ([]companion.Scene, error)
}

// ScenePicker binds the campaign and scene dropdowns. Scenes are only ever
// shown for the campaign id that produced them.
type ScenePicker struct {
	lifecycle

	view     View
	settings SettingsStore
	catalog  SceneCatalog

	current   relay.Settings
	campaigns []companion.Campaign
	scenes    []companion.Scene
	applying  bool

	campaignID       string // campaign the panel currently wants scenes for
	loadedCampaignID string // campaign that produced scenes
	sceneRequest     string
	sceneLoading     bool
}

// NewScenePicker builds an unstarted picker.
func NewScenePicker(deps Deps, view View, settings SettingsStore, catalog SceneCatalog) *ScenePicker {
	deps = deps.withDefaults()
	return &ScenePicker{
		lifecycle: newLifecycle(deps, "scene"),
		view:      view,
		settings:  settings,
		catalog:   catalog,
		current:   relay.Settings{},
	}
}

// Start shows loading placeholders, waits for settings, then loads campaigns.
func (p *ScenePicker) Start() {
	p.view.SetOptions(FieldCampaign, placeholder(labelLoading))
	p.view.SetOptions(FieldScene, placeholder(labelLoading))
	p.view.SetStatus(statusConnecting)

	p.unsubscribe = p.settings.Subscribe(func(s relay.Settings) {
		if p.closed() {
			return
		}
		p.current = s
		p.applySelections()
	})
	p.settings.Get(func(s relay.Settings) {
		if p.closed() {
			return
		}
		p.current = s
		p.loadCampaigns()
	})
}

// Retry reloads campaigns; ignored while a load is running.
func (p *ScenePicker) Retry() {
	p.loadCampaigns()
}

// Close cancels any pending retry and ignores late results.
func (p *ScenePicker) Close() {
	p.close()
}

func (p *ScenePicker) setEnabled(enabled bool) {
	p.view.SetEnabled(FieldCampaign, enabled)
	p.view.SetEnabled(FieldScene, enabled)
}

func (p *ScenePicker) loadCampaigns() {
	if !p.begin() {
		return
	}

	p.view.SetStatus("Loading campaigns...")
	p.setEnabled(false)
	p.view.SetOptions(FieldCampaign, placeholder(labelLoading))
	p.view.SetOptions(FieldScene, placeholder("Select a scene"))
	p.view.ShowRetry(false)

	eventloop.Await(p.deps.Loop, p.deps.Context, p.catalog.ListCampaigns, func(items []companion.Campaign, err error) {
		if p.closed() {
			return
		}
		if err != nil {
			p.fire(fsm.EventFail)
			p.view.SetOptions(FieldCampaign, placeholder(labelDisconnected))
			p.view.SetOptions(FieldScene, placeholder("Select a scene"))
			p.view.SetStatus(companion.Describe(err, "scenes") + " " + retryHint)
			p.view.ShowRetry(true)
			p.scheduleRetry(p.loadCampaigns)
			return
		}

		p.campaigns = items
		p.populateCampaigns()
		p.campaignID = p.current.String(relay.KeyCampaignID)
		p.loadScenes(p.campaignID, func() {
			p.fire(fsm.EventLoaded)
			p.setEnabled(true)
			p.applySelections()
		})
	})
}

// loadScenes replaces the scene list with campaignID's scenes and then calls done.
// A result that arrives after the panel moved to another campaign is dropped.
func (p *ScenePicker) loadScenes(campaignID string, done func()) {
	p.scenes = nil
	if campaignID == "" {
		p.loadedCampaignID = ""
		p.populateScenes()
		p.view.SetStatus("")
		done()
		return
	}

	p.sceneRequest = campaignID
	p.sceneLoading = true
	p.view.SetOptions(FieldScene, placeholder(labelLoading))
	p.view.SetStatus("Loading scenes...")

	eventloop.Await(p.deps.Loop, p.deps.Context, func(ctx context.Context) ([]companion.Scene, error) {
		return p.catalog.ListScenes(ctx, campaignID)
	}, func(items []companion.Scene, err error) {
		if p.closed() {
			return
		}
		if p.sceneRequest == campaignID {
			p.sceneLoading = false
		}
		if campaignID != p.campaignID {
			p.deps.Logger.Debug("stale scene list dropped", "campaign_id", campaignID, "current_campaign_id", p.campaignID)
			done()
			return
		}

		if err != nil {
			// Settled for this campaign; picking a campaign again refetches.
			p.loadedCampaignID = campaignID
			p.populateScenes()
			message := companion.Describe(err, "scenes")
			if message == "" {
				message = "Unable to load scenes for this campaign."
			}
			p.view.SetStatus(message)
			done()
			return
		}

		p.scenes = items
		p.loadedCampaignID = campaignID
		p.populateScenes()
		p.view.SetStatus("")
		done()
	})
}

func (p *ScenePicker) populateCampaigns() {
	options := append(placeholder("Select a campaign"), make([]Option, 0, len(p.campaigns))...)
	for _, campaign := range p.campaigns {
		options = append(options, Option{Value: campaign.ID, Label: campaign.Name})
	}
	p.view.SetOptions(FieldCampaign, options)
}

func (p *ScenePicker) populateScenes() {
	options := append(placeholder("Select a scene"), make([]Option, 0, len(p.scenes))...)
	for _, scene := range p.scenes {
		options = append(options, Option{Value: scene.ID, Label: scene.Name})
	}
	p.view.SetOptions(FieldScene, options)
}

// applySelections mirrors settings into both dropdowns, fetching scenes first
// when the configured campaign differs from the one whose scenes are loaded.
func (p *ScenePicker) applySelections() {
	if len(p.campaigns) > 0 {
		p.selectGuarded(FieldCampaign, p.current.String(relay.KeyCampaignID))
	}
	p.campaignID = p.current.String(relay.KeyCampaignID)

	inFlight := p.sceneLoading && p.sceneRequest == p.campaignID
	if p.loadedCampaignID != p.campaignID && !p.loading() && !inFlight {
		p.loadScenes(p.campaignID, p.selectScene)
		return
	}
	p.selectScene()
}

func (p *ScenePicker) selectScene() {
	if len(p.scenes) == 0 || p.loadedCampaignID != p.campaignID {
		return
	}
	p.selectGuarded(FieldScene, p.current.String(relay.KeySceneID))
}

func (p *ScenePicker) selectGuarded(field, value string) {
	p.applying = true
	p.view.Select(field, value)
	p.applying = false
}

// OnSelect handles a user pick from either dropdown.
func (p *ScenePicker) OnSelect(field, value string) {
	if p.applying || p.closed() {
		return
	}
	switch field {
	case FieldCampaign:
		p.onCampaignSelected(value)
	case FieldScene:
		p.onSceneSelected(value)
	}
}

func (p *ScenePicker) onCampaignSelected(value string) {
	if len(p.campaigns) == 0 {
		return
	}

	partial := relay.Settings{
		relay.KeyCampaignID:   nil,
		relay.KeyCampaignName: nil,
		relay.KeySceneID:      nil,
		relay.KeySceneName:    nil,
	}
	p.campaignID = ""
	for _, campaign := range p.campaigns {
		if campaign.ID == value {
			partial[relay.KeyCampaignID] = campaign.ID
			partial[relay.KeyCampaignName] = campaign.Name
			p.campaignID = campaign.ID
			break
		}
	}

	p.current = p.settings.Update(partial)
	selected := p.campaignID
	p.loadScenes(selected, func() {
		if p.campaignID == selected {
			p.selectGuarded(FieldScene, "")
		}
	})
}

func (p *ScenePicker) onSceneSelected(value string) {
	if len(p.scenes) == 0 {
		return
	}

	partial := relay.Settings{relay.KeySceneID: nil, relay.KeySceneName: nil}
	for _, scene := range p.scenes {
		if scene.ID == value {
			partial[relay.KeySceneID] = scene.ID
			partial[relay.KeySceneName] = scene.Name
			break
		}
	}
	p.current = p.settings.Update(partial)
}
