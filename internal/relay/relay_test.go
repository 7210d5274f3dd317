package relay

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/rbright/stonedeck/internal/streamdeck"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	sent []streamdeck.Message
	err  error
}

func (s *recordingSender) Send(msg streamdeck.Message) error {
	s.sent = append(s.sent, msg)
	return s.err
}

func (s *recordingSender) events() []string {
	out := make([]string, 0, len(s.sent))
	for _, msg := range s.sent {
		out = append(out, msg.Event)
	}
	return out
}

func settingsEvent(t *testing.T, settings map[string]any) streamdeck.Event {
	t.Helper()
	payload, err := json.Marshal(map[string]any{"settings": settings})
	require.NoError(t, err)
	return streamdeck.Event{Event: streamdeck.EventDidReceiveSettings, Context: "ctx", Payload: payload}
}

func TestOpenRequestsSettings(t *testing.T) {
	sender := &recordingSender{}
	r := New(sender, nil)

	r.Open("ctx")
	require.Equal(t, []streamdeck.Message{{Event: "getSettings", Context: "ctx"}}, sender.sent)
	require.Equal(t, "ctx", r.Context())
}

func TestGetQueuesUntilFirstDelivery(t *testing.T) {
	sender := &recordingSender{}
	r := New(sender, nil)
	r.Open("ctx")

	var got []Settings
	r.Get(func(s Settings) { got = append(got, s) })
	r.Get(func(s Settings) { got = append(got, s) })
	require.Empty(t, got)
	require.False(t, r.Ready())

	r.Handle(settingsEvent(t, map[string]any{"sfxName": "rain"}))
	require.True(t, r.Ready())
	require.Len(t, got, 2)
	require.Equal(t, "rain", got[0].String(KeySFXName))

	// Released exactly once: a later delivery does not re-run queued readers.
	r.Handle(settingsEvent(t, map[string]any{"sfxName": "wind"}))
	require.Len(t, got, 2)
}

func TestGetAfterReadyReturnsImmediatelyAndRefreshes(t *testing.T) {
	sender := &recordingSender{}
	r := New(sender, nil)
	r.Open("ctx")
	r.Seed(Settings{"sceneId": "s1"})

	var got Settings
	r.Get(func(s Settings) { got = s })
	require.Equal(t, "s1", got.String(KeySceneID))
	require.Equal(t, []string{"getSettings", "getSettings"}, sender.events())
}

func TestUpdateMergesAndSends(t *testing.T) {
	sender := &recordingSender{}
	r := New(sender, nil)
	r.Open("ctx")
	r.Seed(Settings{"campaignId": "c1", "campaignName": "Tomb", "volume": 0.5})

	merged := r.Update(Settings{"campaignName": "Crypt", "sceneId": "s9"})
	require.Equal(t, Settings{"campaignId": "c1", "campaignName": "Crypt", "volume": 0.5, "sceneId": "s9"}, merged)
	require.Equal(t, merged, r.Snapshot())

	last := sender.sent[len(sender.sent)-1]
	require.Equal(t, "setSettings", last.Event)
	require.Equal(t, "ctx", last.Context)
	require.Equal(t, map[string]any(merged), last.Payload)
}

func TestUpdateMergeProperty(t *testing.T) {
	cases := []struct {
		base    Settings
		partial Settings
	}{
		{base: Settings{}, partial: Settings{"a": "1"}},
		{base: Settings{"a": "1", "b": "2"}, partial: Settings{}},
		{base: Settings{"a": "1", "b": "2"}, partial: Settings{"b": "3", "c": 4.0}},
		{base: Settings{"sfxName": "x", "sfxTitle": "X", "volume": 1.0}, partial: Settings{"sfxName": "y"}},
	}

	for _, tc := range cases {
		r := New(&recordingSender{}, nil)
		r.Open("ctx")
		r.Seed(tc.base)

		merged := r.Update(tc.partial)
		for k, v := range tc.base {
			if _, overridden := tc.partial[k]; !overridden {
				require.Equal(t, v, merged[k], k)
			}
		}
		for k, v := range tc.partial {
			require.Equal(t, v, merged[k], k)
		}
		require.Len(t, merged, len(tc.base.Merge(tc.partial)))
	}
}

func TestUpdateNilClearsKey(t *testing.T) {
	r := New(&recordingSender{}, nil)
	r.Open("ctx")
	r.Seed(Settings{"sfxName": "x", "sfxTitle": "X", "volume": 1.0})

	merged := r.Update(Settings{"sfxName": nil, "sfxTitle": nil})
	require.Equal(t, Settings{"volume": 1.0}, merged)
}

func TestUpdateWithoutContextIsNoop(t *testing.T) {
	sender := &recordingSender{}
	r := New(sender, nil)

	merged := r.Update(Settings{"sfxName": "x"})
	require.Empty(t, merged)
	require.Empty(t, sender.sent)
	require.Empty(t, r.Snapshot())
}

func TestHandleReplacesWholesaleAndFansOut(t *testing.T) {
	r := New(&recordingSender{}, nil)
	r.Open("ctx")
	r.Seed(Settings{"sfxName": "x", "volume": 1.0})

	var first, second Settings
	r.Subscribe(func(s Settings) { first = s })
	r.Subscribe(func(s Settings) { second = s })

	r.Handle(settingsEvent(t, map[string]any{"sfxName": "y"}))
	require.Equal(t, Settings{"sfxName": "y"}, first)
	require.Equal(t, Settings{"sfxName": "y"}, second)
	require.Equal(t, Settings{"sfxName": "y"}, r.Snapshot())
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	r := New(&recordingSender{}, nil)
	r.Open("ctx")

	var kept, dropped int
	r.Subscribe(func(Settings) { kept++ })
	unsubscribe := r.Subscribe(func(Settings) { dropped++ })
	require.Equal(t, 2, r.Listeners())

	r.Handle(settingsEvent(t, map[string]any{"sfxName": "a"}))
	unsubscribe()
	unsubscribe()
	r.Handle(settingsEvent(t, map[string]any{"sfxName": "b"}))

	require.Equal(t, 2, kept)
	require.Equal(t, 1, dropped)
	require.Equal(t, 1, r.Listeners())
}

func TestHandleLaterNotificationWins(t *testing.T) {
	r := New(&recordingSender{}, nil)
	r.Open("ctx")
	r.Seed(Settings{})

	r.Update(Settings{"sfxName": "optimistic"})
	r.Handle(settingsEvent(t, map[string]any{"sfxName": "first"}))
	r.Handle(settingsEvent(t, map[string]any{"sfxName": "second"}))
	require.Equal(t, "second", r.Snapshot().String(KeySFXName))
}

func TestHandleIgnoresOtherEvents(t *testing.T) {
	r := New(&recordingSender{}, nil)
	called := false
	r.Subscribe(func(Settings) { called = true })

	r.Handle(streamdeck.Event{Event: streamdeck.EventKeyDown, Payload: json.RawMessage(`{"settings":{"a":"b"}}`)})
	r.Handle(streamdeck.Event{Event: "somethingNew"})
	require.False(t, called)
	require.False(t, r.Ready())
}

func TestHandleNullSettingsBecomesEmpty(t *testing.T) {
	r := New(&recordingSender{}, nil)
	r.Seed(Settings{"a": "b"})

	r.Handle(streamdeck.Event{Event: streamdeck.EventDidReceiveSettings, Payload: json.RawMessage(`{"settings":null}`)})
	require.Empty(t, r.Snapshot())
}

func TestSendErrorsAreSwallowed(t *testing.T) {
	sender := &recordingSender{err: errors.New("closed")}
	r := New(sender, nil)
	r.Open("ctx")

	merged := r.Update(Settings{"a": "b"})
	require.Equal(t, "b", merged.String("a"))
}

func TestSettingsAccessors(t *testing.T) {
	s := Settings{"name": "rain", "volume": 0.25, "count": 3, "flag": true, "nothing": nil}

	require.Equal(t, "rain", s.String("name"))
	require.Equal(t, "", s.String("volume"))
	require.Equal(t, "", s.String("missing"))

	v, ok := s.Float("volume")
	require.True(t, ok)
	require.Equal(t, 0.25, v)

	v, ok = s.Float("count")
	require.True(t, ok)
	require.Equal(t, 3.0, v)

	_, ok = s.Float("flag")
	require.False(t, ok)
	_, ok = s.Float("nothing")
	require.False(t, ok)
}
