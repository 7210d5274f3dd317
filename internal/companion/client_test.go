package companion

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestClient(t *testing.T, handler http.Handler, opts Options) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	opts.BaseURL = server.URL
	return New(opts), server
}

func TestListSoundEffectsCachesWithinTTL(t *testing.T) {
	var calls atomic.Int32
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sfx", r.URL.Path)
		require.NotEmpty(t, r.Header.Get("X-Request-Id"))
		calls.Add(1)
		_, _ = w.Write([]byte(`[{"name":"thunder","localizedName":"Thunder","category":"weather","icon":"","filename":"thunder.ogg","isPremium":false,"duration":3.5}]`))
	}), Options{Now: clock.Now})

	items, err := client.ListSoundEffects(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Thunder", items[0].Title())
	require.Equal(t, 3.5, items[0].Duration)

	clock.Advance(29 * time.Second)
	_, err = client.ListSoundEffects(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), calls.Load())

	clock.Advance(time.Second)
	_, err = client.ListSoundEffects(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(2), calls.Load())
}

func TestListSoundEffectsCoalescesConcurrentMisses(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		<-release
		_, _ = w.Write([]byte(`[]`))
	}), Options{})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.ListSoundEffects(context.Background())
			require.NoError(t, err)
		}()
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	require.Equal(t, int32(1), calls.Load())
}

func TestListSoundEffectsFailureIsNotCached(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}), Options{})

	_, err := client.ListSoundEffects(context.Background())
	require.Error(t, err)

	_, err = client.ListSoundEffects(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(2), calls.Load())
}

func TestHTTPErrorCarriesStatusAndBody(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("no such campaign\n"))
	}), Options{})

	_, err := client.ListScenes(context.Background(), "c1")
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.Status)
	require.Equal(t, "no such campaign", apiErr.Message)
	require.NotErrorIs(t, err, ErrTimeout)
	require.Equal(t, "HTTP 404: no such campaign", err.Error())
}

func TestHTTPErrorWithoutBodyUsesStatusText(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}), Options{})

	err := client.StopScene(context.Background())
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	require.True(t, apiErr.SignInRequired())
	require.Equal(t, "Unauthorized", apiErr.Message)
	require.Equal(t, "Please sign in to Summoning Stone to load scenes.", Describe(err, "scenes"))
}

func TestTimeoutIsDistinctFromHTTPError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}), Options{Timeout: 50 * time.Millisecond})

	_, err := client.ListCampaigns(context.Background())
	require.ErrorIs(t, err, ErrTimeout)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 0, apiErr.Status)
	require.Equal(t, "Request timed out. Is Summoning Stone open?", apiErr.Message)
	require.Equal(t, apiErr.Message, Describe(err, "campaigns"))
}

func TestConnectionFailureNormalizesToStatusZero(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	client := New(Options{BaseURL: baseURL})
	err := client.PlaySoundEffect(context.Background(), "x", PlayOptions{})

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 0, apiErr.Status)
	require.NotEmpty(t, apiErr.Message)
	require.NotErrorIs(t, err, ErrTimeout)
}

func TestMalformedJSONNormalizes(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}), Options{})

	_, err := client.ListCampaigns(context.Background())
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 0, apiErr.Status)
	require.Contains(t, apiErr.Message, "decode /campaigns response")
}

func TestPlaySoundEffectEncodesPathAndQuery(t *testing.T) {
	requests := make(chan *http.Request, 4)
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- r
		w.WriteHeader(http.StatusNoContent)
	}), Options{})

	volume := 0.75
	reverb := 0.0
	require.NoError(t, client.PlaySoundEffect(context.Background(), "door/creak 1", PlayOptions{Volume: &volume, Reverb: &reverb}))
	r := <-requests
	require.Equal(t, http.MethodPost, r.Method)
	require.Equal(t, "/sfx/door%2Fcreak%201/play", r.URL.EscapedPath())
	require.Equal(t, "reverb=0&volume=0.75", r.URL.RawQuery)

	require.NoError(t, client.PlaySoundEffect(context.Background(), "rain", PlayOptions{}))
	r = <-requests
	require.Equal(t, "/sfx/rain/play", r.URL.EscapedPath())
	require.Empty(t, r.URL.RawQuery)
}

func TestSceneEndpoints(t *testing.T) {
	requests := make(chan string, 4)
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- r.Method + " " + r.URL.EscapedPath()
		switch r.URL.EscapedPath() {
		case "/campaigns":
			_, _ = w.Write([]byte(`[{"id":"c1","name":"Tomb"}]`))
		case "/campaigns/c%201/scenes":
			_, _ = w.Write([]byte(`[{"id":"s1","name":"Entrance"}]`))
		default:
			w.WriteHeader(http.StatusOK)
		}
	}), Options{})

	campaigns, err := client.ListCampaigns(context.Background())
	require.NoError(t, err)
	require.Equal(t, []Campaign{{ID: "c1", Name: "Tomb"}}, campaigns)

	scenes, err := client.ListScenes(context.Background(), "c 1")
	require.NoError(t, err)
	require.Equal(t, []Scene{{ID: "s1", Name: "Entrance"}}, scenes)

	require.NoError(t, client.StartScene(context.Background(), "c 1", "s/1"))
	require.NoError(t, client.StopScene(context.Background()))

	require.Equal(t, "GET /campaigns", <-requests)
	require.Equal(t, "GET /campaigns/c%201/scenes", <-requests)
	require.Equal(t, "POST /campaigns/c%201/scenes/s%2F1/start", <-requests)
	require.Equal(t, "POST /scenes/stop", <-requests)
}

func TestFetchIconReturnsDataURL(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sfx/thunder/icon", r.URL.Path)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes)
	}), Options{})

	icon, err := client.FetchIcon(context.Background(), "thunder")
	require.NoError(t, err)
	require.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(pngBytes), icon)
}

func TestFindSoundEffect(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"rain","localizedName":"Rain"}]`))
	}), Options{})

	item, ok, err := client.FindSoundEffect(context.Background(), "rain")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Rain", item.LocalizedName)

	_, ok, err = client.FindSoundEffect(context.Background(), "snow")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDescribeNonAPIErrors(t *testing.T) {
	require.Equal(t, "", Describe(nil, "SFX"))
	require.Equal(t, "boom", Describe(errors.New("boom"), "SFX"))
	require.Equal(t, "Unexpected response (500).", Describe(&Error{Status: 500, Message: "x"}, "SFX"))
}
