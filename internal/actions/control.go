package actions

import "log/slog"

// Surface renders to a key on the device. *streamdeck.Conn satisfies it.
type Surface interface {
	SetTitle(context, title string) error
	SetImage(context, image string) error
	ShowAlert(context string) error
}

// Control is one placed key. It lives from appear to disappear and carries the
// per-key memo the handlers need.
type Control struct {
	Context string
	Action  string

	surface Surface
	logger  *slog.Logger

	iconName    string // effect whose icon is on the key
	iconPending string
	titleName   string
	gone        bool
}

// NewControl binds a key context to the surface it renders on.
func NewControl(context, action string, surface Surface, logger *slog.Logger) *Control {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Control{
		Context: context,
		Action:  action,
		surface: surface,
		logger:  logger.With("context", context),
	}
}

// Close marks the key as removed; late network results are then dropped.
func (c *Control) Close() {
	c.gone = true
}

// Closed reports whether Close was called.
func (c *Control) Closed() bool {
	return c.gone
}

func (c *Control) setTitle(title string) {
	if err := c.surface.SetTitle(c.Context, title); err != nil {
		c.logger.Warn("set title failed", "error", err.Error())
	}
}

func (c *Control) setImage(image string) {
	if err := c.surface.SetImage(c.Context, image); err != nil {
		c.logger.Warn("set image failed", "error", err.Error())
	}
}

func (c *Control) alert() {
	if err := c.surface.ShowAlert(c.Context); err != nil {
		c.logger.Warn("show alert failed", "error", err.Error())
	}
}
