package config

// UIConfig holds terminal UI configuration.
type UIConfig struct {
	// Theme is auto, light or dark. auto follows the terminal background.
	Theme string `yaml:"theme"`

	// DrawerWidth fixes the cart drawer width in columns (0 = 40% of the screen).
	DrawerWidth int `yaml:"drawer_width,omitempty"`
}

// DrawerColumns returns the drawer width for a screen of the given width.
func (c UIConfig) DrawerColumns(screen int) int {
	w := c.DrawerWidth
	if w <= 0 {
		w = screen * 2 / 5
	}
	if w < 30 {
		w = 30
	}
	if w > screen {
		w = screen
	}
	return w
}
