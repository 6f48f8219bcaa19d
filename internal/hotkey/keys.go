package hotkey

import (
	"fmt"
	"strings"

	"golang.design/x/hotkey"

	"github.com/yok-tottii/EzRec/internal/config"
)

var keyNames = map[string]hotkey.Key{
	"Space":  hotkey.KeySpace,
	"Escape": hotkey.KeyEscape,
	"Return": hotkey.KeyReturn,
	"Tab":    hotkey.KeyTab,
	"Delete": hotkey.KeyDelete,
	"A":      hotkey.KeyA,
	"B":      hotkey.KeyB,
	"C":      hotkey.KeyC,
	"D":      hotkey.KeyD,
	"E":      hotkey.KeyE,
	"F":      hotkey.KeyF,
	"G":      hotkey.KeyG,
	"H":      hotkey.KeyH,
	"I":      hotkey.KeyI,
	"J":      hotkey.KeyJ,
	"K":      hotkey.KeyK,
	"L":      hotkey.KeyL,
	"M":      hotkey.KeyM,
	"N":      hotkey.KeyN,
	"O":      hotkey.KeyO,
	"P":      hotkey.KeyP,
	"Q":      hotkey.KeyQ,
	"R":      hotkey.KeyR,
	"S":      hotkey.KeyS,
	"T":      hotkey.KeyT,
	"U":      hotkey.KeyU,
	"V":      hotkey.KeyV,
	"W":      hotkey.KeyW,
	"X":      hotkey.KeyX,
	"Y":      hotkey.KeyY,
	"Z":      hotkey.KeyZ,
	"0":      hotkey.Key0,
	"1":      hotkey.Key1,
	"2":      hotkey.Key2,
	"3":      hotkey.Key3,
	"4":      hotkey.Key4,
	"5":      hotkey.Key5,
	"6":      hotkey.Key6,
	"7":      hotkey.Key7,
	"8":      hotkey.Key8,
	"9":      hotkey.Key9,
}

// ParseKey converts a key name such as "Space" or "R" into a key code
func ParseKey(name string) (hotkey.Key, error) {
	// macOS IMEs may report the space bar as NBSP
	if name == " " || name == "\u00a0" {
		name = "Space"
	}
	if len(name) == 1 {
		name = strings.ToUpper(name)
	}

	key, ok := keyNames[name]
	if !ok {
		return 0, fmt.Errorf("unsupported hotkey key: %q", name)
	}
	return key, nil
}

// Modifiers returns the modifier set selected in cfg
func Modifiers(cfg config.HotkeyConfig) []hotkey.Modifier {
	var mods []hotkey.Modifier
	if cfg.Ctrl {
		mods = append(mods, hotkey.ModCtrl)
	}
	if cfg.Shift {
		mods = append(mods, hotkey.ModShift)
	}
	if cfg.Alt {
		mods = append(mods, hotkey.ModOption)
	}
	if cfg.Cmd {
		mods = append(mods, hotkey.ModCmd)
	}
	return mods
}

// FromConfig builds a registration config from application settings
func FromConfig(cfg config.HotkeyConfig, mode string) (Config, error) {
	key, err := ParseKey(cfg.Key)
	if err != nil {
		return Config{}, err
	}

	m, err := ParseMode(mode)
	if err != nil {
		return Config{}, err
	}

	mods := Modifiers(cfg)
	if len(mods) == 0 {
		return Config{}, fmt.Errorf("hotkey needs at least one modifier")
	}

	return Config{Modifiers: mods, Key: key, Mode: m}, nil
}

func keyToString(key hotkey.Key) string {
	for name, k := range keyNames {
		if k == key {
			if name == "Escape" {
				return "Esc"
			}
			return name
		}
	}
	return "Unknown"
}
