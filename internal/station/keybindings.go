package station

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Action is something the listener can trigger from the terminal.
type Action string

const (
	ActionHelp     Action = "help"
	ActionQuit     Action = "quit"
	ActionPause    Action = "pause"
	ActionNext     Action = "next"
	ActionStation  Action = "station"
	ActionFeedback Action = "feedback"
	ActionSeekBack Action = "seek_back"
	ActionSeekFwd  Action = "seek_forward"
	ActionVolDown  Action = "volume_down"
	ActionVolUp    Action = "volume_up"
)

// Keybindings maps actions to the key name that triggers them.
type Keybindings map[Action]string

// DefaultKeybindings returns a fresh copy of the built-in bindings.
func DefaultKeybindings() Keybindings {
	return Keybindings{
		ActionHelp:     "h",
		ActionQuit:     "q",
		ActionPause:    "space",
		ActionNext:     "n",
		ActionStation:  "s",
		ActionFeedback: "f",
		ActionSeekBack: "left",
		ActionSeekFwd:  "right",
		ActionVolDown:  "z",
		ActionVolUp:    "x",
	}
}

// LoadKeybindings reads an {action: key} YAML file on top of the defaults.
// A missing file is not an error. A broken file yields the defaults together
// with the error so the caller can report it.
func LoadKeybindings(path string) (Keybindings, error) {
	kb := DefaultKeybindings()
	if path == "" {
		return kb, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return kb, nil
	}
	if err != nil {
		return kb, fmt.Errorf("read keybindings: %w", err)
	}

	var overrides map[string]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return DefaultKeybindings(), fmt.Errorf("parse keybindings %s: %w", path, err)
	}

	for action, key := range overrides {
		a := Action(strings.ToLower(strings.TrimSpace(action)))
		if _, known := kb[a]; !known {
			log.Printf("⚠️ Unknown keybinding action %q ignored", action)
			continue
		}
		if key = strings.TrimSpace(key); key != "" {
			kb[a] = key
		}
	}

	log.Printf("⌨️ Keybindings loaded from %s (%d overrides)", path, len(overrides))
	return kb, nil
}

// Lookup resolves a pressed key to its action.
func (kb Keybindings) Lookup(key string) (Action, bool) {
	if key == "" {
		return "", false
	}
	if key = strings.TrimSpace(key); key == "" {
		key = "space"
	}
	for a, k := range kb {
		if strings.EqualFold(k, key) {
			return a, true
		}
	}
	return "", false
}

// Help renders one "key  action" line per binding, sorted by action.
func (kb Keybindings) Help() string {
	actions := make([]string, 0, len(kb))
	for a := range kb {
		actions = append(actions, string(a))
	}
	sort.Strings(actions)

	var b strings.Builder
	for _, a := range actions {
		fmt.Fprintf(&b, "  %-8s %s\n", kb[Action(a)], a)
	}
	return b.String()
}
