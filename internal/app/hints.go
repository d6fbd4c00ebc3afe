package app

import (
	"fmt"
	"os"
	"strings"

	"feedstock/internal/types"
)

// defaultsHint pairs a flag name with a recipe defaults key for hint messages.
type defaultsHint struct {
	FlagName    string
	DefaultsKey string
}

// checkRenderDefaultsHints returns hints for render flags that could be
// replaced by recipe defaults.  A hint is generated when the user
// explicitly provided a value while a non-empty default exists.
func checkRenderDefaultsHints(req RenderRequest, defaults types.RecipeDefaults) []string {
	checks := []struct {
		hint       defaultsHint
		provided   bool
		hasDefault bool
	}{
		{
			hint:       defaultsHint{"--channel-index", "defaults.channel_index"},
			provided:   strings.TrimSpace(req.ChannelIndex) != "",
			hasDefault: defaults.ChannelIndex != "",
		},
		{
			hint:       defaultsHint{"--output", "defaults.output"},
			provided:   strings.TrimSpace(req.OutputDir) != "",
			hasDefault: defaults.Output != "",
		},
		{
			hint:       defaultsHint{"--variant", "defaults.variants"},
			provided:   len(req.Variants) > 0,
			hasDefault: len(defaults.Variants) > 0,
		},
	}

	var hints []string
	for _, c := range checks {
		if c.provided && c.hasDefault {
			hints = append(hints, fmt.Sprintf(
				"hint: %s is also set in recipe (%s); you can omit the flag",
				c.hint.FlagName, c.hint.DefaultsKey,
			))
		}
	}
	return hints
}

// emitHints writes hint messages to stderr.
func emitHints(hints []string) {
	for _, h := range hints {
		fmt.Fprintln(os.Stderr, h)
	}
}
