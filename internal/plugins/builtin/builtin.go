// Package builtin wires the analysis plugins compiled into gailbot.
package builtin

import (
	"errors"

	"github.com/gailbot/gailbot/internal/plugin"
	chatplugin "github.com/gailbot/gailbot/internal/plugins/chat"
	gapsplugin "github.com/gailbot/gailbot/internal/plugins/gaps"
	transcriptplugin "github.com/gailbot/gailbot/internal/plugins/transcript"
	turnsplugin "github.com/gailbot/gailbot/internal/plugins/turns"
)

const author = "gailbot"

type entry struct {
	config  plugin.PluginConfig
	factory plugin.Factory
}

func entries() []entry {
	return []entry{
		{
			config: plugin.PluginConfig{
				Name:        transcriptplugin.Name,
				ClassName:   transcriptplugin.Class,
				Version:     transcriptplugin.Version,
				Description: "parses transcription files into utterances",
			},
			factory: transcriptplugin.New,
		},
		{
			config: plugin.PluginConfig{
				Name:         turnsplugin.Name,
				Dependencies: []string{transcriptplugin.Name + "@1.x"},
				ClassName:    turnsplugin.Class,
				Version:      turnsplugin.Version,
				Description:  "merges consecutive utterances of one speaker into turns",
			},
			factory: turnsplugin.New,
		},
		{
			config: plugin.PluginConfig{
				Name:         gapsplugin.Name,
				Dependencies: []string{turnsplugin.Name + "@1.x"},
				ClassName:    gapsplugin.Class,
				Version:      gapsplugin.Version,
				Description:  "annotates pauses within turns and gaps between speakers",
			},
			factory: gapsplugin.New,
		},
		{
			config: plugin.PluginConfig{
				Name:         chatplugin.Name,
				Dependencies: []string{gapsplugin.Name + "@1.x"},
				ClassName:    chatplugin.Class,
				Version:      chatplugin.Version,
				Description:  "writes CHAT transcripts",
			},
			factory: chatplugin.New,
		},
	}
}

// Register adds the builtin classes to resolver.
func Register(resolver *plugin.FactoryResolver) error {
	var errs []error
	for _, e := range entries() {
		errs = append(errs, resolver.Register(e.config.ClassName, e.factory))
	}
	return errors.Join(errs...)
}

// Configs returns the configurations of the builtin plugins with source as
// their plugin_source, normally the running executable.
func Configs(source string) []plugin.PluginConfig {
	all := entries()
	configs := make([]plugin.PluginConfig, 0, len(all))
	for _, e := range all {
		cfg := e.config
		cfg.SourcePath = source
		cfg.Author = author
		configs = append(configs, cfg)
	}
	return configs
}

// Load registers every builtin configuration in loader. The loader's resolver
// must know the builtin classes, see Register.
func Load(loader *plugin.Loader, source string) error {
	var errs []error
	for _, cfg := range Configs(source) {
		errs = append(errs, loader.LoadPlugin(cfg))
	}
	return errors.Join(errs...)
}
