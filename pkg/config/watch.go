package config

import (
	"reflect"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ChangeFunc receives the file event, the reloaded config and the top-level
// sections that differ from the previous one.
type ChangeFunc func(e fsnotify.Event, cfg *Config, sections []string)

// Watch re-decodes the config each time the file viper read changes on disk.
// Reloads that decode to the same config are dropped. It reports false when
// v found no config file to watch.
func Watch(v *viper.Viper, current *Config, onChange ChangeFunc, onError func(error)) bool {
	if v.ConfigFileUsed() == "" {
		return false
	}

	// viper delivers change events from a single goroutine.
	prev := current
	v.OnConfigChange(func(e fsnotify.Event) {
		next, err := FromViper(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}

		sections := ChangedSections(prev, next)
		prev = next
		if len(sections) == 0 {
			return
		}
		onChange(e, next, sections)
	})
	v.WatchConfig()
	return true
}

// ChangedSections names the config.toml tables whose values differ between
// a and b.
func ChangedSections(a, b *Config) []string {
	if a == nil || b == nil {
		return nil
	}

	sections := []struct {
		name string
		a, b any
	}{
		{"version", a.Version, b.Version},
		{"storage", a.Storage, b.Storage},
		{"blob", a.Blob, b.Blob},
		{"vector_store", a.VectorStore, b.VectorStore},
		{"embedding", a.Embedding, b.Embedding},
		{"providers", a.Providers, b.Providers},
		{"server", a.Server, b.Server},
		{"client", a.Client, b.Client},
		{"events", a.Events, b.Events},
		{"memory", a.Memory, b.Memory},
	}

	var changed []string
	for _, s := range sections {
		if !reflect.DeepEqual(s.a, s.b) {
			changed = append(changed, s.name)
		}
	}
	return changed
}
