package chunkdata

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
)

// manifestKey is the world level document key holding the Manifest.
const manifestKey = "ChunkAPI"

// ManifestEntry is what a world remembers about a persisted manager.
type ManifestEntry struct {
	Version          string
	UninstallMessage string
}

// Manifest records the persisted managers a world was last saved with.
type Manifest struct {
	// World identifies the world. It is generated the first time versions are
	// stamped and kept afterwards.
	World uuid.UUID
	// Entries maps manager keys to their stored entry.
	Entries map[string]ManifestEntry
}

// ReadManifest reads the manifest from a world level document.
// ok is false if the world has never been saved with a manifest.
func ReadManifest(doc Document) (m *Manifest, ok bool, err error) {
	raw, present, err := child(doc, manifestKey)
	if err != nil {
		return nil, false, fmt.Errorf("chunkdata: read manifest: %w", err)
	}
	m = &Manifest{Entries: make(map[string]ManifestEntry)}
	if !present {
		return m, false, nil
	}
	if s, ok := raw["World"].(string); ok {
		if m.World, err = uuid.Parse(s); err != nil {
			return nil, false, fmt.Errorf("chunkdata: read manifest world id: %w", err)
		}
	}
	managers, _, err := child(raw, "Managers")
	if err != nil {
		return nil, false, fmt.Errorf("chunkdata: read manifest managers: %w", err)
	}
	for k, v := range managers {
		e, ok := v.(map[string]any)
		if !ok {
			return nil, false, fmt.Errorf("chunkdata: manifest entry %q: %w", k, ErrNotDocument)
		}
		version, _ := e["Version"].(string)
		uninstall, _ := e["Uninstall"].(string)
		m.Entries[k] = ManifestEntry{Version: version, UninstallMessage: uninstall}
	}
	return m, true, nil
}

// Write stores the manifest in a world level document.
func (m *Manifest) Write(doc Document) {
	managers := make(Document, len(m.Entries))
	for k, e := range m.Entries {
		managers[k] = Document{
			"Version":   e.Version,
			"Uninstall": e.UninstallMessage,
		}
	}
	doc[manifestKey] = Document{
		"World":    m.World.String(),
		"Managers": managers,
	}
}

// NoticeKind is the kind of a version compatibility notice.
type NoticeKind int

const (
	// NoticeNewInstall is raised for a manager the world has never been saved with.
	NoticeNewInstall NoticeKind = iota
	// NoticeVersionChange is raised for a manager whose stored version differs.
	NoticeVersionChange
	// NoticeUninstall is raised for stored data whose manager is no longer registered.
	NoticeUninstall
)

// String returns the string representation of the kind.
func (k NoticeKind) String() string {
	switch k {
	case NoticeNewInstall:
		return "new_install"
	case NoticeVersionChange:
		return "version_change"
	case NoticeUninstall:
		return "uninstall"
	default:
		return "unknown"
	}
}

// Notice is an advisory message about a persisted manager. Notices never block
// loading a world.
type Notice struct {
	Kind NoticeKind
	// Manager is the "domain:id" key of the manager.
	Manager string
	// PriorVersion is the stored version. Empty for NoticeNewInstall.
	PriorVersion string
	// Version is the registered version. Empty for NoticeUninstall.
	Version string
	Message string
}

// Notifier presents version compatibility notices to users.
type Notifier interface {
	Notify(world uuid.UUID, n Notice)
}

// LogNotifier writes notices to a logger.
type LogNotifier struct {
	// Logger is the logger used. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Notify implements Notifier.
func (l LogNotifier) Notify(world uuid.UUID, n Notice) {
	log := l.Logger
	if log == nil {
		log = slog.Default()
	}
	log.Warn("chunkdata: "+n.Message,
		"kind", n.Kind.String(),
		"manager", n.Manager,
		"world", world.String(),
		"prior_version", n.PriorVersion,
		"version", n.Version)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(world uuid.UUID, n Notice)

// Notify implements Notifier.
func (f NotifierFunc) Notify(world uuid.UUID, n Notice) {
	f(world, n)
}

// Report is the result of a version check.
type Report struct {
	World   uuid.UUID
	Notices []Notice
}

// Has reports whether the report holds a notice of the given kind for the manager key.
func (r *Report) Has(kind NoticeKind, manager string) bool {
	for _, n := range r.Notices {
		if n.Kind == kind && n.Manager == manager {
			return true
		}
	}
	return false
}

// CheckVersions compares the manifest stored in a world level document with the
// registered persisted managers and returns the resulting notices, in layout
// order followed by uninstalled managers sorted by key.
//
// Each call stands for one world load: every notice in the report is delivered
// to the Notifier exactly once, and checking again delivers the notices again.
func (r *Registry) CheckVersions(levelDoc Document) (*Report, error) {
	r.mustBeFinalized("CheckVersions")
	r.metrics.call("check_versions")

	manifest, _, err := ReadManifest(levelDoc)
	if err != nil {
		return nil, err
	}
	report := &Report{World: manifest.World}

	registered := make(map[string]struct{}, len(r.storage))
	for _, m := range r.storage {
		k := Key(m)
		registered[k] = struct{}{}

		entry, seen := manifest.Entries[k]
		switch {
		case !seen:
			if msg, ok := m.NewInstallDescription(); ok {
				report.Notices = append(report.Notices, Notice{
					Kind:    NoticeNewInstall,
					Manager: k,
					Version: m.Version(),
					Message: msg,
				})
			}
		case entry.Version != m.Version():
			if msg, ok := m.VersionChangeMessage(entry.Version); ok {
				report.Notices = append(report.Notices, Notice{
					Kind:         NoticeVersionChange,
					Manager:      k,
					PriorVersion: entry.Version,
					Version:      m.Version(),
					Message:      msg,
				})
			}
		}
	}

	var removed []string
	for k := range manifest.Entries {
		if _, ok := registered[k]; !ok {
			removed = append(removed, k)
		}
	}
	sort.Strings(removed)
	for _, k := range removed {
		entry := manifest.Entries[k]
		report.Notices = append(report.Notices, Notice{
			Kind:         NoticeUninstall,
			Manager:      k,
			PriorVersion: entry.Version,
			Message:      entry.UninstallMessage,
		})
	}

	for _, n := range report.Notices {
		r.metrics.notice(n.Kind)
		r.notifier.Notify(report.World, n)
	}
	return report, nil
}

// StampVersions records the version and uninstall message of every registered
// persisted manager in a world level document. Entries of managers that are no
// longer registered are dropped. The world ID is kept, or generated if absent.
func (r *Registry) StampVersions(levelDoc Document) (uuid.UUID, error) {
	r.mustBeFinalized("StampVersions")
	r.metrics.call("stamp_versions")

	manifest, _, err := ReadManifest(levelDoc)
	if err != nil {
		return uuid.Nil, err
	}
	if manifest.World == uuid.Nil {
		manifest.World = uuid.New()
	}
	manifest.Entries = make(map[string]ManifestEntry, len(r.storage))
	for _, m := range r.storage {
		manifest.Entries[Key(m)] = ManifestEntry{
			Version:          m.Version(),
			UninstallMessage: m.UninstallMessage(),
		}
	}
	manifest.Write(levelDoc)

	r.logger().LogAttrs(context.Background(), slog.LevelDebug, "chunkdata: stamped manager versions",
		slog.String("world", manifest.World.String()),
		slog.Int("managers", len(manifest.Entries)))
	return manifest.World, nil
}
