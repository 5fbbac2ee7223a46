package customize

import (
	"fmt"
	"path"
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/vrm-customizer/internal/logger"
	"github.com/Faultbox/vrm-customizer/internal/scene"
)

// TextureSource loads texture files named in a profile.
type TextureSource interface {
	Texture(name string) (*scene.Texture, error)
}

// Report lists the profile entries that matched nothing.
type Report struct {
	Materials []string
	Nodes     []string
}

// Empty reports whether every entry matched.
func (r Report) Empty() bool {
	return len(r.Materials) == 0 && len(r.Nodes) == 0
}

// Apply edits the avatar in place. Material patterns are matched against
// material names with path.Match; the first pattern in sorted order wins
// for fields set by several patterns. textures may be nil when the profile
// names no texture files.
func Apply(a *scene.Avatar, p *Profile, textures TextureSource) (Report, error) {
	log := logger.Log.Named("customize")
	var report Report

	materials := collectMaterials(a.Scene)

	patterns := make([]string, 0, len(p.Materials))
	for pat := range p.Materials {
		if _, err := path.Match(pat, ""); err != nil {
			return report, fmt.Errorf("material pattern %q: %w", pat, err)
		}
		patterns = append(patterns, pat)
	}
	// Later patterns overwrite earlier ones, so sort descending.
	sort.Sort(sort.Reverse(sort.StringSlice(patterns)))

	for _, pat := range patterns {
		edit := p.Materials[pat]
		matched := false
		for _, m := range materials {
			base := m.Common()
			if ok, _ := path.Match(pat, base.Name); !ok {
				continue
			}
			matched = true
			if err := edit.apply(base, textures); err != nil {
				return report, fmt.Errorf("material %q: %w", base.Name, err)
			}
			log.Debug("edited material", zap.String("material", base.Name), zap.String("pattern", pat))
		}
		if !matched {
			report.Materials = append(report.Materials, pat)
		}
	}

	report.Nodes = append(report.Nodes, setHidden(a.Scene, p.Hide, true)...)
	report.Nodes = append(report.Nodes, setHidden(a.Scene, p.Show, false)...)

	if len(p.Meta) > 0 {
		if a.Meta == nil {
			a.Meta = make(map[string]interface{}, len(p.Meta))
		}
		for k, v := range p.Meta {
			a.Meta[k] = v
		}
	}

	sort.Strings(report.Materials)
	sort.Strings(report.Nodes)
	if !report.Empty() {
		log.Warn("profile entries matched nothing",
			zap.Strings("materials", report.Materials), zap.Strings("nodes", report.Nodes))
	}
	return report, nil
}

func (e MaterialEdit) apply(m *scene.MaterialBase, textures TextureSource) error {
	if e.Color != nil {
		m.Color = scene.Color(*e.Color)
	}
	if e.Opacity != nil {
		m.Opacity = *e.Opacity
		m.Transparent = m.Opacity < 1
	}
	if e.Emissive != nil {
		m.Emissive = scene.Color(*e.Emissive)
		m.EmissiveIntensity = 1
	}

	replace := func(name string, slot **scene.Texture) error {
		if name == "" {
			return nil
		}
		if textures == nil {
			return fmt.Errorf("texture %q: no texture source", name)
		}
		t, err := textures.Texture(name)
		if err != nil {
			return err
		}
		// The new image keeps the old UV mapping.
		if old := *slot; old != nil {
			t.FlipY = old.FlipY
			t.Offset = old.Offset
			t.Repeat = old.Repeat
			t.Rotation = old.Rotation
			t.WrapS = old.WrapS
			t.WrapT = old.WrapT
		}
		*slot = t
		return nil
	}
	if err := replace(e.Texture, &m.Map); err != nil {
		return err
	}
	return replace(e.NormalMap, &m.NormalMap)
}

// collectMaterials returns every material used in the scene, once each,
// in pre-order of first use.
func collectMaterials(root *scene.Node) []scene.Material {
	var out []scene.Material
	seen := make(map[scene.Material]bool)
	root.Traverse(func(n *scene.Node) bool {
		if n.Mesh == nil {
			return true
		}
		for _, m := range n.Mesh.Materials {
			if m == nil || seen[m] {
				continue
			}
			seen[m] = true
			out = append(out, m)
		}
		return true
	})
	return out
}

// setHidden sets the visibility of every node with one of the names and
// returns the names that matched no node.
func setHidden(root *scene.Node, names []string, hidden bool) []string {
	if len(names) == 0 {
		return nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = false
	}
	root.Traverse(func(n *scene.Node) bool {
		if _, ok := want[n.Name]; ok {
			n.Hidden = hidden
			want[n.Name] = true
		}
		return true
	})

	var missing []string
	for name, found := range want {
		if !found {
			missing = append(missing, name)
		}
	}
	return missing
}
