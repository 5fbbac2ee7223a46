package vrm

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestPresetName(t *testing.T) {
	tests := []struct {
		expression string
		want       string
	}{
		{"aa", "a"},
		{"ih", "i"},
		{"ou", "u"},
		{"ee", "e"},
		{"oh", "o"},
		{"blinkLeft", "blink_l"},
		{"blinkRight", "blink_r"},
		{"happy", "joy"},
		{"sad", "sorrow"},
		{"lookUp", "lookup"},
		{"neutral", "neutral"},
		{"relaxed", PresetUnknown},
		{"Surprised", PresetUnknown},
		{"", PresetUnknown},
	}

	for _, tt := range tests {
		if got := PresetName(tt.expression); got != tt.want {
			t.Errorf("PresetName(%q) = %q, want %q", tt.expression, got, tt.want)
		}
	}
}

func TestExpressionName(t *testing.T) {
	if got := ExpressionName("joy"); got != "happy" {
		t.Errorf("ExpressionName(joy) = %q, want happy", got)
	}
	if got := ExpressionName(PresetUnknown); got != "" {
		t.Errorf("ExpressionName(unknown) = %q, want empty", got)
	}
}

func TestGroupName(t *testing.T) {
	if got := GroupName("VRMExpression_happy"); got != "happy" {
		t.Errorf("GroupName = %q, want happy", got)
	}
	if got := GroupName("Custom"); got != "Custom" {
		t.Errorf("GroupName = %q, want Custom", got)
	}
}

func TestBoneName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"leftThumbMetacarpal", "leftThumbProximal"},
		{"leftThumbProximal", "leftThumbIntermediate"},
		{"leftThumbDistal", "leftThumbDistal"},
		{"hips", "hips"},
	}
	for _, tt := range tests {
		if got := BoneName(tt.in); got != tt.want {
			t.Errorf("BoneName(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if !IsHumanBone(BoneName(tt.in)) {
			t.Errorf("%q should map into the vocabulary", tt.in)
		}
	}
}

func TestHumanoid_MissingRequired(t *testing.T) {
	h := NewHumanoid()
	for _, b := range RequiredBones {
		if b == "head" {
			continue
		}
		h.HumanBones = append(h.HumanBones, &HumanBone{Bone: b, UseDefaultValues: true})
	}

	missing := h.MissingRequired()
	if len(missing) != 1 || missing[0] != "head" {
		t.Errorf("MissingRequired = %v, want [head]", missing)
	}
}

func TestHumanoid_JSON(t *testing.T) {
	h := NewHumanoid()
	h.HumanBones = append(h.HumanBones, &HumanBone{Bone: "hips", Node: 3, UseDefaultValues: true})

	data, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	for _, want := range []string{
		`"armStretch":0.05`,
		`"legStretch":0.05`,
		`"upperArmTwist":0.5`,
		`"feetSpacing":0`,
		`"hasTranslationDoF":false`,
		`{"bone":"hips","node":3,"useDefaultValues":true}`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("humanoid JSON missing %s: %s", want, data)
		}
	}
}

func TestMeta_Merge(t *testing.T) {
	m := Meta{"title": "Default", "author": "someone"}
	m.Merge(map[string]interface{}{"title": "Mine", "contactInformation": "x@y"})

	if m.Title() != "Mine" {
		t.Errorf("Title = %q, want Mine", m.Title())
	}
	if m.Author() != "someone" {
		t.Errorf("Author = %q, want someone", m.Author())
	}
	if m["contactInformation"] != "x@y" {
		t.Error("caller keys should be merged verbatim")
	}
}

func TestMaterialProperty_Clone(t *testing.T) {
	src := NewMaterialProperty("Body")
	src.Shader = ShaderMToon
	src.RenderQueue = 2450
	src.FloatProperties["_Cutoff"] = 0.5
	src.VectorProperties["_Color"] = []float32{1, 1, 1, 1}
	src.TextureProperties["_MainTex"] = 4
	src.KeywordMap["_NORMALMAP"] = true

	c := src.Clone("Body")
	if c.RenderQueue != 2450 || c.FloatProperties["_Cutoff"] != 0.5 || !c.KeywordMap["_NORMALMAP"] {
		t.Errorf("Clone lost properties: %+v", c)
	}
	if len(c.TextureProperties) != 0 {
		t.Error("Clone should not carry texture indices")
	}

	c.VectorProperties["_Color"][0] = 0
	if src.VectorProperties["_Color"][0] != 1 {
		t.Error("Clone should deep-copy vectors")
	}

	var nilProp *MaterialProperty
	if got := nilProp.Clone("X"); got.Name != "X" || got.Shader != ShaderMToon {
		t.Errorf("nil Clone = %+v", got)
	}
}

func TestVRM_JSON(t *testing.T) {
	v := New("vrm-customizer-1.0")
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var back VRM
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back.SpecVersion != SpecVersion || back.ExporterVersion != "vrm-customizer-1.0" {
		t.Errorf("round trip = %+v", back)
	}
	if !strings.Contains(string(data), `"materialProperties":[]`) {
		t.Errorf("materialProperties should serialize as an empty array: %s", data)
	}
}
