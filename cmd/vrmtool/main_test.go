package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/vrm-customizer/pkg/glb"
)

func writeGLB(t *testing.T, jsonData string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "avatar.vrm")
	if err := os.WriteFile(path, glb.Encode([]byte(jsonData), []byte{0, 0, 0, 0}), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func TestCmdInfo(t *testing.T) {
	path := writeGLB(t, `{
		"asset": {"version": "2.0", "generator": "test"},
		"extensionsUsed": ["VRM"],
		"extensions": {"VRM": {
			"exporterVersion": "VRMCustomizer-1.0",
			"specVersion": "0.0",
			"meta": {"title": "Sample", "author": "Someone"},
			"blendShapeMaster": {"blendShapeGroups": [
				{"name": "Joy", "presetName": "joy", "binds": [], "materialValues": []}
			]}
		}}
	}`)

	var out bytes.Buffer
	if err := cmdInfo([]string{path}, &out); err != nil {
		t.Fatalf("cmdInfo failed: %v", err)
	}

	for _, want := range []string{"Version:     2", "Generator:   test", "title:       Sample", "author:      Someone", "blendshapes: 1 [joy]"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestCmdInfo_PlainGLB(t *testing.T) {
	path := writeGLB(t, `{"asset": {"version": "2.0"}}`)

	var out bytes.Buffer
	if err := cmdInfo([]string{path}, &out); err != nil {
		t.Fatalf("cmdInfo failed: %v", err)
	}
	if !strings.Contains(out.String(), "No VRM extension.") {
		t.Errorf("expected plain glTF notice:\n%s", out.String())
	}
}

func TestCmdInfo_Errors(t *testing.T) {
	if err := cmdInfo(nil, &bytes.Buffer{}); err == nil {
		t.Error("expected usage error")
	}

	path := filepath.Join(t.TempDir(), "broken.vrm")
	if err := os.WriteFile(path, []byte("not a glb"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := cmdInfo([]string{path}, &bytes.Buffer{}); err == nil {
		t.Error("expected parse error")
	}
}

func TestPrintUsage(t *testing.T) {
	var out bytes.Buffer
	printUsage(&out)
	for _, cmd := range []string{"export", "info"} {
		if !strings.Contains(out.String(), cmd) {
			t.Errorf("usage missing %q", cmd)
		}
	}
}

func TestCmdConfig_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "config.yaml")

	var out bytes.Buffer
	if err := cmdConfig([]string{"-max-texture", "512", path}, &out); err != nil {
		t.Fatalf("cmdConfig failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if !strings.Contains(string(data), "512") {
		t.Errorf("flag override missing from saved config:\n%s", data)
	}
}
