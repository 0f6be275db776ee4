package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	info := Info()

	if info.GoVersion != runtime.Version() {
		t.Errorf("expected go version %s, got %s", runtime.Version(), info.GoVersion)
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("unexpected platform %s", info.Platform)
	}
	if info.Version == "" {
		t.Error("expected a version")
	}
}

func TestInfo_LdflagsWin(t *testing.T) {
	old := Version
	Version = "v1.2.3"
	defer func() { Version = old }()

	info := Info()
	if info.Version != "v1.2.3" {
		t.Errorf("expected v1.2.3, got %s", info.Version)
	}
	if !strings.HasPrefix(info.String(), "loginsuite v1.2.3 (") {
		t.Errorf("unexpected string %q", info.String())
	}
}
